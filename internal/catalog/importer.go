// Package catalog loads the ordered card catalog from Excel, CSV or YAML files.
package catalog

import (
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/musclecards/pkg/models"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat is returned for files that are neither xlsx, csv nor yaml.
var ErrUnsupportedFormat = errors.New("unsupported catalog format")

//go:embed default.yaml
var defaultCatalog []byte

// ImportConfig defines the import configuration
type ImportConfig struct {
	IDColumn     string // Column with the card id
	PromptColumn string // Column with the question side
	AnswerColumn string // Column with the answer side
	TopicColumn  string // Column with the topic, optional
	SheetName    string // Name of the sheet to import
	StartRow     int    // The row to start importing from (1-based index)
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		IDColumn:     "A",
		PromptColumn: "B",
		AnswerColumn: "C",
		TopicColumn:  "D",
		SheetName:    "Sheet1",
		StartRow:     2, // By default, start from the second row (skip header)
	}
}

// LoadResult holds the result of a load operation
type LoadResult struct {
	Catalog        *models.Catalog
	TotalProcessed int
	Skipped        int
	Errors         []string
}

type yamlFile struct {
	Cards []models.Card `yaml:"cards"`
}

// LoadFile reads a catalog, choosing the format by file extension.
// Rows without an id are skipped and reported in LoadResult.Errors;
// duplicate ids fail the whole load since they would break card indices.
func LoadFile(path string, config ImportConfig) (*LoadResult, error) {
	var (
		cards  []models.Card
		result = &LoadResult{Errors: make([]string, 0)}
		err    error
	)

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx":
		cards, err = importFromExcel(path, config, result)
	case ".csv":
		cards, err = importFromCSV(path, config, result)
	case ".yaml", ".yml":
		cards, err = importFromYAML(path, result)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, err
	}

	cat, err := models.NewCatalog(cards)
	if err != nil {
		return nil, fmt.Errorf("build catalog from %s: %w", path, err)
	}
	result.Catalog = cat
	return result, nil
}

// Default returns the catalog bundled with the binary.
func Default() (*models.Catalog, error) {
	var file yamlFile
	if err := yaml.Unmarshal(defaultCatalog, &file); err != nil {
		return nil, fmt.Errorf("decode bundled catalog: %w", err)
	}
	return models.NewCatalog(file.Cards)
}

// importFromExcel reads cards from an Excel file
func importFromExcel(path string, config ImportConfig, result *LoadResult) ([]models.Card, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(config.SheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}

	var cards []models.Card
	for i, row := range rows {
		// Skip header rows
		if i < config.StartRow-1 {
			continue
		}
		if card, ok := processRow(row, config, "", result, i+1); ok {
			cards = append(cards, card)
		}
	}
	return cards, nil
}

// importFromCSV reads cards from a CSV file. A row holding only a first
// column ("Upper limb,,") starts a topic for the rows that follow.
func importFromCSV(path string, config ImportConfig, result *LoadResult) ([]models.Card, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var (
		cards        []models.Card
		rowNum       int
		currentTopic string
	)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %w", err)
		}

		rowNum++
		if rowNum < config.StartRow {
			continue
		}

		if topic, ok := topicHeader(row); ok {
			currentTopic = topic
			continue
		}

		if card, ok := processRow(row, config, currentTopic, result, rowNum); ok {
			cards = append(cards, card)
		}
	}
	return cards, nil
}

func importFromYAML(path string, result *LoadResult) ([]models.Card, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read YAML file: %w", err)
	}

	var file yamlFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode YAML: %w", err)
	}

	cards := make([]models.Card, 0, len(file.Cards))
	for i, card := range file.Cards {
		result.TotalProcessed++
		card.ID = cleanText(card.ID)
		if card.ID == "" {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("Card %d: id cannot be empty", i+1))
			continue
		}
		cards = append(cards, card)
	}
	return cards, nil
}

func topicHeader(row []string) (string, bool) {
	if len(row) == 0 || cleanText(row[0]) == "" {
		return "", false
	}
	for _, cell := range row[1:] {
		if strings.TrimSpace(cell) != "" {
			return "", false
		}
	}
	return strings.Trim(cleanText(row[0]), "\""), true
}

// processRow turns one spreadsheet row into a card
func processRow(row []string, config ImportConfig, defaultTopic string, result *LoadResult, rowNum int) (models.Card, bool) {
	result.TotalProcessed++

	card := models.Card{
		ID:     cleanText(cell(row, config.IDColumn)),
		Prompt: cleanText(cell(row, config.PromptColumn)),
		Answer: cleanText(cell(row, config.AnswerColumn)),
		Topic:  cleanText(cell(row, config.TopicColumn)),
	}
	if card.Topic == "" {
		card.Topic = defaultTopic
	}

	if card.ID == "" {
		result.Skipped++
		result.Errors = append(result.Errors, fmt.Sprintf("Row %d: id cannot be empty", rowNum))
		return models.Card{}, false
	}
	return card, true
}

func cell(row []string, column string) string {
	if column == "" {
		return ""
	}
	if colIdx := columnToIndex(column); colIdx >= 0 && colIdx < len(row) {
		return row[colIdx]
	}
	return ""
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Helper function to convert Excel column letter to index
func columnToIndex(column string) int {
	column = strings.ToUpper(column)
	index := 0
	for i := 0; i < len(column); i++ {
		index = index*26 + int(column[i]-'A'+1)
	}
	return index - 1
}
