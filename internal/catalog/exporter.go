package catalog

import (
	"fmt"

	"github.com/example/musclecards/pkg/models"
	"github.com/xuri/excelize/v2"
)

var templateHeader = []interface{}{"ID", "Prompt", "Answer", "Topic"}

// WriteXLSX saves cat as a spreadsheet laid out the way DefaultImportConfig reads it.
// Appending rows to the result is the safe way to grow a catalog.
func WriteXLSX(path string, cat *models.Catalog) error {
	config := DefaultImportConfig()

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetRow(config.SheetName, "A1", &templateHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, card := range cat.Cards() {
		cellName, err := excelize.CoordinatesToCellName(1, config.StartRow+i)
		if err != nil {
			return err
		}
		row := []interface{}{card.ID, card.Prompt, card.Answer, card.Topic}
		if err := f.SetSheetRow(config.SheetName, cellName, &row); err != nil {
			return fmt.Errorf("write card %s: %w", card.ID, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
