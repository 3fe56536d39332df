package transport

import (
	"net/url"
	"strings"

	"github.com/example/musclecards/internal/codec"
	"github.com/example/musclecards/pkg/models"
)

// DefaultThemes are the theme identifiers a resume input may select.
var DefaultThemes = []string{"light", "dark", "anatomy", "contrast"}

var knownParams = []string{ParamCard, ParamName, ParamTheme, ParamProgress, ParamCatalog}

// ParamBag holds decoded resume parameters. Unknown keys are kept and ignored.
type ParamBag map[string]string

// Get returns the value of key, "" when absent.
func (b ParamBag) Get(key string) string {
	return b[key]
}

func (b ParamBag) hasContent() bool {
	for _, key := range knownParams {
		if b[key] != "" {
			return true
		}
	}
	return false
}

// ParseResumeInput normalizes a full link, a bare query string starting with
// '?' or a save code into one ParamBag.
func ParseResumeInput(input string) (ParamBag, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, resumeErr(KindEmptyInput, "", nil)
	}

	var (
		bag ParamBag
		err error
	)
	switch {
	case strings.HasPrefix(input, "?"):
		bag, err = parseQuery(input[1:])
	case strings.Contains(input, "://"):
		bag, err = parseLink(input)
	default:
		bag, err = parseSaveCode(input)
	}
	if err != nil {
		return nil, err
	}
	if !bag.hasContent() {
		return nil, resumeErr(KindNoContent, "", nil)
	}
	return bag, nil
}

func parseLink(link string) (ParamBag, error) {
	u, err := url.Parse(link)
	if err != nil {
		return nil, resumeErr(KindMalformedURL, "", err)
	}
	return parseQuery(u.RawQuery)
}

func parseQuery(raw string) (ParamBag, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, resumeErr(KindMalformedURL, "", err)
	}
	bag := make(ParamBag, len(values))
	for key, vs := range values {
		if len(vs) > 0 {
			bag[key] = strings.TrimSpace(vs[0])
		}
	}
	return bag, nil
}

// Resume is everything recovered from one resume input.
// States is nil when the input carried no progress.
type Resume struct {
	States      map[string]models.CardState
	Format      codec.Format
	Skipped     []codec.Skip
	CardID      string
	DisplayName string
	Theme       string
}

// Resumer validates parameters against the catalog and the known themes.
type Resumer struct {
	Catalog *models.Catalog
	Themes  []string // nil means DefaultThemes
}

func (r Resumer) themes() []string {
	if r.Themes == nil {
		return DefaultThemes
	}
	return r.Themes
}

func (r Resumer) knownTheme(theme string) bool {
	for _, t := range r.themes() {
		if t == theme {
			return true
		}
	}
	return false
}

// Resume parses and applies input in one step.
func (r Resumer) Resume(input string) (Resume, error) {
	bag, err := ParseResumeInput(input)
	if err != nil {
		return Resume{}, err
	}
	return r.Apply(bag)
}

// Apply validates every field of bag. Either all fields are accepted or the
// first rejected one is reported and nothing is returned.
func (r Resumer) Apply(bag ParamBag) (Resume, error) {
	if cv := bag.Get(ParamCatalog); cv != "" && !r.Catalog.Extends(cv) {
		return Resume{}, resumeErr(KindCatalogMismatch, ParamCatalog, nil)
	}

	out := Resume{
		CardID:      bag.Get(ParamCard),
		DisplayName: bag.Get(ParamName),
		Theme:       bag.Get(ParamTheme),
	}

	if out.Theme != "" && !r.knownTheme(out.Theme) {
		return Resume{}, resumeErr(KindUnknownTheme, ParamTheme, nil)
	}
	if out.CardID != "" && !r.Catalog.Has(out.CardID) {
		return Resume{}, resumeErr(KindUnknownCard, ParamCard, nil)
	}

	if p := bag.Get(ParamProgress); p != "" {
		// '+' turns into a space when a link passes through an unescaping channel
		decoded, err := codec.Decode(strings.ReplaceAll(p, " ", "+"), r.Catalog)
		if err != nil {
			return Resume{}, resumeErr(KindBadProgress, ParamProgress, err)
		}
		out.States = decoded.States
		out.Format = decoded.Format
		out.Skipped = decoded.Skipped
	}

	return out, nil
}
