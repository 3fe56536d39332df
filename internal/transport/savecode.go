// Package transport carries progress between devices: as an opaque save code
// that can be copy-pasted, or as a share link with the same parameters in its query.
package transport

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/example/musclecards/internal/codec"
	"github.com/example/musclecards/pkg/models"
)

// SaveCodeVersion is the only envelope version this build reads and writes.
const SaveCodeVersion = 1

// Parameter keys shared by links and save codes.
const (
	ParamCard     = "card"
	ParamName     = "name"
	ParamTheme    = "theme"
	ParamProgress = "p"
	ParamCatalog  = "cv"
)

// Metadata travels next to the progress payload.
type Metadata struct {
	CardID      string
	DisplayName string
	Theme       string
}

type envelope struct {
	Version *int              `json:"version"`
	Params  map[string]string `json:"params"`
}

func buildParams(states map[string]models.CardState, cat *models.Catalog, meta Metadata) (url.Values, []codec.Skip) {
	payload, skipped := codec.Encode(states, cat)

	params := url.Values{}
	if meta.CardID != "" {
		params.Set(ParamCard, meta.CardID)
	}
	if meta.DisplayName != "" {
		params.Set(ParamName, meta.DisplayName)
	}
	if meta.Theme != "" {
		params.Set(ParamTheme, meta.Theme)
	}
	if payload != "" {
		params.Set(ParamProgress, payload)
	}
	params.Set(ParamCatalog, cat.Fingerprint())
	return params, skipped
}

// BuildSaveCode wraps the encoded progress and metadata into a versioned,
// base64 encoded envelope. Parameter values are stored query-escaped, as
// they would appear in a link. It returns "" if the envelope cannot be serialized.
func BuildSaveCode(states map[string]models.CardState, cat *models.Catalog, meta Metadata) (string, []codec.Skip) {
	params, skipped := buildParams(states, cat, meta)

	version := SaveCodeVersion
	env := envelope{Version: &version, Params: make(map[string]string, len(params))}
	for key := range params {
		env.Params[key] = url.QueryEscape(params.Get(key))
	}

	data, err := json.Marshal(env)
	if err != nil {
		return "", skipped
	}
	return base64.StdEncoding.EncodeToString(data), skipped
}

func parseSaveCode(code string) (ParamBag, error) {
	data, err := codec.DecodeBase64(code)
	if err != nil {
		return nil, resumeErr(KindMalformedCode, "", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, resumeErr(KindMalformedCode, "", err)
	}
	if env.Version == nil {
		return nil, resumeErr(KindMalformedCode, "version", nil)
	}
	if *env.Version != SaveCodeVersion {
		return nil, resumeErr(KindUnsupportedVersion, "version", fmt.Errorf("got %d, want %d", *env.Version, SaveCodeVersion))
	}

	bag := make(ParamBag, len(env.Params))
	for key, raw := range env.Params {
		value, err := url.QueryUnescape(raw)
		if err != nil {
			return nil, resumeErr(KindMalformedCode, key, err)
		}
		bag[key] = strings.TrimSpace(value)
	}
	return bag, nil
}
