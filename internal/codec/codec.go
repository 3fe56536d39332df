// Package codec packs a map of card states into a compact base64 payload and back.
//
// The compact form is a JSON list of seven-element tuples
//
//	[catalogIndex, statusIndex, intervalDays, easeFactor, dueMinutes, lastReviewedMinutes, streak]
//
// base64 encoded. Timestamps keep minute precision and ease factors two
// decimals. Decoding also accepts the older full-precision form, a JSON
// object keyed by card id.
package codec

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/example/musclecards/pkg/models"
)

// RecordArity is the number of elements in a compact tuple.
const RecordArity = 7

// maxMinutes bounds decoded timestamps to a range time.Time handles comfortably.
const maxMinutes = 1 << 40

// Format tells which representation a payload used.
type Format int

const (
	FormatNone Format = iota
	FormatCompact
	FormatLegacy
)

func (f Format) String() string {
	switch f {
	case FormatCompact:
		return "compact"
	case FormatLegacy:
		return "legacy"
	default:
		return "none"
	}
}

// Record is the compact form of one card state.
type Record struct {
	Index       int
	Status      int
	Interval    int
	Ease        float64
	DueMinutes  int64
	LastMinutes int64
	Streak      int
}

// MarshalJSON writes the record as a fixed-arity JSON array.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal([RecordArity]any{
		r.Index, r.Status, r.Interval, r.Ease, r.DueMinutes, r.LastMinutes, r.Streak,
	})
}

// Payload is a parsed, not yet validated, progress payload:
// either CompactPayload or LegacyPayload.
type Payload interface {
	Format() Format
}

// CompactPayload holds the raw tuples of a compact payload.
type CompactPayload struct {
	Records []json.RawMessage
}

// Format implements Payload.
func (CompactPayload) Format() Format { return FormatCompact }

// LegacyPayload holds the raw entries of a full-precision state object.
type LegacyPayload struct {
	Entries map[string]json.RawMessage
}

// Format implements Payload.
func (LegacyPayload) Format() Format { return FormatLegacy }

// Decoded is the outcome of decoding a payload. States is never nil.
type Decoded struct {
	States  map[string]models.CardState
	Format  Format
	Skipped []Skip
}

func emptyDecoded() Decoded {
	return Decoded{States: map[string]models.CardState{}}
}

// Encode packs states into the compact payload. Entries that cannot be
// represented are left out and reported as skips; Encode never fails
// except by returning "" when serialization itself breaks.
func Encode(states map[string]models.CardState, cat *models.Catalog) (string, []Skip) {
	records := make([]Record, 0, len(states))
	var skipped []Skip

	for id, state := range states {
		rec, reason, ok := newRecord(id, state, cat)
		if !ok {
			skipped = append(skipped, Skip{CardID: id, Index: -1, Reason: reason})
			continue
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Index < records[j].Index })
	sort.Slice(skipped, func(i, j int) bool { return skipped[i].CardID < skipped[j].CardID })

	data, err := json.Marshal(records)
	if err != nil {
		return "", skipped
	}
	return base64.StdEncoding.EncodeToString(data), skipped
}

func newRecord(id string, state models.CardState, cat *models.Catalog) (Record, Reason, bool) {
	index, ok := cat.IndexOf(id)
	if !ok {
		return Record{}, ReasonUnknownCard, false
	}
	if !state.Status.IsValid() {
		return Record{}, ReasonInvalidStatus, false
	}
	if !finite(state.IntervalDays) || !finite(state.EaseFactor) {
		return Record{}, ReasonNonFinite, false
	}
	if state.IntervalDays < 0 || state.Streak < 0 {
		return Record{}, ReasonNegative, false
	}

	return Record{
		Index:       index,
		Status:      int(state.Status),
		Interval:    int(math.Round(models.ClampInterval(state.IntervalDays))),
		Ease:        roundEase(state.EaseFactor),
		DueMinutes:  toMinutes(state.DueAt),
		LastMinutes: toMinutes(state.LastReviewedAt),
		Streak:      state.Streak,
	}, 0, true
}

// Decode reverses Encode. It also accepts a base64 encoded legacy state object.
// On error the returned Decoded still carries an empty, non-nil map, so callers
// that treat "nothing recovered" as a normal outcome may ignore the error.
func Decode(payload string, cat *models.Catalog) (Decoded, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return emptyDecoded(), &DecodeError{Kind: KindEmpty}
	}

	data, err := DecodeBase64(payload)
	if err != nil {
		return emptyDecoded(), &DecodeError{Kind: KindEncoding, Err: err}
	}
	return DecodeJSON(data, cat)
}

// DecodeJSON decodes an already base64-decoded payload.
func DecodeJSON(data []byte, cat *models.Catalog) (Decoded, error) {
	payload, err := ParsePayload(data)
	if err != nil {
		return emptyDecoded(), err
	}

	switch p := payload.(type) {
	case CompactPayload:
		return decodeCompact(p, cat), nil
	case LegacyPayload:
		return decodeLegacy(p), nil
	default:
		return emptyDecoded(), &DecodeError{Kind: KindShape}
	}
}

// ParsePayload resolves the payload representation once, up front.
func ParsePayload(data []byte) (Payload, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, &DecodeError{Kind: KindEmpty}
	}
	if !json.Valid(data) {
		return nil, &DecodeError{Kind: KindSyntax}
	}

	switch data[0] {
	case '[':
		var records []json.RawMessage
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, &DecodeError{Kind: KindSyntax, Err: err}
		}
		return CompactPayload{Records: records}, nil
	case '{':
		var entries map[string]json.RawMessage
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, &DecodeError{Kind: KindSyntax, Err: err}
		}
		return LegacyPayload{Entries: entries}, nil
	default:
		return nil, &DecodeError{Kind: KindShape}
	}
}

func decodeCompact(p CompactPayload, cat *models.Catalog) Decoded {
	out := Decoded{
		States: make(map[string]models.CardState, len(p.Records)),
		Format: FormatCompact,
	}
	for i, raw := range p.Records {
		state, reason, ok := decodeRecord(raw, cat)
		if !ok {
			out.Skipped = append(out.Skipped, Skip{Index: i, Reason: reason})
			continue
		}
		out.States[state.CardID] = state
	}
	return out
}

func decodeRecord(raw json.RawMessage, cat *models.Catalog) (models.CardState, Reason, bool) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return models.CardState{}, ReasonMalformed, false
	}
	if len(elems) != RecordArity {
		return models.CardState{}, ReasonArity, false
	}

	var nums [RecordArity]float64
	for i, elem := range elems {
		var n *float64
		if err := json.Unmarshal(elem, &n); err != nil || n == nil {
			return models.CardState{}, ReasonMalformed, false
		}
		nums[i] = *n
	}

	if nums[0] != math.Trunc(nums[0]) {
		return models.CardState{}, ReasonMalformed, false
	}
	if math.Abs(nums[4]) > maxMinutes || math.Abs(nums[5]) > maxMinutes {
		return models.CardState{}, ReasonMalformed, false
	}
	id, ok := cat.IDAt(int(nums[0]))
	if nums[0] < 0 || !ok {
		return models.CardState{}, ReasonIndexRange, false
	}

	state := models.CardState{
		CardID:         id,
		Status:         models.StatusFromIndex(int(nums[1])),
		IntervalDays:   models.ClampInterval(nums[2]),
		EaseFactor:     math.Max(models.MinEaseFactor, nums[3]),
		DueAt:          fromMinutes(int64(nums[4])),
		LastReviewedAt: fromMinutes(int64(nums[5])),
	}
	if streak := int(nums[6]); streak > 0 {
		state.Streak = streak
	}
	return state, 0, true
}

func decodeLegacy(p LegacyPayload) Decoded {
	out := Decoded{
		States: make(map[string]models.CardState, len(p.Entries)),
		Format: FormatLegacy,
	}
	for id, raw := range p.Entries {
		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			out.Skipped = append(out.Skipped, Skip{CardID: id, Index: -1, Reason: ReasonMalformed})
			continue
		}
		var state models.CardState
		if err := json.Unmarshal(raw, &state); err != nil {
			out.Skipped = append(out.Skipped, Skip{CardID: id, Index: -1, Reason: ReasonMalformed})
			continue
		}
		state.CardID = id
		out.States[id] = state
	}
	sort.Slice(out.Skipped, func(i, j int) bool { return out.Skipped[i].CardID < out.Skipped[j].CardID })
	return out
}

// DecodeBase64 accepts padded and unpadded input in both the standard and URL-safe alphabets.
func DecodeBase64(s string) ([]byte, error) {
	var firstErr error
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		data, err := enc.DecodeString(s)
		if err == nil {
			return data, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}

func roundEase(ef float64) float64 {
	return math.Max(models.MinEaseFactor, math.Round(ef*100)/100)
}

func toMinutes(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	sec := t.Unix()
	m := sec / 60
	if sec%60 < 0 {
		m--
	}
	return m
}

func fromMinutes(m int64) time.Time {
	if m == 0 {
		return time.Time{}
	}
	return time.Unix(m*60, 0).UTC()
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
