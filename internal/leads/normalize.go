package leads

import (
	"bytes"
	"encoding/json"
	"math"
)

type envelope struct {
	Success       *bool           `json:"success"`
	Data          json.RawMessage `json:"data"`
	TotalCount    *float64        `json:"totalCount"`
	FilterOptions json.RawMessage `json:"filterOptions"`
}

// Normalize maps the listing endpoint's response shapes onto ListingResult:
// the success envelope, a bare array of rows, or anything else as an empty
// result flagged Malformed.
func Normalize(body []byte) ListingResult {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return malformed()
	}
	switch trimmed[0] {
	case '[':
		var rows []Record
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return malformed()
		}
		return ListingResult{Rows: nonNil(rows), TotalCount: len(rows)}
	case '{':
		return normalizeEnvelope(trimmed)
	default:
		return malformed()
	}
}

func normalizeEnvelope(body []byte) ListingResult {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return malformed()
	}
	if env.Success == nil || !*env.Success {
		return malformed()
	}
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || data[0] != '[' {
		return malformed()
	}
	var rows []Record
	if err := json.Unmarshal(data, &rows); err != nil {
		return malformed()
	}

	result := ListingResult{Rows: nonNil(rows), TotalCount: len(rows)}
	if env.TotalCount != nil {
		result.TotalCount = clampCount(*env.TotalCount)
	}
	if opts := bytes.TrimSpace(env.FilterOptions); len(opts) > 0 && !bytes.Equal(opts, []byte("null")) {
		var set FilterOptionSet
		if err := json.Unmarshal(opts, &set); err == nil {
			normalized := set.normalized()
			result.FilterOptions = &normalized
		}
	}
	return result
}

func malformed() ListingResult {
	return ListingResult{Rows: []Record{}, Malformed: true}
}

func nonNil(rows []Record) []Record {
	if rows == nil {
		return []Record{}
	}
	return rows
}

// clampCount bounds a reported total to [0, MaxInt32] before converting.
func clampCount(v float64) int {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= math.MaxInt32:
		return math.MaxInt32
	}
	return int(v)
}
