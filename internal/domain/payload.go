package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Payload is the decoded feed body.
type Payload struct {
	Data *PayloadData `json:"data"`
}

// PayloadData holds the two lists the pipelines consume. A nil slice means
// the key was absent or null.
type PayloadData struct {
	HistoryList []HistoryEntry `json:"historylist"`
	List        []RegionEntry  `json:"list"`
}

// HistoryEntry is one day of national totals.
type HistoryEntry struct {
	Date      string `json:"date"`
	Confirmed Count  `json:"cn_conNum"`
	Deaths    Count  `json:"cn_deathNum"`
	Cured     Count  `json:"cn_cureNum"`
	Suspected Count  `json:"cn_susNum"`
}

// RegionEntry is one province's confirmed count.
type RegionEntry struct {
	Name  string `json:"name"`
	Value Count  `json:"value"`
}

// Count is an integer that the feed may encode as a number, a numeric
// string, an empty string, or null. Valid is false for the last two and when
// the key is absent.
type Count struct {
	Value int
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Count) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*c = Count{}
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidCount, s)
		}
		s = strings.TrimSpace(str)
		if s == "" {
			*c = Count{}
			return nil
		}
	}
	n, err := parseCount(s)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidCount, s)
	}
	*c = Count{Value: n, Valid: true}
	return nil
}

// parseCount accepts non-negative integers, including integral floats such
// as "12.0". Fractions, negatives and values beyond the int range are
// rejected.
func parseCount(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, ErrInvalidCount
		}
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ErrInvalidCount
	}
	if f < 0 || f != math.Trunc(f) || f >= math.MaxInt64 {
		return 0, ErrInvalidCount
	}
	return int(f), nil
}

// Or returns the value when valid and fallback otherwise.
func (c Count) Or(fallback int) int {
	if !c.Valid {
		return fallback
	}
	return c.Value
}

// UnwrapJSONP extracts the JSON value from a callback-wrapped body such as
// `cb({"data":{}});`. Repeated opening parentheses before the value are
// tolerated, and anything after the closing parenthesis is ignored.
func UnwrapJSONP(body []byte) (json.RawMessage, error) {
	start := bytes.IndexByte(body, '(')
	if start < 0 {
		return nil, fmt.Errorf("%w: no opening parenthesis", ErrMalformedWrapper)
	}
	rest := bytes.TrimLeft(body[start:], "( \t\r\n")

	dec := json.NewDecoder(bytes.NewReader(rest))
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedWrapper, err)
	}

	tail := bytes.TrimLeft(rest[dec.InputOffset():], " \t\r\n")
	if len(tail) == 0 || tail[0] != ')' {
		return nil, fmt.Errorf("%w: no closing parenthesis", ErrMalformedWrapper)
	}
	return raw, nil
}

// ParsePayload decodes the unwrapped feed JSON. The data object is required;
// the lists inside it are checked by the extractors that need them.
func ParsePayload(raw []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if p.Data == nil {
		return nil, fmt.Errorf("%w: data", ErrMissingKey)
	}
	return &p, nil
}
