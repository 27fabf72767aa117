package market

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Snapshot is one agent observation of a market. Fields other than the
// identity and timestamp are kept verbatim in Raw.
type Snapshot struct {
	MarketID   string
	RecordedAt time.Time
	Raw        json.RawMessage
}

type snapshotKeys struct {
	MarketID   string          `json:"market_id"`
	RecordedAt json.RawMessage `json:"recorded_at"`
}

func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var keys snapshotKeys
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	ts, err := parseRecordedAt(keys.RecordedAt)
	if err != nil {
		return fmt.Errorf("market %s: %w", keys.MarketID, err)
	}
	s.MarketID = keys.MarketID
	s.RecordedAt = ts
	s.Raw = append(json.RawMessage(nil), data...)
	return nil
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	if len(s.Raw) > 0 {
		return s.Raw, nil
	}
	return json.Marshal(map[string]any{
		"market_id":   s.MarketID,
		"recorded_at": s.RecordedAt.UTC().Format(time.RFC3339Nano),
	})
}

// parseRecordedAt accepts RFC3339 strings and unix seconds or milliseconds,
// either as numbers or numeric strings. A missing value is the zero time.
func parseRecordedAt(raw json.RawMessage) (time.Time, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return time.Time{}, nil
	}
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, err
		}
		text = strings.TrimSpace(s)
		if text == "" {
			return time.Time{}, nil
		}
		if t, err := time.Parse(time.RFC3339Nano, text); err == nil {
			return t, nil
		}
		if t, err := time.Parse("2006-01-02 15:04:05", text); err == nil {
			return t, nil
		}
	}
	n, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized recorded_at %q", text)
	}
	// Anything past year 5000 in seconds is treated as milliseconds.
	if n > 1e11 {
		return time.UnixMilli(int64(n)), nil
	}
	sec := int64(n)
	return time.Unix(sec, int64((n-float64(sec))*1e9)), nil
}

// Dedupe keeps one snapshot per market_id, the one with the latest
// recorded_at. Output follows the order in which each market first appears;
// on equal timestamps the earlier entry wins. Rows without a market_id have
// no identity to merge on and pass through unchanged.
func Dedupe(snapshots []Snapshot) []Snapshot {
	index := make(map[string]int, len(snapshots))
	out := make([]Snapshot, 0, len(snapshots))
	for _, s := range snapshots {
		if s.MarketID == "" {
			out = append(out, s)
			continue
		}
		i, seen := index[s.MarketID]
		if !seen {
			index[s.MarketID] = len(out)
			out = append(out, s)
			continue
		}
		if s.RecordedAt.After(out[i].RecordedAt) {
			out[i] = s
		}
	}
	return out
}

// DecodeSnapshots reads either a bare JSON array or an object wrapping the
// array under "markets" or "data". Any other object is an error so callers
// can relay it untouched.
func DecodeSnapshots(body []byte) ([]Snapshot, error) {
	var list []Snapshot
	if err := json.Unmarshal(body, &list); err == nil {
		return list, nil
	}
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, err
	}
	for _, key := range []string{"markets", "data"} {
		raw, ok := wrapped[key]
		if !ok || string(raw) == "null" {
			continue
		}
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		return list, nil
	}
	return nil, errors.New("no markets or data array in response")
}
