package location

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// parseTimestamp accepts an RFC 3339 string or unix epoch milliseconds (as a
// number or a numeric string), the two shapes device bridges commonly emit.
func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		s = string(raw)
	}
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts, nil
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %s", raw)
	}
	return time.UnixMilli(ms), nil
}
