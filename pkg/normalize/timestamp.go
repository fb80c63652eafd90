package normalize

import (
	"encoding/json"
	"math"
	"strings"
	"time"
)

// timestampLayouts are tried, in order, for strings without a 'T' separator.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006 15:04:05",
}

// Timestamp normalizes a raw timestamp value to an ISO-8601 string.
// Strings containing 'T' are returned unchanged. Other strings are parsed
// against a fixed layout list in UTC and numbers are unix seconds. The
// boolean is false when the value could not be interpreted.
func Timestamp(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		if strings.Contains(t, "T") {
			return t, true
		}
		for _, layout := range timestampLayouts {
			if parsed, err := time.ParseInLocation(layout, t, time.UTC); err == nil {
				return parsed.Format(time.RFC3339), true
			}
		}
		return "", false
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return "", false
		}
		return fromUnix(f)
	case float64:
		return fromUnix(t)
	case int64:
		return fromUnix(float64(t))
	case int:
		return fromUnix(float64(t))
	default:
		return "", false
	}
}

func fromUnix(seconds float64) (string, bool) {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return "", false
	}
	sec, frac := math.Modf(seconds)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC().Format(time.RFC3339), true
}
