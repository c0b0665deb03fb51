package schema

import "strings"

// NormalizeTimeframe maps the backend's short timeframe forms onto the
// canonical names used by the dashboard: "5" -> "5Min", "1h" -> "1Hour",
// "1d" -> "1Day". Tick timeframes ("516t") and values that are already
// canonical are returned unchanged, so the function is idempotent.
func NormalizeTimeframe(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return s
	}
	for _, suffix := range []string{"Min", "Hour", "Day"} {
		if strings.HasSuffix(s, suffix) {
			return s
		}
	}
	n := len(s)
	switch s[n-1] {
	case 'h', 'H':
		return s[:n-1] + "Hour"
	case 'd', 'D':
		return s[:n-1] + "Day"
	case 't', 'T':
		return s[:n-1] + "t"
	case 'm':
		return s[:n-1] + "Min"
	}
	return s + "Min"
}
