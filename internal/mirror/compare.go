package mirror

import (
	"cmp"
	"encoding/json"
	"time"
)

// rank orders values of different kinds: missing < number < string < time.
func rank(v any) (int, float64, string, time.Time) {
	switch x := v.(type) {
	case nil:
		return 0, 0, "", time.Time{}
	case int:
		return 1, float64(x), "", time.Time{}
	case int64:
		return 1, float64(x), "", time.Time{}
	case float64:
		return 1, x, "", time.Time{}
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 2, 0, x.String(), time.Time{}
		}
		return 1, f, "", time.Time{}
	case string:
		return 2, 0, x, time.Time{}
	case time.Time:
		return 3, 0, "", x
	default:
		return 0, 0, "", time.Time{}
	}
}

// compare returns -1, 0 or +1. RFC 3339 UTC strings compare correctly as text.
func compare(a, b any) int {
	ra, fa, sa, ta := rank(a)
	rb, fb, sb, tb := rank(b)
	if ra != rb {
		return cmp.Compare(ra, rb)
	}
	switch ra {
	case 1:
		return cmp.Compare(fa, fb)
	case 2:
		return cmp.Compare(sa, sb)
	case 3:
		return ta.Compare(tb)
	}
	return 0
}
