package slack

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const fractionDigits = 6

// SortKey converts a message timestamp ("1503435956.000247") into an integer
// of microseconds. The fraction is right-padded to six digits so "1.5" and
// "1.500000" map to the same key. Digits past the sixth must be zero;
// anything finer cannot be ordered by the key and is rejected.
func SortKey(ts string) (int64, error) {
	ts = strings.TrimSpace(ts)
	if ts == "" {
		return 0, fmt.Errorf("empty timestamp")
	}

	secPart, fracPart, _ := strings.Cut(ts, ".")
	sec, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil || sec < 0 {
		return 0, fmt.Errorf("invalid timestamp %q", ts)
	}

	if len(fracPart) > fractionDigits {
		if strings.Trim(fracPart[fractionDigits:], "0") != "" {
			return 0, fmt.Errorf("timestamp %q is finer than microseconds", ts)
		}
		fracPart = fracPart[:fractionDigits]
	}
	fracPart += strings.Repeat("0", fractionDigits-len(fracPart))

	micros, err := strconv.ParseInt(fracPart, 10, 64)
	if err != nil || micros < 0 {
		return 0, fmt.Errorf("invalid timestamp %q", ts)
	}

	return sec*1_000_000 + micros, nil
}

// ParseTimestamp converts a message timestamp to time.Time.
func ParseTimestamp(ts string) (time.Time, error) {
	key, err := SortKey(ts)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMicro(key).UTC(), nil
}

// FormatSortKey renders a sort key back into the remote timestamp form.
func FormatSortKey(key int64) string {
	return fmt.Sprintf("%d.%06d", key/1_000_000, key%1_000_000)
}
