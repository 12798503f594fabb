package slack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortKey(t *testing.T) {
	cases := map[string]int64{
		"1503435956.000247":  1503435956000247,
		"1503435956.5":       1503435956500000,
		"1503435956":         1503435956000000,
		"1503435956.0002470": 1503435956000247,
	}
	for ts, want := range cases {
		got, err := SortKey(ts)
		require.NoError(t, err, ts)
		assert.Equal(t, want, got, ts)
	}

	for _, bad := range []string{"", "abc", "-1.0", "12.x", "1503435956.0002479", "1700000000.0000011"} {
		_, err := SortKey(bad)
		assert.Error(t, err, bad)
	}
}

func TestSortKeyOrdersLikeTime(t *testing.T) {
	a, _ := SortKey("1503435956.000247")
	b, _ := SortKey("1503435956.000248")
	assert.Less(t, a, b)
	assert.Equal(t, "1503435956.000247", FormatSortKey(a))
}

func TestParseTimestamp(t *testing.T) {
	ts, err := ParseTimestamp("1503435956.000247")
	require.NoError(t, err)
	assert.Equal(t, int64(1503435956), ts.Unix())
	assert.Equal(t, 247000, ts.Nanosecond())
}
