package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialectFor(t *testing.T) {
	cases := map[string]string{
		"":           "sqlite",
		"SQLite":     "sqlite",
		"sqlite3":    "sqlite",
		"postgres":   "postgres",
		"postgresql": "postgres",
		"pgx":        "postgres",
	}
	for in, want := range cases {
		d, err := DialectFor(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, d.Name, in)
	}

	_, err := DialectFor("oracle")
	assert.Error(t, err)
}

func TestParseTime(t *testing.T) {
	want := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

	for _, v := range []any{
		want,
		want.In(time.FixedZone("BRT", -3*3600)),
		"2024-05-01T12:30:00Z",
		"2024-05-01 12:30:00",
		[]byte("2024-05-01 09:30:00-03:00"),
		"2024-05-01 12:30:00 +0000 UTC",
	} {
		got, err := parseTime(v)
		require.NoError(t, err, "%v", v)
		assert.True(t, want.Equal(got), "%v parsed as %v", v, got)
	}

	_, err := parseTime(nil)
	assert.Error(t, err)
	_, err = parseTime(42)
	assert.Error(t, err)
	_, err = parseTime("yesterday")
	assert.Error(t, err)
}
