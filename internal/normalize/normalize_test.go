package normalize

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLine_AcceptsLocalizedLayout(t *testing.T) {
	t.Parallel()

	row, reason := Line("Sa. 01.05.21 00:00:00;50", ";")
	require.Equal(t, OK, reason)
	assert.Equal(t, time.Date(2021, 5, 1, 0, 0, 0, 0, time.UTC), row.Timestamp)
	assert.Equal(t, 50.0, row.Frequency)
	assert.Equal(t, "2021-05-01 00:00:00", row.Canonical())
}

func TestLine_CommaDecimalSeparator(t *testing.T) {
	t.Parallel()

	row, reason := Line("Sa. 01.05.21 00:00:01;50,5", ";")
	require.Equal(t, OK, reason)
	assert.Equal(t, 50.5, row.Frequency)
	assert.Equal(t, "2021-05-01 00:00:01,50.5", row.CopyLine())
}

func TestLine_WeekdayPrefixLengthVaries(t *testing.T) {
	t.Parallel()

	// The weekday abbreviation is locale-rendered; its length must not matter.
	for _, prefix := range []string{"", "Sa. ", "Sat. ", "samedi ", `"So. `} {
		row, reason := Line(prefix+`01.05.21 12:30:45";49.98`, ";")
		require.Equalf(t, OK, reason, "prefix %q", prefix)
		assert.Equal(t, "2021-05-01 12:30:45", row.Canonical())
	}
}

func TestLine_QuotedAndPaddedFields(t *testing.T) {
	t.Parallel()

	row, reason := Line(`  "Sa. 01.05.21 00:00:30"  ;  "50,02"  `, ";")
	require.Equal(t, OK, reason)
	assert.Equal(t, 50.02, row.Frequency)
}

func TestLine_Rejections(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want Reason
	}{
		{"single field", "01.05.21 00:00:00", RejectFieldCount},
		{"empty line", "", RejectFieldCount},
		{"garbage timestamp", "not-a-date;50", RejectBadTimestamp},
		{"non numeric value", "01.05.21 00:00:00;abc", RejectBadValue},
		{"empty value", "01.05.21 00:00:00;", RejectBadValue},
		{"nan value", "01.05.21 00:00:00;NaN", RejectBadValue},
		{"inf value", "01.05.21 00:00:00;+Inf", RejectBadValue},
		{"month out of range", "01.13.21 00:00:00;50", RejectBadTimestamp},
		{"day out of range", "32.01.21 00:00:00;50", RejectBadTimestamp},
		{"truncated time", "01.05.21 00:00;50", RejectBadTimestamp},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, reason := Line(tc.in, ";")
			assert.Equal(t, tc.want, reason)
		})
	}
}

// Re-applying Line to its own canonical output must reproduce the same row.
func TestLine_IdempotentOnCanonicalOutput(t *testing.T) {
	t.Parallel()

	first, reason := Line("Mo. 03.05.21 10:15:00;49,97", ";")
	require.Equal(t, OK, reason)

	second, reason := Line(first.CopyLine(), ",")
	require.Equal(t, OK, reason)
	assert.True(t, first.Timestamp.Equal(second.Timestamp))
	assert.Equal(t, first.Frequency, second.Frequency)
}

func TestLine_Deterministic(t *testing.T) {
	t.Parallel()

	const in = "Di. 04.05.21 23:59:59;50,001"
	a, ra := Line(in, ";")
	b, rb := Line(in, ";")
	assert.Equal(t, ra, rb)
	assert.Equal(t, a, b)
}

func TestReason_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ok", OK.String())
	assert.Equal(t, "field_count", RejectFieldCount.String())
	assert.Equal(t, "bad_value", RejectBadValue.String())
	assert.Equal(t, "bad_timestamp", RejectBadTimestamp.String())
	assert.Equal(t, "unknown", Reason(99).String())
}

func BenchmarkLine(b *testing.B) {
	for b.Loop() {
		_, _ = Line("Sa. 01.05.21 00:00:00;50,02", ";")
	}
}

func ExampleLine() {
	row, _ := Line("Sa. 01.05.21 00:00:01;50,5", ";")
	fmt.Println(row.CopyLine())
	// Output: 2021-05-01 00:00:01,50.5
}
