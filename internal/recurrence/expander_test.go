package recurrence

import (
	"testing"
	"time"

	"begegnungscafe/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func berlin(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	return loc
}

func date(y int, m time.Month, d, h int, loc *time.Location) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, loc)
}

func TestExpand_NoneYieldsBaseOnly(t *testing.T) {
	start := date(2024, 6, 1, 18, time.UTC)
	end := start.Add(2 * time.Hour)

	s, err := Expand(start, end, domain.RecurrenceNone, nil, time.UTC)
	require.NoError(t, err)

	got := Collect(s)
	require.Len(t, got, 1)
	assert.True(t, got[0].Start.Equal(start))
	assert.True(t, got[0].End.Equal(end))
	assert.False(t, s.Truncated())
}

func TestExpand_RequiresEndDate(t *testing.T) {
	start := date(2024, 6, 1, 18, time.UTC)
	for _, kind := range []domain.RecurrenceKind{domain.RecurrenceDaily, domain.RecurrenceWeekly, domain.RecurrenceMonthly} {
		_, err := Expand(start, start.Add(time.Hour), kind, nil, time.UTC)
		assert.ErrorIs(t, err, domain.ErrInvalidRecurrence, kind)
	}

	_, err := Expand(start, start.Add(time.Hour), "yearly", &start, time.UTC)
	assert.ErrorIs(t, err, domain.ErrInvalidRecurrence)
}

func TestExpand_DailyCapsAtMaxOccurrences(t *testing.T) {
	start := date(2024, 1, 1, 10, time.UTC)
	until := start.AddDate(0, 0, 99)

	s, err := Expand(start, start.Add(time.Hour), domain.RecurrenceDaily, &until, time.UTC)
	require.NoError(t, err)

	got := Collect(s)
	assert.Len(t, got, MaxOccurrences)
	assert.True(t, s.Truncated())
	assert.True(t, got[51].Start.Equal(start.AddDate(0, 0, 51)))
}

func TestExpand_ExactlyMaxIsNotTruncated(t *testing.T) {
	start := date(2024, 1, 1, 10, time.UTC)
	until := start.AddDate(0, 0, MaxOccurrences-1)

	s, err := Expand(start, start.Add(time.Hour), domain.RecurrenceDaily, &until, time.UTC)
	require.NoError(t, err)

	assert.Len(t, Collect(s), MaxOccurrences)
	assert.False(t, s.Truncated())
}

func TestExpand_EndDateIsInclusive(t *testing.T) {
	start := date(2024, 6, 3, 19, time.UTC)
	// until carries a time before the occurrence hour; the whole day counts.
	until := time.Date(2024, 6, 24, 0, 0, 0, 0, time.UTC)

	s, err := Expand(start, start.Add(90*time.Minute), domain.RecurrenceWeekly, &until, time.UTC)
	require.NoError(t, err)

	got := Collect(s)
	require.Len(t, got, 4)
	for i, occ := range got {
		assert.Equal(t, start.AddDate(0, 0, 7*i), occ.Start)
		assert.Equal(t, 90*time.Minute, occ.End.Sub(occ.Start))
	}
}

func TestExpand_KeepsWallClockAcrossDST(t *testing.T) {
	loc := berlin(t)
	start := date(2024, 3, 28, 18, loc)
	until := date(2024, 4, 2, 0, loc)

	s, err := Expand(start, start.Add(2*time.Hour), domain.RecurrenceDaily, &until, loc)
	require.NoError(t, err)

	got := Collect(s)
	require.Len(t, got, 6)
	for _, occ := range got {
		assert.Equal(t, 18, occ.Start.Hour())
		assert.Equal(t, 20, occ.End.Hour())
	}
}

func TestExpand_MonthlyOverflowRollsForward(t *testing.T) {
	start := date(2023, 1, 31, 17, time.UTC)
	until := date(2023, 5, 31, 0, time.UTC)

	s, err := Expand(start, start.Add(time.Hour), domain.RecurrenceMonthly, &until, time.UTC)
	require.NoError(t, err)

	var days []string
	for occ := range s.All() {
		days = append(days, occ.Start.Format("2006-01-02"))
	}
	assert.Equal(t, []string{"2023-01-31", "2023-03-03", "2023-04-03", "2023-05-03"}, days)
}

func TestSeries_IsSinglePass(t *testing.T) {
	start := date(2024, 6, 1, 10, time.UTC)
	until := start.AddDate(0, 0, 2)

	s, err := Expand(start, start.Add(time.Hour), domain.RecurrenceDaily, &until, time.UTC)
	require.NoError(t, err)

	first, ok := s.Next()
	require.True(t, ok)
	assert.Equal(t, start, first.Start)

	assert.Len(t, Collect(s), 2)
	_, ok = s.Next()
	assert.False(t, ok)
	assert.Empty(t, Collect(s))
}

func TestRule(t *testing.T) {
	start := date(2024, 6, 3, 19, time.UTC)
	until := date(2024, 6, 30, 0, time.UTC)

	weekly := Rule(domain.RecurrenceWeekly, start, &until, time.UTC)
	assert.Contains(t, weekly, "FREQ=WEEKLY")
	assert.Contains(t, weekly, "UNTIL=20240630T235959Z")
	assert.NotContains(t, weekly, "DTSTART")
	assert.Contains(t, Rule(domain.RecurrenceMonthly, start, &until, time.UTC), "FREQ=MONTHLY")
	assert.Empty(t, Rule(domain.RecurrenceNone, start, &until, time.UTC))
	assert.Empty(t, Rule(domain.RecurrenceDaily, start, nil, time.UTC))
}
