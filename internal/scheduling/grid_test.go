package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustSlotTime(t *testing.T, s string) SlotTime {
	t.Helper()
	st, err := ParseSlotTime(s)
	require.NoError(t, err)
	return st
}

func TestGridIncludesBothBoundaries(t *testing.T) {
	grid, err := NewGrid(mustSlotTime(t, "09:00"), mustSlotTime(t, "17:00"), time.Hour)
	require.NoError(t, err)

	times := grid.Times()
	require.Len(t, times, 9)
	assert.Equal(t, "09:00", times[0].String())
	assert.Equal(t, "16:00", times[7].String())
	assert.Equal(t, "17:00", times[8].String())
	assert.Equal(t, 9, grid.Len())
}

func TestGridStopsBeforeUnreachableEnd(t *testing.T) {
	grid, err := NewGrid(mustSlotTime(t, "09:00"), mustSlotTime(t, "17:30"), time.Hour)
	require.NoError(t, err)

	times := grid.Times()
	require.Len(t, times, 9)
	assert.Equal(t, "17:00", times[len(times)-1].String())
}

func TestGridIsDeterministic(t *testing.T) {
	grid, err := NewGrid(mustSlotTime(t, "09:00"), mustSlotTime(t, "17:00"), 30*time.Minute)
	require.NoError(t, err)

	first := grid.Times()
	second := grid.Times()
	require.Equal(t, first, second)
	require.Len(t, first, 17)

	for i := 1; i < len(first); i++ {
		assert.Greater(t, first[i], first[i-1], "grid must be strictly increasing")
	}
}

func TestGridSingleSlotDay(t *testing.T) {
	grid, err := NewGrid(mustSlotTime(t, "09:00"), mustSlotTime(t, "09:00"), time.Hour)
	require.NoError(t, err)
	require.Equal(t, []SlotTime{mustSlotTime(t, "09:00")}, grid.Times())
}

func TestNewGridRejectsBadInput(t *testing.T) {
	_, err := NewGrid(mustSlotTime(t, "17:00"), mustSlotTime(t, "09:00"), time.Hour)
	assert.Error(t, err)

	_, err = NewGrid(mustSlotTime(t, "09:00"), mustSlotTime(t, "17:00"), 0)
	assert.Error(t, err)
}

func TestParseSlotTime(t *testing.T) {
	st, err := ParseSlotTime("09:30")
	require.NoError(t, err)
	assert.Equal(t, SlotTime(570), st)
	assert.Equal(t, "09:30", st.String())

	for _, bad := range []string{"", "nine", "25:00", "09:75", "-1:00"} {
		_, err := ParseSlotTime(bad)
		assert.ErrorIs(t, err, ErrInvalidSlotTime, "input %q", bad)
	}
}

func TestParseDate(t *testing.T) {
	day, err := ParseDate("2024-06-01")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01", FormatDate(day))

	for _, bad := range []string{"", "June 1st", "2024/06/01", "2024-13-40"} {
		_, err := ParseDate(bad)
		assert.ErrorIs(t, err, ErrInvalidDate, "input %q", bad)
	}
}
