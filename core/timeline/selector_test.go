package timeline

import (
	"testing"
	"time"

	"github.com/huangsam/autoindex/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(year int, month time.Month, day, hour, minute int) int64 {
	return time.Date(year, month, day, hour, minute, 0, 0, time.UTC).Unix()
}

func TestSuggestNextWindow_AlignedToSize(t *testing.T) {
	next, ok := SuggestNextWindow(w(0, 6089), 30, nil)
	require.True(t, ok)
	assert.Equal(t, w(6030, 6060), next)
}

func TestSuggestNextWindow_FromEmptyByHours(t *testing.T) {
	now := at(2017, 3, 28, 16, 12)
	next, ok := SuggestNextWindow(w(0, now), 3600, nil)
	require.True(t, ok)
	assert.Equal(t, w(at(2017, 3, 28, 15, 0), at(2017, 3, 28, 16, 0)), next)
}

func TestSuggestNextWindow_OneFilledInByDays(t *testing.T) {
	now := at(2017, 3, 28, 16, 12)
	existing := []schema.Window{w(at(2017, 3, 27, 0, 0), at(2017, 3, 28, 0, 0))}
	next, ok := SuggestNextWindow(w(0, now), 24*3600, existing)
	require.True(t, ok)
	assert.Equal(t, w(at(2017, 3, 26, 0, 0), at(2017, 3, 27, 0, 0)), next)
}

func TestSuggestNextWindows_FillsGapsBackward(t *testing.T) {
	got := SuggestNextWindows(w(0, 65), 10, []schema.Window{w(50, 60), w(0, 10)}, 4)
	assert.Equal(t, []schema.Window{w(40, 50), w(30, 40), w(20, 30), w(10, 20)}, got)
}

func TestSuggestNextWindows_StopsWhenExhausted(t *testing.T) {
	got := SuggestNextWindows(w(0, 65), 10, []schema.Window{w(50, 60), w(0, 10)}, 10)
	assert.Len(t, got, 4)

	_, ok := SuggestNextWindow(w(0, 65), 10, []schema.Window{w(0, 60)})
	assert.False(t, ok)
}

func TestSuggestNextWindows_AwkwardGapIn30Minutes(t *testing.T) {
	now := at(2015, 11, 5, 16, 23)
	existing := []schema.Window{
		w(at(2015, 11, 5, 15, 30), at(2015, 11, 5, 16, 0)),
		w(at(2015, 11, 5, 14, 46), at(2015, 11, 5, 15, 18)),
		w(at(2015, 11, 5, 13, 0), at(2015, 11, 5, 14, 0)),
	}

	got := SuggestNextWindows(w(0, now), 30*60, existing, 5)

	assert.Equal(t, []schema.Window{
		w(at(2015, 11, 5, 15, 18), at(2015, 11, 5, 15, 30)),
		w(at(2015, 11, 5, 14, 30), at(2015, 11, 5, 14, 46)),
		w(at(2015, 11, 5, 14, 0), at(2015, 11, 5, 14, 30)),
		w(at(2015, 11, 5, 12, 30), at(2015, 11, 5, 13, 0)),
		w(at(2015, 11, 5, 12, 0), at(2015, 11, 5, 12, 30)),
	}, got)
}

func TestSuggestNextWindows_OneLargeGapByFourHours(t *testing.T) {
	now := at(2018, 8, 17, 14, 0)
	existing := []schema.Window{
		w(at(2018, 8, 16, 4, 0), at(2018, 8, 16, 12, 0)),
		w(at(2018, 8, 17, 0, 0), at(2018, 8, 17, 12, 0)),
	}

	got := SuggestNextWindows(w(0, now), 4*3600, existing, 5)

	assert.Equal(t, []schema.Window{
		w(at(2018, 8, 16, 20, 0), at(2018, 8, 17, 0, 0)),
		w(at(2018, 8, 16, 16, 0), at(2018, 8, 16, 20, 0)),
		w(at(2018, 8, 16, 12, 0), at(2018, 8, 16, 16, 0)),
		w(at(2018, 8, 16, 0, 0), at(2018, 8, 16, 4, 0)),
		w(at(2018, 8, 15, 20, 0), at(2018, 8, 16, 0, 0)),
	}, got)
}

func TestSuggestNextWindow_ClampsToBoundsFrom(t *testing.T) {
	next, ok := SuggestNextWindow(w(15, 40), 10, []schema.Window{w(20, 40)})
	require.True(t, ok)
	assert.Equal(t, w(15, 20), next)

	_, ok = SuggestNextWindow(w(15, 40), 10, []schema.Window{w(15, 40)})
	assert.False(t, ok)
}

func TestSuggestNextWindow_IgnoresWindowsAboveTop(t *testing.T) {
	// [60, 65) sits above the aligned top of 60 and must not pull top upward.
	next, ok := SuggestNextWindow(w(0, 65), 10, []schema.Window{w(60, 65)})
	require.True(t, ok)
	assert.Equal(t, w(50, 60), next)
}

func TestSuggestNextWindow_BoundsShorterThanSize(t *testing.T) {
	_, ok := SuggestNextWindow(w(3, 7), 10, nil)
	assert.False(t, ok, "aligned top 0 is below bounds.From")

	_, ok = SuggestNextWindow(w(0, 10), 0, nil)
	assert.False(t, ok)
}

func TestSuggestNextWindow_NegativeEpoch(t *testing.T) {
	next, ok := SuggestNextWindow(w(-100, -35), 10, nil)
	require.True(t, ok)
	assert.Equal(t, w(-50, -40), next)
}
