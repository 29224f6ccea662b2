package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ratings(courseID int, values ...int) []Record {
	out := make([]Record, 0, len(values))
	for i, v := range values {
		out = append(out, Record{FeedbackID: courseID*100 + i, CourseID: courseID, Rating: v, Status: "approved"})
	}
	return out
}

func TestSummarize(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		s := Summarize(nil)
		assert.Equal(t, 0, s.TotalFeedback)
		assert.Equal(t, 0.0, s.AverageRating)
		assert.Equal(t, map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}, s.RatingDistribution)
	})

	t.Run("KnownRatings", func(t *testing.T) {
		s := Summarize(ratings(1, 5, 5, 4, 3, 1))
		assert.Equal(t, 5, s.TotalFeedback)
		assert.Equal(t, 3.6, s.AverageRating)
		assert.Equal(t, map[int]int{1: 1, 2: 0, 3: 1, 4: 1, 5: 2}, s.RatingDistribution)
	})

	t.Run("RoundsToTwoDecimals", func(t *testing.T) {
		assert.Equal(t, 4.67, Summarize(ratings(1, 5, 5, 4)).AverageRating)
		assert.Equal(t, 3.33, Summarize(ratings(1, 5, 4, 1)).AverageRating)
		// 2.125 rounds half away from zero
		assert.Equal(t, 2.13, Summarize(ratings(1, 3, 2, 2, 2, 2, 2, 2, 2)).AverageRating)
	})
}

func TestOverview(t *testing.T) {
	records := append(ratings(1, 5, 4), ratings(2, 3, 3, 3, 1)...)
	o := Overview(records)

	assert.Equal(t, 6, o.TotalFeedback)
	assert.Equal(t, 2, o.TotalCourses)
	assert.Equal(t, 3.0, o.AvgFeedbackPerCourse)
	assert.Equal(t, 3.17, o.AverageRating)

	empty := Overview(nil)
	assert.Equal(t, 0, empty.TotalCourses)
	assert.Equal(t, 0.0, empty.AvgFeedbackPerCourse)
	assert.Len(t, empty.RatingDistribution, 5)
}

func TestTopCourses(t *testing.T) {
	var records []Record
	records = append(records, ratings(3, 5, 5)...)
	records = append(records, ratings(1, 4, 2)...)
	records = append(records, ratings(2, 1, 2, 3)...)
	records = append(records, ratings(4, 5)...)
	for i := range records {
		records[i].CourseCode = "C" + string(rune('0'+records[i].CourseID))
	}

	top := TopCourses(records, 3)
	require.Len(t, top, 3)
	assert.Equal(t, 2, top[0].CourseID)
	assert.Equal(t, 3, top[0].FeedbackCount)
	assert.Equal(t, 2.0, top[0].AverageRating)
	// courses 1 and 3 tie on volume; lower id first
	assert.Equal(t, 1, top[1].CourseID)
	assert.Equal(t, 3, top[2].CourseID)
	assert.Equal(t, 5.0, top[2].AverageRating)
	assert.Equal(t, "C3", top[2].CourseCode)

	assert.Len(t, TopCourses(records, 0), 4)
	assert.Empty(t, TopCourses(nil, 5))

	// deterministic regardless of input order
	reversed := make([]Record, len(records))
	for i := range records {
		reversed[len(records)-1-i] = records[i]
	}
	assert.Equal(t, top, TopCourses(reversed, 3))
}

func TestMonthlyTrends(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	at := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 10, 0, 0, 0, time.UTC) }

	records := []Record{
		{CourseID: 1, Rating: 5, CreatedAt: at(2023, 12, 31)}, // before window
		{CourseID: 1, Rating: 4, CreatedAt: at(2024, 1, 1)},
		{CourseID: 1, Rating: 2, CreatedAt: at(2024, 1, 20)},
		{CourseID: 2, Rating: 5, CreatedAt: at(2024, 3, 3)},
		{CourseID: 2, Rating: 3, CreatedAt: at(2024, 6, 1)},
		{CourseID: 2, Rating: 1, CreatedAt: at(2024, 7, 1)}, // after now
	}

	trends := MonthlyTrends(records, 6, now)
	require.Len(t, trends, 3)
	assert.Equal(t, MonthTrend{Month: "2024-01", Count: 2, AverageRating: 3}, trends[0])
	assert.Equal(t, MonthTrend{Month: "2024-03", Count: 1, AverageRating: 5}, trends[1])
	assert.Equal(t, MonthTrend{Month: "2024-06", Count: 1, AverageRating: 3}, trends[2])

	for _, tr := range trends {
		assert.NotZero(t, tr.Count, "months without feedback must be omitted")
	}

	assert.Empty(t, MonthlyTrends(records, 0, now))
	assert.Empty(t, MonthlyTrends(nil, 6, now))
}

func TestWindowStart(t *testing.T) {
	now := time.Date(2024, 2, 29, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2023, 9, 1, 0, 0, 0, 0, time.UTC), WindowStart(now, 6))
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), WindowStart(now, 1))
}
