// Package stats aggregates feedback ratings into summaries, rankings and
// monthly trends. The aggregation functions are pure; Service loads the
// records they work on.
package stats

import (
	"math"
	"sort"
	"time"
)

// Record is the slice of a feedback row the aggregations need.
type Record struct {
	FeedbackID int       `bun:"feedback_id"`
	CourseID   int       `bun:"course_id"`
	CourseName string    `bun:"course_name"`
	CourseCode string    `bun:"course_code"`
	Rating     int       `bun:"rating"`
	Status     string    `bun:"status"`
	CreatedAt  time.Time `bun:"created_at"`
}

type Summary struct {
	TotalFeedback      int         `json:"totalFeedback"`
	AverageRating      float64     `json:"averageRating"`
	RatingDistribution map[int]int `json:"ratingDistribution"`
}

type Overall struct {
	Summary
	TotalCourses         int     `json:"totalCourses"`
	AvgFeedbackPerCourse float64 `json:"avgFeedbackPerCourse"`
}

type CourseRank struct {
	CourseID      int     `json:"courseId"`
	CourseName    string  `json:"courseName"`
	CourseCode    string  `json:"courseCode"`
	FeedbackCount int     `json:"feedbackCount"`
	AverageRating float64 `json:"averageRating"`
}

type MonthTrend struct {
	Month         string  `json:"month"`
	Count         int     `json:"count"`
	AverageRating float64 `json:"averageRating"`
}

func emptyDistribution() map[int]int {
	return map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}
}

// round2 rounds half away from zero to two decimals.
func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func mean(sum, n int) float64 {
	if n == 0 {
		return 0
	}
	return round2(float64(sum) / float64(n))
}

// Summarize counts records, averages their ratings and buckets them 1-5.
// Ratings outside 1-5 are counted in the total but not bucketed.
func Summarize(records []Record) Summary {
	dist := emptyDistribution()
	sum := 0
	for _, r := range records {
		sum += r.Rating
		if _, ok := dist[r.Rating]; ok {
			dist[r.Rating]++
		}
	}
	return Summary{
		TotalFeedback:      len(records),
		AverageRating:      mean(sum, len(records)),
		RatingDistribution: dist,
	}
}

// Overview is Summarize plus the number of distinct courses with feedback.
func Overview(records []Record) Overall {
	courses := make(map[int]struct{})
	for _, r := range records {
		courses[r.CourseID] = struct{}{}
	}

	o := Overall{
		Summary:      Summarize(records),
		TotalCourses: len(courses),
	}
	if o.TotalCourses > 0 {
		o.AvgFeedbackPerCourse = round2(float64(o.TotalFeedback) / float64(o.TotalCourses))
	}
	return o
}

// TopCourses ranks courses by feedback volume, most first. Ties go to the
// lower course id. A non-positive limit returns every course.
func TopCourses(records []Record, limit int) []CourseRank {
	type acc struct {
		rank CourseRank
		sum  int
	}
	byCourse := make(map[int]*acc)
	for _, r := range records {
		a, ok := byCourse[r.CourseID]
		if !ok {
			a = &acc{rank: CourseRank{CourseID: r.CourseID, CourseName: r.CourseName, CourseCode: r.CourseCode}}
			byCourse[r.CourseID] = a
		}
		a.rank.FeedbackCount++
		a.sum += r.Rating
	}

	ranks := make([]CourseRank, 0, len(byCourse))
	for _, a := range byCourse {
		a.rank.AverageRating = mean(a.sum, a.rank.FeedbackCount)
		ranks = append(ranks, a.rank)
	}

	sort.Slice(ranks, func(i, j int) bool {
		if ranks[i].FeedbackCount != ranks[j].FeedbackCount {
			return ranks[i].FeedbackCount > ranks[j].FeedbackCount
		}
		return ranks[i].CourseID < ranks[j].CourseID
	})

	if limit > 0 && len(ranks) > limit {
		ranks = ranks[:limit]
	}
	return ranks
}

// WindowStart is the first instant of the month windowMonths-1 months before now's month, in UTC.
func WindowStart(now time.Time, windowMonths int) time.Time {
	now = now.UTC()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, -(windowMonths - 1), 0)
}

// MonthlyTrends buckets records by calendar month (UTC) over the trailing
// window ending at now. Months without feedback are omitted, not zero-filled.
func MonthlyTrends(records []Record, windowMonths int, now time.Time) []MonthTrend {
	if windowMonths < 1 {
		return []MonthTrend{}
	}
	since := WindowStart(now, windowMonths)

	type acc struct{ count, sum int }
	byMonth := make(map[string]*acc)
	for _, r := range records {
		at := r.CreatedAt.UTC()
		if at.Before(since) || at.After(now) {
			continue
		}
		key := at.Format("2006-01")
		a, ok := byMonth[key]
		if !ok {
			a = &acc{}
			byMonth[key] = a
		}
		a.count++
		a.sum += r.Rating
	}

	trends := make([]MonthTrend, 0, len(byMonth))
	for month, a := range byMonth {
		trends = append(trends, MonthTrend{
			Month:         month,
			Count:         a.count,
			AverageRating: mean(a.sum, a.count),
		})
	}
	sort.Slice(trends, func(i, j int) bool { return trends[i].Month < trends[j].Month })
	return trends
}
