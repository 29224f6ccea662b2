package feedback

import (
	"net/url"
	"strconv"
	"time"

	"feedback-service/internal/apperr"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

const (
	SortCreatedAt = "createdAt"
	SortRating    = "rating"
	SortCourse    = "course"
)

// Filter narrows feedback listings and exports. Zero values mean "any".
type Filter struct {
	CourseID  int
	StudentID int
	Rating    int
	Status    Status
	// StartDate and EndDate bound created_at, both inclusive.
	StartDate *time.Time
	EndDate   *time.Time
	SortBy    string
	SortOrder string
	Page      int
	Limit     int
}

func (f Filter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// ParseFilter reads listing parameters from a query string and applies
// defaults. Out-of-range values are rejected rather than clamped.
func ParseFilter(q url.Values) (Filter, error) {
	f := Filter{
		SortBy:    SortCreatedAt,
		SortOrder: "desc",
		Page:      1,
		Limit:     defaultLimit,
	}

	var err error
	if f.CourseID, err = positiveInt(q, "courseId"); err != nil {
		return f, err
	}
	if f.StudentID, err = positiveInt(q, "studentId"); err != nil {
		return f, err
	}
	if f.Rating, err = positiveInt(q, "rating"); err != nil {
		return f, err
	}
	if f.Rating != 0 && f.Rating > 5 {
		return f, apperr.Validation("rating must be between 1 and 5")
	}

	if raw := q.Get("status"); raw != "" {
		f.Status = Status(raw)
		if !f.Status.Valid() {
			return f, apperr.Validation("status must be one of pending, approved, rejected")
		}
	}

	if raw := q.Get("startDate"); raw != "" {
		start, _, err := parseDate(raw)
		if err != nil {
			return f, apperr.Validation("startDate must be YYYY-MM-DD or RFC 3339")
		}
		f.StartDate = &start
	}
	if raw := q.Get("endDate"); raw != "" {
		end, dateOnly, err := parseDate(raw)
		if err != nil {
			return f, apperr.Validation("endDate must be YYYY-MM-DD or RFC 3339")
		}
		if dateOnly {
			// a bare date covers the whole day
			end = end.AddDate(0, 0, 1).Add(-time.Microsecond)
		}
		f.EndDate = &end
	}
	if f.StartDate != nil && f.EndDate != nil && f.EndDate.Before(*f.StartDate) {
		return f, apperr.Validation("endDate must not be before startDate")
	}

	if raw := q.Get("sortBy"); raw != "" {
		switch raw {
		case SortCreatedAt, SortRating, SortCourse:
			f.SortBy = raw
		default:
			return f, apperr.Validation("sortBy must be one of createdAt, rating, course")
		}
	}
	if raw := q.Get("sortOrder"); raw != "" {
		if raw != "asc" && raw != "desc" {
			return f, apperr.Validation("sortOrder must be asc or desc")
		}
		f.SortOrder = raw
	}

	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return f, apperr.Validation("page must be a positive number")
		}
		f.Page = page
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxLimit {
			return f, apperr.Validation("limit must be between 1 and %d", maxLimit)
		}
		f.Limit = limit
	}

	return f, nil
}

func positiveInt(q url.Values, key string) (int, error) {
	raw := q.Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, apperr.Validation("%s must be a positive number", key)
	}
	return n, nil
}

func parseDate(raw string) (time.Time, bool, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	return t, false, err
}
