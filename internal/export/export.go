// Package export renders feedback listings as CSV.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"feedback-service/internal/feedback"
	"feedback-service/internal/metrics"

	"github.com/google/uuid"
)

const anonymous = "Anonymous"

var header = []string{
	"Feedback ID",
	"Student Name",
	"Student Email",
	"Course Name",
	"Course Code",
	"Instructor",
	"Department",
	"Rating",
	"Message",
	"Tags",
	"Is Anonymous",
	"Status",
	"Created At",
	"Updated At",
}

// Source is the part of the feedback store an export reads.
type Source interface {
	ListAll(ctx context.Context, filter feedback.Filter) ([]*feedback.Feedback, error)
}

type Exporter struct {
	source  Source
	tempDir string
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewExporter(source Source, tempDir string, m *metrics.Metrics, logger *slog.Logger) *Exporter {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Exporter{
		source:  source,
		tempDir: tempDir,
		metrics: m,
		logger:  logger,
	}
}

// WriteFile writes every feedback matching filter to a new CSV file and
// returns its path. The caller owns the file and must remove it.
func (e *Exporter) WriteFile(ctx context.Context, filter feedback.Filter) (string, int, error) {
	items, err := e.source.ListAll(ctx, filter)
	if err != nil {
		return "", 0, err
	}

	path := filepath.Join(e.tempDir, fmt.Sprintf("feedback-export-%s.csv", uuid.NewString()))
	file, err := os.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create export file: %w", err)
	}

	if err := writeCSV(file, items); err != nil {
		file.Close()
		os.Remove(path)
		return "", 0, err
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		return "", 0, fmt.Errorf("failed to close export file: %w", err)
	}

	e.metrics.RecordExport(ctx, len(items))
	e.logger.InfoContext(ctx, "feedback export written", "rows", len(items), "path", path)

	return path, len(items), nil
}

func writeCSV(file *os.File, items []*feedback.Feedback) error {
	w := csv.NewWriter(file)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write export header: %w", err)
	}
	for _, f := range items {
		if err := w.Write(Row(f)); err != nil {
			return fmt.Errorf("failed to write export row %d: %w", f.ID, err)
		}
	}
	w.Flush()
	return w.Error()
}

// Row maps one feedback to its CSV columns. Anonymous feedback never
// reveals the author.
func Row(f *feedback.Feedback) []string {
	studentName, studentEmail := anonymous, anonymous
	if !f.IsAnonymous && f.Student != nil {
		studentName, studentEmail = f.Student.Name, f.Student.Email
	}

	var courseName, courseCode, instructor, department string
	if f.Course != nil {
		courseName = f.Course.Name
		courseCode = f.Course.Code
		instructor = f.Course.Instructor
		department = f.Course.Department
	}

	return []string{
		strconv.Itoa(f.ID),
		studentName,
		studentEmail,
		courseName,
		courseCode,
		instructor,
		department,
		strconv.Itoa(f.Rating),
		f.Message,
		strings.Join(f.Tags, ","),
		strconv.FormatBool(f.IsAnonymous),
		string(f.Status),
		f.CreatedAt.UTC().Format(time.RFC3339),
		f.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
