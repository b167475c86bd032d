package report

import (
	"context"
	"fmt"
	"io"
	"time"

	"plantdx/models"
	"plantdx/pkg/history"
)

// ParseMonth parses YYYY-MM into the first instant of that month (UTC).
func ParseMonth(month string) (time.Time, error) {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month format, expected YYYY-MM: %w", err)
	}
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC), nil
}

// RunReport prints a month-bounded summary of stored diagnoses and
// optionally lists the matching rows.
func RunReport(ctx context.Context, store *history.Store, month string, list bool, w io.Writer) error {
	start, err := ParseMonth(month)
	if err != nil {
		return err
	}
	sums, rows, err := store.Month(ctx, start, list)
	if err != nil {
		return err
	}
	Write(w, month, sums, rows)
	return nil
}

// Write formats a summary produced by history.Store.Month.
func Write(w io.Writer, month string, sums []history.DiseaseSummary, rows []models.Diagnosis) {
	var total int64
	for _, s := range sums {
		total += s.Count
	}
	fmt.Fprintf(w, "Diagnosis report month=%s (UTC):\n", month)
	fmt.Fprintf(w, "  diagnoses=%d\n", total)
	for _, s := range sums {
		fmt.Fprintf(w, "  %s / %s: count=%d confidence=%.2f%% severity=%.2f%% water_stress=%.2f%%\n",
			s.Plant, s.Disease, s.Count, s.AvgConfidence, s.AvgSeverity, s.AvgWaterStress)
	}
	for _, r := range rows {
		fmt.Fprintf(w, "%d|%s|%s|%s|%s|%.2f|%.2f|%.2f|%s\n", r.ID, r.Source, r.FileName, r.Plant, r.Disease,
			r.Confidence, r.Severity, r.WaterStress, r.CreatedAt.Format(time.RFC3339))
	}
}
