package report

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"plantdx/models"
	"plantdx/pkg/history"
)

func TestParseMonth(t *testing.T) {
	got, err := ParseMonth("2026-02")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("got %v", got)
	}
	if _, err := ParseMonth("02/2026"); err == nil {
		t.Fatal("expected error")
	}
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	sums := []history.DiseaseSummary{
		{Plant: "Tomato", Disease: "Early blight", Count: 3, AvgConfidence: 90, AvgSeverity: 12.5, AvgWaterStress: 40},
		{Plant: "Potato", Disease: "Healthy", Count: 1, AvgConfidence: 99, AvgSeverity: 1, AvgWaterStress: 55},
	}
	rows := []models.Diagnosis{{ID: 7, Source: "upload", FileName: "leaf.jpg", Plant: "Tomato", Disease: "Early blight",
		Confidence: 90, Severity: 12.5, WaterStress: 40, CreatedAt: time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)}}
	Write(&buf, "2026-02", sums, rows)
	out := buf.String()
	for _, want := range []string{
		"month=2026-02",
		"diagnoses=4",
		"Tomato / Early blight: count=3 confidence=90.00% severity=12.50% water_stress=40.00%",
		"7|upload|leaf.jpg|Tomato|Early blight|90.00|12.50|40.00|2026-02-03T04:05:06Z",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunReportWithoutStore(t *testing.T) {
	err := RunReport(context.Background(), nil, "2026-01", false, &bytes.Buffer{})
	if !errors.Is(err, history.ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}
