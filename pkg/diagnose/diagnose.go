package diagnose

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"

	"plantdx/pkg/advice"
	"plantdx/pkg/classifier"
	"plantdx/pkg/heuristics"
	"plantdx/pkg/label"
	"plantdx/pkg/report"
)

// Diagnosis is the full result shown for one uploaded leaf.
type Diagnosis struct {
	Label            string            `json:"label"`
	Plant            string            `json:"plant"`
	Disease          string            `json:"disease"`
	Confidence       float64           `json:"confidence"`
	Scores           heuristics.Scores `json:"scores"`
	Treatments       []string          `json:"treatments"`
	TreatmentFound   bool              `json:"treatment_found"`
	Description      string            `json:"description"`
	Fertilizer       string            `json:"fertilizer"`
	ClassifyDuration time.Duration     `json:"-"`
}

// Service wires the classifier to the label parser, scorers and advice catalog.
type Service struct {
	classifier classifier.Classifier
	catalog    *advice.Catalog
}

// New creates a Service. A nil catalog uses advice.Default.
func New(c classifier.Classifier, catalog *advice.Catalog) *Service {
	if catalog == nil {
		catalog = advice.Default()
	}
	return &Service{classifier: c, catalog: catalog}
}

// Catalog returns the advice catalog in use.
func (s *Service) Catalog() *advice.Catalog {
	return s.catalog
}

// Diagnose classifies img and derives everything shown to the user.
func (s *Service) Diagnose(ctx context.Context, img image.Image) (Diagnosis, error) {
	start := time.Now()
	res, err := s.classifier.Classify(ctx, img)
	if err != nil {
		return Diagnosis{}, fmt.Errorf("classify: %w", err)
	}
	elapsed := time.Since(start)
	slog.Debug("classified leaf", "label", res.Label, "confidence", res.Confidence, "took", elapsed)

	d := s.Advise(res.Label, res.Confidence)
	d.Scores = heuristics.Score(img)
	d.ClassifyDuration = elapsed
	return d, nil
}

// Advise fills in names and advice for a label without touching an image.
func (s *Service) Advise(lbl string, confidence float64) Diagnosis {
	plant, disease := label.Split(lbl)
	steps, found := s.catalog.Treatments(disease)
	return Diagnosis{
		Label:          lbl,
		Plant:          plant,
		Disease:        disease,
		Confidence:     confidence,
		Treatments:     steps,
		TreatmentFound: found,
		Description:    s.catalog.Description(disease),
		Fertilizer:     s.catalog.Fertilizer(plant),
	}
}

// ReportInput builds the report contents for plant/disease/confidence using
// the same treatment lookup as the page.
func (s *Service) ReportInput(plant, disease string, confidence float64) report.Input {
	steps, _ := s.catalog.Treatments(disease)
	return report.Input{Plant: plant, Disease: disease, Confidence: confidence, Treatments: steps}
}
