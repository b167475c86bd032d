package report

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-pdf/fpdf"
)

// FileName is the name offered for downloaded reports.
const FileName = "report.pdf"

// ContentType is the MIME type of rendered reports.
const ContentType = "application/pdf"

// Input is everything printed on a report.
type Input struct {
	Plant      string
	Disease    string
	Confidence float64 // percent
	Treatments []string
}

// Layout positions, in points measured up from the bottom edge of an A4 page.
const (
	marginX    = 100
	itemX      = 120
	titleY     = 800
	plantY     = 770
	diseaseY   = 750
	confY      = 730
	treatHeadY = 700
	firstItemY = 680
	itemStep   = 20
	fontSize   = 12
)

// Renderer draws reports. The zero value uses the built-in Helvetica font.
type Renderer struct {
	// FontPath optionally points at a UTF-8 TrueType font. When set and the
	// file cannot be used, rendering fails with KindBackendUnavailable.
	FontPath string
}

// New returns a Renderer using the given TrueType font path ("" for the core font).
func New(fontPath string) *Renderer {
	return &Renderer{FontPath: fontPath}
}

// Render writes a single-page report to w. The treatment list is not
// paginated; long lists run off the bottom of the page.
func (r *Renderer) Render(w io.Writer, in Input) error {
	if r == nil {
		return &Error{Kind: KindBackendUnavailable, Err: errors.New("no renderer configured")}
	}
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("plantdx", true)
	pdf.SetTitle("Plant Disease Report", true)

	tr := func(s string) string { return s }
	if r.FontPath != "" {
		if _, err := os.Stat(r.FontPath); err != nil {
			return &Error{Kind: KindBackendUnavailable, Err: err}
		}
		pdf.AddUTF8Font("report", "", r.FontPath)
		if err := pdf.Error(); err != nil {
			return &Error{Kind: KindBackendUnavailable, Err: err}
		}
		pdf.SetFont("report", "", fontSize)
	} else {
		pdf.SetFont("Helvetica", "", fontSize)
		tr = pdf.UnicodeTranslatorFromDescriptor("")
	}
	pdf.AddPage()
	_, pageH := pdf.GetPageSize()

	text := func(x, y float64, s string) {
		pdf.Text(x, pageH-y, tr(s))
	}
	text(marginX, titleY, "Plant Disease Report")
	text(marginX, plantY, "Plant: "+in.Plant)
	text(marginX, diseaseY, "Disease: "+in.Disease)
	text(marginX, confY, fmt.Sprintf("Confidence: %.2f%%", in.Confidence))
	text(marginX, treatHeadY, "Treatment:")
	y := float64(firstItemY)
	for _, t := range in.Treatments {
		text(itemX, y, "- "+t)
		y -= itemStep
	}

	if err := pdf.Output(w); err != nil {
		return &Error{Kind: KindRender, Err: err}
	}
	return nil
}

// Bytes renders the report into memory.
func (r *Renderer) Bytes(in Input) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf, in); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
