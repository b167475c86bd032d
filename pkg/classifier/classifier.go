package classifier

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"plantdx/pkg/label"
)

// InputSize is the edge length of the square image the model expects.
const InputSize = 64

// Channels is the number of color channels in the model input.
const Channels = 3

// ErrOutputShape is returned when the model output does not match the class list.
var ErrOutputShape = errors.New("classifier output does not match class list")

// Result is the top-1 prediction.
type Result struct {
	Index      int     `json:"index"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"` // percent, 0..100
}

// Classifier maps a decoded image to a class prediction.
type Classifier interface {
	Classify(ctx context.Context, img image.Image) (Result, error)
}

// Input resizes img to InputSize x InputSize and lays it out as a flat
// NHWC float32 tensor of raw 0..255 channel values, batch size 1.
func Input(img image.Image) []float32 {
	small := imaging.Resize(img, InputSize, InputSize, imaging.CatmullRom)
	out := make([]float32, 0, InputSize*InputSize*Channels)
	for y := 0; y < InputSize; y++ {
		row := small.Pix[y*small.Stride : y*small.Stride+InputSize*4]
		for x := 0; x < len(row); x += 4 {
			out = append(out, float32(row[x]), float32(row[x+1]), float32(row[x+2]))
		}
	}
	return out
}

// InputShape is the tensor shape of Input's output.
func InputShape() []int64 {
	return []int64{1, InputSize, InputSize, Channels}
}

// ArgMax returns the index and value of the largest probability. The first
// maximum wins on ties.
func ArgMax(probs []float32) (int, float32, error) {
	if len(probs) == 0 {
		return 0, 0, fmt.Errorf("%w: empty output", ErrOutputShape)
	}
	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}
	return best, probs[best], nil
}

// Decide turns a probability vector into a Result.
func Decide(probs []float32) (Result, error) {
	if len(probs) != label.Count {
		return Result{}, fmt.Errorf("%w: got %d values, want %d", ErrOutputShape, len(probs), label.Count)
	}
	idx, p, err := ArgMax(probs)
	if err != nil {
		return Result{}, err
	}
	lbl, _ := label.At(idx)
	return Result{Index: idx, Label: lbl, Confidence: float64(p) * 100}, nil
}
