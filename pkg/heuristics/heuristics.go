package heuristics

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// SampleSize is the edge length of the square sample both scores run on.
const SampleSize = 100

// DarkThreshold is the gray level below which a pixel counts as damaged.
const DarkThreshold = 100

// Scores holds the two image-derived heuristics, both percentages.
type Scores struct {
	Severity    float64 `json:"severity"`
	WaterStress float64 `json:"water_stress"`
}

// WaterStress is the mean brightness of the sample scaled to 0..100.
// Brighter leaves score higher.
func WaterStress(img image.Image) float64 {
	return waterStress(grayscale(sample(img)))
}

// Severity is the percentage of sample pixels darker than DarkThreshold.
func Severity(img image.Image) float64 {
	return severity(grayscale(sample(img)))
}

// Score computes both heuristics from a single resized sample.
func Score(img image.Image) Scores {
	gray := grayscale(sample(img))
	return Scores{Severity: severity(gray), WaterStress: waterStress(gray)}
}

func sample(img image.Image) *image.NRGBA {
	return imaging.Resize(img, SampleSize, SampleSize, imaging.CatmullRom)
}

// grayscale averages R, G and B per pixel. Alpha is ignored.
func grayscale(img *image.NRGBA) []float64 {
	b := img.Bounds()
	out := make([]float64, 0, b.Dx()*b.Dy())
	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+b.Dx()*4]
		for x := 0; x < len(row); x += 4 {
			out = append(out, (float64(row[x])+float64(row[x+1])+float64(row[x+2]))/3)
		}
	}
	return out
}

func waterStress(gray []float64) float64 {
	if len(gray) == 0 {
		return 0
	}
	var sum float64
	for _, v := range gray {
		sum += v
	}
	score := sum / float64(len(gray)) / 255 * 100
	return round2(math.Max(0, math.Min(100, score)))
}

func severity(gray []float64) float64 {
	if len(gray) == 0 {
		return 0
	}
	dark := 0
	for _, v := range gray {
		if v < DarkThreshold {
			dark++
		}
	}
	return round2(float64(dark) / float64(len(gray)) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
