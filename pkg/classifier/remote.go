package classifier

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/go-resty/resty/v2"
)

// Remote calls a model server exposing a TensorFlow Serving style REST
// predict endpoint: {"instances": [...]} in, {"predictions": [[...]]} out.
type Remote struct {
	client *resty.Client
	url    string
}

type predictRequest struct {
	Instances [][][][]float32 `json:"instances"`
}

type predictResponse struct {
	Predictions [][]float32 `json:"predictions"`
	Error       string      `json:"error"`
}

// NewRemote builds a client for the predict URL, e.g.
// http://localhost:8501/v1/models/plant:predict.
func NewRemote(url string, timeout time.Duration) *Remote {
	c := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(1)
	return &Remote{client: c, url: url}
}

// Classify posts the 64x64 tensor and decides on the returned probabilities.
func (r *Remote) Classify(ctx context.Context, img image.Image) (Result, error) {
	var out predictResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(predictRequest{Instances: [][][][]float32{nest(Input(img))}}).
		SetResult(&out).
		SetError(&out).
		Post(r.url)
	if err != nil {
		return Result{}, fmt.Errorf("remote classifier: %w", err)
	}
	if resp.IsError() {
		return Result{}, fmt.Errorf("remote classifier: status %d: %s", resp.StatusCode(), out.Error)
	}
	if len(out.Predictions) != 1 {
		return Result{}, fmt.Errorf("%w: %d predictions in response", ErrOutputShape, len(out.Predictions))
	}
	return Decide(out.Predictions[0])
}

// nest reshapes a flat HWC tensor into [H][W][C].
func nest(flat []float32) [][][]float32 {
	out := make([][][]float32, InputSize)
	for y := range out {
		out[y] = make([][]float32, InputSize)
		for x := range out[y] {
			i := (y*InputSize + x) * Channels
			out[y][x] = flat[i : i+Channels]
		}
	}
	return out
}
