package classifier

import (
	"context"
	"fmt"
	"image"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"plantdx/pkg/label"
)

// ortEnv guards the process-wide ONNX Runtime initialization.
var ortEnv struct {
	once sync.Once
	err  error
}

func initORT(libPath string) error {
	ortEnv.once.Do(func() {
		ort.SetSharedLibraryPath(libPath)
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

// ONNX runs the exported leaf model through ONNX Runtime. It is loaded once
// by the caller, shared by reference and released with Close.
type ONNX struct {
	session    *ort.DynamicAdvancedSession
	inputName  string
	outputName string
}

// LoadONNX initializes the runtime from libPath and opens modelPath.
func LoadONNX(modelPath, libPath string) (*ONNX, error) {
	if err := initORT(libPath); err != nil {
		return nil, fmt.Errorf("onnx: failed to initialize runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to read model info: %w", err)
	}
	if len(inputs) != 1 {
		return nil, fmt.Errorf("onnx: expected 1 input, model has %d", len(inputs))
	}
	if len(outputs) == 0 {
		return nil, fmt.Errorf("onnx: model has no outputs")
	}
	if err := validateShapes(inputs[0].Dimensions, outputs[0].Dimensions); err != nil {
		return nil, err
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session options: %w", err)
	}
	defer opts.Destroy()
	opts.SetIntraOpNumThreads(2)
	opts.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{inputs[0].Name},
		[]string{outputs[0].Name},
		opts,
	)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session: %w", err)
	}
	return &ONNX{session: session, inputName: inputs[0].Name, outputName: outputs[0].Name}, nil
}

// validateShapes checks for an NHWC 64x64x3 input and a 15-way output.
// Dimensions of -1 are dynamic and accepted.
func validateShapes(in, out ort.Shape) error {
	want := InputShape()
	if len(in) != len(want) {
		return fmt.Errorf("onnx: expected %d-D input, got %v", len(want), in)
	}
	for i := 1; i < len(want); i++ {
		if in[i] != -1 && in[i] != want[i] {
			return fmt.Errorf("onnx: input shape %v does not match %v", in, want)
		}
	}
	if len(out) != 2 || (out[1] != -1 && out[1] != label.Count) {
		return fmt.Errorf("onnx: output shape %v is not [batch, %d]", out, label.Count)
	}
	return nil
}

// Classify runs one inference. ctx is checked before the call only; ONNX
// Runtime offers no cancellation.
func (m *ONNX) Classify(ctx context.Context, img image.Image) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	in, err := ort.NewTensor(ort.NewShape(InputShape()...), Input(img))
	if err != nil {
		return Result{}, fmt.Errorf("onnx: failed to create input tensor: %w", err)
	}
	defer in.Destroy()

	out, err := ort.NewEmptyTensor[float32](ort.NewShape(1, label.Count))
	if err != nil {
		return Result{}, fmt.Errorf("onnx: failed to create output tensor: %w", err)
	}
	defer out.Destroy()

	if err := m.session.Run([]ort.Value{in}, []ort.Value{out}); err != nil {
		return Result{}, fmt.Errorf("onnx: inference failed: %w", err)
	}
	probs := make([]float32, label.Count)
	copy(probs, out.GetData())
	return Decide(probs)
}

// Close releases the session.
func (m *ONNX) Close() error {
	return m.session.Destroy()
}
