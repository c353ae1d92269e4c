/**
 * ONNX-backed classification model.
 *
 * The classifier depends only on the Model interface; this file provides the
 * onnxruntime implementation plus bundle loading. A bundle directory holds
 * model.onnx and an optional labels.yaml overriding the default label order.
 */

package classify

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"gopkg.in/yaml.v3"
)

// Input geometry expected by the model: 224x224 RGB, single-item batch, NHWC.
const (
	InputSize     = 224
	inputChannels = 3
)

// Model is the pluggable inference capability behind the classifier.
// Infer takes a normalized NHWC float32 batch of one image and returns one
// score per label.
type Model interface {
	Infer(input []float32) ([]float32, error)
	Close() error
}

type onnxModel struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]

	// onnxruntime sessions reuse bound tensors; serialize inference.
	mu sync.Mutex
}

// Bundle couples a loaded model with its label set.
type Bundle struct {
	Model  Model
	Labels []DocumentType
}

// LoadBundle loads the model bundle from dir. A missing model file is
// signalled with os.ErrNotExist so callers can fall back to degraded mode.
func LoadBundle(dir string) (*Bundle, error) {
	modelPath := filepath.Join(dir, "model.onnx")
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file missing at %s: %w", modelPath, err)
	}

	labels, err := loadLabels(filepath.Join(dir, "labels.yaml"))
	if err != nil {
		return nil, fmt.Errorf("load labels: %w", err)
	}

	model, err := loadONNXModel(modelPath, len(labels))
	if err != nil {
		return nil, err
	}

	return &Bundle{Model: model, Labels: labels}, nil
}

func loadONNXModel(modelPath string, labelCount int) (Model, error) {
	if libPath := resolveSharedLibraryPath(); libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initialize onnxruntime: %w", err)
		}
	}

	inputShape := ort.NewShape(1, InputSize, InputSize, inputChannels)
	input, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("allocate input tensor: %w", err)
	}

	outputShape := ort.NewShape(1, int64(labelCount))
	output, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("allocate output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{"input"},
		[]string{"output"},
		[]ort.Value{input},
		[]ort.Value{output},
		nil,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("create onnx session: %w", err)
	}

	return &onnxModel{session: session, input: input, output: output}, nil
}

func (m *onnxModel) Infer(input []float32) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data := m.input.GetData()
	if len(input) != len(data) {
		return nil, fmt.Errorf("input length %d does not match tensor size %d", len(input), len(data))
	}
	copy(data, input)

	if err := m.session.Run(); err != nil {
		return nil, fmt.Errorf("run inference: %w", err)
	}

	out := m.output.GetData()
	scores := make([]float32, len(out))
	copy(scores, out)
	return scores, nil
}

func (m *onnxModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.session.Destroy()
	m.input.Destroy()
	m.output.Destroy()
	return nil
}

func resolveSharedLibraryPath() string {
	if p := os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH"); p != "" {
		return p
	}
	for _, candidate := range []string{
		"/usr/lib/libonnxruntime.so",
		"/usr/local/lib/libonnxruntime.so",
		"/usr/lib/x86_64-linux-gnu/libonnxruntime.so",
	} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

type labelFile struct {
	Labels []string `yaml:"labels"`
}

// loadLabels reads labels.yaml if present; absence means the default set.
// A label count that disagrees with the default set size is rejected since
// the wire contract fixes the taxonomy at six classes.
func loadLabels(path string) ([]DocumentType, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultLabels(), nil
	}
	if err != nil {
		return nil, err
	}

	var lf labelFile
	if err := yaml.Unmarshal(raw, &lf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(lf.Labels) != len(DefaultLabels()) {
		return nil, fmt.Errorf("labels.yaml declares %d labels, expected %d", len(lf.Labels), len(DefaultLabels()))
	}

	labels := make([]DocumentType, len(lf.Labels))
	for i, l := range lf.Labels {
		labels[i] = DocumentType(l)
	}
	return labels, nil
}
