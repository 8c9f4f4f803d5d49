package onnx

import (
	"errors"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/haivivi/antispoof/pkg/antispoof"
)

// Default tensor names of the exported classifier.
const (
	DefaultInputName  = "input"
	DefaultOutputName = "output"
)

// Config describes how to load a classifier.
type Config struct {
	// Path is the .onnx file. Ignored when Data is set.
	Path string

	// Data holds the model bytes for in-memory loading.
	Data []byte

	// SharedLibraryPath is passed to Init before the session is created.
	SharedLibraryPath string

	InputName  string
	OutputName string

	// Length is the input window size (default antispoof.SegmentLength).
	Length int
}

func (c Config) withDefaults() Config {
	if c.InputName == "" {
		c.InputName = DefaultInputName
	}
	if c.OutputName == "" {
		c.OutputName = DefaultOutputName
	}
	if c.Length <= 0 {
		c.Length = antispoof.SegmentLength
	}
	return c
}

// Validate checks that the config names a model.
func (c Config) Validate() error {
	if c.Path == "" && len(c.Data) == 0 {
		return errors.New("onnx: model path is required")
	}
	return nil
}

// Classifier is an antispoof.Model backed by an ONNX Runtime session.
type Classifier struct {
	mu      sync.Mutex
	cfg     Config
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

var _ antispoof.Model = (*Classifier)(nil)

// Open initializes the runtime if needed and loads the model.
func Open(cfg Config) (*Classifier, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(cfg.Data) == 0 {
		if _, err := os.Stat(cfg.Path); err != nil {
			return nil, fmt.Errorf("onnx: model file: %w", err)
		}
	}
	if err := Init(cfg.SharedLibraryPath); err != nil {
		return nil, err
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1, int64(cfg.Length)))
	if err != nil {
		return nil, fmt.Errorf("onnx: input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 2))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("onnx: output tensor: %w", err)
	}

	var session *ort.AdvancedSession
	inNames, outNames := []string{cfg.InputName}, []string{cfg.OutputName}
	ins, outs := []ort.Value{input}, []ort.Value{output}
	if len(cfg.Data) > 0 {
		session, err = ort.NewAdvancedSessionWithONNXData(cfg.Data, inNames, outNames, ins, outs, nil)
	} else {
		session, err = ort.NewAdvancedSession(cfg.Path, inNames, outNames, ins, outs, nil)
	}
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("onnx: create session: %w", err)
	}

	return &Classifier{cfg: cfg, session: session, input: input, output: output}, nil
}

// Classify runs one forward pass and returns [fake, real] logits.
func (c *Classifier) Classify(t *antispoof.Tensor) (antispoof.Logits, error) {
	if t == nil || len(t.Data) != c.cfg.Length {
		got := 0
		if t != nil {
			got = len(t.Data)
		}
		return antispoof.Logits{}, &antispoof.ShapeError{What: "model input", Got: got, Want: c.cfg.Length}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return antispoof.Logits{}, errors.New("onnx: classifier closed")
	}

	copy(c.input.GetData(), t.Data)
	if err := c.session.Run(); err != nil {
		return antispoof.Logits{}, fmt.Errorf("onnx: run: %w", err)
	}
	out := c.output.GetData()
	if len(out) != 2 {
		return antispoof.Logits{}, &antispoof.ShapeError{What: "model output", Got: len(out), Want: 2}
	}
	return antispoof.Logits{out[0], out[1]}, nil
}

// Close destroys the session and its tensors.
func (c *Classifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	err := c.session.Destroy()
	c.input.Destroy()
	c.output.Destroy()
	c.session, c.input, c.output = nil, nil, nil
	return err
}
