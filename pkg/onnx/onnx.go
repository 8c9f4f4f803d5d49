// Package onnx runs the anti-spoofing classifier on ONNX Runtime.
//
// ONNX Runtime is loaded dynamically through github.com/yalue/onnxruntime_go.
// The shared library path is process-wide, so the environment is set up
// once with [Init] and torn down with [Shutdown].
//
// Usage flow:
//
//	if err := onnx.Init("/usr/lib/libonnxruntime.so"); err != nil { ... }
//	defer onnx.Shutdown()
//
//	clf, _ := onnx.Open(onnx.Config{Path: "weights/model.onnx"})
//	defer clf.Close()
//
//	logits, _ := clf.Classify(tensor)
//
// # Thread Safety
//
// A Classifier binds one input and one output tensor to its session, so
// Classify serializes callers with a mutex.
package onnx

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var envMu sync.Mutex

// Init loads the ONNX Runtime shared library and creates the process
// environment. An empty libPath uses the onnxruntime_go default lookup.
// Calling Init again after success is a no-op.
func Init(libPath string) error {
	envMu.Lock()
	defer envMu.Unlock()
	if ort.IsInitialized() {
		return nil
	}
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("onnx: init runtime: %w", err)
	}
	return nil
}

// Shutdown destroys the process environment. Sessions must be closed first.
func Shutdown() error {
	envMu.Lock()
	defer envMu.Unlock()
	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}
