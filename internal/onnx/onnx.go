// Package onnx loads the per-category triage classifiers with ONNX Runtime
// and exposes them as triage.Predictor implementations.
package onnx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/linnemanlabs/go-core/log"

	"github.com/umeed-health/umeed/internal/triage"
)

// Defaults match classifiers exported with skl2onnx and zipmap disabled.
const (
	DefaultInputName  = "float_input"
	DefaultOutputName = "probabilities"

	numClasses = 3
)

// Config locates the runtime library and model files.
type Config struct {
	ModelDir    string
	LibraryPath string
	InputName   string
	OutputName  string
}

func (c Config) withDefaults() Config {
	if c.InputName == "" {
		c.InputName = DefaultInputName
	}
	if c.OutputName == "" {
		c.OutputName = DefaultOutputName
	}
	return c
}

// ModelPath returns the model file for a category inside dir.
func ModelPath(dir string, c triage.Category) string {
	return filepath.Join(dir, string(c)+"_triage_model.onnx")
}

// Predictor runs one classifier session. Run calls are serialized per
// session; tensors are allocated per call.
type Predictor struct {
	category triage.Category
	width    int

	mu      sync.Mutex
	session *ort.DynamicAdvancedSession
}

// PredictProbabilities implements triage.Predictor.
func (p *Predictor) PredictProbabilities(ctx context.Context, v triage.FeatureVector) (triage.Probabilities, error) {
	if err := ctx.Err(); err != nil {
		return triage.Probabilities{}, err
	}
	if len(v) != p.width {
		return triage.Probabilities{}, fmt.Errorf("%s model expects %d features, got %d", p.category, p.width, len(v))
	}

	in, err := ort.NewTensor(ort.NewShape(1, int64(p.width)), toFloat32(v))
	if err != nil {
		return triage.Probabilities{}, fmt.Errorf("input tensor: %w", err)
	}
	defer in.Destroy() //nolint:errcheck

	out, err := ort.NewEmptyTensor[float32](ort.NewShape(1, numClasses))
	if err != nil {
		return triage.Probabilities{}, fmt.Errorf("output tensor: %w", err)
	}
	defer out.Destroy() //nolint:errcheck

	p.mu.Lock()
	if p.session == nil {
		p.mu.Unlock()
		return triage.Probabilities{}, fmt.Errorf("%s model is closed", p.category)
	}
	err = p.session.Run([]ort.Value{in}, []ort.Value{out})
	p.mu.Unlock()
	if err != nil {
		return triage.Probabilities{}, fmt.Errorf("run %s model: %w", p.category, err)
	}

	return fromOutput(out.GetData())
}

func (p *Predictor) close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return nil
	}
	err := p.session.Destroy()
	p.session = nil
	return err
}

// Runtime owns the ONNX Runtime environment and the three loaded predictors.
type Runtime struct {
	predictors []*Predictor
	registry   *triage.Registry
}

// Load initializes ONNX Runtime and opens one session per category. Any
// missing or mismatched model is an error; a partial registry is never
// returned.
func Load(cfg Config, logger log.Logger) (*Runtime, error) {
	if logger == nil {
		logger = log.Nop()
	}
	cfg = cfg.withDefaults()

	if cfg.ModelDir == "" {
		return nil, errors.New("model dir is required")
	}
	if cfg.LibraryPath != "" {
		ort.SetSharedLibraryPath(cfg.LibraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initialize onnxruntime: %w", err)
		}
	}

	rt := &Runtime{}
	byCategory := make(map[triage.Category]triage.Predictor, len(triage.Categories))
	for _, c := range triage.Categories {
		p, err := openPredictor(cfg, c)
		if err != nil {
			_ = rt.Close()
			return nil, err
		}
		rt.predictors = append(rt.predictors, p)
		byCategory[c] = p
		logger.Info(context.Background(), "model loaded",
			"category", c,
			"path", ModelPath(cfg.ModelDir, c),
			"features", p.width,
		)
	}

	reg, err := triage.NewRegistry(
		byCategory[triage.CategoryPregnant],
		byCategory[triage.CategoryChild],
		byCategory[triage.CategoryGeneral],
	)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	rt.registry = reg
	return rt, nil
}

func openPredictor(cfg Config, c triage.Category) (*Predictor, error) {
	path := ModelPath(cfg.ModelDir, c)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%s model: %w", c, err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("inspect %s: %w", path, err)
	}
	want := len(triage.FeatureNames(c))
	if err := checkInput(inputs, cfg.InputName, want); err != nil {
		return nil, fmt.Errorf("%s model: %w", c, err)
	}
	if err := checkOutput(outputs, cfg.OutputName); err != nil {
		return nil, fmt.Errorf("%s model: %w", c, err)
	}

	session, err := ort.NewDynamicAdvancedSession(path, []string{cfg.InputName}, []string{cfg.OutputName}, nil)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &Predictor{category: c, width: want, session: session}, nil
}

// Registry returns the predictors as a triage registry.
func (r *Runtime) Registry() *triage.Registry {
	return r.registry
}

// Close destroys all sessions and the ONNX Runtime environment.
func (r *Runtime) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	for _, p := range r.predictors {
		errs = append(errs, p.close())
	}
	if ort.IsInitialized() {
		errs = append(errs, ort.DestroyEnvironment())
	}
	return errors.Join(errs...)
}

// checkInput verifies the named input exists and its feature dimension is
// either dynamic or equal to want.
func checkInput(infos []ort.InputOutputInfo, name string, want int) error {
	info, ok := findInfo(infos, name)
	if !ok {
		return fmt.Errorf("no input named %q (have %v)", name, infoNames(infos))
	}
	if n := len(info.Dimensions); n > 0 {
		if d := info.Dimensions[n-1]; d > 0 && int(d) != want {
			return fmt.Errorf("input %q has %d features, want %d", name, d, want)
		}
	}
	return nil
}

func checkOutput(infos []ort.InputOutputInfo, name string) error {
	info, ok := findInfo(infos, name)
	if !ok {
		return fmt.Errorf("no output named %q (have %v)", name, infoNames(infos))
	}
	if n := len(info.Dimensions); n > 0 {
		if d := info.Dimensions[n-1]; d > 0 && d != numClasses {
			return fmt.Errorf("output %q has %d classes, want %d", name, d, numClasses)
		}
	}
	return nil
}

func findInfo(infos []ort.InputOutputInfo, name string) (ort.InputOutputInfo, bool) {
	for _, info := range infos {
		if info.Name == name {
			return info, true
		}
	}
	return ort.InputOutputInfo{}, false
}

func infoNames(infos []ort.InputOutputInfo) []string {
	out := make([]string, len(infos))
	for i, info := range infos {
		out[i] = info.Name
	}
	return out
}

func toFloat32(v triage.FeatureVector) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

func fromOutput(data []float32) (triage.Probabilities, error) {
	if len(data) != numClasses {
		return triage.Probabilities{}, fmt.Errorf("model returned %d probabilities, want %d", len(data), numClasses)
	}
	return triage.Probabilities{
		Low:      float64(data[0]),
		Moderate: float64(data[1]),
		High:     float64(data[2]),
	}, nil
}
