package onnx

import (
	"fmt"
	"sync"

	"github.com/sugarme/tokenizer"
	"github.com/viant/codevec/embeddings"
	"github.com/sugarme/tokenizer/pretrained"
	ort "github.com/yalue/onnxruntime_go"
)

var (
	environmentOnce sync.Once
	environmentErr  error
)

func initEnvironment(sharedLibrary string) error {
	environmentOnce.Do(func() {
		if ort.IsInitialized() {
			return
		}
		if sharedLibrary != "" {
			ort.SetSharedLibraryPath(sharedLibrary)
		}
		environmentErr = ort.InitializeEnvironment()
	})
	return environmentErr
}

// PretrainedTokenizer wraps a tokenizer.json definition.
type PretrainedTokenizer struct {
	mu sync.Mutex
	tk *tokenizer.Tokenizer
}

// LoadTokenizer loads a tokenizer.json file, truncating encodings to maxLength tokens.
func LoadTokenizer(path string, maxLength int) (*PretrainedTokenizer, error) {
	tk, err := pretrained.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("onnx: load tokenizer %s: %w", path, err)
	}
	tk.WithTruncation(&tokenizer.TruncationParams{MaxLength: maxLength, Strategy: tokenizer.LongestFirst})
	return &PretrainedTokenizer{tk: tk}, nil
}

// Encode tokenizes text with special tokens.
func (t *PretrainedTokenizer) Encode(text string) ([]int64, []int64, error) {
	t.mu.Lock()
	encoding, err := t.tk.EncodeSingle(text, true)
	t.mu.Unlock()
	if err != nil {
		return nil, nil, err
	}
	return toInt64(encoding.Ids), toInt64(encoding.AttentionMask), nil
}

// RuntimeSession runs an ONNX model with onnxruntime.
type RuntimeSession struct {
	session *ort.DynamicAdvancedSession
}

// LoadSession creates an inference session with input_ids and attention_mask inputs.
// Only the runtime related options apply.
func LoadSession(modelPath string, opts ...Option) (*RuntimeSession, error) {
	o := newOptions(opts)
	if err := initEnvironment(o.sharedLibrary); err != nil {
		return nil, fmt.Errorf("onnx: init runtime: %w", err)
	}
	output := o.outputName
	if output == "" {
		_, outputs, err := ort.GetInputOutputInfo(modelPath)
		if err != nil {
			return nil, fmt.Errorf("onnx: inspect %s: %w", modelPath, err)
		}
		if len(outputs) == 0 {
			return nil, fmt.Errorf("onnx: model %s has no outputs", modelPath)
		}
		output = outputs[0].Name
	}
	var sessionOptions *ort.SessionOptions
	if o.intraOpThreads > 0 {
		var err error
		if sessionOptions, err = ort.NewSessionOptions(); err != nil {
			return nil, fmt.Errorf("onnx: session options: %w", err)
		}
		defer sessionOptions.Destroy()
		if err = sessionOptions.SetIntraOpNumThreads(o.intraOpThreads); err != nil {
			return nil, fmt.Errorf("onnx: session options: %w", err)
		}
	}
	session, err := ort.NewDynamicAdvancedSession(modelPath, []string{inputIDs, attentionMask}, []string{output}, sessionOptions)
	if err != nil {
		return nil, fmt.Errorf("onnx: load model %s: %w", modelPath, err)
	}
	return &RuntimeSession{session: session}, nil
}

// Run feeds one sequence of shape [1, len(ids)] and flattens the output tensor.
// Tensor construction failures and unexpected outputs are reported as embeddings.ErrShape.
func (s *RuntimeSession) Run(ids, mask []int64) ([]float32, error) {
	shape := ort.NewShape(1, int64(len(ids)))
	idsTensor, err := ort.NewTensor(shape, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: %s tensor: %w", embeddings.ErrShape, inputIDs, err)
	}
	defer idsTensor.Destroy()
	maskTensor, err := ort.NewTensor(shape, mask)
	if err != nil {
		return nil, fmt.Errorf("%w: %s tensor: %w", embeddings.ErrShape, attentionMask, err)
	}
	defer maskTensor.Destroy()

	outputs := []ort.Value{nil}
	if err := s.session.Run([]ort.Value{idsTensor, maskTensor}, outputs); err != nil {
		return nil, err
	}
	defer outputs[0].Destroy()
	tensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("%w: unexpected output type %T", embeddings.ErrShape, outputs[0])
	}
	data := tensor.GetData()
	result := make([]float32, len(data))
	copy(result, data)
	return result, nil
}

// Close destroys the session.
func (s *RuntimeSession) Close() error {
	return s.session.Destroy()
}

func toInt64(values []int) []int64 {
	result := make([]int64, len(values))
	for i, v := range values {
		result[i] = int64(v)
	}
	return result
}
