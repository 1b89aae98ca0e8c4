// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cloud

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"sync"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	ort "github.com/yalue/onnxruntime_go"
)

const localBatchSize = 32

// LocalEmbedder runs a sentence-transformer (MiniLM style) ONNX export on the
// host. Sentence vectors are the attention-masked mean of the last hidden
// state, L2 normalised.
type LocalEmbedder struct {
	tokenizer *tokenizer.Tokenizer
	session   *ort.DynamicAdvancedSession
	name      string
	maxLength int
	mu        sync.Mutex // sessions are not safe for concurrent Run
}

// NewLocalEmbedder loads the tokenizer and the model described by config.
func NewLocalEmbedder(config LocalEmbedding) (*LocalEmbedder, error) {
	tok, err := pretrained.FromFile(config.TokenizerPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}

	if config.LibraryPath != "" {
		ort.SetSharedLibraryPath(config.LibraryPath)
	}
	if !ort.IsInitialized() {
		if err = ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer opts.Destroy()
	if err = opts.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableAll); err != nil {
		return nil, fmt.Errorf("failed to set graph optimization: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(
		config.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"last_hidden_state"},
		opts,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	maxLength := config.MaxLength
	if maxLength <= 0 {
		maxLength = 128
	}
	return &LocalEmbedder{
		tokenizer: tok,
		session:   session,
		name:      filepath.Base(config.ModelPath),
		maxLength: maxLength,
	}, nil
}

func (e *LocalEmbedder) ModelName() string {
	return e.name
}

// Embed implements Embedder.
func (e *LocalEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += localBatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+localBatchSize, len(texts))
		vectors, err := e.embedBatch(texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func (e *LocalEmbedder) embedBatch(texts []string) ([][]float32, error) {
	inputs := make([]tokenizer.EncodeInput, len(texts))
	for i, t := range texts {
		inputs[i] = tokenizer.NewSingleEncodeInput(tokenizer.NewInputSequence(t))
	}
	encodings, err := e.tokenizer.EncodeBatch(inputs, true)
	if err != nil {
		return nil, fmt.Errorf("tokenization failed: %w", err)
	}

	maxLen := 0
	for _, enc := range encodings {
		maxLen = max(maxLen, min(len(enc.GetIds()), e.maxLength))
	}
	batchSize := len(encodings)

	inputIds := make([]int64, batchSize*maxLen)
	attentionMask := make([]int64, batchSize*maxLen)
	tokenTypeIds := make([]int64, batchSize*maxLen)
	for i, enc := range encodings {
		ids := enc.GetIds()
		mask := enc.GetAttentionMask()
		offset := i * maxLen
		for j := 0; j < maxLen && j < len(ids); j++ {
			inputIds[offset+j] = int64(ids[j])
			attentionMask[offset+j] = int64(mask[j])
		}
	}

	shape := ort.NewShape(int64(batchSize), int64(maxLen))
	idsTensor, err := ort.NewTensor(shape, inputIds)
	if err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	defer idsTensor.Destroy()
	maskTensor, err := ort.NewTensor(shape, attentionMask)
	if err != nil {
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	defer maskTensor.Destroy()
	typeTensor, err := ort.NewTensor(shape, tokenTypeIds)
	if err != nil {
		return nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
	}
	defer typeTensor.Destroy()

	outputs := make([]ort.Value, 1)
	e.mu.Lock()
	err = e.session.Run([]ort.Value{idsTensor, maskTensor, typeTensor}, outputs)
	e.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	defer outputs[0].Destroy()

	hidden, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("output tensor is not float32 type")
	}
	outShape := hidden.GetShape()
	return MeanPool(hidden.GetData(), attentionMask, int(outShape[0]), int(outShape[1]), int(outShape[2])), nil
}

// Close releases the ONNX session and environment.
func (e *LocalEmbedder) Close() error {
	if e.session != nil {
		if err := e.session.Destroy(); err != nil {
			return err
		}
	}
	return ort.DestroyEnvironment()
}

// MeanPool averages the token vectors of each sequence over the positions
// where mask is 1 and L2-normalises the result. data is laid out as
// [batch, seqLen, hidden]; the returned vectors do not alias data.
func MeanPool(data []float32, mask []int64, batch, seqLen, hidden int) [][]float32 {
	out := make([][]float32, batch)
	for b := 0; b < batch; b++ {
		sum := make([]float64, hidden)
		count := 0
		for s := 0; s < seqLen; s++ {
			if mask[b*seqLen+s] == 0 {
				continue
			}
			count++
			row := data[(b*seqLen+s)*hidden : (b*seqLen+s+1)*hidden]
			for h, v := range row {
				sum[h] += float64(v)
			}
		}
		vec := make([]float32, hidden)
		if count == 0 {
			out[b] = vec
			continue
		}
		var norm float64
		for h := range sum {
			sum[h] /= float64(count)
			norm += sum[h] * sum[h]
		}
		norm = math.Sqrt(norm)
		for h := range sum {
			if norm > 0 {
				vec[h] = float32(sum[h] / norm)
			}
		}
		out[b] = vec
	}
	return out
}
