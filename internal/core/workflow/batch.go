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
package workflow

import (
	goctx "context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/schollz/progressbar/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/cor"
)

// Cursor is the part of *mongo.Cursor a batch reads from.
type Cursor interface {
	Next(ctx goctx.Context) bool
	Decode(val interface{}) error
	Err() error
	Close(ctx goctx.Context) error
}

// BatchResult counts the items of a batch run.
type BatchResult struct {
	Processed int
	Failed    int
}

// Batch pushes every document of a cursor through a command, one fresh chain
// context per document. A failed document is logged and counted; it never
// stops the batch.
type Batch[T any] struct {
	Name    string
	Command cor.Command
	// Param is the context key the decoded document is stored under.
	Param string
	// Label names a document in log lines.
	Label    func(item *T) string
	Progress io.Writer
}

func (b *Batch[T]) newBar(total int64) *progressbar.ProgressBar {
	w := b.Progress
	if w == nil {
		w = os.Stderr
	}
	return progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(b.Name),
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

// Run drains cursor and closes it. total sizes the progress bar; -1 when unknown.
func (b *Batch[T]) Run(ctx goctx.Context, cursor Cursor, total int64) (BatchResult, error) {
	defer cursor.Close(ctx)

	tracer := otel.Tracer(b.Name)
	bar := b.newBar(total)
	defer bar.Finish()

	result := BatchResult{}
	for cursor.Next(ctx) {
		item := new(T)
		if err := cursor.Decode(item); err != nil {
			result.Failed++
			slog.WarnContext(ctx, "failed to decode batch item", "batch", b.Name, "error", err)
			_ = bar.Add(1)
			continue
		}
		label := b.label(item)

		itemCtx, span := tracer.Start(ctx, fmt.Sprintf("%s_item", b.Name))
		chainCtx := cor.NewBaseContext()
		chainCtx.SetContext(itemCtx)
		chainCtx.Add(b.Param, item)
		chainCtx.Add(cor.CtxIn, item)

		if b.Command.IsExecutable(chainCtx) {
			b.Command.Execute(chainCtx)
		} else {
			chainCtx.AddError(b.Name, fmt.Errorf("%s is not executable for %s", b.Command.GetName(), label))
		}

		if chainCtx.HasErrors() {
			result.Failed++
			span.SetStatus(codes.Error, "item failed")
			slog.ErrorContext(itemCtx, "batch item failed", "batch", b.Name, "item", label, "error", chainCtx.Err())
		} else {
			result.Processed++
			span.SetStatus(codes.Ok, "item processed")
		}
		span.End()
		chainCtx.Close()
		_ = bar.Add(1)
	}
	if err := cursor.Err(); err != nil {
		return result, fmt.Errorf("%s cursor failed: %w", b.Name, err)
	}
	slog.InfoContext(ctx, "batch complete", "batch", b.Name, "processed", result.Processed, "failed", result.Failed)
	return result, nil
}

func (b *Batch[T]) label(item *T) string {
	if b.Label == nil {
		return ""
	}
	return b.Label(item)
}
