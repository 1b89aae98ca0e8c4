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
package workflow_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/cor"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/workflow"
)

type batchItem struct {
	Name string `json:"name"`
	Fail bool   `json:"fail"`
}

// sliceCursor replays JSON documents as a workflow.Cursor.
type sliceCursor struct {
	docs   []string
	pos    int
	err    error
	closed bool
}

func (c *sliceCursor) Next(_ context.Context) bool {
	if c.pos >= len(c.docs) {
		return false
	}
	c.pos++
	return true
}

func (c *sliceCursor) Decode(v interface{}) error {
	return json.Unmarshal([]byte(c.docs[c.pos-1]), v)
}

func (c *sliceCursor) Err() error { return c.err }

func (c *sliceCursor) Close(_ context.Context) error {
	c.closed = true
	return nil
}

// itemCommand fails for items flagged Fail and records the names it saw.
type itemCommand struct {
	cor.BaseCommand
	seen []string
}

func newItemCommand() *itemCommand {
	out := &itemCommand{BaseCommand: *cor.NewBaseCommand("item-command")}
	out.InputParamName = "__ITEM__"
	return out
}

func (c *itemCommand) Execute(context cor.Context) {
	item := context.Get(c.GetInputParam()).(*batchItem)
	c.seen = append(c.seen, item.Name)
	if item.Fail {
		c.Fail(context, errors.New("boom"))
		return
	}
	c.Succeed(context, item.Name)
}

func TestBatchContinuesPastFailures(t *testing.T) {
	command := newItemCommand()
	batch := &workflow.Batch[batchItem]{
		Name:     "test-batch",
		Command:  command,
		Param:    "__ITEM__",
		Label:    func(i *batchItem) string { return i.Name },
		Progress: io.Discard,
	}
	cursor := &sliceCursor{docs: []string{
		`{"name": "goa"}`,
		`{"name": "agra", "fail": true}`,
		`{not json`,
		`{"name": "jaipur"}`,
	}}

	result, err := batch.Run(ctx, cursor, int64(len(cursor.docs)))
	require.NoError(t, err)
	assert.Equal(t, workflow.BatchResult{Processed: 2, Failed: 2}, result)
	assert.Equal(t, []string{"goa", "agra", "jaipur"}, command.seen)
	assert.True(t, cursor.closed)
}

func TestBatchReportsCursorErrors(t *testing.T) {
	batch := &workflow.Batch[batchItem]{Name: "test-batch", Command: newItemCommand(), Param: "__ITEM__", Progress: io.Discard}
	cursor := &sliceCursor{docs: []string{`{"name": "goa"}`}, err: errors.New("cursor killed")}

	result, err := batch.Run(ctx, cursor, -1)
	require.Error(t, err)
	assert.Equal(t, 1, result.Processed)
}
