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

// Package cor (Chain of Responsibility) is the small execution framework every
// pipeline stage in this repository is built on. A stage (scrape, refine,
// extract, enrich) is a Chain of Commands sharing one Context. Commands read
// their input from the context, do one unit of work and write their output
// back, so the chain can pipe the output of one command into the next.
package cor

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// CtxIn and CtxOut are the keys used by BaseChain to pipe data between
// consecutive commands.
const (
	// CtxIn holds the primary input of the command about to run. BaseChain
	// fills it with the CtxOut value of the previous command.
	CtxIn = "__IN__"
	// CtxOut is where a command places its primary output.
	CtxOut = "__OUT__"
)

// Context is the shared state of a single chain execution: data, the errors
// recorded by commands, temporary files to clean up and the Go context used
// for cancellation and tracing.
type Context interface {
	// SetContext replaces the Go context (used by BaseChain to nest spans).
	SetContext(context context.Context)

	// GetContext returns the current Go context.
	GetContext() context.Context

	// Add stores a value under key and returns the Context for chaining.
	Add(key string, value interface{}) Context

	// AddError records the error produced by the named command.
	AddError(key string, err error)

	// GetErrors returns the recorded errors keyed by command name.
	GetErrors() map[string]error

	// Err joins every recorded error, or returns nil when there are none.
	Err() error

	// Get returns the value stored under key, or nil.
	Get(key string) interface{}

	// Remove deletes key.
	Remove(key string)

	// HasErrors reports whether any command recorded an error.
	HasErrors() bool

	// AddTempFile registers a file to be removed on Close.
	AddTempFile(file string)

	// GetTempFiles returns the registered temporary files.
	GetTempFiles() []string

	// Close removes the registered temporary files.
	Close()
}

// Executable is anything that runs against a Context.
type Executable interface {
	Execute(context Context)
}

// Command is an atomic unit of work in a chain.
type Command interface {
	Executable

	// GetName returns the unique name used for spans and metrics.
	GetName() string

	// GetInputParam returns the context key the command reads its input from.
	GetInputParam() string

	// GetOutputParam returns the context key the command writes its output to.
	GetOutputParam() string

	// IsExecutable is the precondition checked by the chain before Execute.
	IsExecutable(context Context) bool

	GetTracer() trace.Tracer
	GetMeter() metric.Meter
	GetSuccessCounter() metric.Int64Counter
	GetErrorCounter() metric.Int64Counter
}

// Chain is a Command composed of other commands, executed in order.
type Chain interface {
	Command

	// ContinueOnFailure controls whether later commands still run after an
	// earlier one recorded an error.
	ContinueOnFailure(bool) Chain

	// AddCommand appends a command to the chain.
	AddCommand(command Command) Chain
}
