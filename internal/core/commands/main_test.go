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
package commands_test

import (
	"context"
	"os"
	"testing"

	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/cor"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const tName = "travel-knowledge/tests/commands"

var logger = otelslog.NewLogger(tName)

func TestMain(m *testing.M) {
	logger.Info("running command tests")
	os.Exit(m.Run())
}

// newContext returns a chain context holding the given params.
func newContext(params map[string]interface{}) cor.Context {
	c := cor.NewBaseContext()
	c.SetContext(context.Background())
	for k, v := range params {
		c.Add(k, v)
	}
	return c
}
