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

package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jaycherian/gcp-go-travel-knowledge/internal/cloud"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/cor"
)

// JsonToStruct parses the JSON string found in its input param into a *T.
type JsonToStruct[T any] struct {
	cor.BaseCommand
}

// NewJsonToStruct creates a parser reading inputParam and writing outputParam.
func NewJsonToStruct[T any](name string, inputParam string, outputParam string) *JsonToStruct[T] {
	out := &JsonToStruct[T]{BaseCommand: *cor.NewBaseCommand(name)}
	out.InputParamName = inputParam
	out.OutputParamName = outputParam
	return out
}

func (s *JsonToStruct[T]) Execute(context cor.Context) {
	in, ok := context.Get(s.GetInputParam()).(string)
	if !ok {
		s.Fail(context, fmt.Errorf("input %s is not a string", s.GetInputParam()))
		return
	}
	doc, err := ParseModelJSON[T](in)
	if err != nil {
		s.Fail(context, err)
		return
	}
	s.Succeed(context, doc)
}

// ParseModelJSON decodes a model response into a *T. Models sometimes wrap the
// document in prose or a code fence, so when the cleaned text does not parse
// the outermost {...} span is tried.
func ParseModelJSON[T any](in string) (*T, error) {
	doc := new(T)
	cleaned := cloud.CleanJSONResponse(in)
	err := json.Unmarshal([]byte(cleaned), doc)
	if err == nil {
		return doc, nil
	}
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start >= 0 && end > start {
		doc = new(T)
		if err2 := json.Unmarshal([]byte(cleaned[start:end+1]), doc); err2 == nil {
			return doc, nil
		}
	}
	return nil, fmt.Errorf("failed to unmarshal model JSON: %w", err)
}
