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
	"errors"
	"fmt"

	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/cor"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/model"
)

// DestinationTrigger is the entry point of the scrape workflow. It accepts the
// raw trigger (a Pub/Sub message body or a CLI argument) and publishes the
// destination name.
type DestinationTrigger struct {
	cor.BaseCommand
}

func NewDestinationTrigger(name string) *DestinationTrigger {
	out := &DestinationTrigger{BaseCommand: *cor.NewBaseCommand(name)}
	out.OutputParamName = ParamDestination
	return out
}

func (c *DestinationTrigger) Execute(context cor.Context) {
	in, ok := context.Get(c.GetInputParam()).(string)
	if !ok {
		c.Fail(context, fmt.Errorf("trigger input is not a string"))
		return
	}
	req, err := model.ParseScrapeRequest(in)
	if err != nil {
		c.Fail(context, fmt.Errorf("failed to unmarshal scrape request: %w", err))
		return
	}
	if req.Destination == "" {
		c.Fail(context, errors.New("scrape request has no destination"))
		return
	}
	c.Succeed(context, req.Destination)
}

// EnrichTrigger parses {"destination":..,"video_id":..} messages.
type EnrichTrigger struct {
	cor.BaseCommand
}

func NewEnrichTrigger(name string) *EnrichTrigger {
	return &EnrichTrigger{BaseCommand: *cor.NewBaseCommand(name)}
}

func (c *EnrichTrigger) Execute(context cor.Context) {
	in, ok := context.Get(c.GetInputParam()).(string)
	if !ok {
		c.Fail(context, fmt.Errorf("trigger input is not a string"))
		return
	}
	req := &model.EnrichRequest{}
	if err := json.Unmarshal([]byte(in), req); err != nil {
		c.Fail(context, fmt.Errorf("failed to unmarshal enrich request: %w", err))
		return
	}
	if req.Destination == "" || req.VideoID == "" {
		c.Fail(context, errors.New("enrich request needs destination and video_id"))
		return
	}
	context.Add(ParamDestination, req.Destination)
	c.Succeed(context, req)
}
