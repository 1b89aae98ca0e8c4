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
	"fmt"
	"log/slog"

	"github.com/jaycherian/gcp-go-travel-knowledge/internal/cloud"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/cor"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/model"
)

// SeenFilter drops candidates whose video was processed by an earlier run.
type SeenFilter struct {
	cor.BaseCommand
	seen cloud.SeenSet
}

func NewSeenFilter(name string, seen cloud.SeenSet) *SeenFilter {
	out := &SeenFilter{BaseCommand: *cor.NewBaseCommand(name), seen: seen}
	out.InputParamName = ParamCandidates
	out.OutputParamName = ParamCandidates
	return out
}

func (s *SeenFilter) Execute(context cor.Context) {
	candidates := context.Get(s.GetInputParam()).([]*model.VideoCandidate)
	fresh := make([]*model.VideoCandidate, 0, len(candidates))
	for _, c := range candidates {
		ok, err := s.seen.IsSeen(context.GetContext(), c.VideoID)
		if err != nil {
			s.Fail(context, fmt.Errorf("seen set lookup for %s: %w", c.VideoID, err))
			return
		}
		if !ok {
			fresh = append(fresh, c)
		}
	}
	if skipped := len(candidates) - len(fresh); skipped > 0 {
		slog.InfoContext(context.GetContext(), "skipping videos already processed", "count", skipped)
	}
	s.Succeed(context, fresh)
}

// SeenMarker records the videos the fetcher resolved, with or without
// captions, so the next run does not fetch them again. Videos whose fetch
// failed stay unseen.
type SeenMarker struct {
	cor.BaseCommand
	seen cloud.SeenSet
}

func NewSeenMarker(name string, seen cloud.SeenSet) *SeenMarker {
	out := &SeenMarker{BaseCommand: *cor.NewBaseCommand(name), seen: seen}
	out.InputParamName = ParamResolvedVideos
	return out
}

func (s *SeenMarker) Execute(context cor.Context) {
	ids, _ := context.Get(s.GetInputParam()).([]string)
	if err := s.seen.MarkSeen(context.GetContext(), ids...); err != nil {
		s.Fail(context, fmt.Errorf("failed to mark videos seen: %w", err))
		return
	}
	s.GetSuccessCounter().Add(context.GetContext(), 1)
	// Keep the stored transcript flowing to whatever follows.
	if best := context.Get(ParamBestTranscript); best != nil {
		context.Add(cor.CtxOut, best)
	}
}
