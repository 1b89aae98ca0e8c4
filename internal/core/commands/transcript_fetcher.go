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
	goctx "context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/cor"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/model"
)

// CaptionFetcher returns the plain transcript of a video.
type CaptionFetcher interface {
	Fetch(ctx goctx.Context, videoID string) (string, error)
}

// TranscriptFetcher downloads the captions of every candidate with a pool of
// workers. Candidates without captions are skipped; the command only fails
// when a fetch error other than ErrNoCaptions hit every candidate.
//
// The ids of the videos that were fetched or have no captions are written to
// ParamResolvedVideos. Videos that failed otherwise are left out so a later
// run retries them.
type TranscriptFetcher struct {
	cor.BaseCommand
	captions        CaptionFetcher
	numberOfWorkers int
}

func NewTranscriptFetcher(name string, captions CaptionFetcher, numberOfWorkers int) *TranscriptFetcher {
	if numberOfWorkers < 1 {
		numberOfWorkers = 1
	}
	out := &TranscriptFetcher{
		BaseCommand:     *cor.NewBaseCommand(name),
		captions:        captions,
		numberOfWorkers: numberOfWorkers,
	}
	out.InputParamName = ParamCandidates
	out.OutputParamName = ParamTranscripts
	return out
}

func (t *TranscriptFetcher) Execute(context cor.Context) {
	candidates := context.Get(t.GetInputParam()).([]*model.VideoCandidate)

	var wg sync.WaitGroup
	jobs := make(chan *transcriptJob, len(candidates))
	results := make(chan *transcriptResult, len(candidates))

	for w := 0; w < t.numberOfWorkers; w++ {
		wg.Add(1)
		go transcriptWorker(t.captions, jobs, results, &wg)
	}
	for i, c := range candidates {
		jobs <- newTranscriptJob(context.GetContext(), t.Tracer, t.GetName(), i, c)
	}
	close(jobs)
	wg.Wait()
	close(results)

	// Results arrive in completion order; keep candidate order for stable ties.
	ordered := make([]*model.Transcript, len(candidates))
	resolved := make([]bool, len(candidates))
	failed := 0
	for r := range results {
		switch {
		case r.err == nil:
			ordered[r.index] = r.value
			resolved[r.index] = true
		case errors.Is(r.err, ErrNoCaptions):
			resolved[r.index] = true
			slog.InfoContext(context.GetContext(), "no transcript available", "video_id", candidates[r.index].VideoID)
		default:
			failed++
			slog.WarnContext(context.GetContext(), "failed to fetch transcript", "video_id", candidates[r.index].VideoID, "error", r.err)
		}
	}
	if failed > 0 && failed == len(candidates) {
		t.Fail(context, fmt.Errorf("transcript fetch failed for all %d videos", failed))
		return
	}

	transcripts := make([]*model.Transcript, 0, len(candidates))
	ids := make([]string, 0, len(candidates))
	for i, tr := range ordered {
		if tr != nil {
			transcripts = append(transcripts, tr)
		}
		if resolved[i] {
			ids = append(ids, candidates[i].VideoID)
		}
	}
	context.Add(ParamResolvedVideos, ids)
	t.Succeed(context, transcripts)
}

type transcriptResult struct {
	index int
	value *model.Transcript
	err   error
}

type transcriptJob struct {
	index     int
	ctx       goctx.Context
	span      trace.Span
	candidate *model.VideoCandidate
}

func (j *transcriptJob) Close(status codes.Code, description string) {
	j.span.SetStatus(status, description)
	j.span.End()
}

func newTranscriptJob(ctx goctx.Context, tracer trace.Tracer, commandName string, index int, candidate *model.VideoCandidate) *transcriptJob {
	jobCtx, span := tracer.Start(ctx, fmt.Sprintf("%s_captions_%d", commandName, index))
	span.SetAttributes(
		attribute.String("video_id", candidate.VideoID),
		attribute.String("destination", candidate.Destination),
	)
	return &transcriptJob{index: index, ctx: jobCtx, span: span, candidate: candidate}
}

func transcriptWorker(captions CaptionFetcher, jobs <-chan *transcriptJob, results chan<- *transcriptResult, wg *sync.WaitGroup) {
	defer wg.Done()
	for j := range jobs {
		text, err := captions.Fetch(j.ctx, j.candidate.VideoID)
		if err != nil {
			j.Close(codes.Error, err.Error())
			results <- &transcriptResult{index: j.index, err: err}
			continue
		}
		j.Close(codes.Ok, "captions fetched")
		results <- &transcriptResult{index: j.index, value: &model.Transcript{
			Destination: j.candidate.Destination,
			VideoID:     j.candidate.VideoID,
			Title:       j.candidate.Title,
			Transcript:  text,
			UpdatedAt:   time.Now(),
		}}
	}
}
