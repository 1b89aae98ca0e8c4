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
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/cor"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/model"
)

// TranscriptParam exposes the raw transcript text as {{.RAW_TRANSCRIPT}}.
func TranscriptParam(context cor.Context) (map[string]interface{}, error) {
	t, ok := context.Get(ParamTranscript).(*model.Transcript)
	if !ok {
		return nil, fmt.Errorf("context parameter %s is not a transcript", ParamTranscript)
	}
	return map[string]interface{}{"RAW_TRANSCRIPT": t.Transcript}, nil
}

// RefinedTranscriptPersist upserts the refined summary of the transcript,
// keyed by destination and video id.
type RefinedTranscriptPersist struct {
	cor.BaseCommand
	collection *mongo.Collection
}

func NewRefinedTranscriptPersist(name string, db *mongo.Database) *RefinedTranscriptPersist {
	out := &RefinedTranscriptPersist{BaseCommand: *cor.NewBaseCommand(name), collection: db.Collection(CollectionRefined)}
	out.InputParamName = ParamRefinedText
	out.OutputParamName = ParamRefined
	return out
}

func (r *RefinedTranscriptPersist) IsExecutable(context cor.Context) bool {
	return r.BaseCommand.IsExecutable(context) && context.Get(ParamTranscript) != nil
}

func (r *RefinedTranscriptPersist) Execute(context cor.Context) {
	source := context.Get(ParamTranscript).(*model.Transcript)
	refined := &model.RefinedTranscript{
		Destination:       source.Destination,
		VideoID:           source.VideoID,
		Title:             source.Title,
		RefinedTranscript: context.Get(r.GetInputParam()).(string),
		CreatedAt:         time.Now(),
	}

	filter := bson.M{"destination": refined.Destination, "video_id": refined.VideoID}
	_, err := r.collection.UpdateOne(context.GetContext(), filter, bson.M{"$set": refined}, options.Update().SetUpsert(true))
	if err != nil {
		r.Fail(context, fmt.Errorf("failed to store refined transcript %s: %w", refined.VideoID, err))
		return
	}
	r.Succeed(context, refined)
}
