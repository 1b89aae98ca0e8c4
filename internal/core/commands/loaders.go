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
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/cor"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/model"
)

// TranscriptLoader reads the stored transcript named by an EnrichRequest.
type TranscriptLoader struct {
	cor.BaseCommand
	collection *mongo.Collection
}

func NewTranscriptLoader(name string, db *mongo.Database) *TranscriptLoader {
	out := &TranscriptLoader{BaseCommand: *cor.NewBaseCommand(name), collection: db.Collection(CollectionTranscripts)}
	out.OutputParamName = ParamTranscript
	return out
}

func (l *TranscriptLoader) Execute(context cor.Context) {
	req, ok := context.Get(l.GetInputParam()).(*model.EnrichRequest)
	if !ok {
		l.Fail(context, fmt.Errorf("input is not an enrich request"))
		return
	}
	transcript := &model.Transcript{}
	err := l.collection.FindOne(context.GetContext(), bson.M{"destination": req.Destination, "video_id": req.VideoID}).Decode(transcript)
	if errors.Is(err, mongo.ErrNoDocuments) {
		l.Fail(context, fmt.Errorf("no transcript stored for %s/%s", req.Destination, req.VideoID))
		return
	}
	if err != nil {
		l.Fail(context, fmt.Errorf("failed to load transcript %s: %w", req.VideoID, err))
		return
	}
	l.Succeed(context, transcript)
}
