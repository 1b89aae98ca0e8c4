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
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/cor"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/model"
)

// SelectLongest returns the longest transcript. Ties keep the earlier one.
func SelectLongest(transcripts []*model.Transcript) *model.Transcript {
	var best *model.Transcript
	for _, t := range transcripts {
		if t.Length() > best.Length() {
			best = t
		}
	}
	return best
}

// BestTranscriptPersist keeps a single transcript per destination in
// all_transcripts: the longest one seen so far. A stored record is replaced
// only by a strictly longer transcript.
type BestTranscriptPersist struct {
	cor.BaseCommand
	collection *mongo.Collection
}

func NewBestTranscriptPersist(name string, db *mongo.Database) *BestTranscriptPersist {
	out := &BestTranscriptPersist{BaseCommand: *cor.NewBaseCommand(name), collection: db.Collection(CollectionTranscripts)}
	out.InputParamName = ParamTranscripts
	out.OutputParamName = ParamBestTranscript
	return out
}

func (b *BestTranscriptPersist) Execute(context cor.Context) {
	transcripts := context.Get(b.GetInputParam()).([]*model.Transcript)
	best := SelectLongest(transcripts)
	if best == nil {
		slog.InfoContext(context.GetContext(), "no transcripts to store")
		return
	}

	ctx := context.GetContext()
	existing := &model.Transcript{}
	err := b.collection.FindOne(ctx, bson.M{"destination": best.Destination}).Decode(existing)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		if _, err = b.collection.InsertOne(ctx, best); err != nil {
			b.Fail(context, fmt.Errorf("failed to insert transcript for %s: %w", best.Destination, err))
			return
		}
		slog.InfoContext(ctx, "stored transcript", "destination", best.Destination, "video_id", best.VideoID, "length", best.Length())
	case err != nil:
		b.Fail(context, fmt.Errorf("failed to read stored transcript for %s: %w", best.Destination, err))
		return
	case best.Length() > existing.Length():
		update := bson.M{"$set": bson.M{
			"video_id":   best.VideoID,
			"title":      best.Title,
			"transcript": best.Transcript,
			"updated_at": best.UpdatedAt,
		}}
		if _, err = b.collection.UpdateOne(ctx, bson.M{"destination": best.Destination}, update); err != nil {
			b.Fail(context, fmt.Errorf("failed to update transcript for %s: %w", best.Destination, err))
			return
		}
		slog.InfoContext(ctx, "replaced transcript with a longer one", "destination", best.Destination, "video_id", best.VideoID, "length", best.Length())
	default:
		slog.InfoContext(ctx, "stored transcript is longer, keeping it", "destination", best.Destination, "stored", existing.Length(), "candidate", best.Length())
		best = existing
	}
	b.Succeed(context, best)
}
