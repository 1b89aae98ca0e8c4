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

package cloud

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// SeenSet remembers which videos have already been scraped.
type SeenSet interface {
	IsSeen(ctx context.Context, videoID string) (bool, error)
	MarkSeen(ctx context.Context, videoIDs ...string) error
}

// RedisSeenSet keeps the seen video ids in a single Redis set.
type RedisSeenSet struct {
	client *redis.Client
	key    string
}

// NewRedisSeenSet connects to addr and verifies the connection.
func NewRedisSeenSet(ctx context.Context, addr string, key string) (*RedisSeenSet, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &RedisSeenSet{client: client, key: key}, nil
}

func (s *RedisSeenSet) IsSeen(ctx context.Context, videoID string) (bool, error) {
	return s.client.SIsMember(ctx, s.key, videoID).Result()
}

func (s *RedisSeenSet) MarkSeen(ctx context.Context, videoIDs ...string) error {
	if len(videoIDs) == 0 {
		return nil
	}
	members := make([]interface{}, len(videoIDs))
	for i, id := range videoIDs {
		members[i] = id
	}
	return s.client.SAdd(ctx, s.key, members...).Err()
}

// Count returns the number of seen videos.
func (s *RedisSeenSet) Count(ctx context.Context) (int64, error) {
	return s.client.SCard(ctx, s.key).Result()
}

func (s *RedisSeenSet) Close() error {
	return s.client.Close()
}

// NoopSeenSet is used when Redis is not configured: nothing is ever seen.
type NoopSeenSet struct{}

func (NoopSeenSet) IsSeen(context.Context, string) (bool, error) { return false, nil }
func (NoopSeenSet) MarkSeen(context.Context, ...string) error    { return nil }
