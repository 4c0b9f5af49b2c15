package generation

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/p-n-ai/pai-studypack/internal/platform/cache"
	"github.com/p-n-ai/pai-studypack/internal/subject"
)

const topicKeyPrefix = "studypack:topic:"

// TopicCache keeps generated topic content so a pipeline re-run after a
// failed batch does not pay for topics that already succeeded. Cache errors
// never fail generation.
type TopicCache interface {
	Get(ctx context.Context, key string) (subject.Topic, bool)
	Put(ctx context.Context, key string, t subject.Topic)
}

// NopCache never hits.
type NopCache struct{}

func (NopCache) Get(context.Context, string) (subject.Topic, bool) { return subject.Topic{}, false }
func (NopCache) Put(context.Context, string, subject.Topic)        {}

// RedisTopicCache stores topics as JSON in Redis/Dragonfly.
type RedisTopicCache struct {
	cache *cache.Cache
	ttl   time.Duration
}

func NewRedisTopicCache(c *cache.Cache, ttl time.Duration) *RedisTopicCache {
	return &RedisTopicCache{cache: c, ttl: ttl}
}

func (r *RedisTopicCache) Get(ctx context.Context, key string) (subject.Topic, bool) {
	var t subject.Topic
	if err := r.cache.GetJSON(ctx, key, &t); err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			slog.Warn("topic cache read failed", "key", key, "error", err)
		}
		return subject.Topic{}, false
	}
	return t, true
}

func (r *RedisTopicCache) Put(ctx context.Context, key string, t subject.Topic) {
	if err := r.cache.SetJSON(ctx, key, t, r.ttl); err != nil {
		slog.Warn("topic cache write failed", "key", key, "error", err)
	}
}

// topicCacheKey derives a stable key from everything that shapes the
// generated content: prompt version, policy, topic name and notes.
func topicCacheKey(topic, notes string, p ContentPolicy) string {
	h, _ := blake2b.New256(nil)
	fmt.Fprintf(h, "%s\x00%+v\x00%s\x00%s", promptVersion, p, topic, notes)
	return topicKeyPrefix + hex.EncodeToString(h.Sum(nil))
}
