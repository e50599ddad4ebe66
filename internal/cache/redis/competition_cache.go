package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/quizpool/internal/domain"
)

const competitionTTL = 5 * time.Minute

// CompetitionCache implements domain.CompetitionCache using Redis string
// keys with JSON-serialized competition data.
//
// Key schema:
//
//	competition:{id} - JSON-encoded domain.Competition
type CompetitionCache struct {
	rdb *redis.Client
}

// NewCompetitionCache creates a CompetitionCache backed by the given Client.
func NewCompetitionCache(c *Client) *CompetitionCache {
	return &CompetitionCache{rdb: c.Underlying()}
}

func competitionKey(id int64) string {
	return "competition:" + strconv.FormatInt(id, 10)
}

// Set stores a competition in the cache with a 5-minute TTL. Entries for
// finalized competitions can stay until expiry; the service invalidates on
// every mutation.
func (cc *CompetitionCache) Set(ctx context.Context, c domain.Competition) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("redis: marshal competition %d: %w", c.ID, err)
	}

	if err := cc.rdb.Set(ctx, competitionKey(c.ID), data, competitionTTL).Err(); err != nil {
		return fmt.Errorf("redis: set competition %d: %w", c.ID, err)
	}
	return nil
}

// Get retrieves a competition by id. It returns domain.ErrNotFound when the
// key does not exist.
func (cc *CompetitionCache) Get(ctx context.Context, id int64) (domain.Competition, error) {
	data, err := cc.rdb.Get(ctx, competitionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Competition{}, domain.ErrNotFound
		}
		return domain.Competition{}, fmt.Errorf("redis: get competition %d: %w", id, err)
	}

	var c domain.Competition
	if err := json.Unmarshal(data, &c); err != nil {
		return domain.Competition{}, fmt.Errorf("redis: unmarshal competition %d: %w", id, err)
	}
	return c, nil
}

// Invalidate removes a competition from the cache.
func (cc *CompetitionCache) Invalidate(ctx context.Context, id int64) error {
	if err := cc.rdb.Del(ctx, competitionKey(id)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate competition %d: %w", id, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.CompetitionCache = (*CompetitionCache)(nil)
