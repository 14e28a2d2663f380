package linestatus

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/klmilton/tfl-bus-prediction/pkg/tfl"
	"github.com/klmilton/tfl-bus-prediction/pkg/util"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const CacheExpiration = 60 * time.Second

// StatusFetcher is the part of the TfL client the board needs
type StatusFetcher interface {
	GetLineStatusByMode(ctx context.Context, modes []string, detail bool) ([]tfl.Line, error)
}

// Board reports line statuses, reading through a redis cache when one is available
type Board struct {
	fetcher StatusFetcher
	cache   *cache.Cache[string]
}

// NewBoard builds a board. A nil redis client disables caching.
func NewBoard(fetcher StatusFetcher, redisClient *redis.Client) *Board {
	board := &Board{fetcher: fetcher}

	if redisClient != nil {
		redisStore := redisstore.NewRedis(redisClient, store.WithExpiration(CacheExpiration))
		board.cache = cache.New[string](redisStore)
	}

	return board
}

func CacheKey(modes []string, detail bool) string {
	return fmt.Sprintf("line_status:%s:%s", strings.Join(modes, ","), strconv.FormatBool(detail))
}

func (b *Board) Statuses(ctx context.Context, modes []string, detail bool) ([]tfl.Line, error) {
	modes = util.RemoveDuplicates(modes, []string{""})
	key := CacheKey(modes, detail)

	if b.cache != nil {
		cachedValue, err := b.cache.Get(ctx, key)
		if err == nil && cachedValue != "" {
			var lines []tfl.Line
			if err := json.Unmarshal([]byte(cachedValue), &lines); err == nil {
				log.Debug().Str("key", key).Msg("Line status cache hit")
				return lines, nil
			}
		}
	}

	lines, err := b.fetcher.GetLineStatusByMode(ctx, modes, detail)
	if err != nil {
		return nil, err
	}

	if b.cache != nil {
		linesJSON, _ := json.Marshal(lines)
		if err := b.cache.Set(ctx, key, string(linesJSON)); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Failed to cache line status")
		}
	}

	return lines, nil
}
