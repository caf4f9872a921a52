// internal/stats/client.go
package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/owpug/pugmate/internal/btag"
)

// DefaultBaseURL is the public stats API endpoint.
const DefaultBaseURL = "https://ow-api.com"

// cacheTTL is how long a formatted profile stays valid in the cache.
const cacheTTL = time.Hour

// Client queries the stats API and caches formatted profiles in Redis.
// A nil Redis client disables caching; every lookup then hits the API.
type Client struct {
	base   string
	http   *http.Client
	rdb    *redis.Client
	logger *logrus.Logger
}

// NewClient builds a stats client. The base URL comes from OWAPI_BASE when
// set. rdb may be nil.
func NewClient(logger *logrus.Logger, rdb *redis.Client) *Client {
	return &Client{
		base:   getEnv("OWAPI_BASE", DefaultBaseURL),
		http:   &http.Client{Timeout: 15 * time.Second},
		rdb:    rdb,
		logger: logger,
	}
}

// ConnectRedis dials the profile cache from environment variables
// (REDIS_ADDR, REDIS_DB). Returns nil when REDIS_ADDR is unset or the
// server does not answer; the client then runs uncached.
func ConnectRedis(logger *logrus.Logger) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		logger.Info("REDIS_ADDR not set; profile caching disabled")
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   getEnvInt("REDIS_DB", 0),
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warnf("redis at %s not reachable, profile caching disabled: %v", addr, err)
		return nil
	}
	return rdb
}

// FetchProfile returns the formatted profile for tag. Cached copies are
// used unless forceRefresh is set; a successful fetch rewrites the cache.
func (c *Client) FetchProfile(ctx context.Context, tag btag.Btag, forceRefresh bool) (*Profile, error) {
	key := "profile:" + tag.String()
	if c.rdb != nil && !forceRefresh {
		if data, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
			var p Profile
			if json.Unmarshal(data, &p) == nil {
				return &p, nil
			}
		}
	}

	raw, err := c.query(ctx, tag)
	if err != nil {
		return nil, err
	}
	p := formatProfile(tag, raw)

	if c.rdb != nil {
		if data, err := json.Marshal(p); err == nil {
			if err := c.rdb.Set(ctx, key, data, cacheTTL).Err(); err != nil {
				c.logger.Warnf("failed to cache profile for %s: %v", tag, err)
			}
		}
	}
	return p, nil
}

func (c *Client) query(ctx context.Context, tag btag.Btag) (map[string]interface{}, error) {
	url := fmt.Sprintf("%s/v1/stats/pc/EU/%s/complete", c.base, tag.ForAPI())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("stats: build request for %s: %w", tag, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stats: query %s: %w", tag, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stats: query %s: unexpected status %d", tag, resp.StatusCode)
	}
	var raw map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("stats: decode response for %s: %w", tag, err)
	}
	return raw, nil
}

// getEnv reads an environment variable or returns a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt parses an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
