package prompts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/redis/go-redis/v9"
)

// maskRedisURL masks the password in a Redis URL for safe logging.
// redis://:password@host:port -> redis://***@host:port
func maskRedisURL(redisURL string) string {
	u, err := url.Parse(redisURL)
	if err != nil {
		// If parsing fails, just show the scheme and a placeholder
		if strings.HasPrefix(redisURL, "redis://") {
			return "redis://***"
		}
		return "***"
	}
	// If there's a password, mask it
	if _, hasPass := u.User.Password(); hasPass {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

// RedisSource loads prompts from a Redis list. Each element is either a JSON
// object with a "prompt" field or a bare JSON string holding the prompt text.
// Useful when several machines share one prompt backlog.
type RedisSource struct {
	client *redis.Client
	config RedisSourceConfig
}

// RedisSourceConfig holds configuration for RedisSource.
type RedisSourceConfig struct {
	// URL is the Redis connection URL
	URL string

	// Password is the Redis password (optional)
	Password string

	// Key is the Redis list holding the prompts (default: "prompts")
	Key string

	// LogFn is an optional callback for logging (if nil, logging is skipped)
	LogFn func(level, msg string)
}

// NewRedisSource creates a Redis-backed prompt source.
func NewRedisSource(cfg RedisSourceConfig) *RedisSource {
	if cfg.Key == "" {
		cfg.Key = "prompts"
	}
	return &RedisSource{config: cfg}
}

// Name returns the source identifier.
func (s *RedisSource) Name() string {
	return "redis"
}

func (s *RedisSource) log(level, msg string) {
	if s.config.LogFn != nil {
		s.config.LogFn(level, msg)
	}
}

// Load connects to Redis and reads the whole prompt list.
func (s *RedisSource) Load(ctx context.Context) ([]Record, error) {
	opts, err := redis.ParseURL(s.config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if s.config.Password != "" {
		opts.Password = s.config.Password
	}

	s.client = redis.NewClient(opts)
	defer s.Close()

	if err := s.client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", maskRedisURL(s.config.URL), err)
	}
	s.log("info", fmt.Sprintf("Connected to Redis at %s, reading list %q", maskRedisURL(s.config.URL), s.config.Key))

	elems, err := s.client.LRange(ctx, s.config.Key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read Redis list %q: %w", s.config.Key, err)
	}

	records := make([]Record, 0, len(elems))
	for i, elem := range elems {
		rec, err := decodeListElement(elem)
		if err != nil {
			return nil, fmt.Errorf("element %d in Redis list %q: %w", i, s.config.Key, err)
		}
		records = append(records, rec)
	}
	s.log("info", fmt.Sprintf("Loaded %d prompts from Redis", len(records)))
	return records, nil
}

// decodeListElement accepts either {"prompt": "..."} objects or bare JSON
// strings, so a list populated by `LPUSH prompts '"tell me a joke"'` works
// without wrapping.
func decodeListElement(elem string) (Record, error) {
	trimmed := strings.TrimSpace(elem)
	if strings.HasPrefix(trimmed, "{") {
		var rec Record
		if err := json.Unmarshal([]byte(trimmed), &rec); err != nil {
			return Record{}, err
		}
		if rec.Prompt == "" {
			return Record{}, fmt.Errorf("missing or empty \"prompt\" field")
		}
		return rec, nil
	}

	var prompt string
	if err := json.Unmarshal([]byte(trimmed), &prompt); err != nil {
		// Not JSON at all: treat the raw element as the prompt text.
		if trimmed == "" {
			return Record{}, fmt.Errorf("empty element")
		}
		return Record{Prompt: trimmed}, nil
	}
	if prompt == "" {
		return Record{}, fmt.Errorf("empty prompt string")
	}
	return Record{Prompt: prompt}, nil
}

// Close disconnects from Redis.
func (s *RedisSource) Close() error {
	if s.client != nil {
		err := s.client.Close()
		s.client = nil
		return err
	}
	return nil
}

var _ Source = (*RedisSource)(nil)
