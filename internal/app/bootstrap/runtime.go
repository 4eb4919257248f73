package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/autosales-assistant/internal/config"
	"github.com/wolfman30/autosales-assistant/internal/session"
	"github.com/wolfman30/autosales-assistant/pkg/logging"
)

// BuildRedisClient returns a configured Redis client. REDIS_ADDR wins over
// REDIS_URL when both are set. When verify is true, a ping is issued and
// failures return an error.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, verify bool) (*redis.Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var redisOptions *redis.Options
	if addr := strings.TrimSpace(cfg.RedisAddr); addr != "" {
		redisOptions = &redis.Options{Addr: addr, Password: cfg.RedisPassword}
	} else {
		parsed, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: parse redis url: %w", err)
		}
		if cfg.RedisPassword != "" {
			parsed.Password = cfg.RedisPassword
		}
		redisOptions = parsed
	}
	if cfg.RedisTLS && redisOptions.TLSConfig == nil {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisOptions.ReadTimeout = cfg.SessionOpTimeout
	redisOptions.WriteTimeout = cfg.SessionOpTimeout

	client := redis.NewClient(redisOptions)
	if !verify {
		return client, nil
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("bootstrap: ping redis: %w", err)
	}
	return client, nil
}

// BuildSessionStore returns the Redis-backed session store, or an in-process
// one when USE_MEMORY_STORE is set or Redis cannot be reached. The returned
// close func releases the Redis connection pool.
func BuildSessionStore(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*session.Store, func() error, error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	noop := func() error { return nil }
	storeOpts := []session.StoreOption{session.WithHistoryLimit(cfg.SessionHistoryLimit)}

	if cfg.UseMemoryStore {
		logger.Info("using in-memory session store")
		return session.NewStore(session.NewMemoryStore(cfg.SessionTTL), storeOpts...), noop, nil
	}

	client, err := BuildRedisClient(ctx, cfg, true)
	if err != nil {
		logger.Warn("redis not available; falling back to in-memory session store", "error", err)
		return session.NewStore(session.NewMemoryStore(cfg.SessionTTL), storeOpts...), noop, nil
	}

	backend := session.NewRedisStore(client,
		session.WithTTL(cfg.SessionTTL),
		session.WithCASRetries(cfg.SessionCASRetries),
	)
	logger.Info("using redis session store", "ttl", cfg.SessionTTL.String())
	return session.NewStore(backend, storeOpts...), client.Close, nil
}
