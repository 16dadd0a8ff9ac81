package main

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"shoppingmart/internal/audit"
	"shoppingmart/internal/config"
	"shoppingmart/internal/logger"
)

// buildAuditSink assembles the configured sinks. The returned func closes
// every connection the sinks opened.
func buildAuditSink(ctx context.Context, cfg *config.Config) (audit.Sink, func(), error) {
	var (
		sinks   audit.Multi
		closers []func() error
	)

	for _, name := range cfg.AuditSinks {
		switch name {
		case "log":
			sinks = append(sinks, audit.LogSink{})
		case "redis":
			client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
			if err := client.Ping(ctx).Err(); err != nil {
				// Records still reach the other sinks; failed writes are logged.
				logger.Warn("redis audit sink unreachable at startup", map[string]interface{}{
					"addr":  cfg.RedisAddr,
					"error": err.Error(),
				})
			}
			sinks = append(sinks, audit.NewRedisSink(client, cfg.AuditRedisStream, cfg.AuditRedisMaxLen))
			closers = append(closers, client.Close)
		case "kafka":
			k := audit.NewKafkaSink(cfg.KafkaBrokers, cfg.AuditKafkaTopic)
			sinks = append(sinks, k)
			closers = append(closers, k.Close)
		default:
			return nil, nil, errors.New("unknown audit sink " + name)
		}
	}

	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Warn("failed to close audit sink", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
	}

	if len(sinks) == 0 {
		return audit.Discard{}, closeAll, nil
	}
	return sinks, closeAll, nil
}
