package database

import (
	"coder_edu_assessment/internal/config"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRedisOptionsDefaults(t *testing.T) {
	opts := RedisOptions(&config.RedisConfig{Host: "cache", Port: 6380, DB: 2})
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 50, opts.PoolSize)
	assert.Equal(t, 5*time.Second, opts.DialTimeout)

	opts = RedisOptions(&config.RedisConfig{Host: "cache", Port: 6379, PoolSize: 8, MinIdleConns: 2, DialTimeout: 1})
	assert.Equal(t, 8, opts.PoolSize)
	assert.Equal(t, 2, opts.MinIdleConns)
	assert.Equal(t, time.Second, opts.DialTimeout)
}

func TestInitRedisUnreachable(t *testing.T) {
	// 端口 1 上没有 Redis
	_, err := InitRedis(context.Background(), &config.RedisConfig{Host: "127.0.0.1", Port: 1, DialTimeout: 1})
	assert.ErrorContains(t, err, "redis ping 127.0.0.1:1")
}
