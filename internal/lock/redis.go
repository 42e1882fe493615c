// Package lock guards allocation runs of the same exam across processes through Redis
package lock

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultLease = 30 * time.Second
	retryDelay   = 100 * time.Millisecond
)

// Deletes the key only while it still holds the token of the caller
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// Extends the lease only while the key still holds the token of the caller
var renewScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('PEXPIRE', KEYS[1], ARGV[2])
	end
	return 0
`)

// Connect returns a client for the server at addr once it answers a ping
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cannot reach redis at %v: %w", addr, err)
	}
	return client, nil
}

// RedisLocker holds keys as leased Redis entries, renewed while the holder keeps them
type RedisLocker struct {
	client *redis.Client
	lease  time.Duration
	logger *log.Logger
}

func NewRedisLocker(client *redis.Client, lease time.Duration) *RedisLocker {
	if lease <= 0 {
		lease = defaultLease
	}
	return &RedisLocker{
		client: client,
		lease:  lease,
		logger: log.Default(),
	}
}

func (locker *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()

	ticker := time.NewTicker(retryDelay)
	defer ticker.Stop()
	for {
		acquired, err := locker.client.SetNX(ctx, key, token, locker.lease).Result()
		if err != nil {
			return nil, fmt.Errorf("cannot acquire %v: %w", key, err)
		} else if acquired {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	done := make(chan struct{})
	renewed := make(chan struct{})
	go locker.renew(key, token, done, renewed)

	var once sync.Once
	unlock := func() {
		once.Do(func() {
			close(done)
			<-renewed

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, locker.client, []string{key}, token).Err(); err != nil {
				locker.logger.Printf("cannot release %v: %v", key, err)
			}
		})
	}
	return unlock, nil
}

func (locker *RedisLocker) renew(key, token string, done <-chan struct{}, renewed chan<- struct{}) {
	defer close(renewed)

	ticker := time.NewTicker(locker.lease / 3)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), locker.lease/3)
			held, err := renewScript.Run(ctx, locker.client, []string{key}, token, locker.lease.Milliseconds()).Int()
			cancel()
			if err != nil {
				locker.logger.Printf("cannot renew %v: %v", key, err)
			} else if held == 0 {
				locker.logger.Printf("lease of %v was lost", key)
				return
			}
		}
	}
}
