package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// changesChannel carries an Event for every Set and Delete.
const changesChannel = "activity_mon:changes"

// Redis stores each key as a plain redis string without expiry.
type Redis struct {
	client *redis.Client
}

// NewRedis connects to url and pings the server before returning.
func NewRedis(ctx context.Context, url string) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	return &Redis{client: client}, nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return data, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	r.publish(ctx, Event{Key: key, Op: OpSet})
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	r.publish(ctx, Event{Key: key, Op: OpDelete})
	return nil
}

func (r *Redis) Close() error { return r.client.Close() }

// publish announces a change. Delivery is best effort.
func (r *Redis) publish(ctx context.Context, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	r.client.Publish(ctx, changesChannel, data)
}

// Watch subscribes to change notifications published by any writer using
// the same server.
func (r *Redis) Watch(ctx context.Context) (*Watcher, error) {
	sub := r.client.Subscribe(ctx, changesChannel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("subscribing to changes: %w", err)
	}

	w := newWatcher(sub.Close)
	go w.redisLoop(sub.Channel())
	return w, nil
}
