package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultHashKey = "chatline:users"

// RedisDirectory keeps presence in a single redis hash, one field per
// identifier. Hash field writes are atomic, which is all the cross-process
// guarantee the coordinator needs.
type RedisDirectory struct {
	client  *redis.Client
	hashKey string
}

// NewRedis connects to redis at addr and verifies the connection.
func NewRedis(addr string) (*RedisDirectory, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisDirectory{client: client, hashKey: defaultHashKey}, nil
}

// Set records the status for an identifier.
func (d *RedisDirectory) Set(ctx context.Context, id, status string) error {
	if err := d.client.HSet(ctx, d.hashKey, id, status).Err(); err != nil {
		return fmt.Errorf("hset presence: %w", err)
	}
	return nil
}

// Delete removes the identifier's entry.
func (d *RedisDirectory) Delete(ctx context.Context, id string) error {
	if err := d.client.HDel(ctx, d.hashKey, id).Err(); err != nil {
		return fmt.Errorf("hdel presence: %w", err)
	}
	return nil
}

// All returns the full presence hash.
func (d *RedisDirectory) All(ctx context.Context) (map[string]string, error) {
	all, err := d.client.HGetAll(ctx, d.hashKey).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall presence: %w", err)
	}
	return all, nil
}

// Close releases the redis connection pool.
func (d *RedisDirectory) Close() error {
	return d.client.Close()
}
