package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"carebook/backend/internal/domain"
)

// Doctors is a TTL cache for doctor profiles in front of the store. Reads
// that miss or fail fall through to the store; the cache never surfaces its
// own errors.
type Doctors struct {
	client *redis.Client
	ttl    time.Duration
}

func NewDoctors(client *redis.Client, ttl time.Duration) *Doctors {
	return &Doctors{client: client, ttl: ttl}
}

func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func (c *Doctors) Get(ctx context.Context, id uuid.UUID) (domain.Doctor, bool) {
	raw, err := c.client.Get(ctx, doctorKey(id)).Result()
	if err != nil {
		return domain.Doctor{}, false
	}

	var d domain.Doctor
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return domain.Doctor{}, false
	}
	return d, true
}

func (c *Doctors) Set(ctx context.Context, d domain.Doctor) {
	raw, err := json.Marshal(d)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, doctorKey(d.ID), raw, c.ttl).Err()
}

// Invalidate drops the cached profile; called after availability updates so
// patients never book against a stale weekly pattern.
func (c *Doctors) Invalidate(ctx context.Context, id uuid.UUID) {
	_ = c.client.Del(ctx, doctorKey(id)).Err()
}

func doctorKey(id uuid.UUID) string {
	return "carebook:doctor:" + id.String()
}
