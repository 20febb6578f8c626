package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_travel/internal/domain"
	"github.com/redis/go-redis/v9"
)

// DraftCache parks a transaction draft between the cart and checkout steps.
// There is a single writer (cart checkout) and a single reader (checkout start)
// per session.
type DraftCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewDraftCache(client *redis.Client, ttl time.Duration) *DraftCache {
	return &DraftCache{client: client, ttl: ttl}
}

func (c *DraftCache) Save(ctx context.Context, sessionID string, d *domain.Draft) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal draft failed: %w", err)
	}
	if err := c.client.Set(ctx, draftKey(sessionID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Take removes the draft from storage and hands it to the caller.
func (c *DraftCache) Take(ctx context.Context, sessionID string) (*domain.Draft, error) {
	data, err := c.client.GetDel(ctx, draftKey(sessionID)).Bytes()
	return decodeDraft(data, err)
}

// Peek reads the draft and leaves it in place.
func (c *DraftCache) Peek(ctx context.Context, sessionID string) (*domain.Draft, error) {
	data, err := c.client.Get(ctx, draftKey(sessionID)).Bytes()
	return decodeDraft(data, err)
}

func (c *DraftCache) Delete(ctx context.Context, sessionID string) error {
	if err := c.client.Del(ctx, draftKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func decodeDraft(data []byte, err error) (*domain.Draft, error) {
	if errors.Is(err, redis.Nil) {
		return nil, ErrDraftMissing
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var d domain.Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("unmarshal draft failed: %w", err)
	}
	return &d, nil
}

func draftKey(sessionID string) string {
	return fmt.Sprintf("draft:%s", sessionID)
}
