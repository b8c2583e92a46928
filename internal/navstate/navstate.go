// Package navstate keeps per-page state for a session, scoped to the route
// that owns it. State disappears when the page closes its scope or the TTL
// runs out.
package navstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrNoState      = errors.New("no page state for route")
	ErrInvalidRoute = errors.New("route must not be empty")
)

type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// Open returns the scope of route within the session.
func (s *Store) Open(sessionID, route string) (*Scope, error) {
	route = strings.Trim(route, "/")
	if route == "" || sessionID == "" {
		return nil, ErrInvalidRoute
	}
	return &Scope{store: s, key: fmt.Sprintf("navstate:%s:%s", sessionID, route)}, nil
}

type Scope struct {
	store *Store
	key   string
}

func (sc *Scope) Load(ctx context.Context, dst any) error {
	data, err := sc.store.client.Get(ctx, sc.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNoState
	}
	if err != nil {
		return fmt.Errorf("redis get failed: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("unmarshal page state failed: %w", err)
	}
	return nil
}

func (sc *Scope) Save(ctx context.Context, state any) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal page state failed: %w", err)
	}
	if err := sc.store.client.Set(ctx, sc.key, data, sc.store.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Close drops the state. Closing an empty scope is fine.
func (sc *Scope) Close(ctx context.Context) error {
	if err := sc.store.client.Del(ctx, sc.key).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}
