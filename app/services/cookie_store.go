package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CookieStore persists upstream session cookies across restarts so a
// healthy session survives a deploy without re-solving the captcha.
type CookieStore interface {
	Load(ctx context.Context) ([]*http.Cookie, error)
	Save(ctx context.Context, cookies []*http.Cookie) error
}

type storedCookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Path    string    `json:"path,omitempty"`
	Domain  string    `json:"domain,omitempty"`
	Expires time.Time `json:"expires,omitempty"`
	Secure  bool      `json:"secure,omitempty"`
	HTTP    bool      `json:"http_only,omitempty"`
}

// RedisCookieStore keeps the session cookies in Redis under a single key
// with a TTL, replacing the original's pickle file on disk.
type RedisCookieStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewRedisCookieStore(client *redis.Client, key string, ttl time.Duration) *RedisCookieStore {
	return &RedisCookieStore{client: client, key: key, ttl: ttl}
}

func (s *RedisCookieStore) Load(ctx context.Context) ([]*http.Cookie, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cookies: %w", err)
	}

	var stored []storedCookie
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("decode cookies: %w", err)
	}

	cookies := make([]*http.Cookie, 0, len(stored))
	for _, c := range stored {
		cookies = append(cookies, &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HttpOnly: c.HTTP,
		})
	}
	return cookies, nil
}

func (s *RedisCookieStore) Save(ctx context.Context, cookies []*http.Cookie) error {
	stored := make([]storedCookie, 0, len(cookies))
	for _, c := range cookies {
		stored = append(stored, storedCookie{
			Name:    c.Name,
			Value:   c.Value,
			Path:    c.Path,
			Domain:  c.Domain,
			Expires: c.Expires,
			Secure:  c.Secure,
			HTTP:    c.HttpOnly,
		})
	}
	raw, err := json.Marshal(stored)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save cookies: %w", err)
	}
	return nil
}

// MemoryCookieStore is the degraded mode when no Redis is configured: the
// session lives only as long as the process.
type MemoryCookieStore struct {
	mu      sync.Mutex
	cookies []*http.Cookie
}

func NewMemoryCookieStore() *MemoryCookieStore {
	return &MemoryCookieStore{}
}

func (s *MemoryCookieStore) Load(ctx context.Context) ([]*http.Cookie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cookies, nil
}

func (s *MemoryCookieStore) Save(ctx context.Context, cookies []*http.Cookie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cookies = cookies
	return nil
}
