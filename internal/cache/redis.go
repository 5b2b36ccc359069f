package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"trademinutes-gateway/internal/config"
	"trademinutes-gateway/internal/models"
	"trademinutes-gateway/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const categoriesKey = "gateway:categories"

// ErrUnavailable is returned by writes that must not be silently dropped.
var ErrUnavailable = errors.New("cache unavailable")

var (
	client *redis.Client
	once   sync.Once
)

// Client returns the global Redis client (initialized on first use).
func Client(ctx context.Context) *redis.Client {
	once.Do(func() {
		cfg := config.Get()
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error(ctx, "Invalid REDIS_URL", "error", err, "url", cfg.RedisURL)
			return
		}
		opts.PoolSize = cfg.RedisPoolSize
		client = redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Error(ctx, "Redis ping failed", "error", err)
			return
		}
		logger.Info(ctx, "Redis client initialized", "pool_size", cfg.RedisPoolSize)
	})
	return client
}

// Store is the gateway's Redis-backed cache and handoff store. Reads treat
// any Redis problem as a miss.
type Store struct {
	rdb             func(ctx context.Context) *redis.Client
	ttl             time.Duration
	appointmentsTTL time.Duration
	handoffTTL      time.Duration
}

// NewStore returns a Store over the global client using configured TTLs.
func NewStore() *Store {
	cfg := config.Get()
	return &Store{
		rdb:             Client,
		ttl:             time.Duration(cfg.CacheTTL) * time.Second,
		appointmentsTTL: time.Duration(cfg.AppointmentsTTL) * time.Second,
		handoffTTL:      time.Duration(cfg.HandoffTTL) * time.Second,
	}
}

// NewStoreWithClient returns a Store over c.
func NewStoreWithClient(c *redis.Client, ttl, appointmentsTTL, handoffTTL time.Duration) *Store {
	return &Store{
		rdb:             func(context.Context) *redis.Client { return c },
		ttl:             ttl,
		appointmentsTTL: appointmentsTTL,
		handoffTTL:      handoffTTL,
	}
}

func appointmentsKey(userID, role string) string {
	return fmt.Sprintf("gateway:appointments:%s:%s", role, userID)
}

func handoffKey(email string) string {
	return "gateway:handoff:" + strings.ToLower(strings.TrimSpace(email))
}

func (s *Store) getJSON(ctx context.Context, key string, out interface{}) bool {
	c := s.rdb(ctx)
	if c == nil {
		return false
	}
	b, err := c.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		logger.Debug(ctx, "Redis get failed", "key", key, "error", err)
		return false
	}
	if err := json.Unmarshal(b, out); err != nil {
		logger.Debug(ctx, "Redis unmarshal failed", "key", key, "error", err)
		return false
	}
	return true
}

func (s *Store) setJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) {
	c := s.rdb(ctx)
	if c == nil || ttl <= 0 {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		logger.Debug(ctx, "Marshal for cache failed", "key", key, "error", err)
		return
	}
	if err := c.Set(ctx, key, b, ttl).Err(); err != nil {
		logger.Debug(ctx, "Redis set failed", "key", key, "error", err)
	}
}

// GetCategories returns cached task categories.
func (s *Store) GetCategories(ctx context.Context) ([]string, bool) {
	var cats []string
	ok := s.getJSON(ctx, categoriesKey, &cats)
	return cats, ok
}

// SetCategories caches task categories.
func (s *Store) SetCategories(ctx context.Context, cats []string) {
	s.setJSON(ctx, categoriesKey, cats, s.ttl)
}

// GetAppointments returns a cached appointment list for a user and role.
func (s *Store) GetAppointments(ctx context.Context, userID, role string) (models.AppointmentList, bool) {
	var list models.AppointmentList
	if s.appointmentsTTL <= 0 {
		return list, false
	}
	ok := s.getJSON(ctx, appointmentsKey(userID, role), &list)
	return list, ok
}

// SetAppointments caches an appointment list. A zero TTL disables this cache.
func (s *Store) SetAppointments(ctx context.Context, userID, role string, list models.AppointmentList) {
	s.setJSON(ctx, appointmentsKey(userID, role), list, s.appointmentsTTL)
}

// InvalidateAppointments drops cached appointments of the given users for both roles.
func (s *Store) InvalidateAppointments(ctx context.Context, userIDs ...string) {
	c := s.rdb(ctx)
	if c == nil || len(userIDs) == 0 {
		return
	}
	keys := make([]string, 0, 2*len(userIDs))
	for _, id := range userIDs {
		if id == "" {
			continue
		}
		keys = append(keys, appointmentsKey(id, models.RoleOwner), appointmentsKey(id, models.RoleBooker))
	}
	if len(keys) == 0 {
		return
	}
	if err := c.Del(ctx, keys...).Err(); err != nil {
		logger.Debug(ctx, "Redis invalidate appointments failed", "error", err)
	}
}

// PutHandoff records the conversation the messaging page should open next for email.
func (s *Store) PutHandoff(ctx context.Context, email, conversationID string) error {
	c := s.rdb(ctx)
	if c == nil {
		return ErrUnavailable
	}
	return c.Set(ctx, handoffKey(email), conversationID, s.handoffTTL).Err()
}

// TakeHandoff returns and removes the pending conversation id for email.
func (s *Store) TakeHandoff(ctx context.Context, email string) (string, bool, error) {
	c := s.rdb(ctx)
	if c == nil {
		return "", false, ErrUnavailable
	}
	id, err := c.GetDel(ctx, handoffKey(email)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}
