package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/platinummonkey/tasklist/pkg/auth"
	"github.com/platinummonkey/tasklist/pkg/observability"
)

const (
	keyPrefixID    = "identity:id:"
	keyPrefixEmail = "identity:email:"
)

// Config controls the identity cache
type Config struct {
	TTL     time.Duration
	Entries int
}

// Stats reports cache effectiveness
type Stats struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	ItemCount int     `json:"item_count"`
	HitRate   float64 `json:"hit_rate"`
}

// cachedIdentity is the Redis encoding. auth.Identity hides the hash from
// JSON, but the cache must carry it for login.
type cachedIdentity struct {
	ID           string      `json:"id"`
	Email        string      `json:"email"`
	Username     string      `json:"username"`
	PasswordHash string      `json:"password_hash"`
	Roles        []auth.Role `json:"roles"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

func toCached(i *auth.Identity) cachedIdentity {
	return cachedIdentity{
		ID:           i.ID,
		Email:        i.Email,
		Username:     i.Username,
		PasswordHash: i.PasswordHash,
		Roles:        i.Roles,
		CreatedAt:    i.CreatedAt,
		UpdatedAt:    i.UpdatedAt,
	}
}

func (c cachedIdentity) identity() *auth.Identity {
	return &auth.Identity{
		ID:           c.ID,
		Email:        c.Email,
		Username:     c.Username,
		PasswordHash: c.PasswordHash,
		Roles:        append([]auth.Role(nil), c.Roles...),
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

// Identities is a read-through auth.CredentialStore with a process-local LRU
// in front of an optional shared Redis layer. Only positive lookups are
// cached; role queries always go to the wrapped store.
type Identities struct {
	next    auth.CredentialStore
	l1      *lru.LRU[string, *auth.Identity]
	redis   *redis.Client
	ttl     time.Duration
	logger  *observability.Logger
	metrics *observability.Metrics

	hits   atomic.Int64
	misses atomic.Int64
}

// NewIdentities wraps next. client may be nil to run with the local layer only.
func NewIdentities(next auth.CredentialStore, client *redis.Client, cfg Config, logger *observability.Logger, metrics *observability.Metrics) *Identities {
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.Entries <= 0 {
		cfg.Entries = 1024
	}
	return &Identities{
		next:    next,
		l1:      lru.NewLRU[string, *auth.Identity](cfg.Entries, nil, cfg.TTL),
		redis:   client,
		ttl:     cfg.TTL,
		logger:  logger.WithField("component", "identity_cache"),
		metrics: metrics,
	}
}

// FindByEmail looks up an identity case-insensitively
func (c *Identities) FindByEmail(ctx context.Context, email string) (*auth.Identity, error) {
	key := keyPrefixEmail + auth.NormalizeEmail(email)
	if identity := c.lookup(ctx, key, "email"); identity != nil {
		return identity, nil
	}

	identity, err := c.next.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	c.store(ctx, identity)
	return identity, nil
}

// FindByID looks up an identity by id
func (c *Identities) FindByID(ctx context.Context, id string) (*auth.Identity, error) {
	key := keyPrefixID + id
	if identity := c.lookup(ctx, key, "id"); identity != nil {
		return identity, nil
	}

	identity, err := c.next.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.store(ctx, identity)
	return identity, nil
}

// Create writes through and drops any stale entries for the new identity
func (c *Identities) Create(ctx context.Context, identity *auth.Identity) error {
	if err := c.next.Create(ctx, identity); err != nil {
		return err
	}
	c.evict(ctx, identity.ID, identity.Email)
	return nil
}

// RolesOf is not cached
func (c *Identities) RolesOf(ctx context.Context, identityID string) ([]auth.Role, error) {
	return c.next.RolesOf(ctx, identityID)
}

// AddRole writes through and evicts the identity so its role list refreshes
func (c *Identities) AddRole(ctx context.Context, identityID string, role auth.Role) error {
	if err := c.next.AddRole(ctx, identityID, role); err != nil {
		return err
	}

	email := ""
	if identity, err := c.next.FindByID(ctx, identityID); err == nil {
		email = identity.Email
	}
	c.evict(ctx, identityID, email)
	return nil
}

// EnsureRole is not cached
func (c *Identities) EnsureRole(ctx context.Context, role auth.Role) error {
	return c.next.EnsureRole(ctx, role)
}

// RoleExists is not cached
func (c *Identities) RoleExists(ctx context.Context, role auth.Role) (bool, error) {
	return c.next.RoleExists(ctx, role)
}

// Stats returns cache statistics
func (c *Identities) Stats() Stats {
	stats := Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		ItemCount: c.l1.Len(),
	}
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}
	return stats
}

// Purge empties the local layer
func (c *Identities) Purge() {
	c.l1.Purge()
}

func (c *Identities) lookup(ctx context.Context, key, keyType string) *auth.Identity {
	if identity, ok := c.l1.Get(key); ok {
		c.hits.Add(1)
		c.metrics.RecordCacheLookup("l1", keyType, true)
		return identity.Clone()
	}
	c.metrics.RecordCacheLookup("l1", keyType, false)

	if c.redis == nil {
		c.misses.Add(1)
		return nil
	}

	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WithError(err).Warn("Redis get failed, falling through to store")
		}
		c.misses.Add(1)
		c.metrics.RecordCacheLookup("l2", keyType, false)
		return nil
	}

	var cached cachedIdentity
	if err := json.Unmarshal(data, &cached); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Dropping corrupt cache entry")
		c.redis.Del(ctx, key)
		c.misses.Add(1)
		c.metrics.RecordCacheLookup("l2", keyType, false)
		return nil
	}

	c.hits.Add(1)
	c.metrics.RecordCacheLookup("l2", keyType, true)
	identity := cached.identity()
	c.l1.Add(key, identity)
	return identity.Clone()
}

func (c *Identities) store(ctx context.Context, identity *auth.Identity) {
	idKey := keyPrefixID + identity.ID
	emailKey := keyPrefixEmail + auth.NormalizeEmail(identity.Email)

	c.l1.Add(idKey, identity.Clone())
	c.l1.Add(emailKey, identity.Clone())

	if c.redis == nil {
		return
	}
	data, err := json.Marshal(toCached(identity))
	if err != nil {
		return
	}
	if _, err := c.redis.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, idKey, data, c.ttl)
		p.Set(ctx, emailKey, data, c.ttl)
		return nil
	}); err != nil {
		c.logger.WithError(err).Warn("Redis set failed")
	}
}

func (c *Identities) evict(ctx context.Context, id, email string) {
	keys := []string{keyPrefixID + id}
	if email != "" {
		keys = append(keys, keyPrefixEmail+auth.NormalizeEmail(email))
	}
	for _, key := range keys {
		c.l1.Remove(key)
	}
	if c.redis == nil {
		return
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		c.logger.WithError(err).Warn("Redis invalidation failed")
	}
}
