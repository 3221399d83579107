package agency

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/kpidashboards/consultslt-backend/internal/domain"
	"github.com/kpidashboards/consultslt-backend/internal/metrics"
)

const (
	certidoesKeyPrefix  = "ecac:certidoes:"
	pendenciasKeyPrefix = "ecac:pendencias:"
)

// Fetcher is the portal lookup wrapped by the cache.
type Fetcher interface {
	Certidoes(ctx context.Context, cnpj string) (*domain.Certidoes, error)
	Pendencias(ctx context.Context, cnpj string) ([]domain.Pendencia, error)
}

// CachedClient keeps recent e-CAC answers in redis. The portal is slow
// and rate-limited; a cache failure falls through to a direct lookup.
type CachedClient struct {
	next    Fetcher
	rdb     *redis.Client
	ttl     time.Duration
	metrics *metrics.Metrics
}

func NewCachedClient(next Fetcher, rdb *redis.Client, ttl time.Duration, m *metrics.Metrics) *CachedClient {
	return &CachedClient{next: next, rdb: rdb, ttl: ttl, metrics: m}
}

func (c *CachedClient) Certidoes(ctx context.Context, cnpj string) (*domain.Certidoes, error) {
	key := certidoesKeyPrefix + cnpj

	if data, ok := c.lookup(ctx, key); ok {
		var certidoes domain.Certidoes
		if err := json.Unmarshal(data, &certidoes); err == nil {
			c.metrics.IncAgencyCacheHits()
			return &certidoes, nil
		}
	}
	c.metrics.IncAgencyCacheMisses()

	certidoes, err := c.next.Certidoes(ctx, cnpj)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, certidoes)
	return certidoes, nil
}

func (c *CachedClient) Pendencias(ctx context.Context, cnpj string) ([]domain.Pendencia, error) {
	key := pendenciasKeyPrefix + cnpj

	if data, ok := c.lookup(ctx, key); ok {
		var pendencias []domain.Pendencia
		if err := json.Unmarshal(data, &pendencias); err == nil {
			c.metrics.IncAgencyCacheHits()
			return pendencias, nil
		}
	}
	c.metrics.IncAgencyCacheMisses()

	pendencias, err := c.next.Pendencias(ctx, cnpj)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, pendencias)
	return pendencias, nil
}

func (c *CachedClient) lookup(ctx context.Context, key string) ([]byte, bool) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.WithError(err).WithField("key", key).Warn("Failed to read e-CAC cache")
		}
		return nil, false
	}
	return data, true
}

func (c *CachedClient) store(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.WithError(err).WithField("key", key).Warn("Failed to write e-CAC cache")
	}
}
