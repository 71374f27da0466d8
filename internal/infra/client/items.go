// Package client provides HTTP clients for external services.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/tyne-finance/ledger-go/internal/domain"
	"github.com/tyne-finance/ledger-go/internal/infra/cache"
	"github.com/tyne-finance/ledger-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("client")

// ItemsClient resolves item references against a remote items service.
// Successful lookups are cached with a TTL; misses and failures are not.
// Lookups retry with backoff behind a circuit breaker.
type ItemsClient struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
	cache      *cache.InMemory[*domain.Item]
	bulkhead   *resilience.Bulkhead
}

// NewItemsClient creates a new ItemsClient.
func NewItemsClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, itemCache *cache.InMemory[*domain.Item]) *ItemsClient {
	return &ItemsClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		cb:         cb,
		cfg:        cfg,
		cache:      itemCache,
		bulkhead:   resilience.NewBulkhead(cfg.MaxConcurrency),
	}
}

// Resolve fetches an item by (kind, id) with caching, retry, and a circuit
// breaker. Not-found propagates as domain.ErrNotFound so the validator can
// map it to a field error.
func (c *ItemsClient) Resolve(ctx context.Context, kind domain.ItemKind, id string) (*domain.Item, error) {
	ctx, span := tracer.Start(ctx, "ItemsClient.Resolve")
	defer span.End()
	span.SetAttributes(
		attribute.String("item.kind", string(kind)),
		attribute.String("item.id", id),
	)

	cacheKey := string(kind) + ":" + id
	if cached, ok := c.cache.Get(cacheKey); ok {
		return cached, nil
	}

	if err := c.bulkhead.Acquire(ctx); err != nil {
		return nil, err
	}
	defer c.bulkhead.Release()

	var item domain.Item

	result, err := c.cb.Execute(func() (any, error) {
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			url := fmt.Sprintf("%s/v1/items/%s/%s", c.baseURL, kind, id)
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return err
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusNotFound {
				// Deterministic miss, no point retrying.
				return resilience.Abort(&domain.ErrNotFound{Resource: "item", ID: id})
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("items API returned status %d", resp.StatusCode)
			}

			return json.NewDecoder(resp.Body).Decode(&item)
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return &item, nil
	})

	if err != nil {
		var notFound *domain.ErrNotFound
		if errors.As(err, &notFound) {
			return nil, notFound
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &domain.ErrCircuitOpen{Service: "items"}
		}
		return nil, &domain.ErrExternalService{Service: "items", Err: err}
	}

	resolved := result.(*domain.Item)
	c.cache.Set(cacheKey, resolved)
	return resolved, nil
}
