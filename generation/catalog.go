package generation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const (
	modelCatalogCacheTTL     = 60 * time.Second
	modelCatalogCacheTimeout = 300 * time.Millisecond
)

// modelCatalog lists the models visible to a credential. Results are cached
// briefly in redis (when configured) so repeated validations of the same key
// do not hammer the provider. The cache key is a hash of the credential; the
// credential itself is never stored.
type modelCatalog struct {
	cache *redis.Client
	list  func(ctx context.Context, credential string) ([]string, error)
}

func newModelCatalog(cache *redis.Client) *modelCatalog {
	return &modelCatalog{cache: cache, list: listProviderModels}
}

// cacheKey hashes the credential so cache entries carry no secret material.
func (c *modelCatalog) cacheKey(credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return "generation:models:" + hex.EncodeToString(sum[:16])
}

func (c *modelCatalog) cacheContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) <= modelCatalogCacheTimeout {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, modelCatalogCacheTimeout)
}

func (c *modelCatalog) listModels(ctx context.Context, credential string) ([]string, error) {
	if c.cache != nil {
		cacheCtx, cancel := c.cacheContext(ctx)
		data, err := c.cache.Get(cacheCtx, c.cacheKey(credential)).Bytes()
		cancel()
		if err == nil {
			var names []string
			if err := json.Unmarshal(data, &names); err == nil {
				return names, nil
			}
		}
	}

	names, err := c.list(ctx, credential)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		payload, err := json.Marshal(names)
		if err == nil {
			cacheCtx, cancel := c.cacheContext(ctx)
			if err := c.cache.Set(cacheCtx, c.cacheKey(credential), payload, modelCatalogCacheTTL).Err(); err != nil {
				log.Debug().Err(err).Msg("generation: store model catalog cache failed")
			}
			cancel()
		}
	}

	return names, nil
}

// listProviderModels issues the lightweight listing call that backs the
// authoritative stage of credential validation.
func listProviderModels(ctx context.Context, credential string) ([]string, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(credential))
	if err != nil {
		return nil, fmt.Errorf("generation: create provider client: %w", err)
	}
	defer client.Close()

	var names []string
	it := client.ListModels(ctx)
	for {
		info, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("generation: list models: %w", err)
		}
		names = append(names, info.Name)
	}

	return names, nil
}
