package chain

import (
	"context"
	"strings"
	"time"

	"github.com/emperorhan/custody-settlement/internal/cache"
)

const (
	defaultBlockCacheSize = 256
	defaultBlockCacheTTL  = 10 * time.Minute
)

// CachingRequester remembers blocks fetched by hash. A hash names exactly one
// block, so cached entries never go stale; the TTL only bounds memory.
// Latest and by-number lookups always go to the chain.
type CachingRequester struct {
	Requester
	blocks *cache.LRU[string, *Block]
}

func NewCachingRequester(r Requester, size int) *CachingRequester {
	if size <= 0 {
		size = defaultBlockCacheSize
	}
	return &CachingRequester{
		Requester: r,
		blocks:    cache.NewLRU[string, *Block](size, defaultBlockCacheTTL),
	}
}

func (c *CachingRequester) GetBlockByID(ctx context.Context, id string) (*Block, error) {
	key := strings.ToLower(id)
	if b, ok := c.blocks.Get(key); ok {
		return b, nil
	}
	b, err := c.Requester.GetBlockByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.blocks.Put(key, b)
	return b, nil
}

func (c *CachingRequester) GetLatestBlock(ctx context.Context) (*Block, error) {
	b, err := c.Requester.GetLatestBlock(ctx)
	if err != nil {
		return nil, err
	}
	c.blocks.Put(strings.ToLower(b.ID), b)
	return b, nil
}

func (c *CachingRequester) GetBlockByNumber(ctx context.Context, number int64) (*Block, error) {
	b, err := c.Requester.GetBlockByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	c.blocks.Put(strings.ToLower(b.ID), b)
	return b, nil
}

// Stats returns cache hit and miss counts.
func (c *CachingRequester) Stats() (hits, misses int64) {
	return c.blocks.Stats()
}
