package cache

import (
	"context"

	"github.com/arabicbase/arabicbase/internal/domain"
	"github.com/arabicbase/arabicbase/internal/logger"
	"github.com/arabicbase/arabicbase/internal/search"
)

// SearchGlobal searches the global catalog. The index answers when one is
// configured; otherwise, or if the index fails, the cached slice is
// filtered in order.
func (c *Cache) SearchGlobal(ctx context.Context, q search.Query) ([]*domain.Entry, error) {
	if c.index != nil {
		res, err := c.index.Search(ctx, q)
		if err == nil {
			return c.resolveHits(ctx, res.IDs())
		}
		c.logger.Warn("index search failed, filtering cache", logger.Err(err))
	}

	var out []*domain.Entry
	err := c.do(ctx, func(st *state) {
		out = cloneAll(search.Filter(st.global, q))
	})
	return out, err
}

// resolveHits maps index hits to cached entries, skipping ids the cache no
// longer holds.
func (c *Cache) resolveHits(ctx context.Context, ids []string) ([]*domain.Entry, error) {
	out := make([]*domain.Entry, 0, len(ids))
	err := c.do(ctx, func(st *state) {
		byID := make(map[string]*domain.Entry, len(st.global))
		for _, e := range st.global {
			byID[e.ID] = e
		}
		for _, id := range ids {
			if e, ok := byID[id]; ok {
				out = append(out, e.Clone())
			}
		}
	})
	return out, err
}
