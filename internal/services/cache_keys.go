package services

import (
	"context"
	"errors"
	"fmt"

	rediscache "tableside/internal/infra/redis"
)

// Cached listings are keyed by the generation counters read before the load.
// Writers bump a counter instead of deleting entries, so a fill that raced a
// write lands on a key no later reader asks for, and expires with its TTL.
const (
	menuCacheKey   = "menu:available"
	menuVersionKey = "menu:version"
)

func menuGenerationKey(menuGen string) string {
	return menuCacheKey + ":" + menuGen
}

func tableVersionKey(table int) string {
	return fmt.Sprintf("orders:table:%d:version", table)
}

// Table listings embed catalog names and prices, so they also carry the menu
// generation.
func tableCacheKey(table int, tableGen, menuGen string) string {
	return fmt.Sprintf("orders:table:%d:%s:%s", table, tableGen, menuGen)
}

// generation reads a counter kept with Incr. A counter that was never bumped
// is generation "0".
func generation(ctx context.Context, c rediscache.CacheInterface, key string) (string, error) {
	b, err := c.Get(ctx, key)
	switch {
	case errors.Is(err, rediscache.ErrCacheMiss):
		return "0", nil
	case err != nil:
		return "", err
	}
	return string(b), nil
}
