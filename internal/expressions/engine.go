// Package expressions evaluates predicates over document nodes. Three
// languages are available: CEL, expr and jq. All three see the same scope
// built by NodeScope.
package expressions

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Engine evaluates one expression against a data map.
type Engine interface {
	Name() string
	Evaluate(ctx context.Context, expression string, data map[string]any) (any, error)
}

// compiledCacheSize bounds each engine's cache of compiled expressions.
const compiledCacheSize = 256

func newCache[V any]() *lru.Cache[string, V] {
	c, err := lru.New[string, V](compiledCacheSize)
	if err != nil {
		// lru.New only fails on a non-positive size.
		panic(err)
	}
	return c
}
