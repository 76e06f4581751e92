// Package metadata resolves the off-ledger locator of an issued asset.
package metadata

import (
	"context"
	"strconv"
	"strings"
)

// Resolver maps a token id to its metadata locator. The ledger checks
// existence before calling it.
type Resolver interface {
	Resolve(ctx context.Context, prefix string, tokenID uint64) (string, error)
}

// ResolverFunc adapts a plain function to Resolver.
type ResolverFunc func(ctx context.Context, prefix string, tokenID uint64) (string, error)

func (f ResolverFunc) Resolve(ctx context.Context, prefix string, tokenID uint64) (string, error) {
	return f(ctx, prefix, tokenID)
}

// PrefixResolver concatenates the prefix and the decimal id, with an
// optional suffix such as ".json".
type PrefixResolver struct {
	Suffix string
}

func (r PrefixResolver) Resolve(_ context.Context, prefix string, tokenID uint64) (string, error) {
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString(strconv.FormatUint(tokenID, 10))
	b.WriteString(r.Suffix)
	return b.String(), nil
}
