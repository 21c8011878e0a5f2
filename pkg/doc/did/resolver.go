/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package did

import (
	"context"
	"fmt"

	"github.com/bluele/gcache"
	"github.com/hyperledger/aries-framework-go/component/log"
)

var logger = log.New("vc-verification/doc/did")

const defaultCacheSize = 100

// Resolver resolves a DID to its DID Document.
type Resolver interface {
	ResolveDid(ctx context.Context, did string) (*Doc, error)
}

// CachingResolver wraps a Resolver with a process-wide LRU cache. Resolved
// documents stay cached until the cache is full and evicts the least recently
// used one; failed resolutions are not cached. The cache is safe for use by
// concurrent Validate calls.
type CachingResolver struct {
	resolver Resolver
	cache    gcache.Cache
}

// CacheOpt configures a CachingResolver.
type CacheOpt func(size *int)

// WithCacheSize overrides the cached document count.
func WithCacheSize(size int) CacheOpt {
	return func(s *int) {
		*s = size
	}
}

// NewCachingResolver caches resolutions of the given resolver.
func NewCachingResolver(resolver Resolver, opts ...CacheOpt) *CachingResolver {
	size := defaultCacheSize

	for _, opt := range opts {
		opt(&size)
	}

	return &CachingResolver{
		resolver: resolver,
		cache:    gcache.New(size).LRU().Build(),
	}
}

// ResolveDid returns the cached document for did, resolving on first use.
func (r *CachingResolver) ResolveDid(ctx context.Context, did string) (*Doc, error) {
	if cached, err := r.cache.Get(did); err == nil {
		logger.Debugf("DID document cache hit for %s", did)

		return cached.(*Doc), nil
	}

	doc, err := r.resolver.ResolveDid(ctx, did)
	if err != nil {
		return nil, err
	}

	if err := r.cache.Set(did, doc); err != nil {
		return nil, fmt.Errorf("cache DID document for %s: %w", did, err)
	}

	return doc, nil
}
