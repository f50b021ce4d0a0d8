package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/irgroup/labelstudio-to-fonduer/internal/dom"
)

// Trees caches parsed document trees keyed by a content hash, so batch and
// watch runs re-parse each document once per change instead of once per pass.
type Trees struct {
	cache *gocache.Cache
}

// NewTrees creates a tree cache with the given TTL.
func NewTrees(ttl time.Duration) *Trees {
	return &Trees{cache: gocache.New(ttl, 2*ttl)}
}

// Get retrieves the parsed tree for the given HTML content.
func (t *Trees) Get(content string) (*dom.Tree, bool) {
	if val, found := t.cache.Get(Key(content)); found {
		return val.(*dom.Tree), true
	}
	return nil, false
}

// Set stores a parsed tree under its content hash.
func (t *Trees) Set(content string, tree *dom.Tree) {
	t.cache.Set(Key(content), tree, gocache.DefaultExpiration)
}

// Clear removes all cached trees.
func (t *Trees) Clear() {
	t.cache.Flush()
}

// Key derives the cache key from document content.
func Key(content string) string {
	hash := sha256.Sum256([]byte(content))
	return "tree:v1:" + hex.EncodeToString(hash[:])
}
