// Package cache keeps parsed datasets so repeated runs skip workbook parsing
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/sprstat/internal/model"
)

// Cache stores opaque values by key
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// keyVersion changes whenever the parsed Dataset layout changes
const keyVersion = "sprstat:v1:"

// DatasetKey derives a key from the file format and its contents, so an
// edited workbook never hits a stale entry
func DatasetKey(name string, contents []byte) string {
	h := sha256.New()
	h.Write([]byte(strings.ToLower(filepath.Ext(name))))
	h.Write([]byte{0})
	h.Write(contents)
	return keyVersion + hex.EncodeToString(h.Sum(nil))
}

// DefaultDir returns the per-user cache directory for sprstat
func DefaultDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "sprstat")
	}
	return filepath.Join(os.TempDir(), "sprstat-cache")
}

// DatasetCache stores parsed datasets as JSON in an underlying Cache
type DatasetCache struct {
	store Cache
	ttl   time.Duration
}

// NewDatasetCache wraps store; a zero ttl uses the store's default
func NewDatasetCache(store Cache, ttl time.Duration) *DatasetCache {
	return &DatasetCache{store: store, ttl: ttl}
}

// Get returns the cached dataset for key. Undecodable entries are evicted.
func (c *DatasetCache) Get(key string) (*model.Dataset, bool) {
	data, ok := c.store.Get(key)
	if !ok {
		return nil, false
	}
	var ds model.Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		_ = c.store.Delete(key)
		return nil, false
	}
	return &ds, true
}

// Put stores ds under key
func (c *DatasetCache) Put(key string, ds *model.Dataset) error {
	data, err := json.Marshal(ds)
	if err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}
	return c.store.Set(key, data, c.ttl)
}
