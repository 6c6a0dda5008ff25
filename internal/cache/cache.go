package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/ppiankov/wordrules/internal/model"
)

// Cache stores raw oracle replies
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// OracleKey identifies one oracle reply. The catalog fingerprint keeps
// replies to an older rule catalog from being reused.
func OracleKey(provider, model, fingerprint, word string) string {
	hash := sha256.Sum256([]byte(strings.Join([]string{provider, model, fingerprint, word}, "\x00")))
	return "wordrules:v1:" + hex.EncodeToString(hash[:])
}

// Open builds the cache described by cfg
func Open(cfg model.CacheConfig) Cache {
	if !cfg.Enabled {
		return Noop{}
	}
	if cfg.Dir == "" {
		return NewMemoryCache(cfg.MemoryTTL)
	}
	return NewLayeredCache(NewMemoryCache(cfg.MemoryTTL), NewDiskCache(cfg.Dir, cfg.DiskTTL), cfg.MemoryTTL)
}

// Noop never stores anything
type Noop struct{}

func (Noop) Get(string) ([]byte, bool)                { return nil, false }
func (Noop) Set(string, []byte, time.Duration) error { return nil }
func (Noop) Delete(string) error                      { return nil }
func (Noop) Clear() error                             { return nil }
