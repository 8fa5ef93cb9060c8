// Package diskcache is a small file-backed TTL cache. Each entry lives in
// its own hashed-key JSON file holding a write timestamp and a payload, so
// entries survive restarts and can be inspected or cleared per file.
package diskcache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Cache is a directory of hashed-key JSON entries with one TTL.
type Cache struct {
	dir string
	ttl time.Duration
}

type envelope struct {
	TS   int64           `json:"ts"`
	Data json.RawMessage `json:"data"`
}

// New creates a cache rooted at dir. The directory is created if missing;
// a failure to create it degrades to cache misses, never an error.
func New(dir string, ttl time.Duration) *Cache {
	_ = os.MkdirAll(dir, 0o755)
	return &Cache{dir: dir, ttl: ttl}
}

func (c *Cache) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+".json")
}

// Get unmarshals a fresh entry into dest and reports whether one was found.
// Stale entries count as absent.
func (c *Cache) Get(key string, dest interface{}) bool {
	raw, err := os.ReadFile(c.path(key))
	if err != nil {
		return false
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return false
	}

	if time.Since(time.Unix(env.TS, 0)) > c.ttl {
		return false
	}

	return json.Unmarshal(env.Data, dest) == nil
}

// EntryInfo describes one stored entry for inspection.
type EntryInfo struct {
	Name  string  `json:"name"`
	Bytes int64   `json:"bytes"`
	AgeS  float64 `json:"age_s"`
}

// Entries lists the stored entry files with size and age.
func (c *Cache) Entries() []EntryInfo {
	dirents, err := os.ReadDir(c.dir)
	if err != nil {
		return nil
	}

	out := make([]EntryInfo, 0, len(dirents))
	for _, d := range dirents {
		if d.IsDir() || filepath.Ext(d.Name()) != ".json" {
			continue
		}
		info, err := d.Info()
		if err != nil {
			continue
		}
		out = append(out, EntryInfo{
			Name:  d.Name(),
			Bytes: info.Size(),
			AgeS:  time.Since(info.ModTime()).Seconds(),
		})
	}
	return out
}

// Clear removes every stored entry and returns how many were deleted.
func (c *Cache) Clear() int {
	dirents, err := os.ReadDir(c.dir)
	if err != nil {
		return 0
	}

	removed := 0
	for _, d := range dirents {
		if d.IsDir() || filepath.Ext(d.Name()) != ".json" {
			continue
		}
		if os.Remove(filepath.Join(c.dir, d.Name())) == nil {
			removed++
		}
	}
	return removed
}

// Set writes an entry. Write failures are ignored; the system continues
// without that cache entry.
func (c *Cache) Set(key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}

	raw, err := json.Marshal(envelope{TS: time.Now().Unix(), Data: data})
	if err != nil {
		return
	}

	_ = os.WriteFile(c.path(key), raw, 0o644)
}
