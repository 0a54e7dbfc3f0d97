// Package cache persists per-path fingerprints across runs so that a
// session rebuild over an unchanged directory tree does not re-hash every
// clip's first GPMF sample.
package cache

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"gopmf/pkg/fingerprint"
)

var bucketName = []byte("fingerprints")

// Entry is what is stored per path: the fingerprint plus enough of the
// file's stat info to tell whether it has since changed.
type Entry struct {
	Fingerprint fingerprint.Digest
	ModTime     time.Time
	Size        int64
}

// Cache is a bbolt-backed path -> Entry store, grounded on pkg/log's
// bucket-per-open-handle pattern (db.go).
type Cache struct {
	dbPath string
	db     *bolt.DB
}

// Open opens or creates the cache database at dbPath.
func Open(dbPath string) (*Cache, error) {
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("could not open fingerprint cache: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create fingerprint bucket: %w", err)
	}

	return &Cache{dbPath: dbPath, db: db}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Lookup returns the cached entry for path, and whether it is still valid
// for the given modTime/size pair (a cache hit requires both to match
// exactly, since either changing means the file's content may have
// changed).
func (c *Cache) Lookup(path string, modTime time.Time, size int64) (fingerprint.Digest, bool) {
	var entry Entry
	var found bool

	_ = c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		raw := b.Get([]byte(path))
		if raw == nil {
			return nil
		}
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil
		}
		found = true
		return nil
	})

	if !found || !entry.ModTime.Equal(modTime) || entry.Size != size {
		return fingerprint.Digest{}, false
	}
	return entry.Fingerprint, true
}

// Store records path's fingerprint against its current modTime/size.
func (c *Cache) Store(path string, digest fingerprint.Digest, modTime time.Time, size int64) error {
	entry := Entry{Fingerprint: digest, ModTime: modTime, Size: size}
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	return c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		return b.Put([]byte(path), raw)
	})
}
