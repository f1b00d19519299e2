/*
	Timelinize
	Copyright (c) 2013 Matthew Holt

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU Affero General Public License as published
	by the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU Affero General Public License for more details.

	You should have received a copy of the GNU Affero General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package staticmap

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeebo/blake3"
	"go.etcd.io/bbolt"
	"go.uber.org/zap"
)

// Cache is an ImageFetcher that remembers the images it gets from
// another fetcher in a bbolt database, so that re-rendering the same
// history does not download the same images again. It is safe for
// concurrent use.
type Cache struct {
	db      *bbolt.DB
	fetcher ImageFetcher
	log     *zap.Logger
}

// cacheEntry is the value stored for each request.
type cacheEntry struct {
	Format    string    `msgpack:"format"`
	Data      []byte    `msgpack:"data"`
	FetchedAt time.Time `msgpack:"fetched_at"`
	RunID     string    `msgpack:"run_id,omitempty"`
}

// OpenCache opens (or creates) the cache database at filename, which
// gets images from fetcher when they are not cached. The cache must
// be closed when finished.
func OpenCache(filename string, fetcher ImageFetcher, logger *zap.Logger) (*Cache, error) {
	db, err := bbolt.Open(filename, 0600, &bbolt.Options{Timeout: cacheOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening image cache %s: %w", filename, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(imagesBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{db: db, fetcher: fetcher, log: logger.Named("cache")}, nil
}

// Fetch returns the cached image for req, or gets it from the
// underlying fetcher and caches it.
func (c *Cache) Fetch(ctx context.Context, req Request) (Image, error) {
	key := cacheKey(req)

	img, ok, err := c.get(key)
	if err != nil {
		return Image{}, err
	}
	if ok {
		c.log.Debug("cache hit", zap.Stringer("center", req.Center))
		return img, nil
	}

	c.log.Debug("cache miss", zap.Stringer("center", req.Center))
	img, err = c.fetcher.Fetch(ctx, req)
	if err != nil {
		return Image{}, err
	}

	entry := cacheEntry{
		Format:    img.Format,
		Data:      img.Data,
		FetchedAt: time.Now().UTC(),
		RunID:     runIDFrom(ctx),
	}
	if err := c.put(key, entry); err != nil {
		return Image{}, err
	}

	return img, nil
}

func (c *Cache) get(key []byte) (Image, bool, error) {
	var val []byte
	err := c.db.View(func(tx *bbolt.Tx) error {
		// the value is only valid during the transaction
		val = bytes.Clone(tx.Bucket(imagesBucket).Get(key))
		return nil
	})
	if err != nil {
		return Image{}, false, fmt.Errorf("reading from image cache: %w", err)
	}
	if val == nil {
		return Image{}, false, nil
	}
	var entry cacheEntry
	if err := msgpack.Unmarshal(val, &entry); err != nil {
		return Image{}, false, fmt.Errorf("decoding cache entry: %w", err)
	}
	return Image{Format: entry.Format, Data: entry.Data, Cached: true}, true, nil
}

func (c *Cache) put(key []byte, entry cacheEntry) error {
	val, err := msgpack.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	err = c.db.Batch(func(tx *bbolt.Tx) error {
		return tx.Bucket(imagesBucket).Put(key, val)
	})
	if err != nil {
		return fmt.Errorf("writing to image cache: %w", err)
	}
	return nil
}

// Len returns the number of cached images.
func (c *Cache) Len() (int, error) {
	var n int
	err := c.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(imagesBucket).Stats().KeyN
		return nil
	})
	return n, err
}

// Close closes the cache database.
func (c *Cache) Close() error {
	return c.db.Close()
}

func cacheKey(req Request) []byte {
	sum := blake3.Sum256([]byte(req.String()))
	return sum[:]
}

var imagesBucket = []byte("images")

const cacheOpenTimeout = 5 * time.Second
