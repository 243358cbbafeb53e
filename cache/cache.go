// Package cache stores compiled classes in SQLite, keyed by the content
// hash of the source and the generation options.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/sigma/compiler"
)

// ErrNotFound indicates the requested build isn't cached.
var ErrNotFound = errors.New("build not found")

var log = commonlog.GetLogger("sigma.cache")

// cborEncMode uses canonical mode so equal artifacts encode identically.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("cache: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// record is the CBOR form of a stored artifact.
type record struct {
	ClassName string   `cbor:"1,keyasint"`
	Entry     string   `cbor:"2,keyasint"`
	Class     []byte   `cbor:"3,keyasint"`
	Methods   []string `cbor:"4,keyasint"`
}

// Entry describes one cached build.
type Entry struct {
	Key       string
	BuildID   uuid.UUID
	ClassName string
	Size      int
	CreatedAt time.Time
}

// Cache handles SQLite storage for builds.
type Cache struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Open opens (creating if needed) the cache database at path. The path
// ":memory:" opens a private in-memory cache.
func Open(path string) (*Cache, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection: an in-memory database exists per connection, and
	// SQLite serializes writers anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS builds (
		key TEXT PRIMARY KEY,
		build_id TEXT NOT NULL,
		class_name TEXT NOT NULL,
		artifact BLOB NOT NULL,
		created_at INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	log.Debugf("opened build cache %s", path)
	return &Cache{db: db, path: path}, nil
}

// Close closes the database connection.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Shutdown closes the cache when its do.Injector shuts down.
func (c *Cache) Shutdown() error {
	return c.Close()
}

// Path returns the database path.
func (c *Cache) Path() string {
	return c.path
}

// Get retrieves the artifact stored under key.
func (c *Cache) Get(ctx context.Context, key string) (*compiler.Artifact, error) {
	var data []byte
	err := c.db.QueryRowContext(ctx, "SELECT artifact FROM builds WHERE key = ?", key).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying build: %w", err)
	}

	var r record
	if err := cbor.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding build %s: %w", key, err)
	}
	return &compiler.Artifact{
		Key:       key,
		ClassName: r.ClassName,
		Entry:     r.Entry,
		Class:     r.Class,
		Methods:   r.Methods,
	}, nil
}

// Put stores a under key, replacing any previous build. Each stored build
// gets a fresh build id.
func (c *Cache) Put(ctx context.Context, key string, a *compiler.Artifact) error {
	data, err := cborEncMode.Marshal(record{
		ClassName: a.ClassName,
		Entry:     a.Entry,
		Class:     a.Class,
		Methods:   a.Methods,
	})
	if err != nil {
		return fmt.Errorf("encoding build: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	_, err = c.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO builds (key, build_id, class_name, artifact, created_at) VALUES (?, ?, ?, ?, ?)",
		key, uuid.NewString(), a.ClassName, data, time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("saving build: %w", err)
	}
	return nil
}

// IsMiss reports whether err means the key is not cached.
func (c *Cache) IsMiss(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// List returns every cached build, newest first.
func (c *Cache) List(ctx context.Context) ([]Entry, error) {
	rows, err := c.db.QueryContext(ctx,
		"SELECT key, build_id, class_name, length(artifact), created_at FROM builds ORDER BY created_at DESC, key")
	if err != nil {
		return nil, fmt.Errorf("listing builds: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			id      string
			created int64
		)
		if err := rows.Scan(&e.Key, &id, &e.ClassName, &e.Size, &created); err != nil {
			return nil, fmt.Errorf("scanning build: %w", err)
		}
		if e.BuildID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("build %s: %w", e.Key, err)
		}
		e.CreatedAt = time.Unix(0, created)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Clear removes every cached build and reports how many there were.
func (c *Cache) Clear(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	res, err := c.db.ExecContext(ctx, "DELETE FROM builds")
	if err != nil {
		return 0, fmt.Errorf("clearing builds: %w", err)
	}
	return res.RowsAffected()
}

var _ compiler.Cache = (*Cache)(nil)
