// Package store persists chunk columns and the world level document in a
// LevelDB database, routing all chunk data through a chunkdata.Registry.
//
// Columns are stored as little endian NBT, keyed the way dragonfly's own
// LevelDB provider keys chunks: the chunk X and Z as little endian int32
// followed by a tag byte.
package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/df-mc/dragonfly/server/world"
	"github.com/df-mc/goleveldb/leveldb"
	"github.com/df-mc/goleveldb/leveldb/opt"
	"github.com/df-mc/goleveldb/leveldb/storage"
	"github.com/google/uuid"
	"github.com/oriumgames/chunkdata"
	"github.com/sandertv/gophertunnel/minecraft/nbt"
)

const (
	// keyColumn tags the key of a chunk column document.
	keyColumn = 'c'
)

// levelKey is the key of the world level document.
var levelKey = []byte("chunkdata_level")

// DB is a chunk column database.
//
// A DB is safe for concurrent use. The level document is guarded by the DB;
// column reads and writes are serialised only by LevelDB itself.
type DB struct {
	ldb *leveldb.DB
	reg *chunkdata.Registry
	log *slog.Logger

	mu    sync.Mutex
	level chunkdata.Document
}

// Open opens or creates the database in the directory at path.
func Open(path string, reg *chunkdata.Registry, log *slog.Logger) (*DB, error) {
	ldb, err := leveldb.OpenFile(path, &opt.Options{Compression: opt.FlateCompression})
	if err != nil {
		return nil, fmt.Errorf("open leveldb at %v: %w", path, err)
	}
	return newDB(ldb, reg, log), nil
}

// OpenMemory opens a database that is held in memory and lost on Close.
func OpenMemory(reg *chunkdata.Registry, log *slog.Logger) (*DB, error) {
	ldb, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("open memory leveldb: %w", err)
	}
	return newDB(ldb, reg, log), nil
}

func newDB(ldb *leveldb.DB, reg *chunkdata.Registry, log *slog.Logger) *DB {
	if log == nil {
		log = slog.Default()
	}
	return &DB{ldb: ldb, reg: reg, log: log}
}

// OpenWorld loads the level document and checks the stored manager versions
// against the registry. Notices are delivered to the registry's Notifier; a
// world is never refused because of them.
func (db *DB) OpenWorld() (*chunkdata.Report, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	doc, err := db.get(levelKey)
	if err != nil {
		return nil, fmt.Errorf("read level document: %w", err)
	}
	if doc == nil {
		doc = chunkdata.Document{}
	}
	report, err := db.reg.CheckVersions(doc)
	if err != nil {
		return nil, err
	}
	db.level = doc
	db.log.Debug("store: opened world", "world", report.World.String(), "notices", len(report.Notices))
	return report, nil
}

// SaveLevel stamps the current manager versions into the level document and
// writes it.
func (db *DB) SaveLevel() (uuid.UUID, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.level == nil {
		db.level = chunkdata.Document{}
	}
	id, err := db.reg.StampVersions(db.level)
	if err != nil {
		return uuid.Nil, err
	}
	if err := db.put(levelKey, db.level); err != nil {
		return uuid.Nil, fmt.Errorf("write level document: %w", err)
	}
	return id, nil
}

// SaveColumn writes the chunk and sub chunk data of c.
func (db *DB) SaveColumn(c chunkdata.Chunk) error {
	doc := chunkdata.Document{}
	if err := db.reg.WriteColumn(c, doc); err != nil {
		return fmt.Errorf("encode column %v: %w", c.Pos, err)
	}
	if err := db.put(columnKey(c.Pos), doc); err != nil {
		return fmt.Errorf("write column %v: %w", c.Pos, err)
	}
	return nil
}

// LoadColumn reads the column at c.Pos into c. It returns false without
// touching c if the column was never saved.
func (db *DB) LoadColumn(c chunkdata.Chunk) (bool, error) {
	doc, err := db.get(columnKey(c.Pos))
	if err != nil {
		return false, fmt.Errorf("read column %v: %w", c.Pos, err)
	}
	if doc == nil {
		return false, nil
	}
	if err := db.reg.ReadColumn(c, doc); err != nil {
		return false, fmt.Errorf("decode column %v: %w", c.Pos, err)
	}
	return true, nil
}

// DeleteColumn removes the column at pos.
func (db *DB) DeleteColumn(pos world.ChunkPos) error {
	return db.ldb.Delete(columnKey(pos), nil)
}

// Close closes the database. The level document is not saved.
func (db *DB) Close() error {
	return db.ldb.Close()
}

// get reads the document stored at key. A missing key gives a nil document.
func (db *DB) get(key []byte) (chunkdata.Document, error) {
	data, err := db.ldb.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := nbt.UnmarshalEncoding(data, &doc, nbt.LittleEndian); err != nil {
		return nil, fmt.Errorf("decode nbt: %w", err)
	}
	if doc == nil {
		doc = chunkdata.Document{}
	}
	return doc, nil
}

func (db *DB) put(key []byte, doc chunkdata.Document) error {
	data, err := nbt.MarshalEncoding(doc, nbt.LittleEndian)
	if err != nil {
		return fmt.Errorf("encode nbt: %w", err)
	}
	return db.ldb.Put(key, data, nil)
}

// columnKey returns the key of the column at pos.
func columnKey(pos world.ChunkPos) []byte {
	b := make([]byte, 9)
	binary.LittleEndian.PutUint32(b, uint32(pos[0]))
	binary.LittleEndian.PutUint32(b[4:], uint32(pos[1]))
	b[8] = keyColumn
	return b
}
