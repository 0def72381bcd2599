// Package store implements the entity store (C2): durable storage for every
// entity kind with the secondary indexes needed for author listing,
// relation traversal, and fragment search. It is backed by BadgerDB, an
// embedded ordered-key store with atomic transactional writes and prefix
// iteration. Logical "column families" are modeled as key prefixes inside
// one Badger instance, exactly as spec.md's key layout describes them.
package store

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/aegishub/hub/internal/herr"
	"github.com/aegishub/hub/internal/model"
)

// Config configures a Store.
type Config struct {
	DataDir     string // directory for the Badger files; ignored when InMemory
	InMemory    bool   // true for tests: no files touch disk
	CacheSizeMB int    // LRU capacity, approximated as entries rather than bytes
}

// Store is the entity store. All entity reads and writes go through it;
// nothing else in the hub touches Badger directly.
type Store struct {
	db    *badger.DB
	cache *lru
}

// Open opens (or creates) the Badger database described by cfg.
func Open(cfg Config) (*Store, error) {
	opts := badger.DefaultOptions(cfg.DataDir)
	opts = opts.WithLogger(nil) // Badger's internal logger is noise here
	if cfg.InMemory {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, herr.Wrap(herr.Internal, err, "open entity store at %s", cfg.DataDir)
	}

	cacheEntries := cfg.CacheSizeMB * 64 // rough entries-per-MB approximation for small JSON entities
	if cacheEntries <= 0 {
		cacheEntries = 1024
	}

	return &Store{db: db, cache: newLRU(cacheEntries)}, nil
}

// Close releases the underlying Badger database.
func (s *Store) Close() error {
	return s.db.Close()
}

// errMalformedIndexKey reports a secondary-index key that does not carry a
// trailing UUID, which would indicate store corruption rather than caller
// error.
func errMalformedIndexKey(key string) error {
	return herr.New(herr.Internal, "malformed index key %q", key)
}

// --- generic primary read/write helpers ---

func (s *Store) getRaw(key []byte) ([]byte, error) {
	if cached, ok := s.cache.get(string(key)); ok {
		return cached, nil
	}
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, herr.New(herr.NotFound, "no entity at key %q", key)
	}
	if err != nil {
		return nil, herr.Wrap(herr.Internal, err, "read key %q", key)
	}
	s.cache.put(string(key), value)
	return value, nil
}

// indexWrite is one secondary-index entry to set alongside a primary write,
// within the same atomic transaction.
type indexWrite struct {
	key   []byte
	value []byte
}

// commit invalidates the cache for primaryKey, then atomically writes the
// primary entry plus every secondary index entry in a single Badger
// transaction — the store's write-batch primitive (spec.md §4.2,
// "Atomicity").
func (s *Store) commit(primaryKey, primaryValue []byte, indexes []indexWrite) error {
	s.cache.invalidate(string(primaryKey))
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(primaryKey, primaryValue); err != nil {
			return err
		}
		for _, iw := range indexes {
			if err := txn.Set(iw.key, iw.value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return herr.Wrap(herr.Internal, err, "commit write batch")
	}
	return nil
}

func (s *Store) exists(key []byte) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, herr.Wrap(herr.Internal, err, "check existence of %q", key)
	}
	return true, nil
}

// --- Agents ---

// PutAgent admits or updates an Agent. A second admission of the same ID
// must strictly increase Version; a rollback or equal version is a
// Conflict, per spec.md's agent-version invariant.
func (s *Store) PutAgent(a *model.Agent) error {
	key := primaryKey(model.KindAgent, a.ID)
	existing, err := s.getAgentRaw(key)
	if err != nil && herr.KindOf(err) != herr.NotFound {
		return err
	}
	if existing != nil {
		if a.Version <= existing.Version {
			return herr.New(herr.Conflict, "agent %s version %d does not exceed stored version %d", a.ID, a.Version, existing.Version)
		}
	}

	value, err := json.Marshal(a)
	if err != nil {
		return herr.Wrap(herr.Internal, err, "marshal agent %s", a.ID)
	}
	return s.commit(key, value, nil)
}

func (s *Store) getAgentRaw(key []byte) (*model.Agent, error) {
	raw, err := s.getRaw(key)
	if err != nil {
		return nil, err
	}
	var a model.Agent
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, herr.Wrap(herr.Internal, err, "decode agent")
	}
	return &a, nil
}

// GetAgent retrieves an Agent by ID.
func (s *Store) GetAgent(id uuid.UUID) (*model.Agent, error) {
	raw, err := s.getRaw(primaryKey(model.KindAgent, id))
	if err != nil {
		return nil, err
	}
	var a model.Agent
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, herr.Wrap(herr.Internal, err, "decode agent %s", id)
	}
	return &a, nil
}

// HasAgent reports whether an Agent record exists for id, without paying for
// a full decode. Used by the admission controller to decide whether a
// caller is "known to the hub".
func (s *Store) HasAgent(id uuid.UUID) (bool, error) {
	return s.exists(primaryKey(model.KindAgent, id))
}

// ExistsOfKind reports whether an entity of the given kind with id is
// stored locally. The service layer calls it once per kind to resolve a
// Relation's source identifier against the whole entity space (spec.md §3).
func (s *Store) ExistsOfKind(kind model.Kind, id uuid.UUID) (bool, error) {
	return s.exists(primaryKey(kind, id))
}

// --- Fragments ---

// PutFragment stores a Fragment and maintains its author and (optional)
// project indexes.
func (s *Store) PutFragment(f *model.Fragment) error {
	key := primaryKey(model.KindFragment, f.ID)
	value, err := json.Marshal(f)
	if err != nil {
		return herr.Wrap(herr.Internal, err, "marshal fragment %s", f.ID)
	}

	indexes := []indexWrite{
		{key: authorIndexKey(f.AuthorID, model.KindFragment, f.ID), value: []byte{}},
	}
	if f.ProjectID != nil {
		indexes = append(indexes, indexWrite{key: fragProjIndexKey(*f.ProjectID, f.ID), value: []byte{}})
	}
	return s.commit(key, value, indexes)
}

// GetFragment retrieves a Fragment by ID.
func (s *Store) GetFragment(id uuid.UUID) (*model.Fragment, error) {
	raw, err := s.getRaw(primaryKey(model.KindFragment, id))
	if err != nil {
		return nil, err
	}
	var f model.Fragment
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, herr.Wrap(herr.Internal, err, "decode fragment %s", id)
	}
	return &f, nil
}

// --- Relations ---

// PutRelation stores a Relation and maintains its author, source, and
// target indexes. The caller (service layer) is responsible for resolving
// SourceID locally before calling this; the store itself does not enforce
// referential integrity (see DESIGN.md on the target-resolvability Open
// Question).
func (s *Store) PutRelation(r *model.Relation) error {
	key := primaryKey(model.KindRelation, r.ID)
	value, err := json.Marshal(r)
	if err != nil {
		return herr.Wrap(herr.Internal, err, "marshal relation %s", r.ID)
	}

	indexes := []indexWrite{
		{key: authorIndexKey(r.AuthorID, model.KindRelation, r.ID), value: []byte{}},
		{key: relSrcIndexKey(r.SourceID, r.ID), value: []byte{}},
		{key: relTgtIndexKey(r.TargetID, r.ID), value: []byte{}},
	}
	return s.commit(key, value, indexes)
}

// GetRelation retrieves a Relation by ID.
func (s *Store) GetRelation(id uuid.UUID) (*model.Relation, error) {
	raw, err := s.getRaw(primaryKey(model.KindRelation, id))
	if err != nil {
		return nil, err
	}
	var r model.Relation
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, herr.Wrap(herr.Internal, err, "decode relation %s", id)
	}
	return &r, nil
}

// --- Tags ---

// PutTag admits a Tag, enforcing global name uniqueness via a conditional
// write against the tag-name index: if the name is already claimed by a
// different tag ID, the write fails with Conflict.
func (s *Store) PutTag(t *model.Tag) error {
	nameKey := tagNameIndexKey(t.Name)
	owner, err := s.tagOwner(nameKey)
	if err != nil {
		return err
	}
	if owner != nil && *owner != t.ID {
		return herr.New(herr.Conflict, "tag name %q already used by %s", t.Name, owner)
	}

	key := primaryKey(model.KindTag, t.ID)
	value, err := json.Marshal(t)
	if err != nil {
		return herr.Wrap(herr.Internal, err, "marshal tag %s", t.ID)
	}

	indexes := []indexWrite{
		{key: nameKey, value: []byte(t.ID.String())},
	}
	return s.commit(key, value, indexes)
}

func (s *Store) tagOwner(nameKey []byte) (*uuid.UUID, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(nameKey)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, herr.Wrap(herr.Internal, err, "read tag name index")
	}
	id, err := uuid.Parse(string(value))
	if err != nil {
		return nil, herr.Wrap(herr.Internal, err, "decode tag name index value")
	}
	return &id, nil
}

// GetTag retrieves a Tag by ID.
func (s *Store) GetTag(id uuid.UUID) (*model.Tag, error) {
	raw, err := s.getRaw(primaryKey(model.KindTag, id))
	if err != nil {
		return nil, err
	}
	var t model.Tag
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, herr.Wrap(herr.Internal, err, "decode tag %s", id)
	}
	return &t, nil
}

// --- Transforms ---

// PutTransform stores a Transform and maintains its author index.
func (s *Store) PutTransform(t *model.Transform) error {
	key := primaryKey(model.KindTransform, t.ID)
	value, err := json.Marshal(t)
	if err != nil {
		return herr.Wrap(herr.Internal, err, "marshal transform %s", t.ID)
	}
	indexes := []indexWrite{
		{key: authorIndexKey(t.AuthorID, model.KindTransform, t.ID), value: []byte{}},
	}
	return s.commit(key, value, indexes)
}

// GetTransform retrieves a Transform by ID.
func (s *Store) GetTransform(id uuid.UUID) (*model.Transform, error) {
	raw, err := s.getRaw(primaryKey(model.KindTransform, id))
	if err != nil {
		return nil, err
	}
	var t model.Transform
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, herr.Wrap(herr.Internal, err, "decode transform %s", id)
	}
	return &t, nil
}

// --- Cursor-based range scans ---

// Cursor is an opaque continuation token returned by the listing and search
// operations. The empty Cursor denotes "no more results".
type Cursor string

func encodeCursor(lastKey []byte) Cursor {
	return Cursor(base64.RawURLEncoding.EncodeToString(lastKey))
}

func decodeCursor(c Cursor) ([]byte, error) {
	if c == "" {
		return nil, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(string(c))
	if err != nil {
		return nil, herr.Wrap(herr.Validation, err, "decode cursor")
	}
	return b, nil
}

// scanIDs walks every key under prefix in key order, skipping the entry at
// cursor if one is given (it was already returned to the caller on the
// previous page), and returns up to limit trailing UUIDs plus a cursor for
// the next page (empty if exhausted).
func (s *Store) scanIDs(prefix []byte, cursor Cursor, limit int) ([]uuid.UUID, Cursor, error) {
	if limit <= 0 {
		limit = 50
	}
	after, err := decodeCursor(cursor)
	if err != nil {
		return nil, "", err
	}

	var ids []uuid.UUID
	var lastKey []byte
	var more bool

	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := prefix
		if after != nil {
			seek = after
		}
		it.Seek(seek)
		if after != nil && it.ValidForPrefix(prefix) && string(it.Item().Key()) == string(after) {
			it.Next() // skip the cursor entry itself
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if len(ids) >= limit {
				more = true
				break
			}
			key := it.Item().KeyCopy(nil)
			id, err := idFromIndexKey(key)
			if err != nil {
				return err
			}
			ids = append(ids, id)
			lastKey = key
		}
		return nil
	})
	if err != nil {
		return nil, "", herr.Wrap(herr.Internal, err, "scan prefix %q", prefix)
	}

	if !more || lastKey == nil {
		return ids, "", nil
	}
	return ids, encodeCursor(lastKey), nil
}

// ListByAuthor returns the IDs of entities of the given kind authored by
// agent, in index-key order, with an opaque continuation cursor.
func (s *Store) ListByAuthor(agent uuid.UUID, kind model.Kind, cursor Cursor, limit int) ([]uuid.UUID, Cursor, error) {
	return s.scanIDs(authorIndexPrefix(agent, kind), cursor, limit)
}

// RelationsFrom returns the IDs of relations whose source is id.
func (s *Store) RelationsFrom(id uuid.UUID, cursor Cursor, limit int) ([]uuid.UUID, Cursor, error) {
	return s.scanIDs(relSrcIndexPrefix(id), cursor, limit)
}

// RelationsTo returns the IDs of relations whose target is id.
func (s *Store) RelationsTo(id uuid.UUID, cursor Cursor, limit int) ([]uuid.UUID, Cursor, error) {
	return s.scanIDs(relTgtIndexPrefix(id), cursor, limit)
}

// --- Fragment search ---

// SearchFragments scans fragments in primary-key order, returning those
// whose content contains every whitespace-separated token of query
// (case-insensitive substring match), plus optional refinements on
// evidence type and minimum confidence. Correctness is defined by this
// substring/token predicate; an implementation MAY add a proper inverted
// index without changing the contract, but this hub does not (see
// DESIGN.md).
func (s *Store) SearchFragments(query string, minConfidence float64, evidence model.EvidenceType, cursor Cursor, limit int) ([]*model.Fragment, Cursor, error) {
	if limit <= 0 {
		limit = 50
	}
	tokens := tokenize(query)
	after, err := decodeCursor(cursor)
	if err != nil {
		return nil, "", err
	}

	var results []*model.Fragment
	var lastKey []byte
	var more bool
	prefix := fragmentPrefix()

	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := prefix
		if after != nil {
			seek = after
		}
		it.Seek(seek)
		if after != nil && it.ValidForPrefix(prefix) && string(it.Item().Key()) == string(after) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if len(results) >= limit {
				more = true
				break
			}
			item := it.Item()
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			var f model.Fragment
			if err := json.Unmarshal(raw, &f); err != nil {
				return err
			}
			if !matchesAllTokens(f.Content, tokens) {
				continue
			}
			if minConfidence > 0 && f.Confidence < minConfidence {
				continue
			}
			if evidence != "" && f.EvidenceType != evidence {
				continue
			}
			results = append(results, &f)
			lastKey = item.KeyCopy(nil)
		}
		return nil
	})
	if err != nil {
		return nil, "", herr.Wrap(herr.Internal, err, "search fragments")
	}

	if !more || lastKey == nil {
		return results, "", nil
	}
	return results, encodeCursor(lastKey), nil
}

// Stats reports coarse size information about the underlying Badger files.
type Stats struct {
	LSMSizeBytes  int64
	ValueLogBytes int64
	LastSampledAt time.Time
}

// Stats returns Badger's on-disk size estimate.
func (s *Store) Stats() Stats {
	lsm, vlog := s.db.Size()
	return Stats{LSMSizeBytes: lsm, ValueLogBytes: vlog, LastSampledAt: time.Now()}
}
