package embedded

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/imyousuf/srcgraph/internal/graph"
)

// Key prefixes for the BadgerDB key scheme.
const (
	prefixRelation = "rel:"
	prefixNodeType = "ntype:"
	prefixGlobalID = "meta:gid:"
	keyStats       = "meta:stats"
)

// Store implements graph.Store using BadgerDB.
type Store struct {
	db *badger.DB
}

var _ graph.Store = (*Store)(nil)

// NewStore opens (or creates) a BadgerDB-backed graph store at dbPath.
func NewStore(dbPath string) (*Store, error) {
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // suppress badger logs
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}
	return &Store{db: db}, nil
}

func relationKey(r graph.Relation) []byte { return []byte(prefixRelation + r.String()) }

func nodeTypeKey(ntype string) []byte { return []byte(prefixNodeType + ntype) }

func globalIDKey(originalID int64) []byte {
	return []byte(prefixGlobalID + strconv.FormatInt(originalID, 10))
}

// Save replaces all stored data with g.
func (s *Store) Save(ctx context.Context, g *graph.HeteroGraph) error {
	if err := s.db.DropAll(); err != nil {
		return fmt.Errorf("clear store: %w", err)
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, rel := range g.SortedRelations() {
		data, err := json.Marshal(g.Relations[rel])
		if err != nil {
			return fmt.Errorf("marshal relation %s: %w", rel, err)
		}
		if err := wb.Set(relationKey(rel), data); err != nil {
			return fmt.Errorf("write relation %s: %w", rel, err)
		}
	}
	for _, ntype := range g.NodeTypes() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		d := g.Nodes[ntype]
		data, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("marshal node type %s: %w", ntype, err)
		}
		if err := wb.Set(nodeTypeKey(ntype), data); err != nil {
			return fmt.Errorf("write node type %s: %w", ntype, err)
		}
		for i, orig := range d.OriginalID {
			gid := strconv.FormatInt(d.GlobalGraphID[i], 10)
			if err := wb.Set(globalIDKey(orig), []byte(gid)); err != nil {
				return fmt.Errorf("write global id %d: %w", orig, err)
			}
		}
	}
	stats, err := json.Marshal(g.Stats())
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}
	if err := wb.Set([]byte(keyStats), stats); err != nil {
		return fmt.Errorf("write stats: %w", err)
	}
	return wb.Flush()
}

// Load reads the whole stored graph.
func (s *Store) Load(_ context.Context) (*graph.HeteroGraph, error) {
	g := graph.NewHeteroGraph()
	err := s.db.View(func(txn *badger.Txn) error {
		if err := scanPrefix(txn, prefixRelation, func(key string, val []byte) error {
			rel, err := graph.ParseRelation(key)
			if err != nil {
				return err
			}
			var pairs []graph.Pair
			if err := json.Unmarshal(val, &pairs); err != nil {
				return fmt.Errorf("unmarshal relation %s: %w", key, err)
			}
			g.Relations[rel] = pairs
			return nil
		}); err != nil {
			return err
		}
		return scanPrefix(txn, prefixNodeType, func(key string, val []byte) error {
			var d graph.NodeData
			if err := json.Unmarshal(val, &d); err != nil {
				return fmt.Errorf("unmarshal node type %s: %w", key, err)
			}
			g.Nodes[key] = &d
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

// Relation returns the pairs stored for rel.
func (s *Store) Relation(_ context.Context, rel graph.Relation) ([]graph.Pair, error) {
	var pairs []graph.Pair
	err := s.get(relationKey(rel), func(val []byte) error {
		return json.Unmarshal(val, &pairs)
	})
	if err != nil {
		return nil, fmt.Errorf("get relation %s: %w", rel, err)
	}
	return pairs, nil
}

// NodeType returns the arrays stored for ntype.
func (s *Store) NodeType(_ context.Context, ntype string) (*graph.NodeData, error) {
	var d graph.NodeData
	err := s.get(nodeTypeKey(ntype), func(val []byte) error {
		return json.Unmarshal(val, &d)
	})
	if err != nil {
		return nil, fmt.Errorf("get node type %s: %w", ntype, err)
	}
	return &d, nil
}

// GlobalID maps an original node id to its global graph id.
func (s *Store) GlobalID(_ context.Context, originalID int64) (int64, error) {
	var gid int64
	err := s.get(globalIDKey(originalID), func(val []byte) error {
		var err error
		gid, err = strconv.ParseInt(string(val), 10, 64)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("get global id %d: %w", originalID, err)
	}
	return gid, nil
}

// Stats returns the statistics recorded by the last Save.
func (s *Store) Stats(_ context.Context) (*graph.GraphStats, error) {
	stats := &graph.GraphStats{
		NodesByType:     make(map[string]int64),
		EdgesByRelation: make(map[string]int64),
	}
	err := s.get([]byte(keyStats), func(val []byte) error {
		return json.Unmarshal(val, stats)
	})
	if errors.Is(err, graph.ErrNotFound) {
		return stats, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	return stats, nil
}

// Close closes the underlying BadgerDB.
func (s *Store) Close() error {
	return s.db.Close()
}

// get reads one key. A missing key is reported as graph.ErrNotFound.
func (s *Store) get(key []byte, fn func(val []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return graph.ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(fn)
	})
}

// scanPrefix calls fn for every key with the given prefix, passing the key
// with the prefix stripped.
func scanPrefix(txn *badger.Txn, prefix string, fn func(key string, val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = true
	opts.Prefix = []byte(prefix)
	it := txn.NewIterator(opts)
	defer it.Close()
	for it.Seek(opts.Prefix); it.Valid(); it.Next() {
		item := it.Item()
		key := strings.TrimPrefix(string(item.Key()), prefix)
		err := item.Value(func(val []byte) error {
			return fn(key, val)
		})
		if err != nil {
			return err
		}
	}
	return nil
}
