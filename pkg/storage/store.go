package storage

import (
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/dd0wney/semconv-graph/pkg/logging"
	"github.com/dd0wney/semconv-graph/pkg/metrics"
)

// Store is the embedded graph store: typed node and relationship tables
// persisted in a single Badger directory. One Store handle is shared by
// the whole process; Badger makes concurrent reads safe.
type Store struct {
	db *badger.DB

	// Catalog cache. The on-disk catalog entries are authoritative; this
	// map mirrors them so inserts don't re-read definitions per row.
	mu         sync.RWMutex
	nodeTables map[string]NodeTableDef
	relTables  map[string]RelTableDef
	closed     bool

	logger  logging.Logger
	metrics *metrics.Registry
}

// Options configures a Store.
type Options struct {
	// DataDir is the Badger directory. Created if absent.
	DataDir string
	// InMemory runs Badger without disk persistence (tests).
	InMemory bool
	// Logger defaults to a no-op logger.
	Logger logging.Logger
	// Metrics is optional; when nil, no metrics are recorded.
	Metrics *metrics.Registry
}

// Open opens (or creates) the store and loads the table catalog.
func Open(opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	badgerOpts := badger.DefaultOptions(opts.DataDir).WithLogger(nil)
	if opts.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, opError("Open", "", err)
	}

	s := &Store{
		db:         db,
		nodeTables: make(map[string]NodeTableDef),
		relTables:  make(map[string]RelTableDef),
		logger:     logger,
		metrics:    opts.Metrics,
	}

	if err := s.loadCatalog(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("store opened",
		logging.Path(opts.DataDir),
		logging.Int("node_tables", len(s.nodeTables)),
		logging.Int("rel_tables", len(s.relTables)))
	return s, nil
}

// Close releases the underlying database. Safe to call more than once.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.logger.Info("store closed")
	return s.db.Close()
}

func (s *Store) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}
