package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/shadowhome-go/internal/telemetry/logger"
)

// keyPrefix namespaces journal entries. Keys are prefix + ULID, so byte
// order is append order.
var keyPrefix = []byte("wj/")

// BadgerConfig configures a BadgerJournal.
type BadgerConfig struct {
	// Dir is the database directory.
	Dir string

	// MaxEntries bounds the journal; older entries are pruned.
	// Default: DefaultMaxEntries
	MaxEntries int

	// GCInterval is the interval between value log GC runs.
	// Default: 10m
	GCInterval time.Duration

	// GCThreshold is the value log discard ratio (0.0-1.0).
	// Default: 0.5
	GCThreshold float64

	// SyncWrites fsyncs every append.
	SyncWrites bool
}

// DefaultBadgerConfig returns the default configuration for dir.
func DefaultBadgerConfig(dir string) BadgerConfig {
	return BadgerConfig{
		Dir:         dir,
		MaxEntries:  DefaultMaxEntries,
		GCInterval:  10 * time.Minute,
		GCThreshold: 0.5,
	}
}

// BadgerJournal implements Journal on Badger v3.
type BadgerJournal struct {
	db     *badger.DB
	cfg    BadgerConfig
	logger logger.Logger

	// Serializes append and prune so count stays exact.
	mu    sync.Mutex
	count int

	closed atomic.Bool
	stopCh chan struct{}
	doneCh chan struct{}
}

// OpenBadgerJournal opens (or creates) the journal in cfg.Dir.
func OpenBadgerJournal(cfg BadgerConfig, l logger.Logger) (*BadgerJournal, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("badger: dir is required")
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.GCInterval <= 0 {
		cfg.GCInterval = 10 * time.Minute
	}
	if cfg.GCThreshold <= 0 || cfg.GCThreshold >= 1 {
		cfg.GCThreshold = 0.5
	}
	if l == nil {
		l = logger.Default()
	}
	l = l.With("component", "journal")

	opts := badger.DefaultOptions(cfg.Dir)
	opts.Logger = &badgerLogger{logger: l}
	opts.SyncWrites = cfg.SyncWrites
	// Entries are tiny; keep the footprint small.
	opts.ValueLogFileSize = 16 << 20
	opts.MemTableSize = 8 << 20
	opts.BlockCacheSize = 8 << 20

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}

	j := &BadgerJournal{
		db:     db,
		cfg:    cfg,
		logger: l,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	count, err := j.countEntries()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("badger: count entries: %w", err)
	}
	j.count = count
	if err := j.prune(); err != nil {
		db.Close()
		return nil, fmt.Errorf("badger: prune: %w", err)
	}

	go j.gcLoop()

	l.Info("journal opened",
		"dir", cfg.Dir,
		"entries", j.count,
		"max_entries", cfg.MaxEntries)

	return j, nil
}

// Append implements Journal.
func (j *BadgerJournal) Append(_ context.Context, e Entry) error {
	if j.closed.Load() {
		return ErrClosed
	}
	prepare(&e)

	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.db.Update(func(txn *badger.Txn) error {
		return txn.Set(entryKey(e.ID), value)
	}); err != nil {
		return fmt.Errorf("append entry: %w", err)
	}
	j.count++

	return j.prune()
}

// List implements Journal.
func (j *BadgerJournal) List(_ context.Context, limit int) ([]Entry, error) {
	if j.closed.Load() {
		return nil, ErrClosed
	}

	var out []Entry
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = keyPrefix
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		// In reverse mode Seek lands on the last key <= the seek key.
		seek := append(append([]byte{}, keyPrefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(keyPrefix); it.Next() {
			var e Entry
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			}); err != nil {
				return err
			}
			out = append(out, e)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return out, nil
}

// Len returns the number of stored entries.
func (j *BadgerJournal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.count
}

// Size returns the LSM and value log sizes in bytes.
func (j *BadgerJournal) Size() (lsm, vlog int64) {
	return j.db.Size()
}

// GC runs value log garbage collection until nothing is rewritten.
// It returns the number of rewritten log files.
func (j *BadgerJournal) GC() (int, error) {
	runs := 0
	for {
		err := j.db.RunValueLogGC(j.cfg.GCThreshold)
		if err != nil {
			if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
				return runs, nil
			}
			return runs, fmt.Errorf("gc: %w", err)
		}
		runs++
	}
}

// Close stops the GC loop and closes the database.
func (j *BadgerJournal) Close() error {
	if !j.closed.CompareAndSwap(false, true) {
		return nil
	}

	close(j.stopCh)
	<-j.doneCh

	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}

	j.logger.Info("journal closed")
	return nil
}

// RegisterMetrics exposes the database size on reg.
func (j *BadgerJournal) RegisterMetrics(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "shadowhome",
			Subsystem: "journal",
			Name:      "lsm_size_bytes",
			Help:      "Journal LSM tree size in bytes",
		}, func() float64 {
			lsm, _ := j.db.Size()
			return float64(lsm)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "shadowhome",
			Subsystem: "journal",
			Name:      "value_log_size_bytes",
			Help:      "Journal value log size in bytes",
		}, func() float64 {
			_, vlog := j.db.Size()
			return float64(vlog)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "shadowhome",
			Subsystem: "journal",
			Name:      "entries",
			Help:      "Number of entries in the journal",
		}, func() float64 {
			return float64(j.Len())
		}),
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// prune deletes the oldest entries beyond MaxEntries. Callers hold j.mu.
func (j *BadgerJournal) prune() error {
	excess := j.count - j.cfg.MaxEntries
	if excess <= 0 {
		return nil
	}

	var keys [][]byte
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = keyPrefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid() && len(keys) < excess; it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return err
	}

	wb := j.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			return err
		}
	}
	if err := wb.Flush(); err != nil {
		return err
	}
	j.count -= len(keys)

	j.logger.Debug("pruned journal entries", "deleted_count", len(keys))
	return nil
}

func (j *BadgerJournal) countEntries() (int, error) {
	n := 0
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = keyPrefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

func (j *BadgerJournal) gcLoop() {
	defer close(j.doneCh)

	ticker := time.NewTicker(j.cfg.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			start := time.Now()
			runs, err := j.GC()
			if err != nil {
				j.logger.Error("journal gc failed", "error", err)
				continue
			}
			j.logger.Debug("journal gc completed", "rewrites", runs, "elapsed", time.Since(start))
		case <-j.stopCh:
			return
		}
	}
}

func entryKey(id string) []byte {
	return append(append(make([]byte, 0, len(keyPrefix)+len(id)), keyPrefix...), id...)
}

// badgerLogger adapts logger.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger logger.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
