package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	badger "github.com/dgraph-io/badger/v4"
)

var recordPrefix = []byte("rec:")

func recordKey(id string) []byte {
	return append(append([]byte{}, recordPrefix...), id...)
}

// Badger is a Store backed by BadgerDB v4.
type Badger struct {
	db *badger.DB
}

// BadgerOptions configures the BadgerDB store.
type BadgerOptions struct {
	// Dir is the directory for BadgerDB data files.
	// Required unless InMemory is set.
	Dir string

	// InMemory runs BadgerDB in memory-only mode (no disk persistence).
	InMemory bool

	// ReadOnly opens an existing store without write access.
	ReadOnly bool

	// Logger receives badger's warnings and errors. Defaults to slog.Default().
	Logger *slog.Logger
}

// NewBadger opens a BadgerDB-backed Store.
func NewBadger(bopts BadgerOptions) (*Badger, error) {
	if !bopts.InMemory && bopts.Dir == "" {
		return nil, errors.New("history: BadgerOptions.Dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(bopts.Dir)
	if bopts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	if bopts.ReadOnly {
		dbOpts = dbOpts.WithReadOnly(true)
	}
	logger := bopts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dbOpts = dbOpts.WithLogger(slogLogger{logger.With("component", "badger")})

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("history: open badger: %w", err)
	}
	return &Badger{db: db}, nil
}

func (b *Badger) Put(_ context.Context, r *Record) error {
	prepare(r)
	val, err := encode(r)
	if err != nil {
		return fmt.Errorf("history: encode %s: %w", r.ID, err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(r.ID), val)
	})
}

func (b *Badger) Get(_ context.Context, id string) (*Record, error) {
	var val []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(id))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decode(val)
}

// List walks the record keys in reverse, which is newest first for
// UUIDv7 identifiers.
func (b *Badger) List(_ context.Context, limit int) ([]*Record, error) {
	limit = limitOrDefault(limit)
	var out []*Record
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = recordPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append(append([]byte{}, recordPrefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(recordPrefix) && len(out) < limit; it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			r, err := decode(val)
			if err != nil {
				return fmt.Errorf("history: decode %s: %w", it.Item().Key(), err)
			}
			out = append(out, r)
		}
		return nil
	})
	return out, err
}

func (b *Badger) Delete(_ context.Context, id string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(recordKey(id))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	return err
}

func (b *Badger) Close() error {
	return b.db.Close()
}

// slogLogger forwards badger's warnings and errors to slog and drops the
// info and debug chatter.
type slogLogger struct{ l *slog.Logger }

func (s slogLogger) Errorf(f string, v ...interface{})   { s.l.Error(fmt.Sprintf(f, v...)) }
func (s slogLogger) Warningf(f string, v ...interface{}) { s.l.Warn(fmt.Sprintf(f, v...)) }
func (slogLogger) Infof(string, ...interface{})          {}
func (slogLogger) Debugf(string, ...interface{})         {}
