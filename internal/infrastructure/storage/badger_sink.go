package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"PaperIngest/internal/domain"
	"PaperIngest/internal/ports"
)

const (
	recordPrefix  = "record/"
	contentPrefix = "content/"
)

// BadgerSink keeps records in an embedded key-value store.
type BadgerSink struct {
	db     *badger.DB
	logger *slog.Logger
}

var _ ports.Sink = (*BadgerSink)(nil)

type badgerLogger struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLogger)(nil)

func (l *badgerLogger) Errorf(msg string, items ...any) {
	l.logger.Error(fmt.Sprintf(msg, items...))
}

func (l *badgerLogger) Warningf(msg string, items ...any) {
	l.logger.Warn(fmt.Sprintf(msg, items...))
}

func (l *badgerLogger) Infof(msg string, items ...any) {
	l.logger.Debug(fmt.Sprintf(msg, items...))
}

func (l *badgerLogger) Debugf(msg string, items ...any) {
	l.logger.Debug(fmt.Sprintf(msg, items...))
}

// OpenBadger opens the store at dir, creating it when missing. An empty dir
// opens an in-memory store.
func OpenBadger(dir string, logger *slog.Logger) (*BadgerSink, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create badger dir: %w", err)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts.Logger = &badgerLogger{logger: logger}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerSink{db: db, logger: logger}, nil
}

// Exists reports whether a record is stored under key.
func (s *BadgerSink) Exists(_ context.Context, key string) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(recordPrefix + key))
		return err
	})
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("badger get: %w", err)
	}
	return true, nil
}

// Write stores the record and, when present, the downloaded document.
func (s *BadgerSink) Write(ctx context.Context, key string, record domain.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(recordPrefix+key), body); err != nil {
			return err
		}
		if len(record.Content) > 0 {
			return txn.Set([]byte(contentPrefix+key), record.Content)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("badger set: %w", err)
	}
	return nil
}

// Get loads a stored record.
func (s *BadgerSink) Get(key string) (domain.Record, error) {
	var rec domain.Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(recordPrefix + key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return domain.Record{}, fmt.Errorf("badger load %s: %w", key, err)
	}
	return rec, nil
}

// Content loads the document stored next to a record, if any.
func (s *BadgerSink) Content(key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(contentPrefix + key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("badger load content %s: %w", key, err)
	}
	return out, nil
}

// Count returns the number of stored records.
func (s *BadgerSink) Count() (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(recordPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Close flushes and closes the store.
func (s *BadgerSink) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
