// Package runlog persists a per-worker log of completed sync cycles in
// a local leveldb database. It is bookkeeping for operators, not part
// of the synchronization protocol: losing it affects no convergence
// guarantee.
package runlog

import (
	"encoding/json"
	"time"

	"github.com/rs/xid"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

// Log is an append-only record store keyed by time-sortable ids.
type Log struct {
	db *leveldb.DB
}

func open(s storage.Storage) (*Log, error) {
	db, err := leveldb.Open(s, nil)
	if err != nil {
		return nil, err
	}
	return &Log{db: db}, nil
}

// Open opens (or creates) the run log at the given directory.
func Open(path string) (*Log, error) {
	s, err := storage.OpenFile(path, false)
	if err != nil {
		return nil, err
	}
	return open(s)
}

// OpenInmem opens an in-memory run log, used in tests.
func OpenInmem() (*Log, error) {
	return open(storage.NewMemStorage())
}

// Append stores a record, assigning it an id and timestamp if unset.
func (l *Log) Append(r *Record) error {
	if r.ID == "" {
		r.ID = xid.New().String()
	}
	if r.Logged.IsZero() {
		r.Logged = time.Now()
	}
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return l.db.Put([]byte(r.ID), b, nil)
}

// Last returns up to n most recent records, newest first.
func (l *Log) Last(n int) ([]*Record, error) {
	iter := l.db.NewIterator(nil, nil)
	defer iter.Release()

	var out []*Record
	for ok := iter.Last(); ok && len(out) < n; ok = iter.Prev() {
		r := new(Record)
		if err := json.Unmarshal(iter.Value(), r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, iter.Error()
}

// Close closes the underlying database.
func (l *Log) Close() error {
	return l.db.Close()
}
