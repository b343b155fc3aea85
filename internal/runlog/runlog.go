// Package runlog records pipeline runs in a bbolt database.
package runlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

// ErrNotFound indicates that no run exists with the requested ID.
var ErrNotFound = errors.New("run not found")

var runsBucket = []byte("runs")

// Record describes a single pipeline run.
type Record struct {
	// ID is assigned by Add.
	ID string `json:"id"`

	// Transform is the name of the transform which was applied.
	Transform string `json:"transform"`

	// Source and Sink describe where data was read from and written to.
	Source string `json:"source"`
	Sink   string `json:"sink"`

	BytesIn  int64 `json:"bytes_in"`
	BytesOut int64 `json:"bytes_out"`

	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`

	// Error is the error the run failed with, if any.
	Error string `json:"error,omitempty"`
}

// Log is a persistent log of runs.
type Log struct {
	db *bbolt.DB
}

// Open opens the run log at path, creating it if it does not exist.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create run log directory: %w", err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open run log: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(runsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create runs bucket: %w", err)
	}

	return &Log{db: db}, nil
}

// Add stores a record and returns its newly assigned ID.
// IDs are time-ordered, so List returns runs in the order they were added.
func (l *Log) Add(rec Record) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate run ID: %w", err)
	}
	rec.ID = id.String()

	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("failed to encode run: %w", err)
	}

	err = l.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(runsBucket).Put([]byte(rec.ID), data)
	})
	if err != nil {
		return "", fmt.Errorf("failed to store run: %w", err)
	}
	return rec.ID, nil
}

// Get looks up a run by ID.
func (l *Log) Get(id string) (Record, error) {
	var rec Record
	err := l.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(runsBucket).Get([]byte(id))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &rec)
	})
	return rec, err
}

// List returns all recorded runs, oldest first.
func (l *Log) List() ([]Record, error) {
	var recs []Record
	err := l.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(runsBucket).ForEach(func(k, v []byte) error {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("corrupt run %q: %w", k, err)
			}
			recs = append(recs, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return recs, nil
}

// Close closes the database.
func (l *Log) Close() error {
	return l.db.Close()
}
