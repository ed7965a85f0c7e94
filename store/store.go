// Package store persists file analysis results in an embedded Badger
// database so past runs can be listed and fetched by ID.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"

	"github.com/Skymero/lavoe/analysis"
	"github.com/Skymero/lavoe/logging"
)

// ErrAnalysisNotFound is returned when no record exists for an ID.
var ErrAnalysisNotFound = errors.New("analysis not found")

const keyPrefix = "analysis:"

// Record is one persisted analysis with its assigned ID.
type Record struct {
	ID       string                 `json:"id"`
	SavedAt  time.Time              `json:"saved_at"`
	Analysis *analysis.FileAnalysis `json:"analysis"`
}

// Summary is the listing view of a record: enough to identify it
// without unmarshaling the full note set.
type Summary struct {
	ID        string    `json:"id"`
	File      string    `json:"file"`
	SavedAt   time.Time `json:"saved_at"`
	NoteCount int       `json:"note_count"`
}

// AnalysisStore persists and retrieves file analyses.
type AnalysisStore interface {
	SaveAnalysis(result *analysis.FileAnalysis) (string, error)
	GetAnalysis(id string) (*Record, error)
	ListAnalyses() ([]Summary, error)
	DeleteAnalysis(id string) error
	Close() error
}

type badgerStore struct {
	db     *badger.DB
	logger logging.Logger
}

// NewStore opens (creating if needed) a Badger-backed store rooted at
// the given directory.
func NewStore(path string) (AnalysisStore, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	opts := badger.DefaultOptions(filepath.Join(path, "badger"))
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	return &badgerStore{
		db: db,
		logger: logging.WithFields(logging.Fields{
			"component": "analysis_store",
		}),
	}, nil
}

// SaveAnalysis persists a result under a freshly assigned UUID and
// returns the ID.
func (s *badgerStore) SaveAnalysis(result *analysis.FileAnalysis) (string, error) {
	record := Record{
		ID:       uuid.New().String(),
		SavedAt:  time.Now().UTC(),
		Analysis: result,
	}

	data, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("marshal record: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+record.ID), data)
	})
	if err != nil {
		return "", fmt.Errorf("save analysis: %w", err)
	}

	s.logger.Debug("analysis saved", logging.Fields{
		"id":   record.ID,
		"file": result.File,
	})

	return record.ID, nil
}

// GetAnalysis fetches a record by ID.
func (s *badgerStore) GetAnalysis(id string) (*Record, error) {
	var record Record

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrAnalysisNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis: %w", err)
	}

	return &record, nil
}

// ListAnalyses returns a summary of every stored record.
func (s *badgerStore) ListAnalyses() ([]Summary, error) {
	var summaries []Summary

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(keyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var record Record
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &record)
			})
			if err != nil {
				return err
			}

			summary := Summary{
				ID:      record.ID,
				SavedAt: record.SavedAt,
			}
			if record.Analysis != nil {
				summary.File = record.Analysis.File
				summary.NoteCount = len(record.Analysis.Notes)
			}
			summaries = append(summaries, summary)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}

	return summaries, nil
}

// DeleteAnalysis removes a record by ID. Deleting a missing ID returns
// ErrAnalysisNotFound.
func (s *badgerStore) DeleteAnalysis(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: empty id", ErrAnalysisNotFound)
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		key := []byte(keyPrefix + id)
		if _, err := txn.Get(key); err != nil {
			return err
		}
		return txn.Delete(key)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s", ErrAnalysisNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("delete analysis: %w", err)
	}

	return nil
}

func (s *badgerStore) Close() error {
	return s.db.Close()
}
