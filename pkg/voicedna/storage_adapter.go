package voicedna

import (
	"github.com/himanishpuri/VoiceDNA/internal/storage"
	"github.com/himanishpuri/VoiceDNA/pkg/models"
)

// storageAdapter adapts the storage.DBClient to implement the Storage interface.
type storageAdapter struct {
	db *storage.DBClient
}

// NewSQLiteStorage opens (or creates) the run history database at dbPath.
// An empty dbPath falls back to $VOICEDNA_DB_PATH, then voicedna.sqlite3.
func NewSQLiteStorage(dbPath string) (Storage, error) {
	var (
		db  *storage.DBClient
		err error
	)
	if dbPath == "" {
		db, err = storage.NewDBClient()
	} else {
		db, err = storage.NewDBClientWithPath(dbPath)
	}
	if err != nil {
		return nil, err
	}
	return &storageAdapter{db: db}, nil
}

func (s *storageAdapter) RecordRun(run models.Run) (string, error) {
	return s.db.RecordRun(run)
}

func (s *storageAdapter) GetRun(id string) (*models.Run, error) {
	return s.db.GetRun(id)
}

func (s *storageAdapter) ListRuns(limit int) ([]models.Run, error) {
	return s.db.ListRuns(limit)
}

func (s *storageAdapter) DeleteRun(id string) error {
	return s.db.DeleteRun(id)
}

func (s *storageAdapter) CountRuns(state string) (int64, error) {
	return s.db.CountRuns(state)
}

func (s *storageAdapter) Close() error {
	return s.db.Close()
}
