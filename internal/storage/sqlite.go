// Package storage records conversion runs in a local SQLite database.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/himanishpuri/VoiceDNA/pkg/models"
	"github.com/himanishpuri/VoiceDNA/pkg/utils"
)

const DefaultDBFile = "voicedna.sqlite3"
const errDBClientNil = "db client is nil"

// ErrRunNotFound is returned for unknown run IDs.
var ErrRunNotFound = errors.New("run not found")

type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

type Run struct {
	ID         string `gorm:"primaryKey;type:varchar(36)"`
	ModelPath  string `gorm:"index:idx_run_model"`
	IndexPath  string
	InputPath  string
	OutputPath string
	Semitones  int
	Device     string
	State      string `gorm:"index:idx_run_state"`
	FailedAt   string
	Error      string
	Converted  bool
	InputMs    int
	OutputMs   int
	ElapsedMs  int
	Warnings   []RunWarning `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time    `gorm:"index:idx_run_created"`
}

type RunWarning struct {
	ID      uint   `gorm:"primaryKey;autoIncrement"`
	RunID   string `gorm:"type:varchar(36);index:idx_warning_run"`
	Seq     int
	Message string
}

func NewDBClient() (*DBClient, error) {
	dbPath := os.Getenv("VOICEDNA_DB_PATH")
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	return NewDBClientWithPath(dbPath)
}

func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := utils.MakeDir(dir); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_pragma=foreign_keys(1)"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Run{}, &RunWarning{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB}, nil
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// RecordRun stores run with its warnings and returns the new run ID. A
// non-empty run.ID is kept.
func (c *DBClient) RecordRun(run models.Run) (string, error) {
	if c == nil || c.DB == nil {
		return "", errors.New(errDBClientNil)
	}

	id := run.ID
	if id == "" {
		id = utils.GenerateUUID()
	}

	row := Run{
		ID:         id,
		ModelPath:  run.ModelPath,
		IndexPath:  run.IndexPath,
		InputPath:  run.InputPath,
		OutputPath: run.OutputPath,
		Semitones:  run.Semitones,
		Device:     run.Device,
		State:      run.State,
		FailedAt:   run.FailedAt,
		Error:      run.Error,
		Converted:  run.Converted,
		InputMs:    run.InputMs,
		OutputMs:   run.OutputMs,
		ElapsedMs:  run.ElapsedMs,
		CreatedAt:  run.CreatedAt,
	}
	for i, w := range run.Warnings {
		row.Warnings = append(row.Warnings, RunWarning{RunID: id, Seq: i, Message: w})
	}

	if err := c.DB.Create(&row).Error; err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}
	return id, nil
}

// GetRun returns the run with the given ID.
func (c *DBClient) GetRun(id string) (*models.Run, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}

	var row Run
	err := c.DB.Preload("Warnings", func(db *gorm.DB) *gorm.DB {
		return db.Order("seq ASC")
	}).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying run: %w", err)
	}

	run := toModel(row)
	return &run, nil
}

// ListRuns returns the most recent runs first. A non-positive limit returns
// every run.
func (c *DBClient) ListRuns(limit int) ([]models.Run, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}

	q := c.DB.Preload("Warnings", func(db *gorm.DB) *gorm.DB {
		return db.Order("seq ASC")
	}).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []Run
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}

	runs := make([]models.Run, len(rows))
	for i, row := range rows {
		runs[i] = toModel(row)
	}
	return runs, nil
}

// DeleteRun removes a run and its warnings.
func (c *DBClient) DeleteRun(id string) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}

	return c.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ?", id).Delete(&RunWarning{}).Error; err != nil {
			return fmt.Errorf("deleting warnings: %w", err)
		}
		res := tx.Where("id = ?", id).Delete(&Run{})
		if res.Error != nil {
			return fmt.Errorf("deleting run: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return nil
	})
}

// CountRuns returns the number of recorded runs, optionally filtered by
// final state.
func (c *DBClient) CountRuns(state string) (int64, error) {
	if c == nil || c.DB == nil {
		return 0, errors.New(errDBClientNil)
	}

	var count int64
	q := c.DB.Model(&Run{})
	if state != "" {
		q = q.Where("state = ?", state)
	}
	if err := q.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting runs: %w", err)
	}
	return count, nil
}

func toModel(row Run) models.Run {
	run := models.Run{
		ID:         row.ID,
		ModelPath:  row.ModelPath,
		IndexPath:  row.IndexPath,
		InputPath:  row.InputPath,
		OutputPath: row.OutputPath,
		Semitones:  row.Semitones,
		Device:     row.Device,
		State:      row.State,
		FailedAt:   row.FailedAt,
		Error:      row.Error,
		Converted:  row.Converted,
		InputMs:    row.InputMs,
		OutputMs:   row.OutputMs,
		ElapsedMs:  row.ElapsedMs,
		CreatedAt:  row.CreatedAt,
	}
	for _, w := range row.Warnings {
		run.Warnings = append(run.Warnings, w.Message)
	}
	return run
}
