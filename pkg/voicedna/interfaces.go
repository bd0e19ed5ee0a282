package voicedna

import (
	"context"

	"github.com/himanishpuri/VoiceDNA/pkg/models"
)

type Converter interface {
	Convert(ctx context.Context, req Request) (*Result, error)
	Inspect(modelPath, device string) (*ModelInfo, error)
	History(limit int) ([]models.Run, error)
	DeleteRun(id string) error
	CountRuns(state string) (int64, error)
	Close() error
}

type Storage interface {
	RecordRun(run models.Run) (string, error)
	GetRun(id string) (*models.Run, error)
	ListRuns(limit int) ([]models.Run, error)
	DeleteRun(id string) error
	CountRuns(state string) (int64, error)
	Close() error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
