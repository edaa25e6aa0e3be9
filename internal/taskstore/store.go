package taskstore

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ollaterm/internal/db"
)

// SavedTask is one reusable task description.
type SavedTask struct {
	ID          int64
	Description string
	RunCount    int
	LastRunAt   time.Time
}

// RunRecord is one finished session in the run history.
type RunRecord struct {
	RunID       string
	Task        string
	Model       string
	Status      string
	Iterations  int
	FailReason  string
	StartedAt   time.Time
	CompletedAt time.Time
}

// Store wraps the shared database. Callers must not close the db.
type Store struct {
	gdb *gorm.DB
}

func NewStore(gdb *gorm.DB) (*Store, error) {
	if gdb == nil {
		return nil, errors.New("db is required")
	}
	return &Store{gdb: gdb}, nil
}

// SaveTask remembers a task description. Saving the same description twice
// is a no-op beyond bumping nothing; descriptions are unique.
func (s *Store) SaveTask(description string) error {
	if s == nil || s.gdb == nil {
		return errors.New("task store is not initialized")
	}
	desc := strings.TrimSpace(description)
	if desc == "" {
		return errors.New("task description is required")
	}
	row := db.SavedTask{
		Description: desc,
		CreatedAt:   time.Now().UTC().Unix(),
	}
	return s.gdb.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "description"}},
		DoNothing: true,
	}).Create(&row).Error
}

func (s *Store) ListTasks() ([]SavedTask, error) {
	if s == nil || s.gdb == nil {
		return nil, errors.New("task store is not initialized")
	}
	var rows []db.SavedTask
	if err := s.gdb.Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]SavedTask, 0, len(rows))
	for _, row := range rows {
		out = append(out, SavedTask{
			ID:          row.ID,
			Description: row.Description,
			RunCount:    row.RunCount,
			LastRunAt:   time.Unix(row.LastRunAt, 0).UTC(),
		})
	}
	return out, nil
}

func (s *Store) DeleteTask(id int64) error {
	if s == nil || s.gdb == nil {
		return errors.New("task store is not initialized")
	}
	return s.gdb.Delete(&db.SavedTask{}, id).Error
}

// TouchTask bumps the run bookkeeping for a saved description, if present.
func (s *Store) TouchTask(description string) error {
	if s == nil || s.gdb == nil {
		return errors.New("task store is not initialized")
	}
	now := time.Now().UTC().Unix()
	return s.gdb.Model(&db.SavedTask{}).
		Where("description = ?", strings.TrimSpace(description)).
		Updates(map[string]any{
			"last_run_at": now,
			"run_count":   gorm.Expr("run_count + 1"),
		}).Error
}

// RecordRun appends one finished session to the history and returns its id.
func (s *Store) RecordRun(rec RunRecord) (string, error) {
	if s == nil || s.gdb == nil {
		return "", errors.New("task store is not initialized")
	}
	if strings.TrimSpace(rec.Task) == "" {
		return "", errors.New("task is required")
	}
	runID := rec.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	row := db.TaskRun{
		RunID:       runID,
		Task:        rec.Task,
		Model:       rec.Model,
		Status:      rec.Status,
		Iterations:  rec.Iterations,
		FailReason:  rec.FailReason,
		StartedAt:   rec.StartedAt.UTC().Unix(),
		CompletedAt: rec.CompletedAt.UTC().Unix(),
	}
	if err := s.gdb.Create(&row).Error; err != nil {
		return "", err
	}
	return runID, nil
}

// RecentRuns lists the newest history entries first.
func (s *Store) RecentRuns(limit int) ([]RunRecord, error) {
	if s == nil || s.gdb == nil {
		return nil, errors.New("task store is not initialized")
	}
	if limit <= 0 {
		limit = 20
	}
	var rows []db.TaskRun
	if err := s.gdb.Order("started_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]RunRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, RunRecord{
			RunID:       row.RunID,
			Task:        row.Task,
			Model:       row.Model,
			Status:      row.Status,
			Iterations:  row.Iterations,
			FailReason:  row.FailReason,
			StartedAt:   time.Unix(row.StartedAt, 0).UTC(),
			CompletedAt: time.Unix(row.CompletedAt, 0).UTC(),
		})
	}
	return out, nil
}
