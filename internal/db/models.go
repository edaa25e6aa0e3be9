package db

// SavedTask is a reusable task description. Only the description string is
// persisted; live session state never touches the database.
type SavedTask struct {
	ID          int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Description string `gorm:"column:description;not null;uniqueIndex"`
	CreatedAt   int64  `gorm:"column:created_at;not null;default:0"`
	LastRunAt   int64  `gorm:"column:last_run_at;not null;default:0"`
	RunCount    int    `gorm:"column:run_count;not null;default:0"`
}

func (SavedTask) TableName() string { return "saved_tasks" }

// TaskRun is one finished agent session, recorded for history.
type TaskRun struct {
	RunID       string `gorm:"column:run_id;primaryKey"`
	Task        string `gorm:"column:task;not null;default:''"`
	Model       string `gorm:"column:model;not null;default:''"`
	Status      string `gorm:"column:status;not null;default:''"`
	Iterations  int    `gorm:"column:iterations;not null;default:0"`
	FailReason  string `gorm:"column:fail_reason;not null;default:''"`
	StartedAt   int64  `gorm:"column:started_at;not null;default:0"`
	CompletedAt int64  `gorm:"column:completed_at;not null;default:0"`
}

func (TaskRun) TableName() string { return "task_runs" }
