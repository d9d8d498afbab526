package audit

import (
	"time"

	"gorm.io/datatypes"
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	StatusStarted   RunStatus = "started"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
)

// Run types recorded by the sync feature.
const (
	RunTypePull = "pull"
	RunTypePush = "push"
)

// AbandonedMessage is reported for runs whose process exited before completion.
const AbandonedMessage = "run abandoned: process exited before completion"

// Counts are the aggregate item counts of a run.
type Counts struct {
	Processed int `json:"processed"`
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Deleted   int `json:"deleted"`
	Failed    int `json:"failed"`
}

// Run is one sync run.
type Run struct {
	ID           string            `gorm:"type:varchar(36);primaryKey" json:"id"`
	RunType      string            `gorm:"type:varchar(32);index" json:"runType"`
	Status       RunStatus         `gorm:"type:varchar(16);index" json:"status"`
	StartedAt    time.Time         `gorm:"index" json:"startedAt"`
	CompletedAt  *time.Time        `json:"completedAt,omitempty"`
	Counts       Counts            `gorm:"embedded;embeddedPrefix:count_" json:"counts"`
	ErrorMessage string            `gorm:"type:text" json:"errorMessage,omitempty"`
	Metadata     datatypes.JSONMap `json:"metadata,omitempty"`
	InstanceID   string            `gorm:"type:varchar(36);index" json:"instanceId"`
}

// TableName overrides the table name.
func (Run) TableName() string {
	return "sync_runs"
}

// Item is the outcome of one item of a run.
type Item struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RunID     string    `gorm:"type:varchar(36);index" json:"runId"`
	ItemID    string    `gorm:"type:varchar(64)" json:"itemId"`
	Name      string    `gorm:"type:varchar(255)" json:"name,omitempty"`
	Outcome   string    `gorm:"type:varchar(16)" json:"outcome"`
	Message   string    `gorm:"type:text" json:"message,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName overrides the table name.
func (Item) TableName() string {
	return "sync_run_items"
}

// ItemEntry is what callers log for one item.
type ItemEntry struct {
	ItemID  string
	Name    string
	Outcome string
	Message string
}
