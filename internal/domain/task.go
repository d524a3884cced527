package domain

import (
	"encoding/json"
	"time"
)

type TaskType string

const (
	TaskFullScrape TaskType = "full_scrape"
	TaskAIAnalysis TaskType = "ai_analysis"
	TaskDiscover   TaskType = "discover"
)

type TaskStatus string

const (
	TaskPending TaskStatus = "pending"
	TaskRunning TaskStatus = "running"
	TaskDone    TaskStatus = "done"
	TaskFailed  TaskStatus = "failed"
)

// TaskPayload is the free-form bag carried on a task. Known keys are
// promoted to fields; anything else the handler stashed stays in Extra.
type TaskPayload struct {
	BatchID      string `json:"batch_id,omitempty"`
	Hashtag      string `json:"hashtag,omitempty"`
	MinFollowers int    `json:"min_followers,omitempty"`
	TextOnly     bool   `json:"text_only,omitempty"`
}

// Task is the unit of background work stored in the Task Store.
type Task struct {
	ID           string
	BlogID       *string
	TaskType     TaskType
	Status       TaskStatus
	Priority     int
	Payload      TaskPayload
	Attempts     int
	MaxAttempts  int
	ErrorMessage string
	NextRetryAt  *time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
	CreatedAt    time.Time
}

// IsTerminal reports whether the task has reached done or failed.
func (t Task) IsTerminal() bool {
	return t.Status == TaskDone || t.Status == TaskFailed
}

// TaskFilter narrows List() queries. Zero values mean "no filter".
type TaskFilter struct {
	Status   TaskStatus
	TaskType TaskType
}

// MarshalPayload renders the known-key payload plus any extra keys.
func (p TaskPayload) MarshalPayload(extra map[string]any) (json.RawMessage, error) {
	merged := map[string]any{}
	for k, v := range extra {
		merged[k] = v
	}
	if p.BatchID != "" {
		merged["batch_id"] = p.BatchID
	}
	if p.Hashtag != "" {
		merged["hashtag"] = p.Hashtag
	}
	if p.MinFollowers != 0 {
		merged["min_followers"] = p.MinFollowers
	}
	if p.TextOnly {
		merged["text_only"] = p.TextOnly
	}
	return json.Marshal(merged)
}
