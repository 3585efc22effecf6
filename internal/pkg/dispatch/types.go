package dispatch

import (
	"encoding/json"
	"time"
)

// JobType defines the type of side-effect job
type JobType string

const (
	JobTypeNotification       JobType = "notification"
	JobTypeEntitlementRefresh JobType = "entitlement_refresh"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background side-effect job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// NotificationJobPayload contains the payload for notification jobs
type NotificationJobPayload struct {
	UserID      string `json:"user_id"`
	Kind        string `json:"kind"`
	Content     string `json:"content"`
	ReferenceID string `json:"reference_id"`
}

// ToMap converts the payload to a map for storage
func (p NotificationJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"user_id":      p.UserID,
		"kind":         p.Kind,
		"content":      p.Content,
		"reference_id": p.ReferenceID,
	}
}

// NotificationJobPayloadFromMap creates a payload from a map
func NotificationJobPayloadFromMap(data map[string]interface{}) (*NotificationJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload NotificationJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// EntitlementRefreshJobPayload contains the payload for entitlement refresh jobs
type EntitlementRefreshJobPayload struct {
	UserID       string `json:"user_id"`
	PlanID       int    `json:"plan_id"`
	MembershipID string `json:"membership_id"`
}

// ToMap converts the payload to a map for storage
func (p EntitlementRefreshJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"user_id":       p.UserID,
		"plan_id":       p.PlanID,
		"membership_id": p.MembershipID,
	}
}

// EntitlementRefreshJobPayloadFromMap creates a payload from a map
func EntitlementRefreshJobPayloadFromMap(data map[string]interface{}) (*EntitlementRefreshJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload EntitlementRefreshJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// DedupKey identifies a side effect for exactly-once delivery per day.
// Jobs sharing a key within the dedup window are dropped at enqueue time.
func (p NotificationJobPayload) DedupKey() string {
	return string(JobTypeNotification) + ":" + p.UserID + ":" + p.Kind + ":" + p.ReferenceID
}

func (p EntitlementRefreshJobPayload) DedupKey() string {
	return string(JobTypeEntitlementRefresh) + ":" + p.UserID + ":" + p.MembershipID
}

// IsRetryable checks if the job can be retried
func (j *Job) IsRetryable() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// MarkAsProcessing updates the job status to processing
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.UpdatedAt = now
	j.ProcessedAt = &now
}

// MarkAsCompleted updates the job status to completed
func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.UpdatedAt = now
	j.CompletedAt = &now
	j.ErrorMsg = ""
}

// MarkAsFailed updates the job status to failed
func (j *Job) MarkAsFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.UpdatedAt = time.Now()
	j.ErrorMsg = errorMsg
	j.RetryCount++
}

// MarkAsRetrying updates the job status to retrying
func (j *Job) MarkAsRetrying() {
	j.Status = JobStatusRetrying
	j.UpdatedAt = time.Now()
}
