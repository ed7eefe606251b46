package jobqueue

import (
	"encoding/json"
	"time"
)

type JobType string

const (
	JobTypePremiumActivatedEmail JobType = "premium_activated_email"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusFailed     JobStatus = "failed"
)

// Job is stored as JSON under job:<id>; the lists only carry ids.
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// PremiumActivatedEmailPayload tells the subscriber their premium access is live.
type PremiumActivatedEmailPayload struct {
	SubscriberID  uint      `json:"subscriber_id"`
	TransactionID string    `json:"transaction_id"`
	Amount        string    `json:"amount"`
	Tier          string    `json:"tier"`
	ExpiryDate    time.Time `json:"expiry_date"`
}

func (p PremiumActivatedEmailPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"subscriber_id":  p.SubscriberID,
		"transaction_id": p.TransactionID,
		"amount":         p.Amount,
		"tier":           p.Tier,
		"expiry_date":    p.ExpiryDate.Format(time.RFC3339),
	}
}

// PremiumActivatedEmailPayloadFromMap reads a payload back after its JSON round trip.
func PremiumActivatedEmailPayloadFromMap(data map[string]interface{}) (*PremiumActivatedEmailPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload PremiumActivatedEmailPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// IsRetryable reports whether a failed job has attempts left.
func (j *Job) IsRetryable() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.UpdatedAt = now
	j.ProcessedAt = &now
}

// MarkAsFailed records one failed attempt.
func (j *Job) MarkAsFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.UpdatedAt = time.Now()
	j.ErrorMsg = errorMsg
	j.RetryCount++
}
