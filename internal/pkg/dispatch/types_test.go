package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationPayloadRoundTrip(t *testing.T) {
	payload := NotificationJobPayload{
		UserID:      "user-1",
		Kind:        "payment_success",
		Content:     "Your payment was successful.",
		ReferenceID: "tx-1",
	}

	restored, err := NotificationJobPayloadFromMap(payload.ToMap())
	require.NoError(t, err)
	assert.Equal(t, payload, *restored)
}

func TestEntitlementPayloadRoundTrip(t *testing.T) {
	payload := EntitlementRefreshJobPayload{
		UserID:       "user-1",
		PlanID:       3,
		MembershipID: "m-1",
	}

	restored, err := EntitlementRefreshJobPayloadFromMap(payload.ToMap())
	require.NoError(t, err)
	assert.Equal(t, payload, *restored)
}

func TestDedupKeysDistinguishEffects(t *testing.T) {
	a := NotificationJobPayload{UserID: "user-1", Kind: "payment_success", ReferenceID: "tx-1"}
	b := NotificationJobPayload{UserID: "user-1", Kind: "payment_success", ReferenceID: "tx-2"}
	c := NotificationJobPayload{UserID: "user-1", Kind: "payment_failed", ReferenceID: "tx-1"}

	assert.NotEqual(t, a.DedupKey(), b.DedupKey())
	assert.NotEqual(t, a.DedupKey(), c.DedupKey())
	assert.Equal(t, a.DedupKey(), NotificationJobPayload{UserID: "user-1", Kind: "payment_success", ReferenceID: "tx-1"}.DedupKey())
}

func TestJobLifecycleMarks(t *testing.T) {
	job := &Job{
		ID:         "j-1",
		Type:       JobTypeNotification,
		Status:     JobStatusPending,
		CreatedAt:  time.Now(),
		MaxRetries: DefaultMaxRetries,
	}

	job.MarkAsProcessing()
	assert.Equal(t, JobStatusProcessing, job.Status)
	require.NotNil(t, job.ProcessedAt)

	job.MarkAsFailed("boom")
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, 1, job.RetryCount)
	assert.True(t, job.IsRetryable())

	job.MarkAsRetrying()
	assert.Equal(t, JobStatusRetrying, job.Status)

	job.MarkAsCompleted()
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.Empty(t, job.ErrorMsg)
	require.NotNil(t, job.CompletedAt)
}

func TestJobExhaustsRetries(t *testing.T) {
	job := &Job{Status: JobStatusPending, MaxRetries: 2}

	job.MarkAsFailed("first")
	assert.True(t, job.IsRetryable())
	job.MarkAsFailed("second")
	assert.False(t, job.IsRetryable())
}
