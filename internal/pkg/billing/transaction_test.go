package billing

import (
	"testing"

	"github.com/mapforge-io/mapforge/app/models"
)

func TestApplyEventFromPending(t *testing.T) {
	cases := []struct {
		event TransactionEvent
		want  string
	}{
		{EventConfirmSuccess, models.TransactionStatusSuccess},
		{EventConfirmFailure, models.TransactionStatusFailed},
		{EventCancelRequested, models.TransactionStatusCancelled},
	}

	for _, c := range cases {
		result, err := ApplyEvent(models.TransactionStatusPending, c.event)
		if err != nil {
			t.Fatalf("ApplyEvent(pending, %s) returned error: %v", c.event, err)
		}
		if !result.Applied {
			t.Errorf("ApplyEvent(pending, %s): expected Applied", c.event)
		}
		if result.NextStatus != c.want {
			t.Errorf("ApplyEvent(pending, %s): got status %s, want %s", c.event, result.NextStatus, c.want)
		}
	}
}

func TestApplyEventIdempotentReplay(t *testing.T) {
	cases := []struct {
		status string
		event  TransactionEvent
	}{
		{models.TransactionStatusSuccess, EventConfirmSuccess},
		{models.TransactionStatusFailed, EventConfirmFailure},
		{models.TransactionStatusCancelled, EventCancelRequested},
	}

	for _, c := range cases {
		result, err := ApplyEvent(c.status, c.event)
		if err != nil {
			t.Fatalf("replaying %s on %s returned error: %v", c.event, c.status, err)
		}
		if !result.Idempotent {
			t.Errorf("replaying %s on %s: expected Idempotent", c.event, c.status)
		}
		if result.Applied {
			t.Errorf("replaying %s on %s: must not re-apply", c.event, c.status)
		}
		if result.NextStatus != c.status {
			t.Errorf("replaying %s on %s: status changed to %s", c.event, c.status, result.NextStatus)
		}
	}
}

func TestApplyEventContradictionPreservesStatus(t *testing.T) {
	cases := []struct {
		status string
		event  TransactionEvent
	}{
		{models.TransactionStatusSuccess, EventConfirmFailure},
		{models.TransactionStatusSuccess, EventCancelRequested},
		{models.TransactionStatusFailed, EventConfirmSuccess},
		{models.TransactionStatusCancelled, EventConfirmSuccess},
	}

	for _, c := range cases {
		result, err := ApplyEvent(c.status, c.event)
		if err == nil {
			t.Fatalf("%s on %s: expected state conflict", c.event, c.status)
		}
		if err.Type != ErrorTypeStateConflict {
			t.Errorf("%s on %s: got error type %d, want state conflict", c.event, c.status, err.Type)
		}
		if result.NextStatus != c.status {
			t.Errorf("%s on %s: terminal status must be preserved, got %s", c.event, c.status, result.NextStatus)
		}
	}
}

func TestApplyEventUnknownEvent(t *testing.T) {
	_, err := ApplyEvent(models.TransactionStatusPending, TransactionEvent("refund"))
	if err == nil || err.Type != ErrorTypeValidation {
		t.Fatalf("expected validation error for unknown event, got %v", err)
	}
}
