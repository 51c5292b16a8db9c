package sendqueue

import (
	"testing"
	"time"

	"github.com/jcgurango/meremail/internal/store"
)

func TestEligibleFirstAttempt(t *testing.T) {
	m := store.Message{SendAttempts: 0}
	if !eligible(m, time.Now()) {
		t.Error("a message with no prior attempts is always eligible")
	}
}

func TestEligibleAttemptsExhausted(t *testing.T) {
	m := store.Message{SendAttempts: maxSendAttempts}
	if eligible(m, time.Now()) {
		t.Error("a message past maxSendAttempts must not be retried")
	}
}

func TestEligibleBackoffWindow(t *testing.T) {
	now := time.Now()
	last := now.Add(-30 * time.Second)
	m := store.Message{SendAttempts: 1, LastSendAttemptAt: &last}

	if eligible(m, now) {
		t.Error("a message should not be eligible before its backoff window elapses")
	}

	later := now.Add(2 * time.Minute)
	if !eligible(m, later) {
		t.Error("a message should be eligible once its backoff window elapses")
	}
}

func TestEligibleLastPermittedRetryAfterBackoff(t *testing.T) {
	now := time.Now()
	last := now.Add(-10 * time.Hour)
	m := store.Message{SendAttempts: maxSendAttempts - 1, LastSendAttemptAt: &last}

	if !eligible(m, now) {
		t.Error("the last permitted retry should be eligible once its backoff window has elapsed")
	}
}
