package jobs

import (
	"context"
	"testing"
)

func TestIsFinalAttempt(t *testing.T) {
	ctx := context.Background()
	if !IsFinalAttempt(ctx) {
		t.Error("unset attempt should be final")
	}
	if IsFinalAttempt(WithFinalAttempt(ctx, false)) {
		t.Error("retryable attempt reported final")
	}
	if !IsFinalAttempt(WithFinalAttempt(ctx, true)) {
		t.Error("final attempt not reported final")
	}
}
