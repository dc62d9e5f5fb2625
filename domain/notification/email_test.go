package notification

import (
	"errors"
	"testing"
	"time"
)

func TestEmailRequest_Validate(t *testing.T) {
	newValid := func() EmailRequest {
		return EmailRequest{
			To: []Recipient{{Name: "John Doe", Address: "john@example.com"}},
			Event: &CompletionEvent{
				JobID:      "01JB0000000000000000000000",
				Symbol:     "AAPL",
				URL:        "https://storage.googleapis.com/bucket/renders/AAPL_abc123.mp4",
				FinishedAt: time.Date(2025, 12, 28, 10, 6, 0, 0, time.UTC),
			},
		}
	}

	tests := []struct {
		name    string
		modify  func(*EmailRequest)
		wantErr error
	}{
		{
			name:    "valid request",
			modify:  func(r *EmailRequest) {},
			wantErr: nil,
		},
		{
			name:    "no recipients",
			modify:  func(r *EmailRequest) { r.To = nil },
			wantErr: ErrNoRecipients,
		},
		{
			name:    "empty recipients",
			modify:  func(r *EmailRequest) { r.To = []Recipient{} },
			wantErr: ErrNoRecipients,
		},
		{
			name:    "recipient without address",
			modify:  func(r *EmailRequest) { r.To = []Recipient{{Name: "John"}} },
			wantErr: ErrInvalidRecipient,
		},
		{
			name:    "missing event",
			modify:  func(r *EmailRequest) { r.Event = nil },
			wantErr: ErrNoEvent,
		},
		{
			name:    "event without job id",
			modify:  func(r *EmailRequest) { r.Event.JobID = "" },
			wantErr: ErrNoEvent,
		},
		{
			name:    "failed render is still reportable",
			modify:  func(r *EmailRequest) { r.Event.URL = ""; r.Event.Error = "ffmpeg error: boom" },
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newValid()
			tt.modify(&req)
			err := req.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCompletionEvent_Succeeded(t *testing.T) {
	if !(&CompletionEvent{URL: "https://example.com/a.mp4"}).Succeeded() {
		t.Error("expected event without error to be successful")
	}
	if (&CompletionEvent{Error: "upload failed"}).Succeeded() {
		t.Error("expected event with error to be unsuccessful")
	}
}
