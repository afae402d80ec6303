package event

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lotuseval/placement-backend/internal/model"
	"github.com/rs/zerolog"
)

func TestDisabledPublisherIsNoop(t *testing.T) {
	p, err := NewEventPublisher("", "placement.events", zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEventPublisher() error = %v", err)
	}

	a := &model.ApprovalRequest{ID: uuid.New(), Status: model.ApprovalPending}
	if err := p.ApprovalRequested(context.Background(), a); err != nil {
		t.Errorf("ApprovalRequested() error = %v", err)
	}
	if err := p.ExamFinished(context.Background(), model.ExamResult{ID: uuid.New()}); err != nil {
		t.Errorf("ExamFinished() error = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestApprovalEventTime(t *testing.T) {
	created := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	decided := created.Add(10 * time.Minute)

	tests := []struct {
		name      string
		decidedAt *time.Time
		want      time.Time
	}{
		{"pending uses creation", nil, created},
		{"decided uses decision", &decided, decided},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &model.ApprovalRequest{
				ID:        uuid.New(),
				ExamType:  "Pharmacist (New Hire)",
				Candidate: model.Candidate{Name: "Mona Adel", Phone: "01012345678"},
				Status:    model.ApprovalApproved,
				CreatedAt: created,
				DecidedAt: tt.decidedAt,
			}
			ev := approvalEvent(RouteApprovalDecided, a)
			if !ev.OccurredAt.Equal(tt.want) {
				t.Errorf("OccurredAt = %v, want %v", ev.OccurredAt, tt.want)
			}
			if ev.RequestID != a.ID.String() || ev.Phone != a.Candidate.Phone || ev.Status != "approved" {
				t.Errorf("event = %+v", ev)
			}
		})
	}
}
