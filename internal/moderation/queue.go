package moderation

import (
	"context"

	"zawaj/backend/internal/analysis"
	"zawaj/backend/internal/apperr"
	"zawaj/backend/internal/auth"
	"zawaj/backend/internal/models"
	"zawaj/backend/internal/paging"
	"zawaj/backend/internal/storage"
)

// MessageItem is a queued chat message with its participants.
type MessageItem struct {
	models.MessageView
	Sender   models.UserRef `json:"sender"`
	Receiver models.UserRef `json:"receiver"`
}

// ReportItem is a queued report with both members and its severity.
type ReportItem struct {
	models.Report
	Reporter     models.UserRef `json:"reporter"`
	ReportedUser models.UserRef `json:"reportedUser"`
	Severity     int            `json:"severity"`
}

// ListPending returns one page of the queue for resourceType. Items are
// requests, messages or reports with denormalized member references; rows
// whose members are gone are not part of the queue.
func (s *Service) ListPending(ctx context.Context, actor auth.Session, resourceType string, filter storage.ModerationFilter, p paging.Params) (any, int64, error) {
	if err := requireStaff(actor); err != nil {
		return nil, 0, err
	}

	switch resourceType {
	case ResourceRequests:
		return s.pendingRequests(ctx, filter, p)
	case ResourceMessages:
		return s.pendingMessages(ctx, filter, p)
	case ResourceReports:
		return s.pendingReports(ctx, filter, p)
	default:
		return nil, 0, apperr.Validation("invalid resource type",
			apperr.FieldError{Field: "resourceType", Message: "must be one of: messages, reports, requests"})
	}
}

func (s *Service) pendingRequests(ctx context.Context, filter storage.ModerationFilter, p paging.Params) ([]models.RequestView, int64, error) {
	rows, total, err := s.store.ListPendingReview(ctx, filter, p)
	if err != nil {
		return nil, 0, err
	}
	out := make([]models.RequestView, 0, len(rows))
	for i := range rows {
		if rows[i].Sender == nil || rows[i].Receiver == nil {
			continue
		}
		out = append(out, rows[i].View())
	}
	return out, total, nil
}

func (s *Service) pendingMessages(ctx context.Context, filter storage.ModerationFilter, p paging.Params) ([]MessageItem, int64, error) {
	rows, total, err := s.store.ListPendingMessages(ctx, filter, p)
	if err != nil {
		return nil, 0, err
	}
	out := make([]MessageItem, 0, len(rows))
	for i := range rows {
		m := &rows[i]
		if m.Sender == nil || m.Receiver == nil {
			continue
		}
		out = append(out, MessageItem{
			MessageView: m.View(),
			Sender:      m.Sender.Ref(),
			Receiver:    m.Receiver.Ref(),
		})
	}
	return out, total, nil
}

func (s *Service) pendingReports(ctx context.Context, filter storage.ModerationFilter, p paging.Params) ([]ReportItem, int64, error) {
	rows, total, err := s.store.ListPendingReports(ctx, filter, p)
	if err != nil {
		return nil, 0, err
	}

	out := make([]ReportItem, 0, len(rows))
	for i := range rows {
		r := &rows[i]
		if r.Reporter == nil || r.ReportedUser == nil {
			continue
		}
		out = append(out, ReportItem{
			Report:       *r,
			Reporter:     r.Reporter.Ref(),
			ReportedUser: r.ReportedUser.Ref(),
			Severity:     analysis.Severity(r.Reason),
		})
	}
	return out, total, nil
}
