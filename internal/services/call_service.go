package services

import (
	"context"
	"errors"
	"time"

	"github.com/yoockh/aicruiter/internal/models"
	mongorepo "github.com/yoockh/aicruiter/internal/repositories/mongo"
	"github.com/yoockh/aicruiter/internal/utils"
)

type CallService interface {
	Start(ctx context.Context, rec *models.CallRecord) error
	End(ctx context.Context, callID string, endedAt time.Time, reason, errMsg string) (*models.CallRecord, error)
	Get(ctx context.Context, callID string) (*models.CallRecord, error)
	ListByInterview(ctx context.Context, interviewID string, limit int64) ([]models.CallRecord, error)
}

type callService struct {
	calls mongorepo.CallRepository
}

func NewCallService(calls mongorepo.CallRepository) CallService {
	return &callService{calls: calls}
}

func (s *callService) Start(ctx context.Context, rec *models.CallRecord) error {
	const op = "CallService.Start"

	if rec == nil || rec.CallID == "" || rec.InterviewID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "call_id and interview_id are required", nil)
	}
	rec.Status = "active"
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now().UTC()
	}

	if err := s.calls.Create(ctx, rec); err != nil {
		if errors.Is(err, utils.ErrConflict) {
			return utils.E(utils.CodeConflict, op, "call already recorded", err)
		}
		return utils.E(utils.CodeInternal, op, "failed to create call record", err)
	}
	return nil
}

func (s *callService) Get(ctx context.Context, callID string) (*models.CallRecord, error) {
	const op = "CallService.Get"

	if callID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "call_id is required", nil)
	}

	out, err := s.calls.GetByCallID(ctx, callID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "call not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get call", err)
	}
	return out, nil
}

func (s *callService) End(ctx context.Context, callID string, endedAt time.Time, reason, errMsg string) (*models.CallRecord, error) {
	const op = "CallService.End"

	rec, err := s.Get(ctx, callID)
	if err != nil {
		return nil, err
	}
	if rec.Status == "ended" {
		return rec, nil
	}

	endedAt = endedAt.UTC()
	dur := int64(endedAt.Sub(rec.StartedAt).Seconds())
	if dur < 0 {
		dur = 0
	}

	if err := s.calls.End(ctx, callID, endedAt, dur, reason, errMsg); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to end call", err)
	}

	rec.Status = "ended"
	rec.EndedAt = &endedAt
	rec.DurationSeconds = dur
	rec.EndReason = reason
	rec.Error = errMsg
	return rec, nil
}

func (s *callService) ListByInterview(ctx context.Context, interviewID string, limit int64) ([]models.CallRecord, error) {
	const op = "CallService.ListByInterview"

	if interviewID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "interview_id is required", nil)
	}
	out, err := s.calls.ListByInterview(ctx, interviewID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list calls", err)
	}
	return out, nil
}
