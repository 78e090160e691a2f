package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yoockh/aicruiter/internal/cache"
	"github.com/yoockh/aicruiter/internal/models"
	"github.com/yoockh/aicruiter/internal/prompts"
	"github.com/yoockh/aicruiter/internal/providers/llm"
	pgrepo "github.com/yoockh/aicruiter/internal/repositories/postgres"
	"github.com/yoockh/aicruiter/internal/utils"
)

type CreateInterviewInput struct {
	JobPosition    string                     `json:"job_position"`
	JobDescription string                     `json:"job_description"`
	Duration       string                     `json:"duration"`
	InterviewTypes []string                   `json:"interview_types"`
	Questions      []models.InterviewQuestion `json:"question_list"`
}

type InterviewService interface {
	Create(ctx context.Context, userEmail string, in CreateInterviewInput) (*models.Interview, error)
	Get(ctx context.Context, id string) (*models.Interview, error)
	ListLatest(ctx context.Context, userEmail string, limit int) ([]models.Interview, error)
	GenerateQuestions(ctx context.Context, in prompts.QuestionInput) ([]prompts.Question, error)
}

type interviewService struct {
	repo     pgrepo.InterviewRepository
	cache    cache.Cache
	cacheTTL time.Duration
	gen      llm.Provider
}

// NewInterviewService wires the interview store. c and gen may be nil.
func NewInterviewService(repo pgrepo.InterviewRepository, c cache.Cache, cacheTTL time.Duration, gen llm.Provider) InterviewService {
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &interviewService{repo: repo, cache: c, cacheTTL: cacheTTL, gen: gen}
}

func (s *interviewService) Create(ctx context.Context, userEmail string, in CreateInterviewInput) (*models.Interview, error) {
	const op = "InterviewService.Create"

	userEmail = strings.ToLower(strings.TrimSpace(userEmail))
	in.JobPosition = strings.TrimSpace(in.JobPosition)
	if userEmail == "" || in.JobPosition == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user email and job_position are required", nil)
	}

	questions := make([]models.InterviewQuestion, 0, len(in.Questions))
	for _, q := range in.Questions {
		q.Question = strings.TrimSpace(q.Question)
		if q.Question != "" {
			questions = append(questions, q)
		}
	}
	if len(questions) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "at least one question is required", nil)
	}

	raw, err := json.Marshal(questions)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to encode questions", err)
	}

	row := &models.Interview{
		ID:             uuid.NewString(),
		UserEmail:      userEmail,
		JobPosition:    in.JobPosition,
		JobDescription: strings.TrimSpace(in.JobDescription),
		Duration:       strings.TrimSpace(in.Duration),
		InterviewTypes: in.InterviewTypes,
		QuestionList:   raw,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, row); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create interview", err)
	}
	return row, nil
}

func (s *interviewService) Get(ctx context.Context, id string) (*models.Interview, error) {
	const op = "InterviewService.Get"

	if _, err := uuid.Parse(id); err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "invalid interview id", err)
	}

	if s.cache != nil {
		var cached models.Interview
		if hit, err := s.cache.GetJSON(ctx, cache.InterviewKey(id), &cached); err == nil && hit {
			return &cached, nil
		}
	}

	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "interview not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get interview", err)
	}

	if s.cache != nil {
		_ = s.cache.SetJSON(ctx, cache.InterviewKey(id), row, s.cacheTTL)
	}
	return row, nil
}

func (s *interviewService) ListLatest(ctx context.Context, userEmail string, limit int) ([]models.Interview, error) {
	const op = "InterviewService.ListLatest"

	userEmail = strings.ToLower(strings.TrimSpace(userEmail))
	if userEmail == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user email is required", nil)
	}

	rows, err := s.repo.ListByUser(ctx, userEmail, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list interviews", err)
	}
	if rows == nil {
		rows = []models.Interview{}
	}
	return rows, nil
}

func (s *interviewService) GenerateQuestions(ctx context.Context, in prompts.QuestionInput) ([]prompts.Question, error) {
	const op = "InterviewService.GenerateQuestions"

	if strings.TrimSpace(in.JobPosition) == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "job_position is required", nil)
	}
	if s.gen == nil {
		return nil, utils.E(utils.CodeUnavailable, op, "question generator is not configured", nil)
	}

	answer, err := llm.Collect(ctx, s.gen, prompts.QuestionPrompt(in))
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "question generation failed", err)
	}

	qs, err := prompts.ParseQuestions(answer)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "model returned no usable questions", err)
	}
	return qs, nil
}
