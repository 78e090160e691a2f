package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/aicruiter/internal/models"
	"github.com/yoockh/aicruiter/internal/prompts"
	"github.com/yoockh/aicruiter/internal/services"
	"github.com/yoockh/aicruiter/internal/utils"
)

type InterviewHandler struct {
	interviews services.InterviewService
	calls      services.CallService
}

func NewInterviewHandler(interviews services.InterviewService, calls services.CallService) *InterviewHandler {
	return &InterviewHandler{interviews: interviews, calls: calls}
}

func (h *InterviewHandler) Create(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req services.CreateInterviewInput
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "InterviewHandler.Create", "invalid request body", err))
		return
	}

	iv, err := h.interviews.Create(c.Request.Context(), id.Email, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, iv)
}

// ListLatest backs the dashboard's "Created Interview" list.
func (h *InterviewHandler) ListLatest(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}

	rows, err := h.interviews.ListLatest(c.Request.Context(), id.Email, queryLimit(c, 20, 100))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"interviews": rows})
}

// Get is public: candidates open the join page from a shared link.
func (h *InterviewHandler) Get(c *gin.Context) {
	iv, err := h.interviews.Get(c.Request.Context(), c.Param("interview_id"))
	if err != nil {
		writeError(c, err)
		return
	}

	qs, err := iv.Questions()
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, "InterviewHandler.Get", "corrupt question list", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":              iv.ID,
		"job_position":    iv.JobPosition,
		"job_description": iv.JobDescription,
		"duration":        iv.Duration,
		"interview_types": iv.InterviewTypes,
		"question_count":  len(qs),
	})
}

type GenerateQuestionsRequest struct {
	JobPosition    string   `json:"job_position" binding:"required"`
	JobDescription string   `json:"job_description"`
	Duration       string   `json:"duration"`
	InterviewTypes []string `json:"interview_types"`
}

func (h *InterviewHandler) GenerateQuestions(c *gin.Context) {
	if _, ok := requireIdentity(c); !ok {
		return
	}

	var req GenerateQuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "InterviewHandler.GenerateQuestions", "invalid request body", err))
		return
	}

	qs, err := h.interviews.GenerateQuestions(c.Request.Context(), prompts.QuestionInput{
		JobPosition:    req.JobPosition,
		JobDescription: req.JobDescription,
		Duration:       req.Duration,
		InterviewTypes: req.InterviewTypes,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"questions": qs})
}

// ListCalls shows the call history of an interview to its owner.
func (h *InterviewHandler) ListCalls(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}

	iv, err := h.interviews.Get(c.Request.Context(), c.Param("interview_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if iv.UserEmail != id.Email {
		writeError(c, utils.E(utils.CodeForbidden, "InterviewHandler.ListCalls", "forbidden", nil))
		return
	}

	rows, err := h.calls.ListByInterview(c.Request.Context(), iv.ID, int64(queryLimit(c, 50, 200)))
	if err != nil {
		writeError(c, err)
		return
	}
	if rows == nil {
		rows = []models.CallRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"calls": rows})
}
