package call

import (
	"github.com/yoockh/aicruiter/internal/prompts"
	"github.com/yoockh/aicruiter/internal/providers/assistant"
)

// Config is what the dashboard flow hands to the interview room.
type Config struct {
	UserName      string        `json:"userName"`
	InterviewData InterviewData `json:"interviewData"`
}

type InterviewData struct {
	JobPosition  string     `json:"jobPosition"`
	Duration     string     `json:"duration"`
	QuestionList []Question `json:"questionList"`
}

type Question struct {
	Question string `json:"question"`
	Type     string `json:"type"`
}

// ModelSettings selects the LLM behind the remote assistant.
type ModelSettings struct {
	AssistantName string
	Provider      string
	Model         string
}

func DefaultModelSettings() ModelSettings {
	return ModelSettings{
		AssistantName: "AI Recruiter",
		Provider:      "openai",
		Model:         "gpt-4o-mini",
	}
}

func BuildStartRequest(cfg Config, m ModelSettings) assistant.StartRequest {
	def := DefaultModelSettings()
	if m.AssistantName == "" {
		m.AssistantName = def.AssistantName
	}
	if m.Provider == "" {
		m.Provider = def.Provider
	}
	if m.Model == "" {
		m.Model = def.Model
	}

	questions := make([]string, 0, len(cfg.InterviewData.QuestionList))
	for _, q := range cfg.InterviewData.QuestionList {
		questions = append(questions, q.Question)
	}

	return assistant.StartRequest{
		Name:         m.AssistantName,
		FirstMessage: prompts.Greeting(cfg.UserName, cfg.InterviewData.JobPosition),
		Model: assistant.ModelConfig{
			Provider: m.Provider,
			Model:    m.Model,
			Messages: []assistant.Message{{
				Role:    "system",
				Content: prompts.InterviewerSystemPrompt(cfg.InterviewData.JobPosition, questions),
			}},
		},
	}
}
