package prompts

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type QuestionInput struct {
	JobPosition    string
	JobDescription string
	Duration       string
	InterviewTypes []string
}

type Question struct {
	Question string `json:"question"`
	Type     string `json:"type"`
}

const questionTemplate = `You are an expert technical interviewer.
Based on the following inputs, generate a well-structured list of high-quality interview questions.

Job Title: %s
Job Description: %s
Interview Duration: %s
Interview Type: %s

Instructions:
- Analyze the job description to identify key responsibilities, required skills and expected experience.
- Adjust the number and depth of questions to match the interview duration.
- Make sure the questions match the tone and structure of a real-life %s interview.
- Return ONLY a JSON array, no markdown and no commentary, in this format:
[{"question": "...", "type": "Technical/Behavioral/Experience/Problem Solving/Leadership"}]`

func QuestionPrompt(in QuestionInput) string {
	types := "General"
	if len(in.InterviewTypes) > 0 {
		types = strings.Join(in.InterviewTypes, ", ")
	}
	return fmt.Sprintf(questionTemplate,
		in.JobPosition,
		in.JobDescription,
		in.Duration,
		types,
		types,
	)
}

var ErrNoQuestions = errors.New("no questions in model answer")

// ParseQuestions extracts the JSON array from a model answer. Models like to wrap the array
// in a fenced block or add a sentence around it, so only the outermost [...] is decoded.
func ParseQuestions(answer string) ([]Question, error) {
	start := strings.Index(answer, "[")
	end := strings.LastIndex(answer, "]")
	if start < 0 || end <= start {
		return nil, ErrNoQuestions
	}

	var raw []Question
	if err := json.Unmarshal([]byte(answer[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}

	out := make([]Question, 0, len(raw))
	for _, q := range raw {
		q.Question = strings.TrimSpace(q.Question)
		q.Type = strings.TrimSpace(q.Type)
		if q.Question == "" {
			continue
		}
		out = append(out, q)
	}
	if len(out) == 0 {
		return nil, ErrNoQuestions
	}
	return out, nil
}
