package prompts

import (
	"fmt"
	"strings"
)

const interviewerTemplate = `You are an AI voice assistant conducting interviews.
Ask questions one by one.

Job Position: %s
Questions: %s

Start by greeting the candidate and asking the first question out loud.`

// InterviewerSystemPrompt is the system message for the voice assistant. Questions are
// flattened into a single ", " separated line.
func InterviewerSystemPrompt(jobPosition string, questions []string) string {
	return fmt.Sprintf(interviewerTemplate, jobPosition, strings.Join(questions, ", "))
}

func Greeting(userName, jobPosition string) string {
	return fmt.Sprintf("Hi %s, welcome to your %s interview.", userName, jobPosition)
}
