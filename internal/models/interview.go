package models

import (
	"encoding/json"
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

type Interview struct {
	ID             string         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserEmail      string         `gorm:"column:user_email;type:text;index" json:"user_email"`
	JobPosition    string         `gorm:"column:job_position;type:text" json:"job_position"`
	JobDescription string         `gorm:"column:job_description;type:text" json:"job_description"`
	Duration       string         `gorm:"column:duration;type:text" json:"duration"` // e.g. "15 Min"
	InterviewTypes pq.StringArray `gorm:"column:interview_types;type:text[]" json:"interview_types"`

	// [{"question": "...", "type": "..."}]
	QuestionList datatypes.JSON `gorm:"column:question_list;type:jsonb" json:"question_list"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz;index" json:"created_at"`
}

func (Interview) TableName() string { return "interviews" }

type InterviewQuestion struct {
	Question string `json:"question"`
	Type     string `json:"type"`
}

func (i *Interview) Questions() ([]InterviewQuestion, error) {
	if len(i.QuestionList) == 0 {
		return nil, nil
	}
	var out []InterviewQuestion
	if err := json.Unmarshal(i.QuestionList, &out); err != nil {
		return nil, err
	}
	return out, nil
}
