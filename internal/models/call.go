package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CallRecord is the stored history of one voice interview call.
type CallRecord struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CallID      string             `bson:"call_id" json:"call_id"` // uuid v4
	InterviewID string             `bson:"interview_id" json:"interview_id"`
	UserName    string             `bson:"user_name" json:"user_name"`

	Status       string `bson:"status" json:"status"` // active|ended
	TotalSeconds int    `bson:"total_seconds" json:"total_seconds"`

	StartedAt time.Time  `bson:"started_at" json:"started_at"`
	EndedAt   *time.Time `bson:"ended_at,omitempty" json:"ended_at,omitempty"`

	DurationSeconds int64  `bson:"duration_seconds" json:"duration_seconds"`
	EndReason       string `bson:"end_reason,omitempty" json:"end_reason,omitempty"` // stopped|timeout|remote_ended|remote_error
	Error           string `bson:"error,omitempty" json:"error,omitempty"`
}
