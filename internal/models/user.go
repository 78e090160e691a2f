package models

import "time"

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// Identity is the signed-in principal taken from the Supabase access token.
type Identity struct {
	ID      string   `json:"id"` // uuid, token "sub"
	Email   string   `json:"email"`
	Name    string   `json:"name"`
	Picture string   `json:"picture"`
	Role    UserRole `json:"role"`
}

// User is the app-side profile row, created on first sign-in.
type User struct {
	ID        string    `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"column:name;type:text" json:"name"`
	Email     string    `gorm:"column:email;type:text;uniqueIndex" json:"email"`
	Picture   string    `gorm:"column:picture;type:text" json:"picture"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz" json:"created_at"`
}

func (User) TableName() string { return "users" }
