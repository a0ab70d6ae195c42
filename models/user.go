package models

import "time"

// UserType mirrors the numeric account class stored with each user.
type UserType int

const (
	UserTypeVisitor UserType = 0
	UserTypeManager UserType = 1
)

// User is an account that can sign in.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Type         UserType
	CreatedAt    time.Time
}
