package models

import "time"

// User mirrors the users table. Email and the lowercased username are each
// unique; rows are never updated by this service.
type User struct {
	ID             int64     `db:"id"`
	Email          string    `db:"email"`
	Username       string    `db:"username"`
	HashedPassword string    `db:"hashed_password"`
	IsActive       bool      `db:"is_active"`
	IsAdmin        bool      `db:"is_admin"`
	CreatedAt      time.Time `db:"created_at"`
}
