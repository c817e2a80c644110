package models

import (
	"time"
)

// DefaultCategory is assigned to products created without an explicit category.
const DefaultCategory = "sanpham1"

// ReservedAdmin is the account seeded at startup.
const ReservedAdmin = "admin"

// UsernameMaxLen matches the username column size.
const UsernameMaxLen = 80

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"      json:"id"`
	Username     string    `gorm:"size:80;uniqueIndex;not null"  json:"username"`
	PasswordHash string    `gorm:"size:255;not null"             json:"-"`
	IsAdmin      bool      `gorm:"not null"                      json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Product struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"  json:"id"`
	Name        string    `gorm:"size:100;not null"         json:"name"`
	Description string    `gorm:"not null"                  json:"description"`
	Price       float64   `gorm:"not null"                  json:"price"`
	Image       string    `gorm:"size:255;not null"         json:"image"`
	Sales       uint      `gorm:"not null;index"            json:"sales"`
	Category    string    `gorm:"size:50;not null;index"    json:"category"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Session is the server-side record behind a session cookie. A token is only
// honoured while its row exists, is not revoked and has not expired.
type Session struct {
	ID        uint      `gorm:"primaryKey"                   json:"id"`
	JTI       string    `gorm:"size:36;uniqueIndex;not null" json:"jti"`
	UserID    uint      `gorm:"index;not null"               json:"user_id"`
	ExpiresAt time.Time `gorm:"not null"                     json:"expires_at"`
	Revoked   bool      `gorm:"not null"                     json:"revoked"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Session) Active(now time.Time) bool {
	return !s.Revoked && now.Before(s.ExpiresAt)
}
