package domain

import "time"

// Roles a User can hold
const (
	RoleUser  = "user"  // Ordinary reader
	RoleAdmin = "admin" // Back-office access
)

// User Model
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`                                   // Primary key
	Username  string    `gorm:"size:150;uniqueIndex;not null" json:"username"`          // Unique username
	Email     string    `gorm:"size:254" json:"email"`                                  // Contact email
	Password  string    `gorm:"not null" json:"-"`                                      // Hashed password
	Role      string    `gorm:"size:16;not null;default:user" json:"role"`              // Role: user or admin
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`                       // Timestamp of registration
	Reviews   []Review  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"` // Reviews written by the user
}

// IsAdmin reports whether the user may use the admin surface
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
