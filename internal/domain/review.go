package domain

import "time"

// Review Model
type Review struct {
	ID        uint      `gorm:"primaryKey" json:"id"`                   // Primary key
	UserID    uint      `gorm:"not null;index" json:"user_id"`          // Foreign key to User
	User      User      `gorm:"foreignKey:UserID" json:"user"`          // Review author
	BookID    uint      `gorm:"not null;index" json:"book_id"`          // Foreign key to Book
	Book      Book      `gorm:"foreignKey:BookID" json:"book"`          // Reviewed book
	Comment   string    `gorm:"type:text;not null" json:"comment"`      // Review text
	Rating    int       `gorm:"not null;default:0" json:"rating"`       // 1-5, 0 when not given
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"` // Timestamp of creation
}
