package domain

import "time"

// Book Model
type Book struct {
	ID          uint      `gorm:"primaryKey" json:"id"`                                   // Primary key
	Title       string    `gorm:"size:200;not null;index" json:"title"`                   // Book title
	Author      string    `gorm:"size:150;not null" json:"author"`                        // Book author
	CategoryID  uint      `gorm:"not null;index" json:"category_id"`                      // Foreign key to Category
	Category    Category  `json:"category"`                                               // Owning category
	CoverImage  string    `gorm:"size:255" json:"cover_image,omitempty"`                  // Relative path under the media root
	Description string    `gorm:"type:text" json:"description"`                           // Free text description
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`                       // Timestamp of creation
	Reviews     []Review  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"` // Reviews of the book
}
