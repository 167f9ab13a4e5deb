package domain

// Category Model
type Category struct {
	ID    uint   `gorm:"primaryKey" json:"id"`                                   // Primary key
	Name  string `gorm:"size:100;uniqueIndex;not null" json:"name"`              // Unique category name
	Books []Book `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"` // Books in the category
}
