package forms

import (
	"strconv"
	"strings"

	"bookshelf/internal/domain"
)

// CategoryInput creates a category from the admin surface.
type CategoryInput struct {
	Name string `form:"name" json:"name" validate:"required,max=100"`
}

// Validate returns the category to insert. Name uniqueness is enforced on
// insert.
func (in CategoryInput) Validate() (domain.Category, FieldErrors) {
	in.Name = strings.TrimSpace(in.Name)
	if errs := check(in); errs != nil {
		return domain.Category{}, errs
	}
	return domain.Category{Name: in.Name}, nil
}

// BookInput creates a book from the admin surface. The cover image travels
// as a separate multipart file.
type BookInput struct {
	Title       string `form:"title" json:"title" validate:"required,max=200"`
	Author      string `form:"author" json:"author" validate:"required,max=150"`
	CategoryID  string `form:"category_id" json:"category_id" validate:"required,numeric"`
	Description string `form:"description" json:"description" validate:"required"`
}

// Validate returns the book to insert. The category's existence is checked
// by the catalog service.
func (in BookInput) Validate() (domain.Book, FieldErrors) {
	in.Title = strings.TrimSpace(in.Title)
	in.Author = strings.TrimSpace(in.Author)
	in.CategoryID = strings.TrimSpace(in.CategoryID)
	in.Description = strings.TrimSpace(in.Description)
	if errs := check(in); errs != nil {
		return domain.Book{}, errs
	}
	categoryID, err := strconv.ParseUint(in.CategoryID, 10, 64)
	if err != nil {
		return domain.Book{}, FieldErrors{"category_id": "Select a valid choice. That choice is not one of the available choices."}
	}
	return domain.Book{
		Title:       in.Title,
		Author:      in.Author,
		CategoryID:  uint(categoryID),
		Description: in.Description,
	}, nil
}
