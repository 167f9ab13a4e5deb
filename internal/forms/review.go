package forms

import (
	"strconv"
	"strings"

	"bookshelf/internal/domain"
)

// RatingChoices are the values offered by the rating select.
var RatingChoices = []int{1, 2, 3, 4, 5}

// ReviewInput is the review form shown on a book's detail page. Rating is
// optional; an empty rating is stored as 0.
type ReviewInput struct {
	Comment string `form:"comment" json:"comment" validate:"required"`
	Rating  string `form:"rating" json:"rating" validate:"omitempty,oneof=1 2 3 4 5"`
}

// Validate returns the review the form describes, without user or book, or
// the field errors that prevent it from being saved.
func (in ReviewInput) Validate() (domain.Review, FieldErrors) {
	in.Comment = strings.TrimSpace(in.Comment)
	in.Rating = strings.TrimSpace(in.Rating)
	if errs := check(in); errs != nil {
		return domain.Review{}, errs
	}
	rating := 0
	if in.Rating != "" {
		rating, _ = strconv.Atoi(in.Rating) // oneof guarantees a digit
	}
	return domain.Review{Comment: in.Comment, Rating: rating}, nil
}
