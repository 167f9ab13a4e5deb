package api

import (
	"errors"   // Error matching
	"net/http" // HTTP status codes
	"strconv"  // Book id parsing

	"bookshelf/internal/catalog"    // Catalog errors
	"bookshelf/internal/forms"      // Review form
	"bookshelf/internal/middleware" // Request context and flash
	"bookshelf/internal/reviews"    // Review workflow

	"github.com/gin-gonic/gin" // Gin web framework
)

// ReviewSubmittedMessage is flashed after a review is saved
const ReviewSubmittedMessage = "Your review has been submitted!"

// BookDetailHandler shows a book with its reviews and accepts review submissions
func BookDetailHandler(wf *reviews.Workflow) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		// Non-numeric ids never match a book
		if err != nil || id == 0 {
			notFound(c)
			return
		}
		rc := middleware.Current(c) // Who is asking
		sub := reviews.Submission{Identity: rc.Identity, BookID: uint(id)}
		// Only authenticated POSTs carry a form
		if c.Request.Method == http.MethodPost && rc.Identity != nil {
			var in forms.ReviewInput
			if err := c.ShouldBind(&in); err != nil {
				in = forms.ReviewInput{Comment: c.PostForm("comment"), Rating: c.PostForm("rating")}
			}
			sub.Form = &in
		}
		out, err := wf.Handle(c.Request.Context(), sub)
		if errors.Is(err, catalog.ErrNotFound) {
			notFound(c)
			return
		}
		if err != nil {
			serverError(c, "Failed to handle book detail", err)
			return
		}
		// Redirect after a successful POST so a refresh does not resubmit
		if out.State == reviews.StatePersisted {
			middleware.AddFlash(c, middleware.LevelSuccess, ReviewSubmittedMessage)
			c.Redirect(http.StatusSeeOther, "/books/"+strconv.FormatUint(id, 10))
			return
		}
		errs := out.Errors
		if errs == nil {
			errs = forms.FieldErrors{}
		}
		render(c, http.StatusOK, "book_detail.html", gin.H{
			"Title":         out.Book.Title,      // Page title
			"Book":          out.Book,            // Book with category
			"Reviews":       out.Reviews,         // Newest first
			"AverageRating": out.AverageRating,   // Rounded to one decimal
			"ShowForm":      out.ShowForm(),      // Authenticated requests get a form
			"Form":          out.Form,            // Submitted values on error
			"Errors":        errs,                // Field errors on error
			"RatingChoices": forms.RatingChoices, // Rating select options
		})
	}
}
