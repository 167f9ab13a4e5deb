// Package reviews drives a request against a book's detail page: showing the
// page, showing the review form, and accepting a review submission.
package reviews

import (
	"context"
	"fmt"
	"time"

	"bookshelf/internal/catalog"
	"bookshelf/internal/domain"
	"bookshelf/internal/forms"
	"bookshelf/internal/metrics"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// State is where a detail-page request ended up.
type State int

const (
	// StateAnonymous renders the page without a review form.
	StateAnonymous State = iota
	// StateFormDisplayed renders the page with an empty review form.
	StateFormDisplayed
	// StateInvalid re-renders the page with the submitted values and field errors.
	StateInvalid
	// StatePersisted means a review was saved; the caller redirects.
	StatePersisted
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateFormDisplayed:
		return "form_displayed"
	case StateInvalid:
		return "invalid"
	case StatePersisted:
		return "persisted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Submission is one request against a book's detail page.
type Submission struct {
	Identity *domain.User       // nil for anonymous requests
	BookID   uint               // book named in the URL
	Form     *forms.ReviewInput // nil unless form data was posted
}

// Outcome is what the page needs to render, or the review that was saved.
type Outcome struct {
	State         State
	Book          *domain.Book
	Reviews       []domain.Review
	AverageRating float64
	Form          forms.ReviewInput
	Errors        forms.FieldErrors
	Created       *domain.Review
}

// ShowForm reports whether the page offers a review form.
func (o *Outcome) ShowForm() bool {
	return o.State == StateFormDisplayed || o.State == StateInvalid
}

// Hook runs after a review is saved.
type Hook func(ctx context.Context, review *domain.Review)

// Workflow resolves detail-page requests.
type Workflow struct {
	db      *gorm.DB
	catalog *catalog.Service
	now     func() time.Time
	hooks   []Hook
}

// NewWorkflow returns a Workflow reading through svc and writing to db.
// Hooks are called, in order, after each saved review.
func NewWorkflow(db *gorm.DB, svc *catalog.Service, hooks ...Hook) *Workflow {
	return &Workflow{db: db, catalog: svc, now: time.Now, hooks: hooks}
}

// Handle moves a submission through the workflow. It returns
// catalog.ErrNotFound when the book does not exist.
func (w *Workflow) Handle(ctx context.Context, s Submission) (*Outcome, error) {
	book, err := w.catalog.Book(ctx, s.BookID)
	if err != nil {
		return nil, err
	}
	out := &Outcome{Book: book}

	switch {
	case s.Identity == nil:
		out.State = StateAnonymous
	case s.Form == nil:
		out.State = StateFormDisplayed
	default:
		review, errs := s.Form.Validate()
		if errs != nil {
			out.State = StateInvalid
			out.Form = *s.Form
			out.Errors = errs
			break
		}
		if err := w.persist(ctx, s.Identity, book, &review); err != nil {
			return nil, err
		}
		out.State = StatePersisted
		out.Created = &review
		return out, nil
	}

	if err := w.loadDetail(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (w *Workflow) persist(ctx context.Context, user *domain.User, book *domain.Book, review *domain.Review) error {
	review.UserID = user.ID
	review.BookID = book.ID
	review.CreatedAt = w.now()
	if err := w.db.WithContext(ctx).Omit("User", "Book").Create(review).Error; err != nil {
		logrus.WithFields(logrus.Fields{
			"user_id": user.ID,
			"book_id": book.ID,
			"error":   err.Error(),
		}).Error("Review creation failed")
		return fmt.Errorf("create review: %w", err)
	}
	review.User = *user
	review.Book = *book

	metrics.ReviewsCreated.Inc()
	logrus.WithFields(logrus.Fields{
		"review_id": review.ID,
		"user_id":   user.ID,
		"book_id":   book.ID,
		"rating":    review.Rating,
	}).Info("Review created")

	for _, h := range w.hooks {
		h(ctx, review)
	}
	return nil
}

func (w *Workflow) loadDetail(ctx context.Context, out *Outcome) error {
	reviews, err := w.catalog.Reviews(ctx, out.Book.ID)
	if err != nil {
		return err
	}
	avg, err := w.catalog.AverageRating(ctx, out.Book.ID)
	if err != nil {
		return err
	}
	out.Reviews = reviews
	out.AverageRating = avg
	return nil
}
