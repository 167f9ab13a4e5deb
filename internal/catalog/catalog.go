// Package catalog answers the read side of the book catalog: the filtered
// listing, a book with its reviews and the book's average rating.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"bookshelf/internal/domain"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Filter carries the raw listing parameters. Empty fields disable the
// corresponding filter.
type Filter struct {
	Query    string // matched against title and author
	Category string // category id when all digits, otherwise category name
}

// Listing is the result of a catalog query, with the filter values echoed
// back for re-populating the filter controls.
type Listing struct {
	Books            []domain.Book
	Categories       []domain.Category
	Query            string
	SelectedCategory string
}

// Service runs catalog queries against the store.
type Service struct {
	db *gorm.DB
}

// NewService returns a Service backed by db.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// List returns the books matching every supplied filter, ordered by title,
// together with all categories.
func (s *Service) List(ctx context.Context, f Filter) (*Listing, error) {
	db := s.db.WithContext(ctx)
	query := db.Model(&domain.Book{}).Preload("Category")

	if f.Query != "" {
		pattern := containsPattern(f.Query)
		query = query.Where("(LOWER(title) LIKE ? ESCAPE '!' OR LOWER(author) LIKE ? ESCAPE '!')", pattern, pattern)
	}

	if f.Category != "" {
		if isDigits(f.Category) {
			id, err := strconv.ParseUint(f.Category, 10, 64)
			if err != nil {
				// Too large to be an id of any category
				query = query.Where("1 = 0")
			} else {
				query = query.Where("category_id = ?", id)
			}
		} else {
			byName := db.Model(&domain.Category{}).Select("id").Where("LOWER(name) = ?", strings.ToLower(f.Category))
			query = query.Where("category_id IN (?)", byName)
		}
	}

	var books []domain.Book
	if err := query.Order("title").Order("id").Find(&books).Error; err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}

	categories, err := s.Categories(ctx)
	if err != nil {
		return nil, err
	}

	return &Listing{
		Books:            books,
		Categories:       categories,
		Query:            f.Query,
		SelectedCategory: f.Category,
	}, nil
}

// Categories returns every category ordered by name.
func (s *Service) Categories(ctx context.Context) ([]domain.Category, error) {
	var categories []domain.Category
	if err := s.db.WithContext(ctx).Order("name").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// Book loads a single book with its category.
func (s *Service) Book(ctx context.Context, id uint) (*domain.Book, error) {
	var book domain.Book
	err := s.db.WithContext(ctx).Preload("Category").First(&book, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load book %d: %w", id, err)
	}
	return &book, nil
}

// Reviews returns a book's reviews, newest first, with their authors.
func (s *Service) Reviews(ctx context.Context, bookID uint) ([]domain.Review, error) {
	var reviews []domain.Review
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("book_id = ?", bookID).
		Order("created_at desc").
		Order("id desc").
		Find(&reviews).Error
	if err != nil {
		return nil, fmt.Errorf("list reviews of book %d: %w", bookID, err)
	}
	return reviews, nil
}

// AverageRating returns the mean rating of the book's reviews rounded to one
// decimal place, or 0 when the book has no reviews. It reads the store on
// every call.
func (s *Service) AverageRating(ctx context.Context, bookID uint) (float64, error) {
	var agg struct {
		Count int64
		Total int64
	}
	err := s.db.WithContext(ctx).
		Model(&domain.Review{}).
		Select("COUNT(*) AS count, COALESCE(SUM(rating), 0) AS total").
		Where("book_id = ?", bookID).
		Scan(&agg).Error
	if err != nil {
		return 0, fmt.Errorf("average rating of book %d: %w", bookID, err)
	}
	if agg.Count == 0 {
		return 0, nil
	}
	return RoundRating(float64(agg.Total) / float64(agg.Count)), nil
}

// RoundRating rounds to one decimal place, halves away from zero.
func RoundRating(mean float64) float64 {
	return math.Round(mean*10) / 10
}

// containsPattern builds a lower-cased LIKE pattern matching s anywhere,
// with LIKE metacharacters escaped by '!'.
func containsPattern(s string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return s != ""
}
