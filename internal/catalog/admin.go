package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookshelf/internal/domain"

	"gorm.io/gorm"
)

// Admin errors
var (
	// ErrDuplicateCategory is returned when a category name is already taken.
	ErrDuplicateCategory = errors.New("category with this name already exists")

	// ErrUnknownCategory is returned when a book references a missing category.
	ErrUnknownCategory = errors.New("category does not exist")
)

// Page describes one page of an admin list.
type Page struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// NewPage clamps page to >= 1 and pageSize to 1..100 (20 when out of range).
func NewPage(page, pageSize int) Page {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return Page{Page: page, PageSize: pageSize}
}

func (p *Page) offset() int { return (p.Page - 1) * p.PageSize }

func (p *Page) setTotal(total int64) {
	p.Total = total
	p.TotalPages = (int(total) + p.PageSize - 1) / p.PageSize
}

// ReviewFilter narrows the admin review list.
type ReviewFilter struct {
	Search string     // book title or username contains
	Rating *int       // exact rating
	From   *time.Time // created at or after
	To     *time.Time // created before
}

// CreateCategory inserts a category, rejecting names already in use.
func (s *Service) CreateCategory(ctx context.Context, c *domain.Category) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&domain.Category{}).Where("name = ?", c.Name).Count(&n).Error; err != nil {
			return fmt.Errorf("check category name: %w", err)
		}
		if n > 0 {
			return ErrDuplicateCategory
		}
		if err := tx.Create(c).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateCategory
			}
			return fmt.Errorf("create category: %w", err)
		}
		return nil
	})
}

// CreateBook inserts a book after checking that its category exists.
func (s *Service) CreateBook(ctx context.Context, b *domain.Book) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var category domain.Category
		err := tx.First(&category, b.CategoryID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUnknownCategory
		}
		if err != nil {
			return fmt.Errorf("load category %d: %w", b.CategoryID, err)
		}
		if err := tx.Omit("Category").Create(b).Error; err != nil {
			return fmt.Errorf("create book: %w", err)
		}
		b.Category = category
		return nil
	})
}

// DeleteCategory removes a category together with its books and their
// reviews.
func (s *Service) DeleteCategory(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		books := tx.Model(&domain.Book{}).Select("id").Where("category_id = ?", id)
		if err := tx.Where("book_id IN (?)", books).Delete(&domain.Review{}).Error; err != nil {
			return fmt.Errorf("delete reviews of category %d: %w", id, err)
		}
		if err := tx.Where("category_id = ?", id).Delete(&domain.Book{}).Error; err != nil {
			return fmt.Errorf("delete books of category %d: %w", id, err)
		}
		res := tx.Delete(&domain.Category{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete category %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// DeleteBook removes a book together with its reviews.
func (s *Service) DeleteBook(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("book_id = ?", id).Delete(&domain.Review{}).Error; err != nil {
			return fmt.Errorf("delete reviews of book %d: %w", id, err)
		}
		res := tx.Delete(&domain.Book{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete book %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// SearchCategories pages through categories whose name contains search.
func (s *Service) SearchCategories(ctx context.Context, search string, page Page) ([]domain.Category, Page, error) {
	query := s.db.WithContext(ctx).Model(&domain.Category{})
	if search != "" {
		query = query.Where("LOWER(name) LIKE ? ESCAPE '!'", containsPattern(search))
	}
	var categories []domain.Category
	page, err := paginate(query, page, "name", &categories)
	if err != nil {
		return nil, page, fmt.Errorf("search categories: %w", err)
	}
	return categories, page, nil
}

// SearchBooks pages through books whose title or author contains search,
// optionally restricted to one category.
func (s *Service) SearchBooks(ctx context.Context, search string, categoryID uint, page Page) ([]domain.Book, Page, error) {
	query := s.db.WithContext(ctx).Model(&domain.Book{})
	if search != "" {
		pattern := containsPattern(search)
		query = query.Where("(LOWER(title) LIKE ? ESCAPE '!' OR LOWER(author) LIKE ? ESCAPE '!')", pattern, pattern)
	}
	if categoryID != 0 {
		query = query.Where("category_id = ?", categoryID)
	}
	var books []domain.Book
	page, err := paginate(query, page, "title", &books, "Category")
	if err != nil {
		return nil, page, fmt.Errorf("search books: %w", err)
	}
	return books, page, nil
}

// SearchReviews pages through reviews, newest first, matching the filter.
func (s *Service) SearchReviews(ctx context.Context, f ReviewFilter, page Page) ([]domain.Review, Page, error) {
	db := s.db.WithContext(ctx)
	query := db.Model(&domain.Review{})
	if f.Search != "" {
		pattern := containsPattern(f.Search)
		books := db.Model(&domain.Book{}).Select("id").Where("LOWER(title) LIKE ? ESCAPE '!'", pattern)
		users := db.Model(&domain.User{}).Select("id").Where("LOWER(username) LIKE ? ESCAPE '!'", pattern)
		query = query.Where("(book_id IN (?) OR user_id IN (?))", books, users)
	}
	if f.Rating != nil {
		query = query.Where("rating = ?", *f.Rating)
	}
	if f.From != nil {
		query = query.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		query = query.Where("created_at < ?", *f.To)
	}
	var reviews []domain.Review
	page, err := paginate(query, page, "created_at desc, id desc", &reviews, "User", "Book")
	if err != nil {
		return nil, page, fmt.Errorf("search reviews: %w", err)
	}
	return reviews, page, nil
}

// paginate counts the rows matched by query and loads one page into dest
// with the given associations preloaded.
func paginate(query *gorm.DB, page Page, order string, dest any, preloads ...string) (Page, error) {
	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return page, err
	}
	page.setTotal(total)
	for _, p := range preloads {
		query = query.Preload(p)
	}
	err := query.Order(order).Offset(page.offset()).Limit(page.PageSize).Find(dest).Error
	return page, err
}
