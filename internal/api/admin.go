package api

import (
	"context"  // Context for Redis operations
	"errors"   // Error matching
	"fmt"      // Cache key formatting
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"strings"  // String manipulation
	"time"     // Time durations and date filters

	"bookshelf/internal/auth"       // Identity service
	"bookshelf/internal/catalog"    // Catalog admin operations
	"bookshelf/internal/domain"     // Importing domain models
	"bookshelf/internal/forms"      // Admin forms
	"bookshelf/internal/media"      // Cover image storage
	"bookshelf/internal/metrics"    // Prometheus collectors
	"bookshelf/internal/middleware" // Request context
	"bookshelf/internal/reviews"    // Review hooks
	"bookshelf/internal/utils"      // Cache helpers

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
)

const (
	adminCacheTTL      = 60 * time.Second   // Lifetime of a cached admin list
	adminGenerationKey = "admin:generation" // Bumped on every catalog or review write
	dateLayout         = "2006-01-02"       // from/to filter format
)

// Admin form messages
const (
	DuplicateCategoryMessage = "Category with this Name already exists."
	InvalidChoiceMessage     = "Select a valid choice. That choice is not one of the available choices."
	InvalidImageMessage      = "Upload a valid image. The file you uploaded was either not an image or a corrupted image."
)

// ListCategoriesHandler returns categories whose name contains search
func ListCategoriesHandler(svc *catalog.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		cachedList(c, rdb, "categories", []string{"search", "page", "page_size"}, func(ctx context.Context) (gin.H, error) {
			categories, page, err := svc.SearchCategories(ctx, c.Query("search"), pageFromQuery(c))
			if err != nil {
				return nil, err
			}
			return listResponse("categories", categories, page), nil
		})
	}
}

// ListBooksHandler returns books filtered by search text and category id
func ListBooksHandler(svc *catalog.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var categoryID uint64 // Zero disables the filter
		if v := c.Query("category"); v != "" {
			id, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category"})
				return
			}
			categoryID = id
		}
		cachedList(c, rdb, "books", []string{"search", "category", "page", "page_size"}, func(ctx context.Context) (gin.H, error) {
			books, page, err := svc.SearchBooks(ctx, c.Query("search"), uint(categoryID), pageFromQuery(c))
			if err != nil {
				return nil, err
			}
			return listResponse("books", books, page), nil
		})
	}
}

// ListReviewsHandler returns reviews, newest first, with optional search, rating and date filters
func ListReviewsHandler(svc *catalog.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := catalog.ReviewFilter{Search: c.Query("search")}
		if v := c.Query("rating"); v != "" {
			rating, err := strconv.Atoi(v)
			if err != nil || rating < 0 || rating > 5 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid rating"})
				return
			}
			filter.Rating = &rating
		}
		if v := c.Query("from"); v != "" {
			from, err := time.ParseInLocation(dateLayout, v, time.Local)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid from date, expected YYYY-MM-DD"})
				return
			}
			filter.From = &from
		}
		if v := c.Query("to"); v != "" {
			to, err := time.ParseInLocation(dateLayout, v, time.Local)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid to date, expected YYYY-MM-DD"})
				return
			}
			end := to.AddDate(0, 0, 1) // The to date is inclusive
			filter.To = &end
		}
		cachedList(c, rdb, "reviews", []string{"search", "rating", "from", "to", "page", "page_size"}, func(ctx context.Context) (gin.H, error) {
			items, page, err := svc.SearchReviews(ctx, filter, pageFromQuery(c))
			if err != nil {
				return nil, err
			}
			return listResponse("reviews", items, page), nil
		})
	}
}

// CreateCategoryHandler creates a category from form or JSON input
func CreateCategoryHandler(svc *catalog.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in forms.CategoryInput // Bind request to struct
		if err := c.ShouldBind(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		category, errs := in.Validate()
		if errs != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": errs})
			return
		}
		err := svc.CreateCategory(c.Request.Context(), &category)
		if errors.Is(err, catalog.ErrDuplicateCategory) {
			c.JSON(http.StatusBadRequest, gin.H{"errors": forms.FieldErrors{"name": DuplicateCategoryMessage}})
			return
		}
		if err != nil {
			adminError(c, "Failed to create category", err)
			return
		}
		adminChanged(c, rdb, "Category created", logrus.Fields{"category_id": category.ID, "name": category.Name})
		c.JSON(http.StatusCreated, category)
	}
}

// CreateBookHandler creates a book from a multipart form with an optional cover_image file
func CreateBookHandler(svc *catalog.Service, store *media.Store, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in forms.BookInput // Bind request to struct
		if err := c.ShouldBind(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		book, errs := in.Validate()
		if errs != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": errs})
			return
		}
		// Save the cover before inserting the row
		if fh, err := c.FormFile("cover_image"); err == nil {
			rel, err := store.SaveCover(fh, book.Title)
			if errors.Is(err, media.ErrNotImage) {
				c.JSON(http.StatusBadRequest, gin.H{"errors": forms.FieldErrors{"cover_image": InvalidImageMessage}})
				return
			}
			if err != nil {
				adminError(c, "Failed to store cover image", err)
				return
			}
			book.CoverImage = rel
		}
		err := svc.CreateBook(c.Request.Context(), &book)
		if err != nil {
			_ = store.Remove(book.CoverImage) // Drop the orphaned upload
		}
		if errors.Is(err, catalog.ErrUnknownCategory) {
			c.JSON(http.StatusBadRequest, gin.H{"errors": forms.FieldErrors{"category_id": InvalidChoiceMessage}})
			return
		}
		if err != nil {
			adminError(c, "Failed to create book", err)
			return
		}
		adminChanged(c, rdb, "Book created", logrus.Fields{"book_id": book.ID, "title": book.Title})
		c.JSON(http.StatusCreated, book)
	}
}

// DeleteCategoryHandler deletes a category with its books and their reviews
func DeleteCategoryHandler(svc *catalog.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		err := svc.DeleteCategory(c.Request.Context(), id)
		if errors.Is(err, catalog.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
			return
		}
		if err != nil {
			adminError(c, "Failed to delete category", err)
			return
		}
		adminChanged(c, rdb, "Category deleted", logrus.Fields{"category_id": id})
		c.Status(http.StatusNoContent)
	}
}

// DeleteBookHandler deletes a book with its reviews and cover image
func DeleteBookHandler(svc *catalog.Service, store *media.Store, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		book, err := svc.Book(c.Request.Context(), id)
		if err == nil {
			err = svc.DeleteBook(c.Request.Context(), id)
		}
		if errors.Is(err, catalog.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Book not found"})
			return
		}
		if err != nil {
			adminError(c, "Failed to delete book", err)
			return
		}
		if err := store.Remove(book.CoverImage); err != nil {
			logrus.WithError(err).WithField("book_id", id).Warn("Failed to remove cover image")
		}
		adminChanged(c, rdb, "Book deleted", logrus.Fields{"book_id": id})
		c.Status(http.StatusNoContent)
	}
}

// DeleteUserHandler deletes a user and their reviews
func DeleteUserHandler(authSvc *auth.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		// Prevent deleting the account making the request
		if id == middleware.Current(c).Identity.ID {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot delete your own account"})
			return
		}
		err := authSvc.DeleteUser(c.Request.Context(), id)
		if errors.Is(err, auth.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		if err != nil {
			adminError(c, "Failed to delete user", err)
			return
		}
		adminChanged(c, rdb, "User deleted", logrus.Fields{"user_id": id})
		c.Status(http.StatusNoContent)
	}
}

// InvalidateAdminCache is a review hook that expires cached admin lists
func InvalidateAdminCache(rdb *redis.Client) reviews.Hook {
	return func(ctx context.Context, review *domain.Review) {
		if err := utils.BumpCacheGeneration(ctx, rdb, adminGenerationKey); err != nil {
			logrus.WithError(err).WithField("review_id", review.ID).Warn("Failed to invalidate admin cache")
		}
	}
}

// cachedList serves an admin list from Redis, building and caching it with load on a miss.
// The cache key covers the list's query parameters and the current generation.
func cachedList(c *gin.Context, rdb *redis.Client, resource string, params []string, load func(ctx context.Context) (gin.H, error)) {
	ctx := c.Request.Context()
	cacheKey := "" // Empty when the generation cannot be read
	if gen, err := utils.CacheGeneration(ctx, rdb, adminGenerationKey); err == nil {
		var keyParts []string // Parts of the cache key
		// Append each query parameter to the key parts
		for _, k := range params {
			keyParts = append(keyParts, k+"="+c.Query(k)) // Append key-value pair
		}
		cacheKey = fmt.Sprintf("admin:%s:g%d:%s", resource, gen, strings.Join(keyParts, ":"))
		// If cached data found, return it
		var cached gin.H
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			metrics.AdminCacheRequests.WithLabelValues("hit").Inc()
			cached["cached"] = true // Indicate response is from cache
			c.JSON(http.StatusOK, cached)
			return
		}
	}
	metrics.AdminCacheRequests.WithLabelValues("miss").Inc()
	respData, err := load(ctx)
	if err != nil {
		adminError(c, "Failed to list "+resource, err)
		return
	}
	respData["cached"] = false // Indicate response is not from cache
	// Cache the response for future requests
	if cacheKey != "" {
		_ = utils.SetCache(ctx, rdb, cacheKey, respData, adminCacheTTL)
	}
	c.JSON(http.StatusOK, respData)
}

// listResponse is the JSON body of an admin list
func listResponse(name string, items any, page catalog.Page) gin.H {
	return gin.H{
		name:          items,           // Page of items
		"page":        page.Page,       // Current page
		"page_size":   page.PageSize,   // Page size
		"total":       page.Total,      // Total number of items
		"total_pages": page.TotalPages, // Total pages
	}
}

// pageFromQuery reads page and page_size, clamped by catalog.NewPage
func pageFromQuery(c *gin.Context) catalog.Page {
	page, _ := strconv.Atoi(c.Query("page"))          // Zero when missing or invalid
	pageSize, _ := strconv.Atoi(c.Query("page_size")) // Zero when missing or invalid
	return catalog.NewPage(page, pageSize)
}

// idParam parses the :id path parameter, answering 404 when it is not an id
func idParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return 0, false
	}
	return uint(id), true
}

// adminChanged logs a write and expires cached admin lists
func adminChanged(c *gin.Context, rdb *redis.Client, msg string, fields logrus.Fields) {
	fields["admin_id"] = middleware.Current(c).Identity.ID // Who made the change
	logrus.WithFields(fields).Info(msg)
	if err := utils.BumpCacheGeneration(c.Request.Context(), rdb, adminGenerationKey); err != nil {
		logrus.WithError(err).Warn("Failed to invalidate admin cache")
	}
}

// adminError logs err and answers 500
func adminError(c *gin.Context, msg string, err error) {
	logrus.WithFields(logrus.Fields{
		"path":       c.Request.URL.Path,         // Request path
		"request_id": middleware.GetRequestID(c), // Correlation id
		"error":      err.Error(),                // Underlying failure
	}).Error(msg)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}
