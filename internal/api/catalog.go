package api

import (
	"net/http" // HTTP status codes

	"bookshelf/internal/catalog" // Catalog query service

	"github.com/gin-gonic/gin" // Gin web framework
)

// HomeHandler lists books filtered by the q and category query parameters
func HomeHandler(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := catalog.Filter{
			Query:    c.Query("q"),        // Title or author search
			Category: c.Query("category"), // Category id or name
		}
		listing, err := svc.List(c.Request.Context(), filter)
		if err != nil {
			serverError(c, "Failed to list books", err)
			return
		}
		render(c, http.StatusOK, "home.html", gin.H{
			"Books":            listing.Books,            // Matching books
			"Categories":       listing.Categories,       // Filter choices
			"Query":            listing.Query,            // Echoed search text
			"SelectedCategory": listing.SelectedCategory, // Echoed category filter
		})
	}
}
