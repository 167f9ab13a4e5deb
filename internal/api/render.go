package api

import (
	"embed"         // Embedded page templates
	"html/template" // HTML templates rendered by gin
	"net/http"      // HTTP status codes
	"strconv"       // Category id formatting
	"strings"       // Case-insensitive category names

	"bookshelf/internal/domain"     // Importing domain models
	"bookshelf/internal/media"      // Cover image URLs
	"bookshelf/internal/middleware" // Request context and flash

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates parses the embedded page templates
func Templates() *template.Template {
	return template.Must(template.New("pages").Funcs(template.FuncMap{
		"mediaURL": media.URL,        // Public URL of an uploaded file
		"selected": categorySelected, // Category option matches the filter
	}).ParseFS(templateFS, "templates/*.html"))
}

// render adds the identity, pending flash messages and CSRF token to data and renders the page
func render(c *gin.Context, status int, page string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["User"] = middleware.Current(c).Identity // Logged-in user for the navigation
	data["Messages"] = middleware.TakeFlash(c)    // One-time messages
	data["CSRFToken"] = middleware.CSRFToken(c)   // Repeated by every POST form
	c.HTML(status, page, data)
}

// notFound renders the 404 page
func notFound(c *gin.Context) {
	render(c, http.StatusNotFound, "not_found.html", gin.H{"Title": "Not Found"})
}

// serverError logs err and renders the 500 page
func serverError(c *gin.Context, msg string, err error) {
	logrus.WithFields(logrus.Fields{
		"path":       c.Request.URL.Path,         // Request path
		"request_id": middleware.GetRequestID(c), // Correlation id
		"error":      err.Error(),                // Underlying failure
	}).Error(msg)
	render(c, http.StatusInternalServerError, "error.html", gin.H{"Title": "Server Error"})
}

// categorySelected reports whether the listing filter names cat, by id or by name
func categorySelected(cat domain.Category, selected string) bool {
	if selected == "" {
		return false
	}
	return selected == strconv.FormatUint(uint64(cat.ID), 10) || strings.EqualFold(selected, cat.Name)
}
