package api

import (
	"errors"   // Error matching
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"bookshelf/internal/auth"       // Identity service
	"bookshelf/internal/domain"     // Importing domain models
	"bookshelf/internal/forms"      // Account forms
	"bookshelf/internal/metrics"    // Prometheus collectors
	"bookshelf/internal/middleware" // Request context, cookies and flash

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// User-facing messages
const (
	InvalidLoginMessage = "Please enter a correct username and password. Note that both fields may be case-sensitive."
	RegisteredMessage   = "Your account has been created."
	LoggedOutMessage    = "You have been logged out."
)

// RegisterHandler shows the registration form and creates accounts
func RegisterHandler(authSvc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Show an empty form on GET
		if c.Request.Method != http.MethodPost {
			renderRegister(c, forms.RegistrationInput{}, forms.FieldErrors{})
			return
		}
		var in forms.RegistrationInput // Bind form values to struct
		_ = c.ShouldBind(&in)          // Validation happens in the identity service
		user, errs, err := authSvc.Register(c.Request.Context(), in)
		if err != nil {
			serverError(c, "Registration failed", err)
			return
		}
		// Re-render with field errors, keeping what was typed
		if errs != nil {
			renderRegister(c, in.Normalized(), errs)
			return
		}
		metrics.Registrations.Inc()
		// Log the new user in straight away
		if !startSession(c, authSvc, user) {
			return
		}
		middleware.AddFlash(c, middleware.LevelSuccess, RegisteredMessage)
		c.Redirect(http.StatusFound, "/")
	}
}

// LoginHandler shows the login form and authenticates users
func LoginHandler(authSvc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Show an empty form on GET
		if c.Request.Method != http.MethodPost {
			renderLogin(c, forms.LoginInput{Next: c.Query("next")}, forms.FieldErrors{}, "")
			return
		}
		var in forms.LoginInput // Bind form values to struct
		_ = c.ShouldBind(&in)
		if in.Next == "" {
			in.Next = c.Query("next") // Fall back to the query string
		}
		// Both fields are required
		if errs := in.Validate(); errs != nil {
			renderLogin(c, in, errs, "")
			return
		}
		user, err := authSvc.Authenticate(c.Request.Context(), in.Username, in.Password)
		if errors.Is(err, auth.ErrInvalidCredentials) {
			metrics.LoginAttempts.WithLabelValues("failure").Inc()
			logrus.WithField("username", in.Username).Warn("Login failed")
			renderLogin(c, in, forms.FieldErrors{}, InvalidLoginMessage)
			return
		}
		if err != nil {
			serverError(c, "Login failed", err)
			return
		}
		metrics.LoginAttempts.WithLabelValues("success").Inc()
		if !startSession(c, authSvc, user) {
			return
		}
		c.Redirect(http.StatusFound, safeNext(in.Next)) // Back to where the user was going
	}
}

// LogoutHandler ends the current session. Anonymous requests are stopped by LoginRequired.
func LogoutHandler(authSvc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		rc := middleware.Current(c)
		if err := authSvc.EndSession(c.Request.Context(), rc.SessionID); err != nil {
			serverError(c, "Logout failed", err)
			return
		}
		middleware.ClearSessionCookie(c)
		logrus.WithField("user_id", rc.Identity.ID).Info("User logged out")
		middleware.AddFlash(c, middleware.LevelInfo, LoggedOutMessage)
		c.Redirect(http.StatusFound, "/")
	}
}

// startSession issues a session cookie and reports whether it succeeded
func startSession(c *gin.Context, authSvc *auth.Service, user *domain.User) bool {
	token, err := authSvc.StartSession(c.Request.Context(), user)
	if err != nil {
		serverError(c, "Failed to start session", err)
		return false
	}
	middleware.SetSessionCookie(c, token, authSvc.TTL())
	logrus.WithFields(logrus.Fields{
		"user_id":  user.ID,       // Authenticated user
		"username": user.Username, // Username for the audit trail
	}).Info("User logged in")
	return true
}

func renderRegister(c *gin.Context, in forms.RegistrationInput, errs forms.FieldErrors) {
	in.Password1, in.Password2 = "", "" // Never echo passwords
	render(c, http.StatusOK, "register.html", gin.H{"Title": "Register", "Form": in, "Errors": errs})
}

func renderLogin(c *gin.Context, in forms.LoginInput, errs forms.FieldErrors, msg string) {
	in.Password = "" // Never echo passwords
	render(c, http.StatusOK, "login.html", gin.H{
		"Title":  "Log in",          // Page title
		"Form":   in,                // Submitted username
		"Errors": errs,              // Field errors
		"Error":  msg,               // Generic credential error
		"Next":   safeNext(in.Next), // Where to go after login
	})
}

// safeNext returns next when it is a path on this site, "/" otherwise
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}
