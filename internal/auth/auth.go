// Package auth is the identity service: account registration, credential
// checks and login sessions.
//
// Sessions live in Redis under session:<id> with the configured TTL. The
// browser holds an HS256 token naming the user and the session, so ending a
// session server-side invalidates the cookie even before it expires.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bookshelf/internal/domain"
	"bookshelf/internal/forms"
	"bookshelf/internal/utils"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Identity errors
var (
	// ErrInvalidCredentials is returned for an unknown username or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrSessionNotFound is returned when a token names a session that has ended.
	ErrSessionNotFound = errors.New("session not found")

	// ErrUsernameTaken is returned when creating a user whose username exists.
	ErrUsernameTaken = errors.New("username already exists")

	// ErrUserNotFound is returned when deleting an unknown user.
	ErrUserNotFound = errors.New("user not found")
)

// UsernameTakenMessage is shown on the registration form for a duplicate username.
const UsernameTakenMessage = "This username is already taken."

const sessionKeyPrefix = "session:"

// sessionRecord is the value stored in Redis for a live session.
type sessionRecord struct {
	UserID    uint      `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Service implements registration, authentication and sessions.
type Service struct {
	db     *gorm.DB
	rdb    *redis.Client
	secret string
	ttl    time.Duration
}

// NewService returns an identity service. secret signs session tokens and
// ttl bounds each session's lifetime.
func NewService(db *gorm.DB, rdb *redis.Client, secret string, ttl time.Duration) *Service {
	return &Service{db: db, rdb: rdb, secret: secret, ttl: ttl}
}

// TTL is the lifetime of new sessions.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Register validates the registration form and creates an ordinary user.
// Form problems, including a taken username, come back as FieldErrors with
// no user created; err is reserved for store failures.
func (s *Service) Register(ctx context.Context, in forms.RegistrationInput) (*domain.User, forms.FieldErrors, error) {
	in = in.Normalized()
	errs := in.Validate()

	if in.Username != "" {
		taken, err := s.usernameTaken(ctx, s.db.WithContext(ctx), in.Username)
		if err != nil {
			return nil, nil, err
		}
		if taken {
			if errs == nil {
				errs = forms.FieldErrors{}
			}
			errs["username"] = UsernameTakenMessage
		}
	}
	if errs != nil {
		return nil, errs, nil
	}

	user, err := s.CreateUser(ctx, in.Username, in.Email, in.Password1, domain.RoleUser)
	if errors.Is(err, ErrUsernameTaken) {
		// Lost a race with a concurrent registration
		return nil, forms.FieldErrors{"username": UsernameTakenMessage}, nil
	}
	if err != nil {
		return nil, nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"username": user.Username,
	}).Info("User registered")
	return user, nil, nil
}

// CreateUser hashes password and inserts a user with the given role.
func (s *Service) CreateUser(ctx context.Context, username, email, password, role string) (*domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &domain.User{Username: username, Email: email, Password: string(hash), Role: role}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := s.usernameTaken(ctx, tx, username)
		if err != nil {
			return err
		}
		if taken {
			return ErrUsernameTaken
		}
		if err := tx.Create(user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrUsernameTaken
			}
			return fmt.Errorf("create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate returns the user whose username and password match.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	var user domain.User
	err := s.db.WithContext(ctx).
		Where("LOWER(username) = ?", strings.ToLower(strings.TrimSpace(username))).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	// Compare provided password with stored hash
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// StartSession records a new session for user and returns the signed token
// to hand to the browser.
func (s *Service) StartSession(ctx context.Context, user *domain.User) (string, error) {
	sessionID := uuid.NewString()
	record := sessionRecord{UserID: user.ID, CreatedAt: time.Now()}
	if err := utils.SetCache(ctx, s.rdb, sessionKeyPrefix+sessionID, record, s.ttl); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	token, err := utils.GenerateJWT(user.ID, sessionID, s.secret, s.ttl)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return token, nil
}

// Resolve maps a session token to its user and session id. Any failure means
// the request is anonymous.
func (s *Service) Resolve(ctx context.Context, token string) (*domain.User, string, error) {
	claims, err := utils.ParseJWT(token, s.secret)
	if err != nil {
		return nil, "", fmt.Errorf("parse session token: %w", err)
	}
	var record sessionRecord
	found, err := utils.GetCache(ctx, s.rdb, sessionKeyPrefix+claims.ID, &record)
	if err != nil {
		return nil, "", fmt.Errorf("load session: %w", err)
	}
	if !found || record.UserID != claims.UserID {
		return nil, "", ErrSessionNotFound
	}
	var user domain.User
	err = s.db.WithContext(ctx).First(&user, claims.UserID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", ErrSessionNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("load session user: %w", err)
	}
	return &user, claims.ID, nil
}

// EndSession deletes a session. Ending an unknown session is not an error.
func (s *Service) EndSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := utils.DeleteCache(ctx, s.rdb, sessionKeyPrefix+sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteUser removes a user and every review they wrote.
func (s *Service) DeleteUser(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&domain.Review{}).Error; err != nil {
			return fmt.Errorf("delete reviews of user %d: %w", id, err)
		}
		res := tx.Delete(&domain.User{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete user %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrUserNotFound
		}
		return nil
	})
}

func (s *Service) usernameTaken(ctx context.Context, db *gorm.DB, username string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.User{}).
		Where("LOWER(username) = ?", strings.ToLower(username)).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return n > 0, nil
}
