package auth

import (
	"context"
	"testing"
	"time"

	"bookshelf/internal/domain"
	"bookshelf/internal/forms"
	"bookshelf/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newService(t *testing.T) (*Service, *gorm.DB, *miniredis.Miniredis) {
	t.Helper()
	db := testutil.NewDB(t)
	rdb, srv := testutil.NewRedis(t)
	return NewService(db, rdb, "test-secret", time.Hour), db, srv
}

func registration(username string) forms.RegistrationInput {
	return forms.RegistrationInput{
		Username:  username,
		Email:     username + "@example.com",
		Password1: "correct-horse",
		Password2: "correct-horse",
	}
}

func countUsers(t *testing.T, db *gorm.DB) int64 {
	var n int64
	require.NoError(t, db.Model(&domain.User{}).Count(&n).Error)
	return n
}

func TestRegister(t *testing.T) {
	svc, db, _ := newService(t)

	user, errs, err := svc.Register(context.Background(), registration("reader"))
	require.NoError(t, err)
	require.Nil(t, errs)
	assert.NotZero(t, user.ID)
	assert.Equal(t, domain.RoleUser, user.Role)
	assert.NotEqual(t, "correct-horse", user.Password)
	assert.Equal(t, int64(1), countUsers(t, db))
}

func TestRegister_DuplicateUsername(t *testing.T) {
	svc, db, _ := newService(t)
	ctx := context.Background()
	_, _, err := svc.Register(ctx, registration("reader"))
	require.NoError(t, err)

	for _, name := range []string{"reader", "READER", "  reader  "} {
		user, errs, err := svc.Register(ctx, registration(name))
		require.NoError(t, err)
		assert.Nil(t, user)
		assert.Equal(t, UsernameTakenMessage, errs["username"], name)
	}
	assert.Equal(t, int64(1), countUsers(t, db))
}

func TestRegister_ConcurrentRegistration(t *testing.T) {
	svc, db, _ := newService(t)
	testutil.InsertBeforeCreate(t, db, "users",
		"INSERT INTO users (username, email, password, role) VALUES (?, ?, ?, ?)",
		"racer", "racer@example.com", "x", domain.RoleUser)

	user, errs, err := svc.Register(context.Background(), registration("racer"))
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.Equal(t, UsernameTakenMessage, errs["username"])
}

func TestCreateUser_ConcurrentInsert(t *testing.T) {
	svc, db, _ := newService(t)
	testutil.InsertBeforeCreate(t, db, "users",
		"INSERT INTO users (username, email, password, role) VALUES (?, ?, ?, ?)",
		"boss", "boss@example.com", "x", domain.RoleAdmin)

	_, err := svc.CreateUser(context.Background(), "boss", "boss@example.com", "s3cret-pass", domain.RoleAdmin)
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestRegister_InvalidForm(t *testing.T) {
	svc, db, _ := newService(t)

	in := registration("reader")
	in.Password2 = "different"
	user, errs, err := svc.Register(context.Background(), in)
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.Contains(t, errs, "password2")
	assert.Zero(t, countUsers(t, db))
}

func TestAuthenticate(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	registered, _, err := svc.Register(ctx, registration("reader"))
	require.NoError(t, err)

	user, err := svc.Authenticate(ctx, "reader", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)

	user, err = svc.Authenticate(ctx, "Reader", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)

	_, err = svc.Authenticate(ctx, "reader", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody", "correct-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSessionLifecycle(t *testing.T) {
	svc, db, _ := newService(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "reader", domain.RoleUser)

	token, err := svc.StartSession(ctx, user)
	require.NoError(t, err)

	resolved, sessionID, err := svc.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, resolved.ID)
	assert.NotEmpty(t, sessionID)

	require.NoError(t, svc.EndSession(ctx, sessionID))
	_, _, err = svc.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.NoError(t, svc.EndSession(ctx, sessionID))
	assert.NoError(t, svc.EndSession(ctx, ""))
}

func TestResolve_Expired(t *testing.T) {
	svc, db, srv := newService(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "reader", domain.RoleUser)

	token, err := svc.StartSession(ctx, user)
	require.NoError(t, err)
	srv.FastForward(2 * time.Hour)

	_, _, err = svc.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestResolve_BadToken(t *testing.T) {
	svc, db, _ := newService(t)
	ctx := context.Background()
	_, _, err := svc.Resolve(ctx, "garbage")
	assert.Error(t, err)

	// A token signed with another secret is rejected even if the session exists
	user := testutil.CreateUser(t, db, "reader", domain.RoleUser)
	forger := NewService(db, svc.rdb, "other-secret", time.Hour)
	token, err := forger.StartSession(ctx, user)
	require.NoError(t, err)
	_, _, err = svc.Resolve(ctx, token)
	assert.Error(t, err)
}

func TestDeleteUser_CascadesReviews(t *testing.T) {
	svc, db, _ := newService(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "reader", domain.RoleUser)
	other := testutil.CreateUser(t, db, "other", domain.RoleUser)
	cat := testutil.CreateCategory(t, db, "Sci-Fi")
	book := testutil.CreateBook(t, db, "Dune", "Frank Herbert", cat.ID)
	testutil.CreateReview(t, db, user.ID, book.ID, 5, "mine")
	testutil.CreateReview(t, db, other.ID, book.ID, 4, "theirs")

	token, err := svc.StartSession(ctx, user)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteUser(ctx, user.ID))

	var reviews []domain.Review
	require.NoError(t, db.Find(&reviews).Error)
	require.Len(t, reviews, 1)
	assert.Equal(t, "theirs", reviews[0].Comment)

	_, _, err = svc.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.ErrorIs(t, svc.DeleteUser(ctx, user.ID), ErrUserNotFound)
}

func TestCreateUser_Admin(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	admin, err := svc.CreateUser(ctx, "root", "root@example.com", "long-password", domain.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())

	_, err = svc.CreateUser(ctx, "ROOT", "", "long-password", domain.RoleAdmin)
	assert.ErrorIs(t, err, ErrUsernameTaken)
}
