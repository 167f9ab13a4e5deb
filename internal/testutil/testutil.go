// Package testutil builds throwaway stores for package tests.
package testutil

import (
	"path/filepath"
	"testing"

	"bookshelf/internal/db"
	"bookshelf/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a migrated SQLite database in the test's temp dir.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db") + "?_pragma=foreign_keys(1)"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent), TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(gdb))
	return gdb
}

// NewRedis starts an in-process Redis and returns a client bound to it.
func NewRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb, srv
}

// CreateUser inserts a user whose password is the username twice.
func CreateUser(t *testing.T, gdb *gorm.DB, username, role string) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(username+username), bcrypt.MinCost)
	require.NoError(t, err)
	u := &domain.User{Username: username, Email: username + "@example.com", Password: string(hash), Role: role}
	require.NoError(t, gdb.Create(u).Error)
	return u
}

// CreateCategory inserts a category.
func CreateCategory(t *testing.T, gdb *gorm.DB, name string) *domain.Category {
	t.Helper()
	c := &domain.Category{Name: name}
	require.NoError(t, gdb.Create(c).Error)
	return c
}

// CreateBook inserts a book in the given category.
func CreateBook(t *testing.T, gdb *gorm.DB, title, author string, categoryID uint) *domain.Book {
	t.Helper()
	b := &domain.Book{Title: title, Author: author, CategoryID: categoryID, Description: title + " by " + author}
	require.NoError(t, gdb.Create(b).Error)
	return b
}

// CreateReview inserts a review.
func CreateReview(t *testing.T, gdb *gorm.DB, userID, bookID uint, rating int, comment string) *domain.Review {
	t.Helper()
	r := &domain.Review{UserID: userID, BookID: bookID, Rating: rating, Comment: comment}
	require.NoError(t, gdb.Create(r).Error)
	return r
}

// InsertBeforeCreate runs sql on the creating connection just before the
// next insert into table, the way a concurrent request that got there
// first would.
func InsertBeforeCreate(t *testing.T, gdb *gorm.DB, table, sql string, args ...any) {
	t.Helper()
	done := false
	err := gdb.Callback().Create().Before("gorm:create").Register("testutil:insert_before_create", func(tx *gorm.DB) {
		if done || tx.Statement.Table != table {
			return
		}
		done = true
		if _, err := tx.Statement.ConnPool.ExecContext(tx.Statement.Context, sql, args...); err != nil {
			_ = tx.AddError(err)
		}
	})
	require.NoError(t, err)
}
