package catalog

import (
	"context"
	"strconv"
	"testing"

	"bookshelf/internal/domain"
	"bookshelf/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db      *gorm.DB
	svc     *Service
	scifi   *domain.Category
	fantasy *domain.Category
	dune    *domain.Book
	hobbit  *domain.Book
	found   *domain.Book
	reader  *domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	f := &fixture{db: db, svc: NewService(db)}
	f.scifi = testutil.CreateCategory(t, db, "Sci-Fi")
	f.fantasy = testutil.CreateCategory(t, db, "Fantasy")
	f.dune = testutil.CreateBook(t, db, "Dune", "Frank Herbert", f.scifi.ID)
	f.found = testutil.CreateBook(t, db, "Foundation", "Isaac Asimov", f.scifi.ID)
	f.hobbit = testutil.CreateBook(t, db, "The Hobbit", "J.R.R. Tolkien", f.fantasy.ID)
	f.reader = testutil.CreateUser(t, db, "reader", domain.RoleUser)
	return f
}

func titles(books []domain.Book) []string {
	out := make([]string, 0, len(books))
	for _, b := range books {
		out = append(out, b.Title)
	}
	return out
}

func TestList_NoFilters(t *testing.T) {
	f := newFixture(t)

	listing, err := f.svc.List(context.Background(), Filter{})
	require.NoError(t, err)

	assert.Equal(t, []string{"Dune", "Foundation", "The Hobbit"}, titles(listing.Books))
	require.Len(t, listing.Categories, 2)
	assert.Equal(t, "Fantasy", listing.Categories[0].Name)
	assert.Equal(t, "Sci-Fi", listing.Categories[1].Name)
	assert.Equal(t, "Sci-Fi", listing.Books[0].Category.Name)
}

func TestList_Query(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		query string
		want  []string
	}{
		{query: "dune", want: []string{"Dune"}},
		{query: "DUNE", want: []string{"Dune"}},
		{query: "herb", want: []string{"Dune"}},
		{query: "o", want: []string{"Foundation", "The Hobbit"}},
		{query: "tolkien", want: []string{"The Hobbit"}},
		{query: "missing", want: []string{}},
		{query: "%", want: []string{}},
		{query: "_", want: []string{}},
		{query: "r.r.", want: []string{"The Hobbit"}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			listing, err := f.svc.List(context.Background(), Filter{Query: tt.query})
			require.NoError(t, err)
			assert.Equal(t, tt.want, titles(listing.Books))
			assert.Equal(t, tt.query, listing.Query)
		})
	}
}

func TestList_Category(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name     string
		selector string
		want     []string
	}{
		{name: "by id", selector: itoa(f.scifi.ID), want: []string{"Dune", "Foundation"}},
		{name: "by name", selector: "Fantasy", want: []string{"The Hobbit"}},
		{name: "by name case-insensitive", selector: "sci-fi", want: []string{"Dune", "Foundation"}},
		{name: "unknown id", selector: "99", want: []string{}},
		{name: "unknown name", selector: "Poetry", want: []string{}},
		{name: "partial name", selector: "sci", want: []string{}},
		{name: "id overflow", selector: "99999999999999999999999", want: []string{}},
		{name: "negative", selector: "-1", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			listing, err := f.svc.List(context.Background(), Filter{Category: tt.selector})
			require.NoError(t, err)
			assert.Equal(t, tt.want, titles(listing.Books))
			assert.Equal(t, tt.selector, listing.SelectedCategory)
			assert.Len(t, listing.Categories, 2)
		})
	}
}

func TestList_QueryAndCategory(t *testing.T) {
	f := newFixture(t)

	listing, err := f.svc.List(context.Background(), Filter{Query: "o", Category: "fantasy"})
	require.NoError(t, err)
	assert.Equal(t, []string{"The Hobbit"}, titles(listing.Books))

	listing, err = f.svc.List(context.Background(), Filter{Query: "dune", Category: "fantasy"})
	require.NoError(t, err)
	assert.Empty(t, listing.Books)
}

func TestBook(t *testing.T) {
	f := newFixture(t)

	book, err := f.svc.Book(context.Background(), f.dune.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune", book.Title)
	assert.Equal(t, "Sci-Fi", book.Category.Name)

	_, err = f.svc.Book(context.Background(), 4242)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReviews_NewestFirst(t *testing.T) {
	f := newFixture(t)
	first := testutil.CreateReview(t, f.db, f.reader.ID, f.dune.ID, 4, "first")
	second := testutil.CreateReview(t, f.db, f.reader.ID, f.dune.ID, 5, "second")
	testutil.CreateReview(t, f.db, f.reader.ID, f.hobbit.ID, 3, "other book")

	reviews, err := f.svc.Reviews(context.Background(), f.dune.ID)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Equal(t, second.ID, reviews[0].ID)
	assert.Equal(t, first.ID, reviews[1].ID)
	assert.Equal(t, "reader", reviews[0].User.Username)
}

func TestAverageRating(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	avg, err := f.svc.AverageRating(ctx, f.dune.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, avg)

	testutil.CreateReview(t, f.db, f.reader.ID, f.dune.ID, 4, "good")
	testutil.CreateReview(t, f.db, f.reader.ID, f.dune.ID, 5, "great")
	avg, err = f.svc.AverageRating(ctx, f.dune.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.5, avg)

	// Recomputed after a new review lands
	testutil.CreateReview(t, f.db, f.reader.ID, f.dune.ID, 5, "again")
	avg, err = f.svc.AverageRating(ctx, f.dune.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.7, avg)

	// Unrated reviews count as 0
	testutil.CreateReview(t, f.db, f.reader.ID, f.found.ID, 0, "no stars")
	testutil.CreateReview(t, f.db, f.reader.ID, f.found.ID, 3, "fine")
	avg, err = f.svc.AverageRating(ctx, f.found.ID)
	require.NoError(t, err)
	assert.Equal(t, 1.5, avg)
}

func TestRoundRating(t *testing.T) {
	tests := []struct {
		mean float64
		want float64
	}{
		{mean: 0, want: 0},
		{mean: 4.5, want: 4.5},
		{mean: 14.0 / 3.0, want: 4.7},
		{mean: 10.0 / 3.0, want: 3.3},
		{mean: 4.25, want: 4.3},
		{mean: 1.75, want: 1.8},
		{mean: 5, want: 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RoundRating(tt.mean), "mean %v", tt.mean)
	}
}

func TestScenario_Dune(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewService(db)
	ctx := context.Background()

	scifi := testutil.CreateCategory(t, db, "Sci-Fi")
	require.Equal(t, uint(1), scifi.ID)
	dune := testutil.CreateBook(t, db, "Dune", "Frank Herbert", scifi.ID)
	alice := testutil.CreateUser(t, db, "alice", domain.RoleUser)
	bob := testutil.CreateUser(t, db, "bob", domain.RoleUser)
	testutil.CreateReview(t, db, alice.ID, dune.ID, 4, "Spice")
	testutil.CreateReview(t, db, bob.ID, dune.ID, 5, "Must flow")

	avg, err := svc.AverageRating(ctx, dune.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.5, avg)

	for _, f := range []Filter{{Query: "dune"}, {Category: "1"}, {Category: "sci-fi"}} {
		listing, err := svc.List(ctx, f)
		require.NoError(t, err)
		assert.Equal(t, []string{"Dune"}, titles(listing.Books), "%+v", f)
	}

	listing, err := svc.List(ctx, Filter{Category: "99"})
	require.NoError(t, err)
	assert.Empty(t, listing.Books)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
