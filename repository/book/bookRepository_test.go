package bookrepo_test

import (
	"context"
	"testing"
	"time"

	"schoollibrary/model"
	bookrepo "schoollibrary/repository/book"
	"schoollibrary/util/cursor"
	"schoollibrary/util/database/dbtest"

	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC)

func seed(t *testing.T, r bookrepo.Repo, id, title, author, category string, stock int) {
	t.Helper()
	require.NoError(t, r.Create(context.Background(), model.Book{
		ID: id, Title: title, Author: author, Category: category,
		Stock: stock, Available: stock, CreatedAt: now, UpdatedAt: now,
	}))
}

func TestListFiltersAndPages(t *testing.T) {
	r := bookrepo.New(dbtest.New(t))
	ctx := context.Background()
	seed(t, r, "1", "Bumi Manusia", "Pramoedya Ananta Toer", "Novel", 2)
	seed(t, r, "2", "Anak Semua Bangsa", "Pramoedya Ananta Toer", "Novel", 1)
	seed(t, r, "3", "Fisika Dasar", "Halliday", "Sains", 5)
	seed(t, r, "4", "Laskar Pelangi", "Andrea Hirata", "Novel", 3)

	rows, next, err := r.List(ctx, model.BookFilter{Search: "PRAMOEDYA"})
	require.NoError(t, err)
	require.Empty(t, next)
	require.Len(t, rows, 2)
	require.Equal(t, "Anak Semua Bangsa", rows[0].Title)

	rows, _, err = r.List(ctx, model.BookFilter{Search: "fisika", Category: "Sains"})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	rows, _, err = r.List(ctx, model.BookFilter{Category: "Novel", Search: "hirata"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "4", rows[0].ID)

	var titles []string
	page := model.Page{Limit: 3}
	for {
		rows, next, err := r.List(ctx, model.BookFilter{Page: page})
		require.NoError(t, err)
		for _, b := range rows {
			titles = append(titles, b.Title)
		}
		if next == "" {
			break
		}
		page.Cursor = next
	}
	require.Equal(t, []string{"Anak Semua Bangsa", "Bumi Manusia", "Fisika Dasar", "Laskar Pelangi"}, titles)

	_, _, err = r.List(ctx, model.BookFilter{Page: model.Page{Cursor: "zz"}})
	require.ErrorIs(t, err, cursor.ErrInvalid)
}

func TestUpdateClampsAvailable(t *testing.T) {
	db := dbtest.New(t)
	r := bookrepo.New(db)
	ctx := context.Background()
	seed(t, r, "b", "Saman", "Ayu Utami", "Novel", 5)
	_, err := db.ExecContext(ctx, `UPDATE books SET available = 1 WHERE id = 'b'`)
	require.NoError(t, err)

	stock := 2
	ok, err := r.Update(ctx, "b", model.BookPatch{Stock: &stock, Location: &[]string{"Rak A3"}[0]}, now)
	require.NoError(t, err)
	require.True(t, ok)

	b, err := r.Get(ctx, "b")
	require.NoError(t, err)
	require.Equal(t, 2, b.Stock)
	require.Equal(t, 0, b.Available)
	require.Equal(t, "Rak A3", b.Location)

	stock = 9
	_, err = r.Update(ctx, "b", model.BookPatch{Stock: &stock}, now)
	require.NoError(t, err)
	b, err = r.Get(ctx, "b")
	require.NoError(t, err)
	// 0 + (9 - 2)
	require.Equal(t, 7, b.Available)

	ok, err = r.Update(ctx, "missing", model.BookPatch{Stock: &stock}, now)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSoftDelete(t *testing.T) {
	db := dbtest.New(t)
	r := bookrepo.New(db)
	ctx := context.Background()
	seed(t, r, "b", "Amba", "Laksmi Pamuntjak", "Novel", 1)

	_, err := db.ExecContext(ctx, `INSERT INTO loans (id, book_id, borrower_id, status, borrow_date, due_date, created_at, updated_at)
VALUES ('l1', 'b', 's1', 'Borrowed', ?, ?, ?, ?)`, now, now, now, now)
	require.NoError(t, err)

	ok, err := r.SoftDelete(ctx, db, "b", now)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = db.ExecContext(ctx, `UPDATE loans SET status = 'Returned' WHERE id = 'l1'`)
	require.NoError(t, err)
	ok, err = r.SoftDelete(ctx, db, "b", now)
	require.NoError(t, err)
	require.True(t, ok)

	b, err := r.Get(ctx, "b")
	require.NoError(t, err)
	require.Nil(t, b)

	ok, err = r.SoftDelete(ctx, db, "b", now)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLockForUpdate(t *testing.T) {
	db := dbtest.New(t)
	r := bookrepo.New(db)
	ctx := context.Background()
	seed(t, r, "b", "Amba", "Laksmi Pamuntjak", "Novel", 1)

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	ok, err := r.LockForUpdate(ctx, tx, "b")
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = r.SoftDelete(ctx, tx, "b", now)
	require.NoError(t, err)
	require.True(t, ok)

	// a deleted or unknown book has nothing to lock
	ok, err = r.LockForUpdate(ctx, tx, "b")
	require.NoError(t, err)
	require.False(t, ok)
	ok, err = r.LockForUpdate(ctx, tx, "missing")
	require.NoError(t, err)
	require.False(t, ok)
}
