package bookrepo

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"schoollibrary/model"
	"schoollibrary/util/cursor"
	"schoollibrary/util/database"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/pkg/errors"
)

const tableBooks = "books"

var bookColumns = []interface{}{
	"id", "title", "author", "publisher", "isbn", "year", "category", "stock", "available",
	"location", "cover_image", "pdf_url", "synopsis", "created_at", "updated_at",
}

type Repo interface {
	Create(ctx context.Context, b model.Book) error
	Get(ctx context.Context, id string) (*model.Book, error)
	Update(ctx context.Context, id string, p model.BookPatch, now time.Time) (bool, error)
	// LockForUpdate takes the row lock of a live book inside q's transaction.
	LockForUpdate(ctx context.Context, q database.DBTX, id string) (bool, error)
	SoftDelete(ctx context.Context, q database.DBTX, id string, now time.Time) (bool, error)
	List(ctx context.Context, f model.BookFilter) ([]model.Book, string, error)
}

type repo struct {
	db database.DBTX
	d  goqu.DialectWrapper
}

func New(db *database.DB) Repo { return &repo{db: db, d: goqu.Dialect(db.Dialect())} }

func (r *repo) Create(ctx context.Context, b model.Book) error {
	q, args, err := r.d.Insert(tableBooks).Prepared(true).Rows(goqu.Record{
		"id":          b.ID,
		"title":       b.Title,
		"author":      b.Author,
		"publisher":   b.Publisher,
		"isbn":        nullable(b.ISBN),
		"year":        b.Year,
		"category":    b.Category,
		"stock":       b.Stock,
		"available":   b.Available,
		"location":    b.Location,
		"cover_image": b.CoverImage,
		"pdf_url":     b.PDFURL,
		"synopsis":    b.Synopsis,
		"created_at":  b.CreatedAt,
		"updated_at":  b.UpdatedAt,
	}).ToSQL()
	if err != nil {
		return errors.Wrap(err, "building book insert")
	}
	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		return errors.Wrap(err, "inserting book")
	}
	return nil
}

// Get returns nil without error when the book is missing or deleted.
func (r *repo) Get(ctx context.Context, id string) (*model.Book, error) {
	q, args, err := r.d.From(tableBooks).Prepared(true).
		Select(bookColumns...).
		Where(goqu.C("id").Eq(id), goqu.C("deleted_at").IsNull()).
		ToSQL()
	if err != nil {
		return nil, errors.Wrap(err, "building book select")
	}
	b, err := scanBook(r.db.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "selecting book")
	}
	return b, nil
}

// Update applies a partial patch in one statement. A stock change shifts available by
// the same delta, clamped to [0, new stock]; stock on the right hand side is the old value.
func (r *repo) Update(ctx context.Context, id string, p model.BookPatch, now time.Time) (bool, error) {
	rec := goqu.Record{"updated_at": now}
	setString(rec, "title", p.Title)
	setString(rec, "author", p.Author)
	setString(rec, "publisher", p.Publisher)
	setString(rec, "category", p.Category)
	setString(rec, "location", p.Location)
	setString(rec, "cover_image", p.CoverImage)
	setString(rec, "pdf_url", p.PDFURL)
	setString(rec, "synopsis", p.Synopsis)
	if p.ISBN != nil {
		rec["isbn"] = nullable(p.ISBN)
	}
	if p.Year != nil {
		rec["year"] = *p.Year
	}
	if p.Stock != nil {
		n := *p.Stock
		rec["stock"] = n
		rec["available"] = goqu.L(
			"CASE WHEN available + (? - stock) < 0 THEN 0 WHEN available + (? - stock) > ? THEN ? ELSE available + (? - stock) END",
			n, n, n, n, n,
		)
	}

	q, args, err := r.d.Update(tableBooks).Prepared(true).
		Set(rec).
		Where(goqu.C("id").Eq(id), goqu.C("deleted_at").IsNull()).
		ToSQL()
	if err != nil {
		return false, errors.Wrap(err, "building book update")
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return false, errors.Wrap(err, "updating book")
	}
	aff, _ := res.RowsAffected()
	return aff > 0, nil
}

func (r *repo) lockSQL(id string) (string, []interface{}, error) {
	return r.d.From(tableBooks).Prepared(true).
		Select("id").
		Where(goqu.C("id").Eq(id), goqu.C("deleted_at").IsNull()).
		ForUpdate(goqu.Wait).
		ToSQL()
}

func (r *repo) LockForUpdate(ctx context.Context, q database.DBTX, id string) (bool, error) {
	query, args, err := r.lockSQL(id)
	if err != nil {
		return false, errors.Wrap(err, "building book lock")
	}
	var got string
	err = q.QueryRowContext(ctx, query, args...).Scan(&got)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "locking book")
	}
	return true, nil
}

// SoftDelete marks the book deleted unless a Pending or Borrowed loan references it.
// Callers hold the book row lock so a loan filed concurrently is visible to the guard.
func (r *repo) SoftDelete(ctx context.Context, q database.DBTX, id string, now time.Time) (bool, error) {
	statuses := make([]interface{}, 0, len(model.ActiveLoanStatuses))
	for _, st := range model.ActiveLoanStatuses {
		statuses = append(statuses, string(st))
	}
	active := r.d.From("loans").
		Select(goqu.L("1")).
		Where(
			goqu.I("loans.book_id").Eq(goqu.I("books.id")),
			goqu.I("loans.status").In(statuses...),
		)
	query, args, err := r.d.Update(tableBooks).Prepared(true).
		Set(goqu.Record{"deleted_at": now, "updated_at": now}).
		Where(
			goqu.C("id").Eq(id),
			goqu.C("deleted_at").IsNull(),
			goqu.L("NOT EXISTS ?", active),
		).
		ToSQL()
	if err != nil {
		return false, errors.Wrap(err, "building book delete")
	}
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return false, errors.Wrap(err, "deleting book")
	}
	aff, _ := res.RowsAffected()
	return aff > 0, nil
}

func (r *repo) List(ctx context.Context, f model.BookFilter) ([]model.Book, string, error) {
	limit := cursor.Limit(f.Page.Limit, 0, 0)
	where := []exp.Expression{goqu.C("deleted_at").IsNull()}
	if s := strings.TrimSpace(f.Search); s != "" {
		pat := "%" + strings.ToLower(s) + "%"
		where = append(where, goqu.Or(
			goqu.Func("LOWER", goqu.C("title")).Like(pat),
			goqu.Func("LOWER", goqu.C("author")).Like(pat),
		))
	}
	if c := strings.TrimSpace(f.Category); c != "" {
		where = append(where, goqu.C("category").Eq(c))
	}
	if f.Page.Cursor != "" {
		k, err := cursor.Decode(f.Page.Cursor)
		if err != nil {
			return nil, "", err
		}
		where = append(where, goqu.Or(
			goqu.C("title").Gt(k.S),
			goqu.And(goqu.C("title").Eq(k.S), goqu.C("id").Gt(k.ID)),
		))
	}

	q, args, err := r.d.From(tableBooks).Prepared(true).
		Select(bookColumns...).
		Where(where...).
		Order(goqu.C("title").Asc(), goqu.C("id").Asc()).
		Limit(uint(limit + 1)).
		ToSQL()
	if err != nil {
		return nil, "", errors.Wrap(err, "building book list")
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, "", errors.Wrap(err, "listing books")
	}
	defer rows.Close()

	out := make([]model.Book, 0, limit)
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, "", errors.Wrap(err, "scanning book")
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, "", errors.Wrap(err, "listing books")
	}

	var next string
	if len(out) > limit {
		out = out[:limit]
		last := out[limit-1]
		next = cursor.Encode(cursor.Key{S: last.Title, ID: last.ID})
	}
	return out, next, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBook(s scanner) (*model.Book, error) {
	var b model.Book
	var isbn sql.NullString
	if err := s.Scan(
		&b.ID, &b.Title, &b.Author, &b.Publisher, &isbn, &b.Year, &b.Category, &b.Stock, &b.Available,
		&b.Location, &b.CoverImage, &b.PDFURL, &b.Synopsis, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if isbn.Valid {
		b.ISBN = &isbn.String
	}
	return &b, nil
}

func setString(rec goqu.Record, col string, v *string) {
	if v != nil {
		rec[col] = *v
	}
}

// nullable maps a missing or blank ISBN to NULL so it stays out of the unique index.
func nullable(s *string) interface{} {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return strings.TrimSpace(*s)
}
