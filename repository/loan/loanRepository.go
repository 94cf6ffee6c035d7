// repository/loan/repo.go
package loanrepo

import (
	"context"
	"database/sql"
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

// BookStock is the part of a book the circulation desk needs.
type BookStock struct {
	ID        string
	Title     string
	Stock     int
	Available int
}

type Repo interface {
	// Books
	GetBookStock(ctx context.Context, q database.DBTX, bookID string) (*BookStock, error)
	ReserveCopy(ctx context.Context, q database.DBTX, bookID string, now time.Time) (bool, error)
	ReleaseCopy(ctx context.Context, q database.DBTX, bookID string, now time.Time) (bool, error)

	// Loans
	Insert(ctx context.Context, q database.DBTX, l model.Loan) error
	Get(ctx context.Context, q database.DBTX, id string) (*model.Loan, error)
	Approve(ctx context.Context, q database.DBTX, id string, borrowed, due time.Time) (bool, error)
	Reject(ctx context.Context, q database.DBTX, id string, now time.Time) (bool, error)
	MarkReturned(ctx context.Context, q database.DBTX, id string, returned time.Time, fine int64, overdue bool) (bool, error)
	FlagOverdue(ctx context.Context, q database.DBTX, id string, now time.Time) (bool, error)

	// Listing
	List(ctx context.Context, f model.LoanFilter) ([]model.Loan, string, error)
	ListDueBefore(ctx context.Context, before time.Time, limit int) ([]model.Loan, error)
}

type repo struct {
	db database.DBTX
	d  goqu.DialectWrapper
}

func New(db *database.DB) Repo { return &repo{db: db, d: goqu.Dialect(db.Dialect())} }

var loanColumns = []interface{}{
	goqu.I("l.id"), goqu.I("l.book_id"), goqu.I("b.title"), goqu.I("b.author"), goqu.I("l.borrower_id"),
	goqu.I("l.status"), goqu.I("l.borrow_date"), goqu.I("l.due_date"), goqu.I("l.return_date"),
	goqu.I("l.fine"), goqu.I("l.is_overdue"), goqu.I("l.stock_reserved"), goqu.I("l.academic_year"),
	goqu.I("l.created_at"), goqu.I("l.updated_at"),
}

func (r *repo) loans() *goqu.SelectDataset {
	return r.d.From(goqu.T("loans").As("l")).Prepared(true).
		Join(goqu.T("books").As("b"), goqu.On(goqu.I("b.id").Eq(goqu.I("l.book_id")))).
		Select(loanColumns...)
}

// Books

func (r *repo) bookStockSQL(bookID string) (string, []interface{}, error) {
	return r.d.From("books").Prepared(true).
		Select("id", "title", "stock", "available").
		Where(goqu.C("id").Eq(bookID), goqu.C("deleted_at").IsNull()).
		ForUpdate(goqu.Wait).
		ToSQL()
}

// GetBookStock reads and row-locks a live book; a concurrent delete waits for q's transaction.
func (r *repo) GetBookStock(ctx context.Context, q database.DBTX, bookID string) (*BookStock, error) {
	query, args, err := r.bookStockSQL(bookID)
	if err != nil {
		return nil, errors.Wrap(err, "building book stock select")
	}
	var b BookStock
	err = q.QueryRowContext(ctx, query, args...).Scan(&b.ID, &b.Title, &b.Stock, &b.Available)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "selecting book stock")
	}
	return &b, nil
}

// ReserveCopy takes one unit of available; false when none is left.
func (r *repo) ReserveCopy(ctx context.Context, q database.DBTX, bookID string, now time.Time) (bool, error) {
	query, args, err := r.d.Update("books").Prepared(true).
		Set(goqu.Record{"available": goqu.L("available - 1"), "updated_at": now}).
		Where(goqu.C("id").Eq(bookID), goqu.C("available").Gt(0), goqu.C("deleted_at").IsNull()).
		ToSQL()
	if err != nil {
		return false, errors.Wrap(err, "building reserve copy")
	}
	return r.exec(ctx, q, query, args, "reserving copy")
}

// ReleaseCopy gives one unit back, never above stock.
func (r *repo) ReleaseCopy(ctx context.Context, q database.DBTX, bookID string, now time.Time) (bool, error) {
	query, args, err := r.d.Update("books").Prepared(true).
		Set(goqu.Record{"available": goqu.L("available + 1"), "updated_at": now}).
		Where(goqu.C("id").Eq(bookID), goqu.C("available").Lt(goqu.I("stock"))).
		ToSQL()
	if err != nil {
		return false, errors.Wrap(err, "building release copy")
	}
	return r.exec(ctx, q, query, args, "releasing copy")
}

// Loans

func (r *repo) Insert(ctx context.Context, q database.DBTX, l model.Loan) error {
	query, args, err := r.d.Insert("loans").Prepared(true).Rows(goqu.Record{
		"id":             l.ID,
		"book_id":        l.BookID,
		"borrower_id":    l.BorrowerID,
		"status":         string(l.Status),
		"borrow_date":    l.BorrowDate,
		"due_date":       l.DueDate,
		"fine":           l.Fine,
		"is_overdue":     l.IsOverdue,
		"stock_reserved": l.StockReserved,
		"academic_year":  l.AcademicYear,
		"created_at":     l.CreatedAt,
		"updated_at":     l.UpdatedAt,
	}).ToSQL()
	if err != nil {
		return errors.Wrap(err, "building loan insert")
	}
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "inserting loan")
	}
	return nil
}

// Get returns nil without error when the loan does not exist.
func (r *repo) Get(ctx context.Context, q database.DBTX, id string) (*model.Loan, error) {
	query, args, err := r.loans().Where(goqu.I("l.id").Eq(id)).ToSQL()
	if err != nil {
		return nil, errors.Wrap(err, "building loan select")
	}
	l, err := scanLoan(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "selecting loan")
	}
	return l, nil
}

func (r *repo) Approve(ctx context.Context, q database.DBTX, id string, borrowed, due time.Time) (bool, error) {
	return r.transition(ctx, q, id, model.LoanPending, goqu.Record{
		"status":         string(model.LoanBorrowed),
		"borrow_date":    borrowed,
		"due_date":       due,
		"stock_reserved": true,
		"updated_at":     borrowed,
	})
}

func (r *repo) Reject(ctx context.Context, q database.DBTX, id string, now time.Time) (bool, error) {
	return r.transition(ctx, q, id, model.LoanPending, goqu.Record{
		"status":     string(model.LoanRejected),
		"updated_at": now,
	})
}

func (r *repo) MarkReturned(ctx context.Context, q database.DBTX, id string, returned time.Time, fine int64, overdue bool) (bool, error) {
	return r.transition(ctx, q, id, model.LoanBorrowed, goqu.Record{
		"status":      string(model.LoanReturned),
		"return_date": returned,
		"fine":        fine,
		"is_overdue":  overdue,
		"updated_at":  returned,
	})
}

func (r *repo) FlagOverdue(ctx context.Context, q database.DBTX, id string, now time.Time) (bool, error) {
	query, args, err := r.d.Update("loans").Prepared(true).
		Set(goqu.Record{"is_overdue": true, "updated_at": now}).
		Where(
			goqu.C("id").Eq(id),
			goqu.C("status").Eq(string(model.LoanBorrowed)),
			goqu.C("is_overdue").IsFalse(),
		).
		ToSQL()
	if err != nil {
		return false, errors.Wrap(err, "building overdue flag")
	}
	return r.exec(ctx, q, query, args, "flagging overdue loan")
}

// transition guards the update with the expected current status so only one caller wins.
func (r *repo) transition(ctx context.Context, q database.DBTX, id string, from model.LoanStatus, set goqu.Record) (bool, error) {
	query, args, err := r.d.Update("loans").Prepared(true).
		Set(set).
		Where(goqu.C("id").Eq(id), goqu.C("status").Eq(string(from))).
		ToSQL()
	if err != nil {
		return false, errors.Wrap(err, "building loan transition")
	}
	return r.exec(ctx, q, query, args, "updating loan")
}

// Listing

func (r *repo) List(ctx context.Context, f model.LoanFilter) ([]model.Loan, string, error) {
	limit := cursor.Limit(f.Page.Limit, 0, 0)
	var where []exp.Expression
	if f.BorrowerID != "" {
		where = append(where, goqu.I("l.borrower_id").Eq(f.BorrowerID))
	}
	if f.Status != "" {
		where = append(where, goqu.I("l.status").Eq(string(f.Status)))
	}
	if f.Page.Cursor != "" {
		k, err := cursor.Decode(f.Page.Cursor)
		if err != nil {
			return nil, "", err
		}
		at := k.T.UTC()
		where = append(where, goqu.Or(
			goqu.I("l.borrow_date").Lt(at),
			goqu.And(goqu.I("l.borrow_date").Eq(at), goqu.I("l.id").Lt(k.ID)),
		))
	}

	query, args, err := r.loans().
		Where(where...).
		Order(goqu.I("l.borrow_date").Desc(), goqu.I("l.id").Desc()).
		Limit(uint(limit + 1)).
		ToSQL()
	if err != nil {
		return nil, "", errors.Wrap(err, "building loan list")
	}
	out, err := r.query(ctx, query, args)
	if err != nil {
		return nil, "", err
	}

	var next string
	if len(out) > limit {
		out = out[:limit]
		last := out[limit-1]
		next = cursor.Encode(cursor.Key{T: last.BorrowDate, ID: last.ID})
	}
	return out, next, nil
}

// ListDueBefore returns Borrowed loans past due that are not flagged overdue yet.
func (r *repo) ListDueBefore(ctx context.Context, before time.Time, limit int) ([]model.Loan, error) {
	query, args, err := r.loans().
		Where(
			goqu.I("l.status").Eq(string(model.LoanBorrowed)),
			goqu.I("l.due_date").Lt(before),
			goqu.I("l.is_overdue").IsFalse(),
		).
		Order(goqu.I("l.due_date").Asc(), goqu.I("l.id").Asc()).
		Limit(uint(limit)).
		ToSQL()
	if err != nil {
		return nil, errors.Wrap(err, "building overdue list")
	}
	return r.query(ctx, query, args)
}

func (r *repo) query(ctx context.Context, query string, args []interface{}) ([]model.Loan, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "listing loans")
	}
	defer rows.Close()

	out := make([]model.Loan, 0)
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning loan")
		}
		out = append(out, *l)
	}
	return out, errors.Wrap(rows.Err(), "listing loans")
}

func (r *repo) exec(ctx context.Context, q database.DBTX, query string, args []interface{}, what string) (bool, error) {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return false, errors.Wrap(err, what)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, what)
	}
	return aff > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLoan(s scanner) (*model.Loan, error) {
	var l model.Loan
	var status string
	if err := s.Scan(
		&l.ID, &l.BookID, &l.BookTitle, &l.BookAuthor, &l.BorrowerID,
		&status, &l.BorrowDate, &l.DueDate, &l.ReturnDate,
		&l.Fine, &l.IsOverdue, &l.StockReserved, &l.AcademicYear,
		&l.CreatedAt, &l.UpdatedAt,
	); err != nil {
		return nil, err
	}
	l.Status = model.LoanStatus(status)
	return &l, nil
}
