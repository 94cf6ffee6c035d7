package loan

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"schoollibrary/model"
	loanrepo "schoollibrary/repository/loan"
	"schoollibrary/util/apperr"
	"schoollibrary/util/cursor"
	"schoollibrary/util/database"
	"schoollibrary/util/events"

	"github.com/google/uuid"
)

const (
	DefaultLoanPeriod = 7 * 24 * time.Hour
	DefaultFinePerDay = 1000
)

var (
	errBookNotFound = apperr.New(apperr.NotFound, "book not found")
	errLoanNotFound = apperr.New(apperr.NotFound, "loan not found")
	errNoStock      = apperr.New(apperr.Conflict, "stock habis")
	errActiveLoan   = apperr.New(apperr.Conflict, "borrower already has an active loan for this book")
	errNotPending   = apperr.New(apperr.Conflict, "loan is not pending")
	errReturned     = apperr.New(apperr.Conflict, "loan already returned")
	errNotBorrowed  = apperr.New(apperr.Conflict, "only borrowed loans can be returned")
)

type DB interface {
	database.DBTX
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

type Repo = loanrepo.Repo

type Config struct {
	LoanPeriod   time.Duration
	FinePerDay   int64
	AcademicYear string
	Now          func() time.Time
}

type CreateInput struct {
	BorrowerID string
	BookID     string
}

type Service interface {
	// Create files a loan. Students get a Pending request for themselves; staff lend
	// immediately and the copy leaves the shelf.
	Create(ctx context.Context, actor model.Identity, in CreateInput) (*model.Loan, error)
	Approve(ctx context.Context, id string) (*model.Loan, error)
	Reject(ctx context.Context, id string) (*model.Loan, error)
	// Return closes a Borrowed loan at the given time (zero means now, never later than now)
	// and charges the fine.
	Return(ctx context.Context, id string, at time.Time) (*model.Loan, error)

	Mine(ctx context.Context, actor model.Identity, page model.Page) (*model.PageResult[model.Loan], error)
	List(ctx context.Context, f model.LoanFilter) (*model.PageResult[model.Loan], error)
}

type service struct {
	db  DB
	r   Repo
	cfg Config
	pub events.Publisher
	log *slog.Logger
}

func New(db DB, r Repo, cfg Config, pub events.Publisher, log *slog.Logger) Service {
	return newService(db, r, cfg, pub, log)
}

func newService(db DB, r Repo, cfg Config, pub events.Publisher, log *slog.Logger) *service {
	if cfg.LoanPeriod <= 0 {
		cfg.LoanPeriod = DefaultLoanPeriod
	}
	if cfg.FinePerDay <= 0 {
		cfg.FinePerDay = DefaultFinePerDay
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if pub == nil {
		pub = events.Noop{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &service{db: db, r: r, cfg: cfg, pub: pub, log: log}
}

func (s *service) now() time.Time { return s.cfg.Now().UTC().Truncate(time.Microsecond) }

func (s *service) Create(ctx context.Context, actor model.Identity, in CreateInput) (out *model.Loan, err error) {
	bookID := strings.TrimSpace(in.BookID)
	if bookID == "" {
		return nil, apperr.New(apperr.Validation, "bookId is required")
	}
	staff := actor.Role.IsStaff()
	borrower := actor.ID
	if staff {
		borrower = strings.TrimSpace(in.BorrowerID)
		if borrower == "" {
			return nil, apperr.New(apperr.Validation, "studentId is required")
		}
	}

	now := s.now()
	l := model.Loan{
		ID:            uuid.NewString(),
		BookID:        bookID,
		BorrowerID:    borrower,
		Status:        model.LoanPending,
		BorrowDate:    now,
		DueDate:       now.Add(s.cfg.LoanPeriod),
		AcademicYear:  s.cfg.AcademicYear,
		StockReserved: staff,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if staff {
		l.Status = model.LoanBorrowed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	book, err := s.r.GetBookStock(ctx, tx, bookID)
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, errBookNotFound
	}
	if book.Available < 1 {
		return nil, errNoStock
	}
	if staff {
		ok, rerr := s.r.ReserveCopy(ctx, tx, bookID, now)
		if rerr != nil {
			return nil, rerr
		}
		if !ok {
			return nil, errNoStock
		}
	}
	if err = s.r.Insert(ctx, tx, l); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, errActiveLoan
		}
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}

	l.BookTitle = book.Title
	ev := model.EventLoanRequested
	if staff {
		ev = model.EventLoanBorrowed
	}
	s.publish(ctx, ev, l)
	return &l, nil
}

func (s *service) Approve(ctx context.Context, id string) (out *model.Loan, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	l, err := s.r.Get(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, errLoanNotFound
	}
	if !l.Status.CanTransition(model.LoanBorrowed) {
		return nil, errNotPending
	}

	now := s.now()
	due := now.Add(s.cfg.LoanPeriod)
	ok, err := s.r.Approve(ctx, tx, id, now, due)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errNotPending
	}
	ok, err = s.r.ReserveCopy(ctx, tx, l.BookID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errNoStock
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}

	l.Status = model.LoanBorrowed
	l.BorrowDate = now
	l.DueDate = due
	l.StockReserved = true
	l.UpdatedAt = now
	s.publish(ctx, model.EventLoanApproved, *l)
	return l, nil
}

// Reject only applies to Pending loans; nothing was reserved so stock is untouched.
func (s *service) Reject(ctx context.Context, id string) (*model.Loan, error) {
	l, err := s.r.Get(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, errLoanNotFound
	}
	if !l.Status.CanTransition(model.LoanRejected) {
		return nil, errNotPending
	}
	now := s.now()
	ok, err := s.r.Reject(ctx, s.db, id, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errNotPending
	}
	l.Status = model.LoanRejected
	l.UpdatedAt = now
	s.publish(ctx, model.EventLoanRejected, *l)
	return l, nil
}

func (s *service) Return(ctx context.Context, id string, at time.Time) (out *model.Loan, err error) {
	now := s.now()
	if at.IsZero() {
		at = now
	}
	at = at.UTC().Truncate(time.Microsecond)
	if at.After(now) {
		return nil, apperr.New(apperr.Validation, "return date is in the future")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	l, err := s.r.Get(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, errLoanNotFound
	}
	if !l.Status.CanTransition(model.LoanReturned) {
		if l.Status == model.LoanReturned {
			return nil, errReturned
		}
		return nil, errNotBorrowed
	}
	if at.Before(l.BorrowDate) {
		return nil, apperr.New(apperr.Validation, "return date is before borrow date")
	}

	fine, overdue := model.Fine(l.DueDate, at, s.cfg.FinePerDay)
	ok, err := s.r.MarkReturned(ctx, tx, id, at, fine, overdue)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errReturned
	}
	if l.StockReserved {
		released, rerr := s.r.ReleaseCopy(ctx, tx, l.BookID, at)
		if rerr != nil {
			return nil, rerr
		}
		if !released {
			s.log.Warn("return without shelf space", "loan_id", id, "book_id", l.BookID)
		}
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}

	l.Status = model.LoanReturned
	l.ReturnDate = &at
	l.Fine = fine
	l.IsOverdue = overdue
	l.UpdatedAt = at
	s.publish(ctx, model.EventLoanReturned, *l)
	return l, nil
}

func (s *service) Mine(ctx context.Context, actor model.Identity, page model.Page) (*model.PageResult[model.Loan], error) {
	if actor.ID == "" {
		return nil, apperr.New(apperr.Forbidden, "unknown borrower")
	}
	return s.List(ctx, model.LoanFilter{BorrowerID: actor.ID, Page: page})
}

func (s *service) List(ctx context.Context, f model.LoanFilter) (*model.PageResult[model.Loan], error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.Newf(apperr.Validation, "unknown status %q", f.Status)
	}
	rows, next, err := s.r.List(ctx, f)
	if err != nil {
		return nil, pageErr(err)
	}
	return &model.PageResult[model.Loan]{Data: rows, NextCursor: next}, nil
}

// publish runs after commit; a broker failure never undoes the loan change.
func (s *service) publish(ctx context.Context, t model.LoanEventType, l model.Loan) {
	if err := s.pub.PublishLoan(ctx, model.NewLoanEvent(t, l, s.now())); err != nil {
		s.log.Warn("loan event publish failed", "type", t, "loan_id", l.ID, "err", err)
	}
}

func pageErr(err error) error {
	if errors.Is(err, cursor.ErrInvalid) {
		return apperr.Wrap(apperr.Validation, "invalid cursor", err)
	}
	return err
}
