package booksvc

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"schoollibrary/model"
	"schoollibrary/util/apperr"
	"schoollibrary/util/cursor"
	"schoollibrary/util/database"

	"github.com/google/uuid"
)

type Book = model.Book

// DB starts the transaction a delete runs in.
type DB interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

type Repo interface {
	Create(ctx context.Context, b model.Book) error
	Get(ctx context.Context, id string) (*model.Book, error)
	Update(ctx context.Context, id string, p model.BookPatch, now time.Time) (bool, error)
	LockForUpdate(ctx context.Context, q database.DBTX, id string) (bool, error)
	SoftDelete(ctx context.Context, q database.DBTX, id string, now time.Time) (bool, error)
	List(ctx context.Context, f model.BookFilter) ([]model.Book, string, error)
}

type CreateInput struct {
	Title      string
	Author     string
	Publisher  string
	ISBN       *string
	Year       int
	Category   string
	Stock      int
	Location   string
	CoverImage string
	PDFURL     string
	Synopsis   string
}

type Service interface {
	Create(ctx context.Context, in CreateInput) (*Book, error)
	Update(ctx context.Context, id string, p model.BookPatch) (*Book, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f model.BookFilter) (*model.PageResult[Book], error)
	Detail(ctx context.Context, id string) (*Book, error)
}

var (
	errNotFound     = apperr.New(apperr.NotFound, "book not found")
	errDuplicateKey = apperr.New(apperr.DuplicateKey, "Duplicate Key Error: isbn already exists")
	errActiveLoans  = apperr.New(apperr.Conflict, "book still has pending or borrowed loans")
)

type Option func(*service)

func WithClock(now func() time.Time) Option { return func(s *service) { s.now = now } }

type service struct {
	db  DB
	r   Repo
	now func() time.Time
}

func New(db DB, r Repo, opts ...Option) Service {
	s := &service{db: db, r: r, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *service) clock() time.Time { return s.now().UTC().Truncate(time.Microsecond) }

func (s *service) Create(ctx context.Context, in CreateInput) (*Book, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Author = strings.TrimSpace(in.Author)
	in.Category = strings.TrimSpace(in.Category)
	if in.Title == "" || in.Author == "" || in.Category == "" {
		return nil, apperr.New(apperr.Validation, "title, author and category are required")
	}
	if in.Stock < 0 {
		return nil, apperr.New(apperr.Validation, "stock must not be negative")
	}
	if in.Year < 0 {
		return nil, apperr.New(apperr.Validation, "year must not be negative")
	}

	now := s.clock()
	b := Book{
		ID:         uuid.NewString(),
		Title:      in.Title,
		Author:     in.Author,
		Publisher:  in.Publisher,
		ISBN:       in.ISBN,
		Year:       in.Year,
		Category:   in.Category,
		Stock:      in.Stock,
		Available:  in.Stock,
		Location:   in.Location,
		CoverImage: in.CoverImage,
		PDFURL:     in.PDFURL,
		Synopsis:   in.Synopsis,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if b.ISBN != nil && strings.TrimSpace(*b.ISBN) == "" {
		b.ISBN = nil
	}
	if err := s.r.Create(ctx, b); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, errDuplicateKey
		}
		return nil, err
	}
	return &b, nil
}

func (s *service) Update(ctx context.Context, id string, p model.BookPatch) (*Book, error) {
	if p.Empty() {
		return nil, apperr.New(apperr.Validation, "nothing to update")
	}
	for _, f := range []*string{p.Title, p.Author, p.Category} {
		if f != nil && strings.TrimSpace(*f) == "" {
			return nil, apperr.New(apperr.Validation, "title, author and category cannot be blank")
		}
	}
	if p.Stock != nil && *p.Stock < 0 {
		return nil, apperr.New(apperr.Validation, "stock must not be negative")
	}
	if p.Year != nil && *p.Year < 0 {
		return nil, apperr.New(apperr.Validation, "year must not be negative")
	}

	ok, err := s.r.Update(ctx, id, p, s.clock())
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, errDuplicateKey
		}
		return nil, err
	}
	if !ok {
		return nil, errNotFound
	}
	return s.Detail(ctx, id)
}

// Delete locks the book row first so a loan being filed for it either commits
// before the active-loan guard runs or sees the book gone.
func (s *service) Delete(ctx context.Context, id string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	found, err := s.r.LockForUpdate(ctx, tx, id)
	if err != nil {
		return err
	}
	if !found {
		return errNotFound
	}
	ok, err := s.r.SoftDelete(ctx, tx, id, s.clock())
	if err != nil {
		return err
	}
	if !ok {
		return errActiveLoans
	}
	return tx.Commit()
}

func (s *service) List(ctx context.Context, f model.BookFilter) (*model.PageResult[Book], error) {
	rows, next, err := s.r.List(ctx, f)
	if err != nil {
		if errors.Is(err, cursor.ErrInvalid) {
			return nil, apperr.Wrap(apperr.Validation, "invalid cursor", err)
		}
		return nil, err
	}
	return &model.PageResult[Book]{Data: rows, NextCursor: next}, nil
}

func (s *service) Detail(ctx context.Context, id string) (*Book, error) {
	b, err := s.r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, errNotFound
	}
	return b, nil
}
