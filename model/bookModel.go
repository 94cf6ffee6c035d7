// model/book.go
package model

import "time"

type Book struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Author     string     `json:"author"`
	Publisher  string     `json:"publisher"`
	ISBN       *string    `json:"isbn,omitempty"`
	Year       int        `json:"year"`
	Category   string     `json:"category"`
	Stock      int        `json:"stock"`
	Available  int        `json:"available"`
	Location   string     `json:"location"`
	CoverImage string     `json:"coverImage"`
	PDFURL     string     `json:"pdfUrl"`
	Synopsis   string     `json:"synopsis"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	DeletedAt  *time.Time `json:"-"`
}

// BookPatch carries a partial update; nil fields are left untouched.
type BookPatch struct {
	Title      *string
	Author     *string
	Publisher  *string
	ISBN       *string
	Year       *int
	Category   *string
	Stock      *int
	Location   *string
	CoverImage *string
	PDFURL     *string
	Synopsis   *string
}

func (p BookPatch) Empty() bool {
	return p.Title == nil && p.Author == nil && p.Publisher == nil && p.ISBN == nil &&
		p.Year == nil && p.Category == nil && p.Stock == nil && p.Location == nil &&
		p.CoverImage == nil && p.PDFURL == nil && p.Synopsis == nil
}

type BookFilter struct {
	Search   string
	Category string
	Page     Page
}
