package book

import "schoollibrary/model"

type CreateBookReq struct {
	Title      string  `json:"title" validate:"required"`
	Author     string  `json:"author" validate:"required"`
	Publisher  string  `json:"publisher"`
	ISBN       *string `json:"isbn"`
	Year       int     `json:"year" validate:"gte=0"`
	Category   string  `json:"category" validate:"required"`
	Stock      int     `json:"stock" validate:"gte=0"`
	Location   string  `json:"location"`
	CoverImage string  `json:"coverImage"`
	PDFURL     string  `json:"pdfUrl" validate:"omitempty,url"`
	Synopsis   string  `json:"synopsis"`
}

// UpdateBookReq is a partial update; absent fields stay as they are.
type UpdateBookReq struct {
	Title      *string `json:"title" validate:"omitempty,min=1"`
	Author     *string `json:"author" validate:"omitempty,min=1"`
	Publisher  *string `json:"publisher"`
	ISBN       *string `json:"isbn"`
	Year       *int    `json:"year" validate:"omitempty,gte=0"`
	Category   *string `json:"category" validate:"omitempty,min=1"`
	Stock      *int    `json:"stock" validate:"omitempty,gte=0"`
	Location   *string `json:"location"`
	CoverImage *string `json:"coverImage"`
	PDFURL     *string `json:"pdfUrl" validate:"omitempty,url"`
	Synopsis   *string `json:"synopsis"`
}

func (r UpdateBookReq) Patch() model.BookPatch {
	return model.BookPatch{
		Title:      r.Title,
		Author:     r.Author,
		Publisher:  r.Publisher,
		ISBN:       r.ISBN,
		Year:       r.Year,
		Category:   r.Category,
		Stock:      r.Stock,
		Location:   r.Location,
		CoverImage: r.CoverImage,
		PDFURL:     r.PDFURL,
		Synopsis:   r.Synopsis,
	}
}

type ListBooksQuery struct {
	Search   string `query:"search"`
	Category string `query:"category"`
	Limit    int    `query:"limit"`
	Cursor   string `query:"cursor"`
}
