package book

import (
	"log/slog"
	"net/http"

	"schoollibrary/model"
	booksvc "schoollibrary/service/book"
	"schoollibrary/util/apperr"

	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc booksvc.Service
	Log *slog.Logger
}

// GET /v1/books
//
// @Summary  List books
// @Tags     books
// @Param    search    query  string  false  "title or author substring"
// @Param    category  query  string  false  "exact category"
// @Param    limit     query  int     false  "page size (max 200)"
// @Param    cursor    query  string  false  "next page cursor"
// @Security BearerAuth
// @Router   /v1/books [get]
func (h *Controller) List(c echo.Context) error {
	var q ListBooksQuery
	if err := c.Bind(&q); err != nil {
		return apperr.New(apperr.Validation, "invalid query")
	}
	page, err := h.Svc.List(c.Request().Context(), model.BookFilter{
		Search:   q.Search,
		Category: q.Category,
		Page:     model.Page{Limit: q.Limit, Cursor: q.Cursor},
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// GET /v1/books/:id
func (h *Controller) Detail(c echo.Context) error {
	row, err := h.Svc.Detail(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, row)
}

// POST /v1/books  (staff)
func (h *Controller) Create(c echo.Context) error {
	var req CreateBookReq
	if err := c.Bind(&req); err != nil {
		h.Log.Warn("book create bind", "err", err)
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	b, err := h.Svc.Create(c.Request().Context(), booksvc.CreateInput{
		Title:      req.Title,
		Author:     req.Author,
		Publisher:  req.Publisher,
		ISBN:       req.ISBN,
		Year:       req.Year,
		Category:   req.Category,
		Stock:      req.Stock,
		Location:   req.Location,
		CoverImage: req.CoverImage,
		PDFURL:     req.PDFURL,
		Synopsis:   req.Synopsis,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, b)
}

// PATCH /v1/books/:id  (staff)
func (h *Controller) Update(c echo.Context) error {
	var req UpdateBookReq
	if err := c.Bind(&req); err != nil {
		h.Log.Warn("book update bind", "err", err)
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	b, err := h.Svc.Update(c.Request().Context(), c.Param("id"), req.Patch())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b)
}

// DELETE /v1/books/:id  (staff)
func (h *Controller) Delete(c echo.Context) error {
	if err := h.Svc.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "book deleted"})
}
