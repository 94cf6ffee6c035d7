package loan

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"schoollibrary/app/echoServer/jwtx"
	"schoollibrary/model"
	ls "schoollibrary/service/loan"
	"schoollibrary/util/apperr"

	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc ls.Service
	Log *slog.Logger
}

func identity(c echo.Context) (model.Identity, error) {
	id, ok := jwtx.Identity(c)
	if !ok {
		return model.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return id, nil
}

// POST /v1/loans
//
// @Summary  Request (student) or lend (staff) a book
// @Tags     loans
// @Param    body  body  CreateLoanReq  true  "loan"
// @Security BearerAuth
// @Router   /v1/loans [post]
func (h *Controller) Create(c echo.Context) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	var req CreateLoanReq
	if err := c.Bind(&req); err != nil {
		h.Log.Warn("loan create bind", "err", err)
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	l, err := h.Svc.Create(c.Request().Context(), actor, ls.CreateInput{BorrowerID: req.StudentID, BookID: req.BookID})
	if err != nil {
		if apperr.Is(err, apperr.Internal) {
			h.Log.Error("loan create", "err", err, "book_id", req.BookID)
		}
		return err
	}
	return c.JSON(http.StatusCreated, l)
}

// POST /v1/loans/:id/approve  (staff)
func (h *Controller) Approve(c echo.Context) error {
	l, err := h.Svc.Approve(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, l)
}

// POST /v1/loans/:id/reject  (staff)
func (h *Controller) Reject(c echo.Context) error {
	l, err := h.Svc.Reject(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, l)
}

// POST /v1/loans/:id/return  (staff)
func (h *Controller) Return(c echo.Context) error {
	var req ReturnLoanReq
	if err := c.Bind(&req); err != nil {
		return err
	}
	var at time.Time
	if req.ReturnDate != nil {
		at = *req.ReturnDate
	}
	l, err := h.Svc.Return(c.Request().Context(), c.Param("id"), at)
	if err != nil {
		return err
	}
	msg := "book returned"
	if l.IsOverdue && l.Fine > 0 {
		msg = fmt.Sprintf("book returned late, fine: %d", l.Fine)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": msg, "data": l})
}

// GET /v1/loans/mine
func (h *Controller) Mine(c echo.Context) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	var q ListLoansQuery
	if err := c.Bind(&q); err != nil {
		return apperr.New(apperr.Validation, "invalid query")
	}
	page, err := h.Svc.Mine(c.Request().Context(), actor, model.Page{Limit: q.Limit, Cursor: q.Cursor})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// GET /v1/loans  (staff)
func (h *Controller) List(c echo.Context) error {
	var q ListLoansQuery
	if err := c.Bind(&q); err != nil {
		return apperr.New(apperr.Validation, "invalid query")
	}
	page, err := h.Svc.List(c.Request().Context(), model.LoanFilter{
		BorrowerID: q.BorrowerID,
		Status:     model.LoanStatus(q.Status),
		Page:       model.Page{Limit: q.Limit, Cursor: q.Cursor},
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}
