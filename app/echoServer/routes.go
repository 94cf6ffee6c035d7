package echoServer

import (
	"log/slog"

	"schoollibrary/app/echoServer/controller/book"
	"schoollibrary/app/echoServer/controller/loan"

	"github.com/labstack/echo/v4"
)

type C struct {
	Book      *book.Controller
	Loan      *loan.Controller
	JWTSecret string
	Log       *slog.Logger
}

func Register(e *echo.Echo, c C) {
	// Auth
	auth := e.Group("/v1", Authenticate(c.JWTSecret, c.Log)...)
	staff := RequireStaff()

	// Books
	auth.GET("/books", c.Book.List)
	auth.GET("/books/:id", c.Book.Detail)
	// Staff endpoints
	auth.POST("/books", c.Book.Create, staff)
	auth.PATCH("/books/:id", c.Book.Update, staff)
	auth.DELETE("/books/:id", c.Book.Delete, staff)

	// Loans
	auth.POST("/loans", c.Loan.Create)
	auth.GET("/loans/mine", c.Loan.Mine)
	auth.GET("/loans", c.Loan.List, staff)
	auth.POST("/loans/:id/approve", c.Loan.Approve, staff)
	auth.POST("/loans/:id/reject", c.Loan.Reject, staff)
	auth.POST("/loans/:id/return", c.Loan.Return, staff)
}
