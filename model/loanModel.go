// model/loan.go
package model

import (
	"math"
	"time"
)

type LoanStatus string

const (
	LoanPending  LoanStatus = "Pending"
	LoanBorrowed LoanStatus = "Borrowed"
	LoanRejected LoanStatus = "Rejected"
	LoanReturned LoanStatus = "Returned"
)

// ActiveLoanStatuses hold a (borrower, book) slot.
var ActiveLoanStatuses = []LoanStatus{LoanPending, LoanBorrowed}

func (s LoanStatus) Valid() bool {
	switch s {
	case LoanPending, LoanBorrowed, LoanRejected, LoanReturned:
		return true
	}
	return false
}

// CanTransition reports whether the loan state machine allows s -> to.
func (s LoanStatus) CanTransition(to LoanStatus) bool {
	switch s {
	case LoanPending:
		return to == LoanBorrowed || to == LoanRejected
	case LoanBorrowed:
		return to == LoanReturned
	}
	return false
}

type Loan struct {
	ID            string     `json:"id"`
	BookID        string     `json:"bookId"`
	BookTitle     string     `json:"bookTitle,omitempty"`
	BookAuthor    string     `json:"bookAuthor,omitempty"`
	BorrowerID    string     `json:"borrowerId"`
	Status        LoanStatus `json:"status"`
	BorrowDate    time.Time  `json:"borrowDate"`
	DueDate       time.Time  `json:"dueDate"`
	ReturnDate    *time.Time `json:"returnDate,omitempty"`
	Fine          int64      `json:"fine"`
	IsOverdue     bool       `json:"isOverdue"`
	StockReserved bool       `json:"-"`
	AcademicYear  string     `json:"academicYear,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

type LoanFilter struct {
	BorrowerID string
	Status     LoanStatus
	Page       Page
}

// Fine charges ratePerDay for every started day past due. Returns on or before due cost nothing.
func Fine(due, returned time.Time, ratePerDay int64) (int64, bool) {
	if !returned.After(due) {
		return 0, false
	}
	days := int64(math.Ceil(returned.Sub(due).Hours() / 24))
	return days * ratePerDay, true
}
