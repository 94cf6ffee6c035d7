package model

import "time"

type LoanEventType string

const (
	EventLoanRequested LoanEventType = "loan.requested"
	EventLoanBorrowed  LoanEventType = "loan.borrowed"
	EventLoanApproved  LoanEventType = "loan.approved"
	EventLoanRejected  LoanEventType = "loan.rejected"
	EventLoanReturned  LoanEventType = "loan.returned"
	EventLoanOverdue   LoanEventType = "loan.overdue"
)

// LoanEvent is published after the loan change committed.
type LoanEvent struct {
	Type       LoanEventType `json:"type"`
	LoanID     string        `json:"loanId"`
	BookID     string        `json:"bookId"`
	BorrowerID string        `json:"borrowerId"`
	Status     LoanStatus    `json:"status"`
	DueDate    time.Time     `json:"dueDate"`
	Fine       int64         `json:"fine,omitempty"`
	OccurredAt time.Time     `json:"occurredAt"`
}

func NewLoanEvent(t LoanEventType, l Loan, at time.Time) LoanEvent {
	return LoanEvent{
		Type:       t,
		LoanID:     l.ID,
		BookID:     l.BookID,
		BorrowerID: l.BorrowerID,
		Status:     l.Status,
		DueDate:    l.DueDate,
		Fine:       l.Fine,
		OccurredAt: at,
	}
}
