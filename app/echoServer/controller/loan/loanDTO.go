package loan

import "time"

type CreateLoanReq struct {
	StudentID string `json:"studentId"`
	BookID    string `json:"bookId" validate:"required"`
}

type ReturnLoanReq struct {
	ReturnDate *time.Time `json:"returnDate"`
}

type ListLoansQuery struct {
	Status     string `query:"status"`
	BorrowerID string `query:"borrowerId"`
	Limit      int    `query:"limit"`
	Cursor     string `query:"cursor"`
}
