package events_test

import (
	"context"
	"testing"
	"time"

	"schoollibrary/model"
	"schoollibrary/util/events"

	"github.com/stretchr/testify/require"
)

func TestNewRabbit_DisabledWithoutURL(t *testing.T) {
	r, err := events.NewRabbit("", "library.events")
	require.NoError(t, err)
	require.Nil(t, r)
	// nil publisher is safe to use
	require.NoError(t, r.PublishLoan(context.Background(), model.LoanEvent{Type: model.EventLoanReturned}))
	require.NoError(t, r.Close())
}

func TestEncode_UsesWireNames(t *testing.T) {
	due := time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC)
	body, err := events.Encode(model.LoanEvent{
		Type: model.EventLoanOverdue, LoanID: "l1", BookID: "b1", BorrowerID: "s1",
		Status: model.LoanBorrowed, DueDate: due,
	})
	require.NoError(t, err)
	require.Contains(t, string(body), `"type":"loan.overdue"`)
	require.Contains(t, string(body), `"borrowerId":"s1"`)
	require.NotContains(t, string(body), `"fine"`)
}
