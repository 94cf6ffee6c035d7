package echoServer_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"schoollibrary/app/echoServer"
	bookctrl "schoollibrary/app/echoServer/controller/book"
	loanctrl "schoollibrary/app/echoServer/controller/loan"
	bookrepo "schoollibrary/repository/book"
	loanrepo "schoollibrary/repository/loan"
	booksvc "schoollibrary/service/book"
	loansvc "schoollibrary/service/loan"
	"schoollibrary/util/database/dbtest"
	"schoollibrary/util/events"
	jwtutil "schoollibrary/util/jwt"

	"github.com/golang-jwt/jwt/v5"
	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

type api struct {
	t *testing.T
	e *echo.Echo
	// shifts the service clock so loans can be filed in the past
	offset time.Duration
}

func newAPI(t *testing.T) *api {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	db := dbtest.New(t)
	a := &api{t: t}
	bs := booksvc.New(db, bookrepo.New(db))
	cfg := loansvc.Config{Now: func() time.Time { return time.Now().Add(a.offset) }}
	ls := loansvc.New(db, loanrepo.New(db), cfg, events.Noop{}, log)

	e := echoServer.New(log)
	echoServer.Register(e, echoServer.C{
		Book:      &bookctrl.Controller{Svc: bs, Log: log},
		Loan:      &loanctrl.Controller{Svc: ls, Log: log},
		JWTSecret: secret,
		Log:       log,
	})
	a.e = e
	return a
}

func token(t *testing.T, sub, role string) string {
	t.Helper()
	tok, err := jwtutil.Issue(secret, sub, role, time.Hour)
	require.NoError(t, err)
	return tok
}

func (a *api) do(method, path, tok, body string) (int, map[string]any) {
	a.t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if tok != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Body.Len() > 0 {
		require.NoError(a.t, jsoniter.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

func TestHealth(t *testing.T) {
	code, body := newAPI(t).do(http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "ok", body["status"])
}

func TestAuthRequired(t *testing.T) {
	a := newAPI(t)
	code, body := a.do(http.MethodGet, "/v1/books", "", "")
	require.Equal(t, http.StatusUnauthorized, code)
	require.NotEmpty(t, body["message"])
	require.NotEmpty(t, body["error"])

	code, _ = a.do(http.MethodGet, "/v1/books", "garbage", "")
	require.Equal(t, http.StatusUnauthorized, code)

	// unknown roles are refused
	code, _ = a.do(http.MethodGet, "/v1/books", token(t, "x", "janitor"), "")
	require.Equal(t, http.StatusUnauthorized, code)

	// tokens must expire
	forever, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtutil.Claims{
		Role:             "staff",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "x"},
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	code, _ = a.do(http.MethodGet, "/v1/books", forever, "")
	require.Equal(t, http.StatusUnauthorized, code)

	expired, err := jwtutil.Issue(secret, "x", "staff", -time.Minute)
	require.NoError(t, err)
	code, _ = a.do(http.MethodGet, "/v1/books", expired, "")
	require.Equal(t, http.StatusUnauthorized, code)
}

func TestStaffOnlyRoutes(t *testing.T) {
	a := newAPI(t)
	student := token(t, "s1", "student")

	code, body := a.do(http.MethodPost, "/v1/books", student, `{"title":"t","author":"a","category":"c","stock":1}`)
	require.Equal(t, http.StatusForbidden, code)
	require.Equal(t, "forbidden", body["message"])

	for _, path := range []string{"/v1/loans/x/approve", "/v1/loans/x/reject", "/v1/loans/x/return"} {
		code, _ = a.do(http.MethodPost, path, student, "")
		require.Equal(t, http.StatusForbidden, code, path)
	}
	code, _ = a.do(http.MethodGet, "/v1/loans", student, "")
	require.Equal(t, http.StatusForbidden, code)
}

func TestBookValidation(t *testing.T) {
	a := newAPI(t)
	staff := token(t, "lib-1", "staff")

	code, body := a.do(http.MethodPost, "/v1/books", staff, `{"author":"a","category":"c","stock":-1}`)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "VALIDATION_ERROR", body["error"])
	fields := body["fields"].(map[string]any)
	require.Equal(t, "this field is required", fields["title"])
	require.Contains(t, fields, "stock")

	code, _ = a.do(http.MethodPost, "/v1/books", staff, `{"title":`)
	require.Equal(t, http.StatusBadRequest, code)

	code, body = a.do(http.MethodPatch, "/v1/books/nope", staff, `{"stock":3}`)
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, "NOT_FOUND", body["error"])
}

func TestDuplicateISBN(t *testing.T) {
	a := newAPI(t)
	admin := token(t, "adm", "admin")
	book := `{"title":"Bumi Manusia","author":"Pramoedya","category":"Novel","isbn":"979-97312-3-2","stock":1}`

	code, _ := a.do(http.MethodPost, "/v1/books", admin, book)
	require.Equal(t, http.StatusCreated, code)
	code, body := a.do(http.MethodPost, "/v1/books", admin, book)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "DUPLICATE_KEY", body["error"])
}

func TestCirculationOverHTTP(t *testing.T) {
	a := newAPI(t)
	staff := token(t, "lib-1", "staff")
	alice := token(t, "alice", "student")
	bob := token(t, "bob", "student")

	code, book := a.do(http.MethodPost, "/v1/books", staff,
		`{"title":"Laskar Pelangi","author":"Andrea Hirata","category":"Novel","stock":1,"coverImage":"c.jpg","pdfUrl":"https://example.org/lp.pdf"}`)
	require.Equal(t, http.StatusCreated, code)
	bookID := book["id"].(string)
	require.EqualValues(t, 1, book["available"])
	require.Equal(t, "c.jpg", book["coverImage"])

	code, list := a.do(http.MethodGet, "/v1/books?search=pelangi&category=Novel", alice, "")
	require.Equal(t, http.StatusOK, code)
	require.Len(t, list["data"], 1)

	// student request ignores studentId and stays pending
	code, loan := a.do(http.MethodPost, "/v1/loans", alice, `{"bookId":"`+bookID+`","studentId":"bob"}`)
	require.Equal(t, http.StatusCreated, code)
	require.Equal(t, "Pending", loan["status"])
	require.Equal(t, "alice", loan["borrowerId"])
	loanID := loan["id"].(string)

	code, body := a.do(http.MethodPost, "/v1/loans", alice, `{"bookId":"`+bookID+`"}`)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "CONFLICT", body["error"])

	code, loan = a.do(http.MethodPost, "/v1/loans/"+loanID+"/approve", staff, "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "Borrowed", loan["status"])

	code, body = a.do(http.MethodPost, "/v1/loans", bob, `{"bookId":"`+bookID+`"}`)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "stock habis", body["message"])

	code, body = a.do(http.MethodDelete, "/v1/books/"+bookID, staff, "")
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "CONFLICT", body["error"])

	code, mine := a.do(http.MethodGet, "/v1/loans/mine", alice, "")
	require.Equal(t, http.StatusOK, code)
	require.Len(t, mine["data"], 1)
	code, mine = a.do(http.MethodGet, "/v1/loans/mine", bob, "")
	require.Equal(t, http.StatusOK, code)
	require.Empty(t, mine["data"])

	code, body = a.do(http.MethodPost, "/v1/loans/"+loanID+"/return", staff, "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "book returned", body["message"])
	require.Equal(t, "Returned", body["data"].(map[string]any)["status"])

	code, _ = a.do(http.MethodPost, "/v1/loans/"+loanID+"/return", staff, "")
	require.Equal(t, http.StatusBadRequest, code)

	code, all := a.do(http.MethodGet, "/v1/loans?status=Returned", staff, "")
	require.Equal(t, http.StatusOK, code)
	require.Len(t, all["data"], 1)

	code, _ = a.do(http.MethodDelete, "/v1/books/"+bookID, staff, "")
	require.Equal(t, http.StatusOK, code)
	code, _ = a.do(http.MethodGet, "/v1/books/"+bookID, alice, "")
	require.Equal(t, http.StatusNotFound, code)
}

func TestStaffLoanAndLateReturn(t *testing.T) {
	a := newAPI(t)
	staff := token(t, "lib-1", "teacher")

	_, book := a.do(http.MethodPost, "/v1/books", staff, `{"title":"Saman","author":"Ayu Utami","category":"Novel","stock":2}`)
	bookID := book["id"].(string)

	code, body := a.do(http.MethodPost, "/v1/loans", staff, `{"bookId":"`+bookID+`"}`)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "VALIDATION_ERROR", body["error"])

	a.offset = -14 * 24 * time.Hour
	code, loan := a.do(http.MethodPost, "/v1/loans", staff, `{"bookId":"`+bookID+`","studentId":"carol"}`)
	require.Equal(t, http.StatusCreated, code)
	require.Equal(t, "Borrowed", loan["status"])
	a.offset = 0

	due, err := time.Parse(time.RFC3339Nano, loan["dueDate"].(string))
	require.NoError(t, err)
	late := due.Add(72 * time.Hour).Format(time.RFC3339Nano)

	tomorrow := time.Now().Add(24 * time.Hour).Format(time.RFC3339Nano)
	code, body = a.do(http.MethodPost, "/v1/loans/"+loan["id"].(string)+"/return", staff, `{"returnDate":"`+tomorrow+`"}`)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "VALIDATION_ERROR", body["error"])
	require.Equal(t, "return date is in the future", body["message"])

	code, body = a.do(http.MethodPost, "/v1/loans/"+loan["id"].(string)+"/return", staff, `{"returnDate":"`+late+`"}`)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "book returned late, fine: 3000", body["message"])
	data := body["data"].(map[string]any)
	require.EqualValues(t, 3000, data["fine"])
	require.Equal(t, true, data["isOverdue"])

	code, detail := a.do(http.MethodGet, "/v1/books/"+bookID, staff, "")
	require.Equal(t, http.StatusOK, code)
	require.EqualValues(t, 2, detail["available"])
}

func TestUnknownLoan(t *testing.T) {
	a := newAPI(t)
	staff := token(t, "lib-1", "admin")
	code, body := a.do(http.MethodPost, "/v1/loans/missing/approve", staff, "")
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, "loan not found", body["message"])

	code, _ = a.do(http.MethodGet, "/v1/loans?status=Lost", staff, "")
	require.Equal(t, http.StatusBadRequest, code)
}
