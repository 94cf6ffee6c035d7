package model

// Page is a keyset page request. Cursor is opaque to callers.
type Page struct {
	Limit  int
	Cursor string
}

type PageResult[T any] struct {
	Data       []T    `json:"data"`
	NextCursor string `json:"nextCursor,omitempty"`
}
