/*
Package req provides helper functions for HTTP request parsing.

It encapsulates the logic for reading query string parameters with validation
and defaults, so that handlers can stay focused on business logic.
*/
package req

import (
	"net/http"
	"strconv"

	"github.com/equwal/pixelplanet/internal/pkg/errs"
)

// QueryInt64 reads a required int64 query parameter from the request.
// A missing or non-numeric value yields an ErrInvalidParams error.
func QueryInt64(r *http.Request, name string) (int64, *errs.CustomError) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, errs.NewError(errs.ErrInvalidParams)
	}

	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errs.NewError(errs.ErrInvalidParams)
	}

	return value, nil
}

// QueryIntDefault reads an optional int query parameter, falling back to def
// when the parameter is absent. A present but non-numeric value is an error.
func QueryIntDefault(r *http.Request, name string, def int) (int, *errs.CustomError) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errs.NewError(errs.ErrInvalidParams)
	}

	return value, nil
}

// QueryString reads an optional string query parameter, falling back to def
// when the parameter is absent or empty.
func QueryString(r *http.Request, name, def string) string {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	return raw
}
