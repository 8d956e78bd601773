/*
Package req binds HTTP request bodies (JSON and multipart) and maps binding
failures onto business error codes.
*/
package req

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"livechat/internal/pkg/errs"
)

const (
	// MaxFormMemory is how much of a multipart form ParseMultipartForm keeps in memory.
	MaxFormMemory int64 = 8 << 20

	// MaxRequestFileSize caps the whole multipart request body.
	MaxRequestFileSize int64 = 10 << 20
)

// BindJSON decodes a single JSON object from the request body into dst.
// Unknown fields and trailing content are rejected.
func BindJSON(r *http.Request, dst any) *errs.CustomError {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return nil
}

// SetupMultipart limits the request body and parses it as a multipart form.
func SetupMultipart(w http.ResponseWriter, r *http.Request) *errs.CustomError {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestFileSize)

	if err := r.ParseMultipartForm(MaxFormMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			return errs.NewError(errs.ErrRequestEntityTooLarge)
		}
		return errs.NewError(errs.ErrFormParseFailed)
	}

	return nil
}
