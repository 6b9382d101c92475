/*
Package req binds HTTP request bodies into handler inputs and reports failures
as *errs.CustomError values ready to be written by the resp package.
*/
package req

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"spiderlink/internal/pkg/errs"
)

const (
	// MaxFormMemory is the in-memory budget for multipart parsing; larger parts spill to disk.
	MaxFormMemory int64 = 8 << 20

	// MaxUploadBodySize caps the whole multipart request body.
	MaxUploadBodySize int64 = 12 << 20

	// MaxJSONBodySize caps JSON request bodies.
	MaxJSONBodySize int64 = 64 << 10
)

// BindJSON decodes a single JSON object into dst, rejecting unknown fields and trailing content.
func BindJSON(w http.ResponseWriter, r *http.Request, dst any) *errs.CustomError {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBodySize)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errs.NewError(errs.ErrRequestEntityTooLarge)
		}
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return nil
}

// FormFile parses a multipart body under the upload size cap and returns the named file part.
// The caller closes the returned file.
func FormFile(w http.ResponseWriter, r *http.Request, field string) (multipart.File, *multipart.FileHeader, *errs.CustomError) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBodySize)

	if err := r.ParseMultipartForm(MaxFormMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
			return nil, nil, errs.NewError(errs.ErrRequestEntityTooLarge)
		}
		return nil, nil, errs.NewError(errs.ErrFormParseFailed)
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, nil, errs.NewError(errs.ErrInvalidParams)
	}

	return file, header, nil
}
