package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"spiderlink/internal/pkg/logx"
)

// CustomError carries a business code, a client-facing message and the HTTP status
// used when the error is written by the HTTP layer.
type CustomError struct {
	Code    int
	Message string
	Status  int
}

func (e CustomError) Error() string {
	return fmt.Sprintf("error code %d (HTTP %d): %s", e.Code, e.Status, e.Message)
}

// NewError builds a *CustomError from a registered code. Details are printf arguments
// for templates containing a verb; for ErrUnknown the first detail may be the
// underlying error, which is logged and never shown to the client.
func NewError(code int, details ...any) *CustomError {
	templateErr, ok := errorMap[code]
	if !ok {
		logx.Error(
			fmt.Errorf("unknown error code %d", code),
			"Unknown error code requested",
			"requested_code", code,
		)

		unknownErr := errorMap[ErrUnknown]
		return &unknownErr
	}

	customErr := templateErr
	if customErr.Status == 0 {
		customErr.Status = http.StatusOK
	}

	switch {
	case code == ErrUnknown && len(details) > 0:
		if originalErr, ok := details[0].(error); ok {
			logx.Error(originalErr, "Handling ErrUnknown with underlying error")
		}
	case len(details) > 0 && strings.Contains(customErr.Message, "%"):
		customErr.Message = fmt.Sprintf(customErr.Message, details...)
	case strings.Contains(customErr.Message, "%"):
		customErr.Message = strings.TrimSpace(strings.SplitN(customErr.Message, ":", 2)[0]) + "."
	case len(details) > 0:
		logx.Warn("Details provided for error without a formatting placeholder, ignored", "code", code)
	}

	return &customErr
}

// CodeOf returns the business code carried by err, or ErrUnknown.
func CodeOf(err error) int {
	var customErr *CustomError
	if errors.As(err, &customErr) {
		return customErr.Code
	}
	return ErrUnknown
}
