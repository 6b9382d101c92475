package gateway

import (
	"errors"
	"strings"

	"spiderlink/internal/app/channel"
	"spiderlink/internal/app/message"
	"spiderlink/internal/app/presence"
	"spiderlink/internal/app/user"
	"spiderlink/internal/pkg/errs"
	"spiderlink/internal/pkg/logx"
)

// AsCustomError maps a domain error to the client-facing error code. Errors that do
// not belong to any domain are logged and reported as ErrUnknown.
func AsCustomError(err error) *errs.CustomError {
	var customErr *errs.CustomError
	if errors.As(err, &customErr) {
		return customErr
	}

	switch {
	case errors.Is(err, user.ErrNotFound):
		return errs.NewError(errs.ErrUserNotFound)
	case errors.Is(err, user.ErrAlreadyExists):
		return errs.NewError(errs.ErrUserAlreadyExists)
	case errors.Is(err, user.ErrInvalidCredentials):
		return errs.NewError(errs.ErrInvalidCredentials)
	case errors.Is(err, user.ErrInvalidEmail):
		return errs.NewError(errs.ErrInvalidEmail)
	case errors.Is(err, user.ErrInvalidPassword):
		return errs.NewError(errs.ErrInvalidPassword)
	case errors.Is(err, user.ErrProfileInvalid):
		detail := strings.TrimPrefix(err.Error(), user.ErrProfileInvalid.Error()+": ")
		return errs.NewError(errs.ErrProfileInvalid, detail)

	case errors.Is(err, channel.ErrExists):
		return errs.NewError(errs.ErrChannelExists)
	case errors.Is(err, channel.ErrInvalidName):
		return errs.NewError(errs.ErrChannelNameInvalid)

	case errors.Is(err, message.ErrNotFound):
		return errs.NewError(errs.ErrMessageNotFound)
	case errors.Is(err, message.ErrEmpty):
		return errs.NewError(errs.ErrMessageEmpty)
	case errors.Is(err, message.ErrTooLong):
		return errs.NewError(errs.ErrMessageContentTooLong)
	case errors.Is(err, message.ErrInvalidChannel), errors.Is(err, message.ErrInvalidType):
		return errs.NewError(errs.ErrInvalidParams)

	case errors.Is(err, presence.ErrNotAuthenticated):
		return errs.NewError(errs.ErrNotAuthenticated)
	}

	logx.Error(err, "Unhandled error in realtime request")
	return errs.NewError(errs.ErrUnknown)
}
