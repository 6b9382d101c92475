/*
Package errs provides custom error types and application-level error code constants.

The codes are shared by the HTTP API and the realtime gateway, so a client sees the
same number for the same failure regardless of the transport it used.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrFormParseFailed indicates failure to parse multipart or URL-encoded form data.
	ErrFormParseFailed = 1005

	// ErrRequestEntityTooLarge indicates that the request body size exceeded the server limit.
	ErrRequestEntityTooLarge = 1006

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007

	// ErrUnknownEvent indicates that a realtime request named an event the gateway does not handle.
	ErrUnknownEvent = 1008
)

// 2xxx: Channel, Message and File Errors
const (
	// ErrChannelNameInvalid indicates that a channel name is empty or too long after normalization.
	ErrChannelNameInvalid = 2101

	// ErrChannelExists indicates that the normalized channel id is already taken.
	ErrChannelExists = 2102

	// ErrMessageContentTooLong indicates that the message text exceeded the maximum length.
	ErrMessageContentTooLong = 2201

	// ErrMessageEmpty indicates a message with neither text nor media.
	ErrMessageEmpty = 2202

	// ErrMessageNotFound indicates that the referenced message does not exist.
	ErrMessageNotFound = 2203

	// ErrFileSizeTooLarge indicates that an uploaded file exceeded the size limit.
	ErrFileSizeTooLarge = 2301

	// ErrFileTypeInvalid indicates that an uploaded file has a type that is not accepted.
	ErrFileTypeInvalid = 2302
)

// 3xxx: Identity, Session, and Security Errors
const (
	ErrPowChallengeRequired = 3001
	ErrPowChallengeInvalid  = 3002
	ErrPowChallengeInternal = 3003

	// ErrSessionKicked indicates that the connection was superseded by a newer one for the same user.
	ErrSessionKicked = 3004

	ErrAlreadyLoggedIn    = 3005
	ErrInvalidEmail       = 3006
	ErrInvalidPassword    = 3007
	ErrUserAlreadyExists  = 3008
	ErrInvalidCredentials = 3009
	ErrUserNotFound       = 3010

	// ErrUnauthorized indicates that the request has no verified identity.
	ErrUnauthorized = 3011

	// ErrNotAuthenticated indicates a realtime request on a connection without a bound session.
	ErrNotAuthenticated = 3012

	// ErrProfileRequired indicates that the user has not completed the character profile yet.
	ErrProfileRequired = 3013

	// ErrProfileInvalid indicates that the submitted character profile failed validation.
	ErrProfileInvalid = 3014

	// ErrForbidden indicates that the identity is known but lacks permission for the action.
	ErrForbidden = 3015

	// ErrIdentityMismatch indicates that the claimed user id differs from the connection's verified identity.
	ErrIdentityMismatch = 3016
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrFileStorageFailed indicates that the object storage rejected or failed an operation.
	ErrFileStorageFailed = 5001

	// ErrUploadsDisabled indicates that no object storage is configured.
	ErrUploadsDisabled = 5002
)
