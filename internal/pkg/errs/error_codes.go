/*
Package errs defines the business error type returned by the HTTP surface and
the code constants shared with clients.
*/
package errs

// 1xxx: request handling errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates an unsupported request Content-Type.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates a request body that is not valid JSON.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates trailing content after the JSON body.
	ErrExtraContentInBody = 1004

	// ErrFormParseFailed indicates a multipart or URL-encoded form that could not be parsed.
	ErrFormParseFailed = 1005

	// ErrRequestEntityTooLarge indicates a request body over the server limit.
	ErrRequestEntityTooLarge = 1006

	// ErrRateLimitExceeded indicates the caller exceeded its request rate.
	ErrRateLimitExceeded = 1007
)

// 2xxx: chat and media errors
const (
	// ErrMessageContentTooLong indicates a chat message over the size limit.
	ErrMessageContentTooLong = 2201

	// ErrNameTooLong indicates a display name over the length limit.
	ErrNameTooLong = 2202

	// ErrMediaTypeNotAllowed indicates a file whose MIME type or extension is not an accepted image.
	ErrMediaTypeNotAllowed = 2301

	// ErrFileSizeTooLarge indicates a file over the upload size limit.
	ErrFileSizeTooLarge = 2302

	// ErrMediaDisabled indicates media sharing is not configured on this server.
	ErrMediaDisabled = 2303
)

// 5xxx: internal errors
const (
	// ErrUnknown is an unclassified internal error.
	ErrUnknown = 5000

	// ErrFileStorageFailed indicates the object store rejected or failed a request.
	ErrFileStorageFailed = 5001
)
