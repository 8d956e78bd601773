package errs

import "net/http"

// errorMap holds the template for every known code.
// A zero Status is reported as 200; the business code in the body carries the failure.
var errorMap = map[int]CustomError{
	ErrInvalidParams:         {Code: ErrInvalidParams, Message: "Invalid request parameters."},
	ErrUnsupportedMediaType:  {Code: ErrUnsupportedMediaType, Message: "Unsupported request format."},
	ErrInvalidJSONFormat:     {Code: ErrInvalidJSONFormat, Message: "Unsupported request format."},
	ErrExtraContentInBody:    {Code: ErrExtraContentInBody, Message: "Request contains unexpected data."},
	ErrFormParseFailed:       {Code: ErrFormParseFailed, Message: "Failed to process uploaded data."},
	ErrRequestEntityTooLarge: {Code: ErrRequestEntityTooLarge, Message: "Request size is too large.", Status: http.StatusRequestEntityTooLarge},
	ErrRateLimitExceeded:     {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Message: "Message is longer than %d bytes."},
	ErrNameTooLong:           {Code: ErrNameTooLong, Message: "Display name is longer than %d bytes."},
	ErrMediaTypeNotAllowed:   {Code: ErrMediaTypeNotAllowed, Message: "Only %s images can be shared."},
	ErrFileSizeTooLarge:      {Code: ErrFileSizeTooLarge, Message: "File is larger than %d MB."},
	ErrMediaDisabled:         {Code: ErrMediaDisabled, Message: "Media sharing is not available.", Status: http.StatusServiceUnavailable},

	ErrUnknown:           {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrFileStorageFailed: {Code: ErrFileStorageFailed, Message: "File upload failed. Please try again.", Status: http.StatusBadGateway},
}
