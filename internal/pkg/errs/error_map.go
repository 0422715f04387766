/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
HTTP responses and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
// The key is the error code (int), and the value contains the user message and HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:     {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrRateLimitExceeded: {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Channel and Chat Business Logic Errors
	ErrChannelNotFound:     {Code: ErrChannelNotFound, Message: "Chat channel not found.", Status: http.StatusNotFound},
	ErrChannelAccessDenied: {Code: ErrChannelAccessDenied, Message: "You don't have access to this channel.", Status: http.StatusForbidden},
	ErrChatUnavailable:     {Code: ErrChatUnavailable, Message: "Chat is temporarily unavailable. Please try again later.", Status: http.StatusServiceUnavailable},

	// 3xxx: User and Session Errors
	ErrUserNotFound:  {Code: ErrUserNotFound, Message: "Account not found.", Status: http.StatusNotFound},
	ErrSessionKicked: {Code: ErrSessionKicked, Message: "You were signed in on another device."},

	// 5xxx: Internal System Errors
	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}
