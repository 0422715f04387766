/*
Package errs provides custom error types and application-level error code constants.

These error codes are used to clearly identify specific business or system errors
both internally within the server and in communication with clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1002
)

// 2xxx: Channel and Chat Business Logic Errors
const (
	// ErrChannelNotFound indicates that the requested chat channel does not exist.
	ErrChannelNotFound = 2101

	// ErrChannelAccessDenied indicates that the user may not read the requested channel.
	ErrChannelAccessDenied = 2102

	// ErrChatUnavailable indicates that the chat pipeline could not complete because a
	// backing service (directory or mute store) did not answer.
	ErrChatUnavailable = 2201
)

// 3xxx: User and Session Errors
const (
	// ErrUserNotFound indicates that the connecting principal could not be resolved in the directory.
	ErrUserNotFound = 3001

	// ErrSessionKicked indicates that the current client connection has been terminated.
	ErrSessionKicked = 3002
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000
)
