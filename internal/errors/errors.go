package errors

import "fmt"

// ErrorCode represents a condense error code.
type ErrorCode string

const (
	ErrInvalidRequest        ErrorCode = "INVALID_REQUEST"         // 400
	ErrInvalidSettings       ErrorCode = "INVALID_SETTINGS"        // 400
	ErrSessionNotFound       ErrorCode = "SESSION_NOT_FOUND"       // 404
	ErrSessionFileNotFound   ErrorCode = "SESSION_FILE_NOT_FOUND"  // 404
	ErrPartNotFound          ErrorCode = "PART_NOT_FOUND"          // 404
	ErrVersionNotFound       ErrorCode = "VERSION_NOT_FOUND"       // 404
	ErrCompressionInProgress ErrorCode = "COMPRESSION_IN_PROGRESS" // 409 (conflict, retry later)
	ErrVersionExists         ErrorCode = "VERSION_EXISTS"          // 409 (conflict, duplicate level)
	ErrSessionExists         ErrorCode = "SESSION_EXISTS"          // 409
	ErrSessionParseError     ErrorCode = "SESSION_PARSE_ERROR"     // 422
	ErrNoDelta               ErrorCode = "NO_DELTA"                // 422
	ErrInsufficientMessages  ErrorCode = "INSUFFICIENT_MESSAGES"   // 422
	ErrInvalidPart           ErrorCode = "INVALID_PART"            // 422
	ErrCompressionFailed     ErrorCode = "COMPRESSION_FAILED"      // 502
	ErrInternal              ErrorCode = "INTERNAL"                // 500
)

// CondenseError represents a structured error with code, status, and details.
type CondenseError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	Cause   error
}

// Error implements the error interface.
func (e *CondenseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *CondenseError) Unwrap() error {
	return e.Cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *CondenseError {
	return &CondenseError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewInvalidSettings creates a 400 error for malformed compression settings.
// Raised before any lock is taken or side effect occurs.
func NewInvalidSettings(msg string) *CondenseError {
	return &CondenseError{
		Code:    ErrInvalidSettings,
		Status:  400,
		Message: msg,
	}
}

// NewSessionNotFound creates a 404 error for a session missing from the manifest.
func NewSessionNotFound(projectID, sessionID string) *CondenseError {
	return &CondenseError{
		Code:    ErrSessionNotFound,
		Status:  404,
		Message: fmt.Sprintf("session not found: %s", sessionID),
		Details: map[string]any{"project_id": projectID, "session_id": sessionID},
	}
}

// NewSessionFileNotFound creates a 404 error for a missing source log file.
func NewSessionFileNotFound(path string) *CondenseError {
	return &CondenseError{
		Code:    ErrSessionFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("session log file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewSessionParseError creates a 422 error for an unparseable source log.
func NewSessionParseError(path string, err error) *CondenseError {
	return &CondenseError{
		Code:    ErrSessionParseError,
		Status:  422,
		Message: fmt.Sprintf("failed to parse session log: %v", err),
		Details: map[string]any{"path": path},
		Cause:   err,
	}
}

// NewCompressionInProgress creates a 409 conflict for a held session lock.
// Signals "retry later, not now" rather than a retryable transient failure.
func NewCompressionInProgress(projectID, sessionID string) *CondenseError {
	return &CondenseError{
		Code:    ErrCompressionInProgress,
		Status:  409,
		Message: fmt.Sprintf("compression already in progress for session %s", sessionID),
		Details: map[string]any{"project_id": projectID, "session_id": sessionID},
	}
}

// NewNoDelta creates a 422 error when a session has no uncompressed messages.
func NewNoDelta(sessionID string) *CondenseError {
	return &CondenseError{
		Code:    ErrNoDelta,
		Status:  422,
		Message: fmt.Sprintf("no new messages to compress for session %s", sessionID),
		Details: map[string]any{"session_id": sessionID},
	}
}

// NewInsufficientMessages creates a 422 error when a message range is too
// small to summarize meaningfully.
func NewInsufficientMessages(count int) *CondenseError {
	return &CondenseError{
		Code:    ErrInsufficientMessages,
		Status:  422,
		Message: fmt.Sprintf("range contains %d message(s); at least 2 are required", count),
		Details: map[string]any{"message_count": count},
	}
}

// NewPartNotFound creates a 404 error for an unknown part number.
func NewPartNotFound(sessionID string, partNumber int) *CondenseError {
	return &CondenseError{
		Code:    ErrPartNotFound,
		Status:  404,
		Message: fmt.Sprintf("part %d not found for session %s", partNumber, sessionID),
		Details: map[string]any{"session_id": sessionID, "part_number": partNumber},
	}
}

// NewInvalidPart creates a 422 error for a part record without range metadata.
func NewInvalidPart(sessionID string, partNumber int) *CondenseError {
	return &CondenseError{
		Code:    ErrInvalidPart,
		Status:  422,
		Message: fmt.Sprintf("part %d of session %s has no message range and cannot be re-sliced", partNumber, sessionID),
		Details: map[string]any{"session_id": sessionID, "part_number": partNumber},
	}
}

// NewVersionExists creates a 409 conflict for a duplicate (part, level) pair.
func NewVersionExists(sessionID string, partNumber int, level string) *CondenseError {
	return &CondenseError{
		Code:    ErrVersionExists,
		Status:  409,
		Message: fmt.Sprintf("part %d already compressed at level %q", partNumber, level),
		Details: map[string]any{"session_id": sessionID, "part_number": partNumber, "compression_level": level},
	}
}

// NewVersionNotFound creates a 404 error for an unknown version identifier.
func NewVersionNotFound(sessionID, version string) *CondenseError {
	return &CondenseError{
		Code:    ErrVersionNotFound,
		Status:  404,
		Message: fmt.Sprintf("version %q not found for session %s", version, sessionID),
		Details: map[string]any{"session_id": sessionID, "version": version},
	}
}

// NewSessionExists creates a 409 error when tracking an already-tracked session.
func NewSessionExists(sessionID string) *CondenseError {
	return &CondenseError{
		Code:    ErrSessionExists,
		Status:  409,
		Message: fmt.Sprintf("session %s is already tracked", sessionID),
		Details: map[string]any{"session_id": sessionID},
	}
}

// NewCompressionFailed creates a 502 error wrapping a compaction collaborator failure.
func NewCompressionFailed(err error) *CondenseError {
	return &CondenseError{
		Code:    ErrCompressionFailed,
		Status:  502,
		Message: fmt.Sprintf("compaction failed: %v", err),
		Cause:   err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *CondenseError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &CondenseError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		Cause:   err,
	}
}

// Is checks if an error is a CondenseError with the given code.
func Is(err error, code ErrorCode) bool {
	if cErr, ok := err.(*CondenseError); ok {
		return cErr.Code == code
	}
	return false
}
