package models

// ErrorCode values appear in the "error" field of failure responses so the
// frontend can branch without string-matching messages.
type ErrorCode string

const (
	ErrAuthRequired     ErrorCode = "AUTH_REQUIRED"
	ErrInvalidInput     ErrorCode = "INVALID_INPUT"
	ErrLocked           ErrorCode = "LOCKED"
	ErrRateLimited      ErrorCode = "RATE_LIMITED"
	ErrQueryFailed      ErrorCode = "QUERY_FAILED"
	ErrGenerationFailed ErrorCode = "GENERATION_FAILED"
	ErrIngestFailed     ErrorCode = "INGEST_FAILED"
)
