package constants

const (
	// Shared REST/WS transport-agnostic errors
	ErrCodeAuthFailed     = "AUTH_FAILED"
	ErrCodeAuthExpired    = "AUTH_EXPIRED"
	ErrCodeForbidden      = "FORBIDDEN"
	ErrCodeRateLimited    = "RATE_LIMITED"
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeConflict       = "CONFLICT"
	ErrCodeInternal       = "INTERNAL_ERROR"
	ErrCodeNetwork        = "NETWORK_ERROR"

	// Chat domain errors
	ErrCodeMessageTooLong    = "MESSAGE_TOO_LONG"
	ErrCodeUsageLimitReached = "USAGE_LIMIT_REACHED"
	ErrCodeUpgradeRequired   = "UPGRADE_REQUIRED"
)
