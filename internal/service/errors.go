package service

import "errors"

// Sentinel errors shared across services. Handlers map these onto HTTP
// statuses in one place.
var (
	ErrMissingCredential = errors.New("missing credential")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrCredentialExpired = errors.New("credential expired")
	ErrAccountInactive   = errors.New("account inactive")
	ErrPermissionDenied  = errors.New("permission denied")

	ErrInvalidLogin = errors.New("invalid email or password")
	ErrTokenExpired = errors.New("session token expired")

	ErrAPIKeyNotFound = errors.New("api key not found")
	ErrUserNotFound   = errors.New("user not found")
	ErrRoleNotFound   = errors.New("role not found")
	ErrRoleInUse      = errors.New("role has assigned users")

	ErrBucketNotFound = errors.New("bucket not found")
	ErrBucketNotEmpty = errors.New("bucket is not empty")
	ErrQuotaExceeded  = errors.New("bucket quota exceeded")

	ErrFileNotFound          = errors.New("file not found")
	ErrFileGone              = errors.New("file has been deleted")
	ErrFileNotFoundOnStorage = errors.New("file missing from storage")
	ErrFileTooLarge          = errors.New("file exceeds maximum upload size")

	ErrDuplicateEntry = errors.New("duplicate entry")
	ErrInvalidInput   = errors.New("invalid input")
)
