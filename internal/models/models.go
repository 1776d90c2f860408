package models

import (
	"encoding/json"
	"time"
)

// API key lifecycle states.
const (
	APIKeyStatusActive  = "active"
	APIKeyStatusRevoked = "revoked"
	APIKeyStatusExpired = "expired"
)

// User account states.
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

// Activity log categories.
const (
	LogTypeUpload = "upload"
	LogTypeDelete = "delete"
	LogTypeAccess = "access"
	LogTypeAuth   = "auth"
	LogTypeBucket = "bucket"
)

// Activity log outcomes.
const (
	LogStatusSuccess = "success"
	LogStatusFailed  = "failed"
)

type APIKey struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Key              string     `json:"-"`
	Permissions      []string   `json:"permissions"`
	Status           string     `json:"status"`
	RateLimitEnabled bool       `json:"rate_limit_enabled"`
	RateLimitMax     int        `json:"rate_limit_max"`
	RateLimitWindow  int        `json:"rate_limit_window_ms"`
	TotalRequests    int64      `json:"total_requests"`
	TotalUploads     int64      `json:"total_uploads"`
	StorageUsed      int64      `json:"storage_used_bytes"`
	ErrorCount       int64      `json:"error_count"`
	LastUsedAt       *time.Time `json:"last_used_at"`
	ExpiresAt        *time.Time `json:"expires_at"`
	CreatedAt        time.Time  `json:"created_at"`
}

type User struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash *string    `json:"-"`
	Avatar       *string    `json:"avatar"`
	RoleID       *string    `json:"role_id"`
	Status       string     `json:"status"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at"`

	// Role is populated by lookups that join the roles table.
	Role *Role `json:"role,omitempty"`
}

type Role struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Permissions []string  `json:"permissions"`
	UserCount   int       `json:"user_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// Permission is a catalog entry used by the admin UI. Authorization itself
// evaluates the raw permission strings stored on roles and API keys.
type Permission struct {
	ID          string  `json:"id"`
	Key         string  `json:"key"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Description *string `json:"description"`
}

type Bucket struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Region       string    `json:"region"`
	StorageClass string    `json:"storage_class"`
	IsPublic     bool      `json:"is_public"`
	Quota        *int64    `json:"quota_bytes"`
	UsedSpace    int64     `json:"used_space_bytes"`
	FileCount    int64     `json:"file_count"`
	OwnerID      *string   `json:"owner_id"`
	CreatedAt    time.Time `json:"created_at"`
}

type File struct {
	ID           string          `json:"id"`
	Filename     string          `json:"filename"`
	OriginalName string          `json:"original_name"`
	BucketID     string          `json:"bucket_id"`
	Size         int64           `json:"size_bytes"`
	MimeType     string          `json:"mime_type"`
	FilePath     string          `json:"file_path"`
	URL          string          `json:"url"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	UploadedBy   *string         `json:"uploaded_by"`
	APIKeyID     *string         `json:"api_key_id"`
	IsDeleted    bool            `json:"is_deleted"`
	DeletedAt    *time.Time      `json:"deleted_at"`
	CreatedAt    time.Time       `json:"created_at"`

	// BucketName is populated by queries that join buckets.
	BucketName string `json:"bucket_name,omitempty"`
}

// LogEntry is append-only; the core never updates or deletes rows.
type LogEntry struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Action    string          `json:"action"`
	Details   json.RawMessage `json:"details,omitempty"`
	UserID    *string         `json:"user_id"`
	APIKeyID  *string         `json:"api_key_id"`
	IPAddress string          `json:"ip_address"`
	UserAgent string          `json:"user_agent"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

type Setting struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	Category  string          `json:"category"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

type DashboardStats struct {
	Storage struct {
		Total      int64 `json:"total"`
		Used       int64 `json:"used"`
		Percentage int   `json:"percentage"`
	} `json:"storage"`
	Files struct {
		Total   int `json:"total"`
		InTrash int `json:"inTrash"`
	} `json:"files"`
	Buckets struct {
		Total   int `json:"total"`
		Public  int `json:"public"`
		Private int `json:"private"`
	} `json:"buckets"`
	APIKeys struct {
		Active int `json:"active"`
		Total  int `json:"total"`
	} `json:"apiKeys"`
	RecentUploads []*File     `json:"recentUploads"`
	RecentErrors  []*LogEntry `json:"recentErrors"`
	TopBuckets    []*Bucket   `json:"topBuckets"`
	TopAPIKeys    []*APIKey   `json:"topApiKeys"`
}
