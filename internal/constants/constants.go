package constants

import "time"

// Context keys
const (
	ContextKeyUserID  = "user_id"
	ContextKeySession = "session_id"
	ContextKeyUser    = "user"
	ContextKeyTask    = "task"
	ContextKeyRequest = "request_id"
)

// Cookies
const (
	SessionCookieName = "session"
	FlashSessionName  = "astrasemi_flash"
	FlashKeyReturnTo  = "return_to"
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Auth
const (
	SessionTokenBytes  = 32
	SessionDefaultTTL  = 7 * 24 * time.Hour
	FlashMaxAge        = 10 * 60
	MaxUsernameLength  = 50
	MaxResetHintLength = 500
)

// Reputation deltas
const (
	ReputationUpvote         = 10
	ReputationDownvote       = -2
	ReputationAcceptedAnswer = 15
)

// Forum
const (
	ContributorsLimit     = 10
	ContributorsCacheKey  = "community:contributors"
	ContributorsCacheTTL  = 60 * time.Second
	ReputationHistorySize = 20
)

// Briefing
const (
	BriefingHistoryLimit = 10
	BriefingTop3Size     = 3
)

// Analysis input guards
const (
	MaxCSVInputSize     = 50000
	MaxCSVSampleRows    = 100
	MaxTextInputSize    = 10000
	MaxImageBytes       = 20 * 1024 * 1024
	MaxGlossaryTermSize = 200
)
