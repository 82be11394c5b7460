package domain

type SessionStatus string

const (
	SessionDownloading SessionStatus = "downloading"
	SessionSeeding     SessionStatus = "seeding"
	SessionPaused      SessionStatus = "paused"
	SessionError       SessionStatus = "error"
	SessionCompleted   SessionStatus = "completed"
)

// Active reports whether a persisted status describes a session that should
// have a live engine instance behind it.
func (s SessionStatus) Active() bool {
	return s == SessionDownloading || s == SessionSeeding
}
