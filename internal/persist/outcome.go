package persist

import "github.com/pixian5/homepage-sub000/internal/storage"

type Status int

const (
	StatusSaved Status = iota
	// StatusDegraded means Local accepted the document after shedding data.
	StatusDegraded
	// StatusSyncQuotaExceeded and StatusSyncRejected mean sync was turned
	// off and the document went to Local.
	StatusSyncQuotaExceeded
	StatusSyncRejected
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSaved:
		return "saved"
	case StatusDegraded:
		return "saved-degraded"
	case StatusSyncQuotaExceeded:
		return "sync-quota-exceeded"
	case StatusSyncRejected:
		return "sync-rejected"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome reports what a save did. Err is set for every status but
// StatusSaved and StatusDegraded.
type Outcome struct {
	Status       Status
	Tier         storage.Tier
	Steps        []Step
	SyncDisabled bool
	Err          error
}

// Persisted reports whether the document reached some tier.
func (o Outcome) Persisted() bool {
	return o.Status != StatusFailed
}
