package domain

import "time"

// SnapshotSchemaVersion is bumped whenever the shape of the cached event
// snapshot changes. Cache keys embed the version so stale entries written
// by an older build are simply never read back.
const SnapshotSchemaVersion = 3

// Freshness classifies a cached snapshot's age.
type Freshness int

const (
	// FreshnessMiss means no snapshot is cached at all.
	FreshnessMiss Freshness = iota
	// FreshnessFresh means the snapshot is young enough to serve as-is.
	FreshnessFresh
	// FreshnessStale means the snapshot is servable but a background
	// refresh should be kicked off.
	FreshnessStale
	// FreshnessExpired means the snapshot is too old to serve.
	FreshnessExpired
)

func (f Freshness) String() string {
	switch f {
	case FreshnessFresh:
		return "fresh"
	case FreshnessStale:
		return "stale"
	case FreshnessExpired:
		return "expired"
	default:
		return "miss"
	}
}

// Snapshot is the full cached catalog: every event returned by the
// upstream pagination sweep plus the capture time used for freshness
// classification.
type Snapshot struct {
	Events     []Event   `json:"events"`
	CapturedAt time.Time `json:"capturedAt"`
}

// Classify buckets the snapshot's age against the given fresh and stale
// windows. A zero CapturedAt is treated as a miss.
func (s *Snapshot) Classify(now time.Time, freshTTL, staleTTL time.Duration) Freshness {
	if s == nil || s.CapturedAt.IsZero() {
		return FreshnessMiss
	}
	age := now.Sub(s.CapturedAt)
	switch {
	case age < freshTTL:
		return FreshnessFresh
	case age < staleTTL:
		return FreshnessStale
	default:
		return FreshnessExpired
	}
}

// FetchStats summarizes one pagination sweep over the upstream API.
type FetchStats struct {
	Pages      int           `json:"pages"`
	Events     int           `json:"events"`
	Markets    int           `json:"markets"`
	Duration   time.Duration `json:"duration"`
	HitPageCap bool          `json:"hitPageCap"`
	TimedOut   bool          `json:"timedOut"`
}

// FetchRun is the persisted audit record of one catalog refresh.
type FetchRun struct {
	ID         string     `json:"id"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt time.Time  `json:"finishedAt"`
	Stats      FetchStats `json:"stats"`
	Err        string     `json:"error,omitempty"`
}
