package cache

// Status is the outcome of a cache lookup. Misses are not errors; they tell
// the caller why a recomputation is needed.
type Status int

// Lookup outcomes.
const (
	Hit Status = iota
	MissAbsent
	MissInvalidated
	MissFingerprint
	MissExpired
)

func (s Status) String() string {
	switch s {
	case Hit:
		return "hit"
	case MissAbsent:
		return "miss_absent"
	case MissInvalidated:
		return "miss_invalidated"
	case MissFingerprint:
		return "miss_fingerprint"
	case MissExpired:
		return "miss_expired"
	default:
		return "unknown"
	}
}
