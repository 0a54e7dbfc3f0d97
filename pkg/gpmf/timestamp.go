package gpmf

// Timestamp is a (relative, duration) pair, both durations in milliseconds
// from the start of a clip (or, after concatenation, from the start of a
// session). It orders by relative alone.
type Timestamp struct {
	Relative uint32
	Duration uint32
}

// NewTimestamp builds a Timestamp.
func NewTimestamp(relative, duration uint32) Timestamp {
	return Timestamp{Relative: relative, Duration: duration}
}

// Less implements the total order on relative alone (§3: "Timestamp is
// equipped with a total order on relative").
func (t Timestamp) Less(other Timestamp) bool {
	return t.Relative < other.Relative
}

// End returns the timestamp's final wall-time position, relative+duration.
func (t Timestamp) End() uint32 {
	return t.Relative + t.Duration
}

// Add returns the timestamp to use when t's stream is concatenated
// immediately after other's clip. This intentionally differs from a plain
// "sum of two durations": the correct shift for every timestamp in clip B
// appended after clip A is A's final wall-time position, so the duration
// term of `other` is folded into the relative offset rather than dropped.
// This is not a general-purpose addition operator — see the session
// builder's gpmf() concatenation (package gopro) for its only caller.
func (t Timestamp) Add(other Timestamp) Timestamp {
	return Timestamp{
		Relative: t.Relative + other.Relative + other.Duration,
		Duration: t.Duration,
	}
}
