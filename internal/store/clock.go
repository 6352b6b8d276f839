package store

// AcceptClock reports whether a caller proposing clock proposed may replace
// a record whose stored clock is existing. Equal clocks are a conflict.
//
// UpdateItem evaluates the same predicate inside its UPDATE statement
// (lamport_clock < proposed), so the check and the write are one atomic step.
func AcceptClock(existing, proposed int64) bool {
	return proposed > existing
}
