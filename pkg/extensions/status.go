package extensions

// CanTransition reports whether a version may move between two statuses.
// Pending versions are decided by review; public versions can only age out.
// Blocked never appears on a version, it is an extension-level override.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusPublic || to == StatusRejected
	case StatusPublic:
		return to == StatusObsolete
	}
	return false
}
