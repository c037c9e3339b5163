package extensions

import "sort"

// DeriveStatus projects an extension's status from its versions: the most
// recent public version wins, otherwise the most recent non-deleted version's
// status, otherwise Null. Deleted versions never contribute.
//
// The input order does not matter; versions are ranked by creation (id breaks
// timestamp ties since ids are monotonic).
func DeriveStatus(versions []*Version) Status {
	live := make([]*Version, 0, len(versions))
	for _, v := range versions {
		if !v.Deleted {
			live = append(live, v)
		}
	}
	if len(live) == 0 {
		return StatusNull
	}

	sort.Slice(live, func(i, j int) bool {
		if !live[i].CreatedAt.Equal(live[j].CreatedAt) {
			return live[i].CreatedAt.After(live[j].CreatedAt)
		}
		return live[i].ID > live[j].ID
	})

	for _, v := range live {
		if v.Status == StatusPublic {
			return StatusPublic
		}
	}
	return live[0].Status
}
