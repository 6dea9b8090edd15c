package team

import "sort"

// PickLeastPopulated returns the team with the fewest members. Ties go to the
// team created first, then to the lowest id.
func PickLeastPopulated(counts []MemberCount) (Team, bool) {
	if len(counts) == 0 {
		return Team{}, false
	}

	ordered := append([]MemberCount(nil), counts...)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Members != b.Members {
			return a.Members < b.Members
		}
		if !a.Team.CreatedAt.Equal(b.Team.CreatedAt) {
			return a.Team.CreatedAt.Before(b.Team.CreatedAt)
		}
		return a.Team.ID < b.Team.ID
	})

	return ordered[0].Team, true
}
