package memberrepo

import (
	"sort"

	"github.com/Overland-East-Bay/trip-wallet-api/internal/domain"
)

func sortByJoinedAt(ms []domain.TripMember) {
	sort.SliceStable(ms, func(i, j int) bool {
		if ms[i].JoinedAt.Equal(ms[j].JoinedAt) {
			return ms[i].TripID < ms[j].TripID
		}
		return ms[i].JoinedAt.Before(ms[j].JoinedAt)
	})
}
