package memberrepo

import (
	"testing"

	"github.com/Overland-East-Bay/trip-wallet-api/internal/adapters/contracttest"
	memtriprepo "github.com/Overland-East-Bay/trip-wallet-api/internal/adapters/memory/triprepo"
	memberrepoport "github.com/Overland-East-Bay/trip-wallet-api/internal/ports/out/memberrepo"
	triprepoport "github.com/Overland-East-Bay/trip-wallet-api/internal/ports/out/triprepo"
)

func TestContract_MemberRepo(t *testing.T) {
	contracttest.RunMemberRepo(
		t,
		func(t *testing.T) (triprepoport.Repository, func()) {
			t.Helper()
			return memtriprepo.NewRepo(), nil
		},
		func(t *testing.T) (memberrepoport.Repository, func()) {
			t.Helper()
			return NewRepo(), nil
		},
	)
}
