package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveRoles(t *testing.T) {
	testCases := []struct {
		name   string
		rank   int
		policy RolePolicy
		expect Roles
	}{
		{name: "election rank without storage", rank: 0, expect: Roles{Compute: ElectionCandidate, Storage: Idle}},
		{name: "follower without storage", rank: 3, expect: Roles{Compute: ComputeFollower, Storage: Idle}},
		{name: "co-located storage leader", rank: 0, policy: RolePolicy{StorageEnabled: true}, expect: Roles{Compute: ElectionCandidate, Storage: StorageLeader}},
		{name: "co-located storage follower", rank: 1, policy: RolePolicy{StorageEnabled: true}, expect: Roles{Compute: ComputeFollower, Storage: StorageFollower}},
		{name: "external storage", rank: 1, policy: RolePolicy{StorageEnabled: true, StorageExternal: true}, expect: Roles{Compute: ComputeFollower, Storage: Idle}},
		{name: "above worker cap", rank: 4, policy: RolePolicy{MaxWorkers: 4}, expect: Roles{Compute: Idle, Storage: Idle}},
		{name: "below worker cap", rank: 3, policy: RolePolicy{MaxWorkers: 4}, expect: Roles{Compute: ComputeFollower, Storage: Idle}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, ResolveRoles(tc.rank, tc.policy))
		})
	}
}

func TestResolveRoles_SingleCandidate(t *testing.T) {
	candidates := 0
	for rank := 0; rank < 64; rank++ {
		if ResolveRoles(rank, RolePolicy{StorageEnabled: true}).ElectionEligible() {
			candidates++
		}
	}
	assert.Equal(t, 1, candidates)
}
