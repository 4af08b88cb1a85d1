package model

// NodeRole is the part a node-process plays in the cluster.
type NodeRole int

const (
	Idle NodeRole = iota
	ElectionCandidate
	ComputeLeader
	ComputeFollower
	StorageLeader
	StorageFollower
)

var roleNames = map[NodeRole]string{
	Idle:              "idle",
	ElectionCandidate: "election-candidate",
	ComputeLeader:     "compute-leader",
	ComputeFollower:   "compute-follower",
	StorageLeader:     "storage-leader",
	StorageFollower:   "storage-follower",
}

func (r NodeRole) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "unknown"
}

// ElectionRank is the rank allowed to elect itself compute leader and to
// lead the co-located storage service.
const ElectionRank = 0

// RolePolicy carries the settings role resolution depends on.
type RolePolicy struct {
	StorageEnabled  bool
	StorageExternal bool
	// MaxWorkers caps the number of ranks running a compute follower; zero
	// means no cap.
	MaxWorkers int
}

// Roles is the compute and storage role of one node-process.
type Roles struct {
	Compute NodeRole
	Storage NodeRole
}

// ElectionEligible reports whether the node-process may write the address record.
func (r Roles) ElectionEligible() bool {
	return r.Compute == ElectionCandidate
}

// RunsWorker reports whether the node-process starts a compute follower.
func (r Roles) RunsWorker() bool {
	return r.Compute != Idle
}

// ResolveRoles assigns roles from the rank within the allocation. The
// election rank is the only candidate; it also runs a compute follower.
func ResolveRoles(rank int, policy RolePolicy) Roles {
	var roles Roles
	switch {
	case rank == ElectionRank:
		roles.Compute = ElectionCandidate
	case policy.MaxWorkers > 0 && rank >= policy.MaxWorkers:
		roles.Compute = Idle
	default:
		roles.Compute = ComputeFollower
	}
	switch {
	case !policy.StorageEnabled || policy.StorageExternal:
		roles.Storage = Idle
	case rank == ElectionRank:
		roles.Storage = StorageLeader
	default:
		roles.Storage = StorageFollower
	}
	return roles
}
