package allocation

import (
	"errors"
	"strings"
)

// ErrUnsupportedEnvironment is returned when no known batch scheduler is detected.
var ErrUnsupportedEnvironment = errors.New("allocation: no supported batch scheduler detected")

// Kind identifies a batch scheduler.
type Kind string

const (
	Slurm Kind = "slurm"
	PBS   Kind = "pbs"
	LSF   Kind = "lsf"
)

// HostnameKey is the snapshot key holding the local host name.
const HostnameKey = "HOSTNAME"

// signature describes how one scheduler exposes its allocation.
type signature struct {
	kind         Kind
	jobID        string
	rank         []string
	nodeCount    []string
	nodeName     string
	coresPerTask string
	coresOnNode  string
	memPerNode   string
	memPerCpu    string
}

// signatures are probed in priority order; the first present job id wins.
var signatures = []signature{
	{
		kind:         Slurm,
		jobID:        "SLURM_JOB_ID",
		rank:         []string{"SLURM_PROCID", "SLURM_NODEID"},
		nodeCount:    []string{"SLURM_JOB_NUM_NODES", "SLURM_NNODES"},
		nodeName:     "SLURMD_NODENAME",
		coresPerTask: "SLURM_CPUS_PER_TASK",
		coresOnNode:  "SLURM_CPUS_ON_NODE",
		memPerNode:   "SLURM_MEM_PER_NODE",
		memPerCpu:    "SLURM_MEM_PER_CPU",
	},
	{
		kind:        PBS,
		jobID:       "PBS_JOBID",
		rank:        []string{"PBS_VNODENUM", "PBS_NODENUM"},
		nodeCount:   []string{"PBS_NUM_NODES"},
		coresOnNode: "PBS_NUM_PPN",
	},
	{
		kind:        LSF,
		jobID:       "LSB_JOBID",
		rank:        []string{"LSF_PM_TASKID"},
		nodeCount:   []string{"LSB_MAX_NUM_NODES"},
		coresOnNode: "LSB_MAX_NUM_PROCESSORS",
	},
}

// Hints are the per-node resource figures a scheduler advertises. Absent
// values are nil.
type Hints struct {
	CoresPerTask *int
	CoresOnNode  *int
	MemPerNodeMB *int
	CpusOnNode   *int
	MemPerCpuMB  *int
}

// Allocation describes the batch allocation as seen by one node-process.
type Allocation struct {
	Kind      Kind
	JobID     string
	Rank      int
	NodeCount int
	Host      string
	Hints     Hints
}

// Detect returns the scheduler kind whose signature is present in env.
func Detect(env Environ) (Kind, error) {
	sig, err := detect(env)
	if err != nil {
		return "", err
	}
	return sig.kind, nil
}

func detect(env Environ) (*signature, error) {
	for i := range signatures {
		if _, ok := env.Lookup(signatures[i].jobID); ok {
			return &signatures[i], nil
		}
	}
	return nil, ErrUnsupportedEnvironment
}

// Resolve detects the scheduler and reads the allocation it exposes.
func Resolve(env Environ) (*Allocation, error) {
	sig, err := detect(env)
	if err != nil {
		return nil, err
	}
	ret := &Allocation{
		Kind:      sig.kind,
		JobID:     jobID(env.Get(sig.jobID)),
		NodeCount: 1,
	}
	for _, key := range sig.rank {
		if rank, ok := env.Int(key); ok {
			ret.Rank = rank
			break
		}
	}
	for _, key := range sig.nodeCount {
		if count, ok := env.Int(key); ok && count > 0 {
			ret.NodeCount = count
			break
		}
	}
	if sig.nodeName != "" {
		ret.Host = env.Get(sig.nodeName)
	}
	if ret.Host == "" {
		ret.Host = env.Get(HostnameKey)
	}
	ret.Hints = Hints{
		CoresPerTask: optional(env, sig.coresPerTask),
		CoresOnNode:  optional(env, sig.coresOnNode),
		MemPerNodeMB: optional(env, sig.memPerNode),
		CpusOnNode:   optional(env, sig.coresOnNode),
		MemPerCpuMB:  optional(env, sig.memPerCpu),
	}
	return ret, nil
}

// jobID strips the server suffix PBS appends ("1234.server" -> "1234").
func jobID(raw string) string {
	if i := strings.IndexByte(raw, '.'); i > 0 {
		return raw[:i]
	}
	return raw
}

func optional(env Environ, key string) *int {
	if key == "" {
		return nil
	}
	if value, ok := env.Int(key); ok {
		return &value
	}
	return nil
}
