// Package resource computes the cores and memory a node-process hands to its
// compute follower.
package resource

import (
	"errors"
	"fmt"

	"github.com/viant/smcluster/model"
	"github.com/viant/smcluster/service/allocation"
)

var (
	// ErrMissingHints is returned when neither an override nor a scheduler
	// hint determines cores or memory.
	ErrMissingHints = errors.New("resource: scheduler resource hints missing")

	// ErrInsufficientMemory is returned when the leader reservation consumes
	// all scheduler-advertised memory.
	ErrInsufficientMemory = errors.New("resource: leader reservation exceeds node memory")
)

// Request holds the inputs of Compute. Nil overrides are unset.
type Request struct {
	OverrideCores          *int
	OverrideMemoryMB       *int
	Hints                  allocation.Hints
	ReservedLeaderMemoryMB int
}

// Outcome describes adjustments made while computing an allocation.
type Outcome struct {
	// Clamped is set when the computed memory exceeded what the host reports
	// available and was reduced to it.
	Clamped     bool
	RequestedMB int
	AvailableMB int
	// DetectionErr holds a failure of the memory detector; the budget is
	// then left unclamped.
	DetectionErr error
}

// MemoryDetector reports memory currently available on the local host.
type MemoryDetector interface {
	AvailableMB() (int, error)
}

// Compute derives the node budget:
//
//	cores  = override ?? coresPerTask ?? coresOnNode
//	memory = override ?? ((memPerNode ?? cpusOnNode*memPerCpu) - reserved)
//	memory = min(memory, available)
func Compute(request Request, detector MemoryDetector) (model.ResourceAllocation, Outcome, error) {
	var outcome Outcome
	cores, err := cores(request)
	if err != nil {
		return model.ResourceAllocation{}, outcome, err
	}
	memory, err := memory(request)
	if err != nil {
		return model.ResourceAllocation{}, outcome, err
	}
	outcome.RequestedMB = memory
	if detector != nil {
		available, err := detector.AvailableMB()
		if err != nil {
			outcome.DetectionErr = err
		} else {
			outcome.AvailableMB = available
			if memory > available {
				memory = available
				outcome.Clamped = true
			}
		}
	}
	return model.ResourceAllocation{Cores: cores, MemoryMB: memory}, outcome, nil
}

func cores(request Request) (int, error) {
	switch {
	case request.OverrideCores != nil:
		return *request.OverrideCores, nil
	case request.Hints.CoresPerTask != nil:
		return *request.Hints.CoresPerTask, nil
	case request.Hints.CoresOnNode != nil:
		return *request.Hints.CoresOnNode, nil
	}
	return 0, fmt.Errorf("%w: no cores per task or cores on node", ErrMissingHints)
}

func memory(request Request) (int, error) {
	if request.OverrideMemoryMB != nil {
		return *request.OverrideMemoryMB, nil
	}
	var scheduler int
	hints := request.Hints
	switch {
	case hints.MemPerNodeMB != nil:
		scheduler = *hints.MemPerNodeMB
	case hints.CpusOnNode != nil && hints.MemPerCpuMB != nil:
		scheduler = *hints.CpusOnNode * *hints.MemPerCpuMB
	default:
		return 0, fmt.Errorf("%w: no memory per node or memory per cpu", ErrMissingHints)
	}
	memory := scheduler - request.ReservedLeaderMemoryMB
	if memory <= 0 {
		return 0, fmt.Errorf("%w: %dMB advertised, %dMB reserved", ErrInsufficientMemory, scheduler, request.ReservedLeaderMemoryMB)
	}
	return memory, nil
}
