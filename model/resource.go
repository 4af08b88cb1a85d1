package model

import "fmt"

// ResourceAllocation is the budget handed to the compute follower of a node.
// It is computed once per node-process and never changed afterwards.
type ResourceAllocation struct {
	Cores    int `json:"cores" yaml:"cores"`
	MemoryMB int `json:"memoryMB" yaml:"memoryMB"`
}

func (a ResourceAllocation) String() string {
	return fmt.Sprintf("%d cores, %dMB", a.Cores, a.MemoryMB)
}
