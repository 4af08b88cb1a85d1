package resource

import (
	"fmt"

	"github.com/prometheus/procfs"
)

// ProcMemory reads available memory from /proc/meminfo.
type ProcMemory struct {
	// MountPoint overrides the proc mount; empty uses the default.
	MountPoint string
}

// AvailableMB returns MemAvailable in megabytes, falling back to
// MemFree+Buffers+Cached on kernels that do not report it.
func (p ProcMemory) AvailableMB() (int, error) {
	mountPoint := p.MountPoint
	if mountPoint == "" {
		mountPoint = procfs.DefaultMountPoint
	}
	fs, err := procfs.NewFS(mountPoint)
	if err != nil {
		return 0, fmt.Errorf("failed to open procfs: %w", err)
	}
	info, err := fs.Meminfo()
	if err != nil {
		return 0, fmt.Errorf("failed to read meminfo: %w", err)
	}
	if info.MemAvailable != nil {
		return int(*info.MemAvailable / 1024), nil
	}
	var kb uint64
	for _, v := range []*uint64{info.MemFree, info.Buffers, info.Cached} {
		if v != nil {
			kb += *v
		}
	}
	if kb == 0 {
		return 0, fmt.Errorf("meminfo reports no available memory")
	}
	return int(kb / 1024), nil
}

// StaticMemory reports a fixed amount of available memory.
type StaticMemory int

// AvailableMB returns the fixed value.
func (s StaticMemory) AvailableMB() (int, error) {
	return int(s), nil
}
