package model

import (
	"fmt"
	"path"
	"strconv"
)

// Artifact keys relative to the session workdir.
const (
	AddressKey       = "spark_master"
	StorageMarkerKey = "hadoop/namenode"
	SentinelKey      = "done"
	SnapshotKey      = "session.yaml"

	storageDir = "hadoop"
	logDir     = "logs"
	workDir    = "work"
)

// Session identifies one cluster lifetime: a batch job bound to a shared workdir.
type Session struct {
	JobID   string `yaml:"jobId" json:"jobId"`
	Workdir string `yaml:"workdir" json:"workdir"`
}

// Validate checks that the session can host coordination artifacts.
func (s Session) Validate() error {
	if s.Workdir == "" {
		return fmt.Errorf("session workdir is required")
	}
	if s.JobID == "" {
		return fmt.Errorf("session job id is required")
	}
	return nil
}

// Path joins a workdir-relative key onto the session workdir.
func (s Session) Path(key string) string {
	return path.Join(s.Workdir, key)
}

// ConfDir returns the workdir-relative storage configuration directory; the
// storage leader uses the bare job id, followers append their rank.
func (s Session) ConfDir(rank int, leader bool) string {
	name := s.JobID
	if !leader {
		name += "." + strconv.Itoa(rank)
	}
	return path.Join(storageDir, "conf", name)
}

// NameDir returns the workdir-relative storage metadata directory of the job.
func (s Session) NameDir() string {
	return path.Join(storageDir, "name", s.JobID)
}

// LogDir returns the absolute daemon log root.
func (s Session) LogDir() string {
	return s.Path(logDir)
}

// WorkDir returns the absolute daemon scratch root.
func (s Session) WorkDir() string {
	return s.Path(workDir)
}

// NodeFile returns a per node-process file name such as "report.<job>.<rank>.json".
func (s Session) NodeFile(prefix string, rank int, ext string) string {
	return fmt.Sprintf("%s.%s.%d.%s", prefix, s.JobID, rank, ext)
}
