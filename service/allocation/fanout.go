package allocation

import (
	"fmt"
	"strings"
)

// FanOut returns the command that starts one instance of argv on every node
// of the allocation, using the scheduler's own task launcher.
func FanOut(kind Kind, env Environ, argv []string) ([]string, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("fan-out command is empty")
	}
	switch kind {
	case Slurm:
		cmd := []string{"srun", "--ntasks-per-node=1", "--kill-on-bad-exit=0"}
		if nodes, ok := env.Int("SLURM_JOB_NUM_NODES"); ok {
			cmd = append(cmd, fmt.Sprintf("--nodes=%d", nodes), fmt.Sprintf("--ntasks=%d", nodes))
		}
		return append(cmd, argv...), nil
	case PBS:
		return append([]string{"pbsdsh", "-u"}, argv...), nil
	case LSF:
		hosts := uniqueHosts(env.Get("LSB_HOSTS"))
		if len(hosts) == 0 {
			return nil, fmt.Errorf("LSB_HOSTS is empty")
		}
		return append([]string{"blaunch", "-z", strings.Join(hosts, " ")}, argv...), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedEnvironment, kind)
}

func uniqueHosts(list string) []string {
	seen := map[string]bool{}
	var hosts []string
	for _, host := range strings.Fields(list) {
		if seen[host] {
			continue
		}
		seen[host] = true
		hosts = append(hosts, host)
	}
	return hosts
}
