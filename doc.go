// Package smcluster bootstraps an ephemeral compute cluster, with optional
// co-located distributed storage, on the machines of a batch scheduler
// allocation.
//
// One node-process runs per allocated machine. The node-processes never talk
// to each other directly; they coordinate through artifacts in a shared
// session workdir:
//
//   - spark_master     the elected compute leader address
//   - hadoop/namenode  storage readiness marker
//   - done             the job exit code, read by every node-process
//
// Typical use from a batch script:
//
//	srv := smcluster.New(cfg, smcluster.WithEnviron(env))
//	code, err := srv.Run(ctx, []string{exe, "node", cfg.Workdir})
package smcluster
