package smcluster

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/viant/smcluster/internal/logging"
	"github.com/viant/smcluster/model"
	"github.com/viant/smcluster/service/allocation"
	"github.com/viant/smcluster/service/artifact"
	"github.com/viant/smcluster/service/barrier"
	"github.com/viant/smcluster/service/job"
	"github.com/viant/smcluster/service/launcher"
	"github.com/viant/smcluster/service/rendezvous"
	"github.com/viant/smcluster/service/report"
	"github.com/viant/smcluster/service/resource"
	"github.com/viant/smcluster/service/storage"
	"github.com/viant/smcluster/tracing"
	"golang.org/x/sync/errgroup"
)

// node is the state of one node-process.
type node struct {
	*Service
	allocation *allocation.Allocation
	session    model.Session
	roles      model.Roles
	host       string
	store      artifact.Store
	logger     *logrus.Entry
	storage    *storage.Service
	report     *report.Report
	elected    bool
	worker     bool
	budget     model.ResourceAllocation
}

// Node runs the node-process of the local machine: it joins the rendezvous,
// starts its daemons, runs or awaits the job and tears everything down. It
// returns the session exit code.
func (s *Service) Node(ctx context.Context) (int, error) {
	alloc, err := allocation.Resolve(s.env)
	if err != nil {
		return ExitUnsupportedEnvironment, &ExitError{Code: ExitUnsupportedEnvironment, Err: err}
	}
	if err := s.config.Validate(); err != nil {
		return ExitStartupFailure, &ExitError{Code: ExitStartupFailure, Err: err}
	}
	n := &node{Service: s, allocation: alloc, session: s.config.Session(alloc.JobID)}
	if err := n.session.Validate(); err != nil {
		return ExitStartupFailure, &ExitError{Code: ExitStartupFailure, Err: err}
	}
	n.logger = logging.ForNode(s.logger, alloc.JobID, alloc.Rank)
	n.host = alloc.Host
	if n.host == "" {
		n.host = s.hostname
	}
	if n.host == "" {
		err := fmt.Errorf("local host name is unknown")
		return ExitStartupFailure, &ExitError{Code: ExitStartupFailure, Err: err}
	}
	if probe, ok := s.prober.(*rendezvous.ProcessProbe); ok {
		probe.LocalHosts = append(probe.LocalHosts, n.host)
	}
	if n.store, err = s.artifacts(ctx); err != nil {
		return ExitStartupFailure, &ExitError{Code: ExitStartupFailure, Err: err}
	}
	if err := s.ensureDirs(ctx, n.session); err != nil {
		return ExitStartupFailure, &ExitError{Code: ExitStartupFailure, Err: err}
	}
	if s.config.Verbose {
		traceFile := path.Join(n.session.LogDir(), n.session.NodeFile("trace", alloc.Rank, "json"))
		if err := tracing.Init("smcluster", s.version, traceFile); err != nil {
			n.logger.WithError(err).Warn("failed to initialise tracing")
		}
		defer func() { _ = tracing.Shutdown(context.Background()) }()
	}
	return n.run(ctx)
}

func (n *node) run(ctx context.Context) (code int, err error) {
	reportURL := path.Join(n.session.LogDir(), n.session.NodeFile("report", n.allocation.Rank, "json"))
	rep, rErr := report.Open(ctx, n.fs, reportURL, 0, n.version)
	if rErr != nil {
		n.logger.WithError(rErr).Warn("bootstrap report disabled")
	}
	n.report = rep
	ctx, tracker := report.WithNewTracker(ctx, func(timing report.Timing) {
		if rep == nil {
			return
		}
		if err := rep.Record(context.Background(), timing); err != nil {
			n.logger.WithError(err).Debug("failed to record timing")
		}
	})
	ctx, span := tracing.StartSpan(ctx, "node")
	span.WithAttributes(map[string]string{"job": n.session.JobID, "rank": strconv.Itoa(n.allocation.Rank)})
	defer func() {
		n.teardown(context.Background())
		n.finish(rep, tracker, code)
		tracing.EndSpan(span, err)
	}()

	n.roles = model.ResolveRoles(n.allocation.Rank, n.config.RolePolicy())
	n.logger.WithFields(logrus.Fields{"compute": n.roles.Compute, "storage": n.roles.Storage, "host": n.host, "nodes": n.allocation.NodeCount}).Info("node-process started")
	aborting := n.roles.ElectionEligible()

	record, err := n.rendezvous(ctx)
	if err != nil {
		return n.abort(ctx, aborting, err)
	}
	if err := n.storageBootstrap(ctx, record); err != nil {
		return n.abort(ctx, aborting, err)
	}
	if err := n.startWorker(ctx, record); err != nil {
		return n.abort(ctx, aborting, err)
	}
	return n.complete(ctx, record)
}

func (n *node) rendezvous(ctx context.Context) (record model.AddressRecord, err error) {
	defer report.Phase(ctx, "rendezvous")()
	ctx, span := tracing.StartSpan(ctx, "rendezvous")
	defer func() { tracing.EndSpan(span, err) }()

	starter := &leaderStarter{launcher: n.launcher, params: launcher.Params{
		Host:    n.host,
		Port:    n.config.Compute.Port,
		WebPort: n.config.Compute.WebPort,
		LogDir:  n.session.LogDir(),
	}, record: model.AddressRecord{Scheme: n.config.Compute.Scheme, Host: n.host, Port: n.config.Compute.Port}}
	coordinator := rendezvous.New(n.store, n.prober, starter, n.config.Rendezvous, n.logger)
	coordinator.AbortKey = model.SentinelKey
	record, state, err := coordinator.ElectOrDiscover(ctx, n.roles.ElectionEligible())
	if err != nil {
		return record, err
	}
	n.elected = state == rendezvous.Elected
	if n.elected {
		n.roles.Compute = model.ComputeLeader
	}
	return record, nil
}

func (n *node) storageBootstrap(ctx context.Context, record model.AddressRecord) (err error) {
	if !n.config.Storage.Enabled() {
		return nil
	}
	defer report.Phase(ctx, "storage")()
	ctx, span := tracing.StartSpan(ctx, "storage")
	defer func() { tracing.EndSpan(span, err) }()

	n.storage = storage.New(n.session, n.store, n.fs, n.launcher, n.config.Storage, n.logger)
	role, err := n.storage.Bootstrap(ctx, n.allocation.Rank, n.allocation.Rank == model.ElectionRank, record.Host)
	if err != nil {
		return err
	}
	n.logger.WithField("role", role).Debug("storage ready")
	return nil
}

func (n *node) startWorker(ctx context.Context, record model.AddressRecord) (err error) {
	if !n.roles.RunsWorker() {
		n.logger.Info("worker cap reached, joining barrier only")
		return nil
	}
	defer report.Phase(ctx, "worker")()
	ctx, span := tracing.StartSpan(ctx, "worker")
	defer func() { tracing.EndSpan(span, err) }()

	budget, outcome, err := resource.Compute(resource.Request{
		OverrideCores:          n.config.Resources.Cores,
		OverrideMemoryMB:       n.config.Resources.MemoryMB,
		Hints:                  n.allocation.Hints,
		ReservedLeaderMemoryMB: n.config.Resources.ReservedLeaderMemoryMB,
	}, n.memory)
	if err != nil {
		return err
	}
	if outcome.DetectionErr != nil {
		n.logger.WithError(outcome.DetectionErr).Warn("available memory unknown, budget not clamped")
	}
	if outcome.Clamped {
		n.logger.WithFields(logrus.Fields{"requestedMB": outcome.RequestedMB, "availableMB": outcome.AvailableMB}).Warn("worker memory clamped to available memory")
	}
	n.budget = budget
	if n.report != nil {
		n.report.SetParallelism(budget.Cores)
	}
	err = n.launcher.Start(ctx, launcher.ComputeFollower, launcher.Params{
		MasterURL: record.String(),
		Cores:     budget.Cores,
		MemoryMB:  budget.MemoryMB,
		LogDir:    n.session.LogDir(),
		WorkDir:   path.Join(n.session.WorkDir(), fmt.Sprintf("%s.%d", n.session.JobID, n.allocation.Rank)),
	})
	if err != nil {
		return err
	}
	n.worker = true
	n.logger.WithField("budget", budget.String()).Info("worker started")
	return nil
}

// complete runs the job on the election rank and waits for the sentinel
// everywhere else.
func (n *node) complete(ctx context.Context, record model.AddressRecord) (int, error) {
	sentinel := barrier.New(n.store, n.config.Barrier, n.logger)
	if n.allocation.Rank == model.ElectionRank && n.config.Job.Command != "" {
		done := report.Phase(ctx, "job")
		n.logger.WithField("command", n.config.Job.Command).Info("running job")
		code, err := n.runner.Run(ctx, job.ShellCommand(n.config.Job.Command), job.MasterEnv(record))
		done()
		if err != nil {
			n.logger.WithError(err).Error("job failed to run")
		}
		if sErr := sentinel.Signal(ctx, code); sErr != nil {
			if !errors.Is(sErr, barrier.ErrAlreadySignaled) {
				return ExitStartupFailure, &ExitError{Code: ExitStartupFailure, Err: sErr}
			}
			n.logger.WithError(sErr).Warn("sentinel already written")
		}
		return code, nil
	}
	defer report.Phase(ctx, "barrier")()
	code, err := sentinel.Await(ctx)
	if err != nil {
		return ExitStartupFailure, &ExitError{Code: ExitStartupFailure, Err: err}
	}
	return code, nil
}

// abort fails the node-process; on the election rank it also releases every
// node-process waiting at the barrier.
func (n *node) abort(ctx context.Context, signal bool, err error) (int, error) {
	n.logger.WithError(err).Error("bootstrap failed")
	if signal {
		sErr := barrier.New(n.store, n.config.Barrier, n.logger).Signal(context.Background(), ExitStartupFailure)
		if sErr != nil && !errors.Is(sErr, barrier.ErrAlreadySignaled) {
			n.logger.WithError(sErr).Warn("failed to signal session abort")
		}
	}
	return ExitStartupFailure, &ExitError{Code: ExitStartupFailure, Err: err}
}

// teardown stops the local daemons concurrently.
func (n *node) teardown(ctx context.Context) {
	group, ctx := errgroup.WithContext(ctx)
	if n.worker {
		group.Go(func() error { return n.launcher.Stop(ctx, launcher.ComputeFollower) })
	}
	if n.storage != nil {
		group.Go(func() error { return n.storage.Stop(ctx) })
	}
	if n.elected {
		group.Go(func() error { return n.launcher.Stop(ctx, launcher.ComputeLeader) })
	}
	if err := group.Wait(); err != nil {
		n.logger.WithError(err).Warn("teardown incomplete")
	}
}

func (n *node) finish(rep *report.Report, tracker *report.Tracker, code int) {
	ctx := context.Background()
	if rep != nil {
		if err := rep.Close(ctx); err != nil {
			n.logger.WithError(err).Debug("failed to close report")
		}
	}
	metrics := report.Metrics{
		JobID:    n.session.JobID,
		Rank:     n.allocation.Rank,
		Timings:  tracker.Timings(),
		Runtime:  tracker.Elapsed().Seconds(),
		ExitCode: code,
		Cores:    n.budget.Cores,
		MemoryMB: n.budget.MemoryMB,
	}
	filename := path.Join(n.session.LogDir(), n.session.NodeFile("metrics", n.allocation.Rank, "prom"))
	if err := metrics.WriteTextfile(filename); err != nil {
		n.logger.WithError(err).Debug("failed to write metrics")
	}
	n.logger.WithField("code", code).Info("node-process finished")
}

// leaderStarter starts the compute leader through the launcher.
type leaderStarter struct {
	launcher launcher.Launcher
	params   launcher.Params
	record   model.AddressRecord
}

func (l *leaderStarter) StartLeader(ctx context.Context) (model.AddressRecord, error) {
	if err := l.launcher.Start(ctx, launcher.ComputeLeader, l.params); err != nil {
		return model.AddressRecord{}, err
	}
	return l.record, nil
}

func (l *leaderStarter) StopLeader(ctx context.Context) error {
	return l.launcher.Stop(ctx, launcher.ComputeLeader)
}
