package launcher

import (
	"context"
	"sync"
)

// Call is one recorded launcher invocation.
type Call struct {
	Start  bool
	Daemon Daemon
	Params Params
}

// Recorder is an in-memory Launcher that records calls instead of running scripts.
type Recorder struct {
	// Failures makes Start of the given daemon fail.
	Failures map[Daemon]error
	// OnStart, when set, runs after a successful Start is recorded.
	OnStart func(daemon Daemon, params Params)
	calls   []Call
	mux     sync.Mutex
}

// NewRecorder creates a Recorder.
func NewRecorder() *Recorder {
	return &Recorder{Failures: map[Daemon]error{}}
}

func (r *Recorder) Start(ctx context.Context, daemon Daemon, params Params) error {
	r.mux.Lock()
	if err, ok := r.Failures[daemon]; ok {
		r.mux.Unlock()
		return err
	}
	r.calls = append(r.calls, Call{Start: true, Daemon: daemon, Params: params})
	onStart := r.OnStart
	r.mux.Unlock()
	if onStart != nil {
		onStart(daemon, params)
	}
	return nil
}

func (r *Recorder) Stop(ctx context.Context, daemon Daemon) error {
	r.mux.Lock()
	defer r.mux.Unlock()
	r.calls = append(r.calls, Call{Daemon: daemon})
	return nil
}

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []Call {
	r.mux.Lock()
	defer r.mux.Unlock()
	return append([]Call(nil), r.calls...)
}

// Started returns the daemons started, in order.
func (r *Recorder) Started() []Daemon {
	var ret []Daemon
	for _, call := range r.Calls() {
		if call.Start {
			ret = append(ret, call.Daemon)
		}
	}
	return ret
}

// Stopped returns the daemons stopped, in order.
func (r *Recorder) Stopped() []Daemon {
	var ret []Daemon
	for _, call := range r.Calls() {
		if !call.Start {
			ret = append(ret, call.Daemon)
		}
	}
	return ret
}
