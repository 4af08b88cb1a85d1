// Package report keeps a per node-process timing report across runs and
// exports the same timings as Prometheus textfile metrics.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/smcluster/internal/clock"
)

// Timing is a phase duration, encoded as a [phase, seconds] pair.
type Timing struct {
	Phase   string
	Seconds float64
}

func (t Timing) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{t.Phase, t.Seconds})
}

func (t *Timing) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("invalid timing: %s", data)
	}
	if err := json.Unmarshal(pair[0], &t.Phase); err != nil {
		return err
	}
	return json.Unmarshal(pair[1], &t.Seconds)
}

// Document is the persisted report; Timing holds one entry per run.
type Document struct {
	Parallelism int        `json:"parallelism"`
	Version     string     `json:"version"`
	Runtime     []float64  `json:"runtime"`
	Timing      [][]Timing `json:"timing"`
}

// Report appends one run to a report file.
type Report struct {
	fs      afs.Service
	url     string
	doc     Document
	started time.Time
	mux     sync.Mutex
}

// Open loads url, if present, and starts a new run in it.
func Open(ctx context.Context, fs afs.Service, url string, parallelism int, version string) (*Report, error) {
	if fs == nil {
		fs = afs.New()
	}
	ret := &Report{
		fs:      fs,
		url:     url,
		started: clock.Now(),
		doc:     Document{Parallelism: parallelism, Version: version, Runtime: []float64{}},
	}
	exists, err := fs.Exists(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to check report %v: %w", url, err)
	}
	if exists {
		data, err := fs.DownloadWithURL(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("failed to read report %v: %w", url, err)
		}
		var previous Document
		if err := json.Unmarshal(data, &previous); err != nil {
			return nil, fmt.Errorf("failed to decode report %v: %w", url, err)
		}
		if previous.Runtime != nil {
			ret.doc.Runtime = previous.Runtime
		}
		ret.doc.Timing = previous.Timing
	}
	ret.doc.Timing = append(ret.doc.Timing, []Timing{})
	return ret, nil
}

// Record appends a timing to the current run and saves the report.
func (r *Report) Record(ctx context.Context, timing Timing) error {
	r.mux.Lock()
	defer r.mux.Unlock()
	last := len(r.doc.Timing) - 1
	r.doc.Timing[last] = append(r.doc.Timing[last], timing)
	return r.save(ctx)
}

// SetParallelism sets the parallelism recorded with the report.
func (r *Report) SetParallelism(parallelism int) {
	r.mux.Lock()
	defer r.mux.Unlock()
	r.doc.Parallelism = parallelism
}

// Close records the run time and saves the report.
func (r *Report) Close(ctx context.Context) error {
	r.mux.Lock()
	defer r.mux.Unlock()
	r.doc.Runtime = append(r.doc.Runtime, clock.Since(r.started).Seconds())
	return r.save(ctx)
}

// Document returns a copy of the report.
func (r *Report) Document() Document {
	r.mux.Lock()
	defer r.mux.Unlock()
	ret := r.doc
	ret.Runtime = append([]float64(nil), r.doc.Runtime...)
	ret.Timing = make([][]Timing, len(r.doc.Timing))
	for i, run := range r.doc.Timing {
		ret.Timing[i] = append([]Timing{}, run...)
	}
	return ret
}

func (r *Report) save(ctx context.Context) error {
	data, err := json.Marshal(r.doc)
	if err != nil {
		return err
	}
	if err := r.fs.Upload(ctx, r.url, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write report %v: %w", r.url, err)
	}
	return nil
}
