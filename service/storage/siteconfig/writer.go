package siteconfig

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/smcluster/internal/logging"
)

// Writer emits site configuration directories.
type Writer struct {
	fs     afs.Service
	logger *logrus.Entry
}

// NewWriter creates a Writer.
func NewWriter(fs afs.Service, logger *logrus.Entry) *Writer {
	if fs == nil {
		fs = afs.New()
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Writer{fs: fs, logger: logger}
}

// Write renders site into dir. A regenerated file whose content changed is
// logged as a unified diff.
func (w *Writer) Write(ctx context.Context, dir string, site Site) error {
	if err := site.Validate(); err != nil {
		return err
	}
	if exists, _ := w.fs.Exists(ctx, dir); !exists {
		if err := w.fs.Create(ctx, dir, file.DefaultDirOsMode, true); err != nil {
			return fmt.Errorf("failed to create %v: %w", dir, err)
		}
	}
	documents := site.Documents()
	names := make([]string, 0, len(documents))
	for name := range documents {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		data, err := documents[name].Marshal()
		if err != nil {
			return fmt.Errorf("failed to render %v: %w", name, err)
		}
		target := path.Join(dir, name)
		if err := w.logDrift(ctx, target, data); err != nil {
			return err
		}
		if err := w.fs.Upload(ctx, target, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
			return fmt.Errorf("failed to write %v: %w", target, err)
		}
	}
	return nil
}

func (w *Writer) logDrift(ctx context.Context, target string, data []byte) error {
	exists, err := w.fs.Exists(ctx, target)
	if err != nil || !exists {
		return err
	}
	previous, err := w.fs.DownloadWithURL(ctx, target)
	if err != nil {
		return fmt.Errorf("failed to read %v: %w", target, err)
	}
	patch, stats, err := Diff(previous, data, path.Base(target))
	if err != nil || patch == "" {
		return err
	}
	w.logger.WithFields(logrus.Fields{"file": target, "added": stats.Added, "removed": stats.Removed}).Info("site configuration changed\n" + patch)
	return nil
}
