package services

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/nfetools/dfesync/internal/connectors/sefaz"
	"github.com/nfetools/dfesync/internal/core/domain"
	"github.com/nfetools/dfesync/internal/core/ports/driven"
	"github.com/nfetools/dfesync/internal/logger"
)

// watchSettle is how long a newly seen file must stay quiet before it
// is processed. Editors and network copies write in bursts.
const watchSettle = 500 * time.Millisecond

// Report summarises one batch replay.
type Report struct {
	// Considered counts files the processor examined.
	Considered int

	// Placed counts documents landed in the archive.
	Placed int
}

// BatchService replays locally captured distribution payloads through
// the same identify-and-place pipeline the sync loop uses.
type BatchService struct {
	archive driven.Archive
}

// NewBatchService wires the batch processor to the archive port.
func NewBatchService(archive driven.Archive) *BatchService {
	return &BatchService{archive: archive}
}

// ProcessDir walks dir recursively and processes every regular file.
// filter, when non-zero, restricts placement to documents emitted in
// that month. Per-file failures are logged and skipped.
func (b *BatchService) ProcessDir(ctx context.Context, dir, cnpj string, filter domain.MonthRef) (*Report, error) {
	cnpj = domain.NormalizeSubscriber(cnpj)
	if cnpj == "" {
		return nil, fmt.Errorf("%w: CNPJ carries no digits", domain.ErrUsage)
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUsage, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrUsage, dir)
	}

	report := &Report{}
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		report.Considered++
		if b.processFile(path, cnpj, filter) {
			report.Placed++
		}
		return nil
	})
	if walkErr != nil {
		return report, fmt.Errorf("walking %s: %w", dir, walkErr)
	}

	logger.Info("batch done: considered=%d placed=%d dir=%s", report.Considered, report.Placed, dir)
	return report, nil
}

// processFile runs one file through decode→identify→filter→place and
// reports whether a document was placed.
func (b *BatchService) processFile(path, cnpj string, filter domain.MonthRef) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("skipping %s: %v", path, err)
		return false
	}

	// Files may hold a raw base64 container exactly as captured from
	// a response, or an already-extracted XML body.
	raw, err := sefaz.DecodeDocZip(strings.TrimSpace(string(data)))
	if err != nil {
		raw = data
	}

	doc, err := sefaz.Identify(raw)
	if err != nil {
		logger.Warn("skipping %s: %v", path, err)
		return false
	}

	if doc.Kind != domain.KindInvoice {
		logger.Debug("discarding %s document %s", doc.Kind, path)
		return false
	}

	if !filter.IsZero() && doc.Emission != filter {
		logger.Debug("outside filter month %s: %s (emitted %s)", filter, path, doc.Emission)
		return false
	}

	placement, err := b.archive.Place(doc, cnpj)
	if err != nil {
		logger.Warn("placing %s: %v", path, err)
		return false
	}

	logger.Info("placed %s", placement.Path())
	return true
}

// Watch processes files dropped into dir until ctx ends. Each created
// or rewritten file is processed once it has stayed unmodified for a
// short settle window. The initial directory contents are replayed
// first, so Watch subsumes a plain ProcessDir.
func (b *BatchService) Watch(ctx context.Context, dir, cnpj string, filter domain.MonthRef) (*Report, error) {
	report, err := b.ProcessDir(ctx, dir, cnpj, filter)
	if err != nil {
		return report, err
	}

	cnpj = domain.NormalizeSubscriber(cnpj)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return report, fmt.Errorf("starting watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return report, fmt.Errorf("watching %s: %w", dir, err)
	}
	logger.Info("watching %s", dir)

	pending := make(map[string]*time.Timer)
	done := make(chan string)
	defer func() {
		for _, timer := range pending {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return report, nil

		case event, ok := <-watcher.Events:
			if !ok {
				return report, nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			path := event.Name
			if timer, exists := pending[path]; exists {
				timer.Reset(watchSettle)
				continue
			}
			pending[path] = time.AfterFunc(watchSettle, func() {
				select {
				case done <- path:
				case <-ctx.Done():
				}
			})

		case path := <-done:
			delete(pending, path)
			info, err := os.Stat(path)
			if err != nil || info.IsDir() {
				continue
			}
			report.Considered++
			if b.processFile(path, cnpj, filter) {
				report.Placed++
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return report, nil
			}
			logger.Warn("watcher: %v", err)
		}
	}
}
