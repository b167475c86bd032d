package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/fsnotify/fsnotify"

	"plantdx/models"
	"plantdx/pkg/diagnose"
	"plantdx/pkg/history"
	"plantdx/pkg/report"
)

// reportSuffix is appended to an image's base name for its generated report.
const reportSuffix = ".report.pdf"

// debounce is how long a new file must stay quiet before it is processed.
const debounce = 300 * time.Millisecond

// Processor diagnoses leaf images found on disk and writes a report next to each.
type Processor struct {
	Svc      *diagnose.Service
	Renderer *report.Renderer
	History  *history.Store
}

// Options controls Run.
type Options struct {
	Workers int
	Scan    bool // process images already in the directory
	Watch   bool // keep watching for new images until ctx is done
}

// IsSupported reports whether name is an image the tool should process.
func IsSupported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}

// ReportPath returns where the report for imagePath is written.
func ReportPath(imagePath string) string {
	return strings.TrimSuffix(imagePath, filepath.Ext(imagePath)) + reportSuffix
}

// ListImages returns the supported image names in dir, sorted.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !IsSupported(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out, nil
}

// ProcessFile diagnoses one image. Images that already have a report are
// skipped and reported with skipped == true.
func (p *Processor) ProcessFile(ctx context.Context, path string) (d diagnose.Diagnosis, skipped bool, err error) {
	out := ReportPath(path)
	if _, err := os.Stat(out); err == nil {
		return d, true, nil
	}
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return d, false, fmt.Errorf("open %s: %w", path, err)
	}
	d, err = p.Svc.Diagnose(ctx, img)
	if err != nil {
		return d, false, err
	}

	b, err := p.Renderer.Bytes(p.Svc.ReportInput(d.Plant, d.Disease, d.Confidence))
	if err != nil {
		return d, false, err
	}
	tmp := out + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return d, false, fmt.Errorf("write report: %w", err)
	}
	if err := os.Rename(tmp, out); err != nil {
		_ = os.Remove(tmp)
		return d, false, fmt.Errorf("move report: %w", err)
	}

	if p.History.Enabled() {
		row := &models.Diagnosis{
			FileName:    filepath.Base(path),
			Source:      "watch",
			Label:       d.Label,
			Plant:       d.Plant,
			Disease:     d.Disease,
			Confidence:  d.Confidence,
			Severity:    d.Scores.Severity,
			WaterStress: d.Scores.WaterStress,
		}
		if err := p.History.Record(ctx, row); err != nil {
			slog.Warn("failed to record diagnosis", "file", path, "err", err)
		}
	}
	return d, false, nil
}

// RunPool processes names from files with the given number of workers until
// files is closed.
func (p *Processor) RunPool(ctx context.Context, dir string, workers int, files <-chan string) {
	if workers < 1 {
		workers = 1
	}
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range files {
				path := filepath.Join(dir, name)
				d, skipped, err := p.ProcessFile(ctx, path)
				switch {
				case err != nil:
					slog.Error("diagnosis failed", "file", path, "err", err)
				case skipped:
					slog.Debug("report exists, skipping", "file", path)
				default:
					slog.Info("diagnosed", "file", path, "plant", d.Plant, "disease", d.Disease,
						"confidence", fmt.Sprintf("%.2f", d.Confidence), "severity", d.Scores.Severity)
				}
			}
		}()
	}
	wg.Wait()
}

// Run scans and/or watches dir, feeding images to a worker pool. With Watch
// set it blocks until ctx is cancelled.
func (p *Processor) Run(ctx context.Context, dir string, opts Options) error {
	fileCh := make(chan string, 256)
	done := make(chan struct{})
	go func() {
		p.RunPool(ctx, dir, opts.Workers, fileCh)
		close(done)
	}()

	var err error
	if opts.Scan {
		var names []string
		names, err = ListImages(dir)
		for _, n := range names {
			fileCh <- n
		}
	}
	if err == nil && opts.Watch {
		err = Watch(ctx, dir, fileCh)
	}
	close(fileCh)
	<-done
	return err
}

// Watch sends the base names of supported images created in dir to out once
// they have been quiet for the debounce interval. It returns when ctx is done.
func Watch(ctx context.Context, dir string, out chan<- string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return err
	}
	slog.Info("watching for leaf images", "dir", dir)

	pending := map[string]time.Time{}
	ticker := time.NewTicker(debounce / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			name := filepath.Base(ev.Name)
			if !IsSupported(name) {
				continue
			}
			pending[name] = time.Now()
		case <-ticker.C:
			now := time.Now()
			for name, t := range pending {
				if now.Sub(t) > debounce {
					select {
					case out <- name:
					case <-ctx.Done():
						return nil
					}
					delete(pending, name)
				}
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watch error", "err", err)
		}
	}
}
