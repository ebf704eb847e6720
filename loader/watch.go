package loader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"docqa/config"

	"github.com/fsnotify/fsnotify"
)

// Daemon watches a drop directory and feeds files through the ingestion
// pipeline. Layout is source/<user>/<file>; files dropped directly into
// the source root land in the "local" namespace. A file is picked up
// once it has stopped changing for the settle delay, then moved to the
// archive directory on success or the bad directory on failure.
type Daemon struct {
	pipeline *Pipeline
	cfg      config.LoaderConfig
	logger   *slog.Logger

	mu       sync.Mutex
	lastSeen map[string]time.Time
}

func NewDaemon(pipeline *Pipeline, cfg config.LoaderConfig) (*Daemon, error) {
	for _, dir := range []string{cfg.SourceDir, cfg.ArchiveDir, cfg.BadDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return &Daemon{
		pipeline: pipeline,
		cfg:      cfg,
		logger:   slog.Default().With("component", "loader"),
		lastSeen: make(map[string]time.Time),
	}, nil
}

// Run blocks until ctx is cancelled, then waits for the in-flight file
// to finish.
func (d *Daemon) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := d.addWatches(watcher); err != nil {
		return err
	}
	d.seedExisting()

	fileChan := make(chan string, 10)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(fileChan)
		d.watch(ctx, watcher, fileChan)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		d.process(ctx, fileChan)
	}()

	wg.Wait()
	d.logger.Info("loader daemon stopped")
	return nil
}

// addWatches registers the source root and any user directories that
// already exist.
func (d *Daemon) addWatches(watcher *fsnotify.Watcher) error {
	if err := watcher.Add(d.cfg.SourceDir); err != nil {
		return fmt.Errorf("watch %s: %w", d.cfg.SourceDir, err)
	}
	entries, err := os.ReadDir(d.cfg.SourceDir)
	if err != nil {
		return fmt.Errorf("read %s: %w", d.cfg.SourceDir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			if err := watcher.Add(filepath.Join(d.cfg.SourceDir, e.Name())); err != nil {
				return fmt.Errorf("watch %s: %w", e.Name(), err)
			}
		}
	}
	return nil
}

// seedExisting marks files already present at startup so they get
// processed without waiting for a write event.
func (d *Daemon) seedExisting() {
	d.mu.Lock()
	defer d.mu.Unlock()
	filepath.WalkDir(d.cfg.SourceDir, func(path string, entry os.DirEntry, err error) error {
		if err != nil || entry.IsDir() {
			return nil
		}
		d.lastSeen[path] = time.Now()
		return nil
	})
}

func (d *Daemon) watch(ctx context.Context, watcher *fsnotify.Watcher, fileChan chan<- string) {
	d.logger.Info("watching drop directory", "dir", d.cfg.SourceDir)

	ticker := time.NewTicker(d.cfg.SettleDelay / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			d.handleEvent(watcher, event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			d.logger.Error("watcher error", "error", err)
		case <-ticker.C:
			for _, path := range d.settled() {
				select {
				case fileChan <- path:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

func (d *Daemon) handleEvent(watcher *fsnotify.Watcher, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
			d.mu.Lock()
			delete(d.lastSeen, event.Name)
			d.mu.Unlock()
		}
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		// New user directory; start watching it.
		if err := watcher.Add(event.Name); err != nil {
			d.logger.Error("failed to watch new directory", "dir", event.Name, "error", err)
		}
		return
	}

	d.mu.Lock()
	if _, seen := d.lastSeen[event.Name]; !seen {
		d.logger.Info("new file detected", "path", event.Name)
	}
	d.lastSeen[event.Name] = time.Now()
	d.mu.Unlock()
}

// settled returns files that have been quiet for the settle delay and
// removes them from tracking.
func (d *Daemon) settled() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var ready []string
	for path, seen := range d.lastSeen {
		if time.Since(seen) >= d.cfg.SettleDelay {
			ready = append(ready, path)
			delete(d.lastSeen, path)
		}
	}
	return ready
}

func (d *Daemon) process(ctx context.Context, fileChan <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case path, ok := <-fileChan:
			if !ok {
				return
			}
			d.processFile(ctx, path)
		}
	}
}

func (d *Daemon) processFile(ctx context.Context, path string) {
	raw, err := os.ReadFile(path)
	if err != nil {
		d.logger.Error("failed to read file", "path", path, "error", err)
		return
	}

	userID := d.namespaceFor(path)
	filename := filepath.Base(path)
	d.logger.Info("processing file", "path", path, "user", userID)

	result, err := d.pipeline.Ingest(ctx, userID, filename, raw)
	if err != nil {
		d.logger.Error("ingestion failed", "path", path, "user", userID, "error", err)
		d.moveOut(path, d.cfg.BadDir)
		return
	}

	d.logger.Info("file processed", "path", path, "status", result.Status, "chunks", result.ChunksCommitted)
	d.moveOut(path, d.cfg.ArchiveDir)
}

// namespaceFor maps source/<user>/<file> to the user namespace.
func (d *Daemon) namespaceFor(path string) string {
	rel, err := filepath.Rel(d.cfg.SourceDir, path)
	if err != nil {
		return "local"
	}
	dir := filepath.Dir(rel)
	if dir == "." {
		return "local"
	}
	return strings.SplitN(dir, string(filepath.Separator), 2)[0]
}

// moveOut relocates a handled file into a dated subdirectory of root,
// suffixing the name on collision.
func (d *Daemon) moveOut(path, root string) {
	destDir := filepath.Join(root, time.Now().Format("2006-01-02"))
	if err := os.MkdirAll(destDir, 0755); err != nil {
		d.logger.Error("failed to create directory", "dir", destDir, "error", err)
		return
	}

	destPath := filepath.Join(destDir, filepath.Base(path))
	counter := 1
	for {
		if _, err := os.Stat(destPath); os.IsNotExist(err) {
			break
		}
		ext := filepath.Ext(path)
		base := strings.TrimSuffix(filepath.Base(path), ext)
		destPath = filepath.Join(destDir, fmt.Sprintf("%s_%d%s", base, counter, ext))
		counter++
	}

	if err := os.Rename(path, destPath); err != nil {
		// Rename fails across filesystems; fall back to copy and remove.
		if err := copyFile(path, destPath); err != nil {
			d.logger.Error("failed to move file", "path", path, "dest", destPath, "error", err)
			return
		}
		os.Remove(path)
	}
	d.logger.Info("file moved", "dest", destPath)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
