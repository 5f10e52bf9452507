package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/inkwell/internal/diag"
)

// debounceWindow coalesces the burst of filesystem events editors emit
// on save into one reload.
const debounceWindow = 200 * time.Millisecond

// Watch reloads the configuration whenever the file at path changes
// and delivers each successfully loaded Config to onChange. Invalid
// intermediate states are logged and skipped; the previous
// configuration stays in effect. Watch returns when ctx is cancelled.
func Watch(ctx context.Context, path string, log *diag.Logger, onChange func(Config)) error {
	if log == nil {
		log = diag.NullLogger
	}
	log = log.WithComponent("config")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory: editors replace files on save, which drops
	// a watch registered on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	target := filepath.Clean(path)
	var timer *time.Timer
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
			} else {
				timer.Reset(debounceWindow)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			cfg, err := Load(path)
			if err != nil {
				log.Warn("reload skipped: %v", err)
				continue
			}
			log.Info("configuration reloaded")
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error: %v", err)
		}
	}
}
