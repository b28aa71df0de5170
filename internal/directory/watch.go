package directory

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/okian/devpulse/pkg/logger"
)

// Watch reloads path whenever it is written or recreated and hands the new
// snapshot to onChange. A failed reload is logged and the previous snapshot
// stays in effect. Watch blocks until ctx is canceled.
func Watch(ctx context.Context, path string, onChange func(*Snapshot)) error {
	log := logger.Get().Named("directory")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	// Watch the parent directory so atomic saves (rename over the file) are seen.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return err
	}
	target := filepath.Clean(path)

	log.Info(ctx, "watching directory file", logger.String("path", path))

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			snap, err := Load(path)
			if err != nil {
				log.Error(ctx, "directory reload failed, keeping previous snapshot",
					logger.String("path", path), logger.Error(err))
				continue
			}
			log.Info(ctx, "directory reloaded",
				logger.String("path", path), logger.Int("people", snap.Len()))
			onChange(snap)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error(ctx, "directory watcher error", logger.Error(err))
		}
	}
}
