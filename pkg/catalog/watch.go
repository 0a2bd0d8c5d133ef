package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// Watch reloads the catalog file whenever it changes on disk and hands each
// successfully parsed catalog to onReload. A document that fails validation
// is logged and skipped; the previous catalog stays in effect. Watch blocks
// until ctx is cancelled.
func Watch(ctx context.Context, path string, onReload func(*Catalog)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}
	log.Infof("Watching catalog file: %s", path)

	// Editors fire bursts of write events for one save; debounce them so a
	// half-written file is not parsed mid-save.
	var mu sync.Mutex
	var pending *time.Timer

	reload := func() {
		cat, err := Load(path)
		if err != nil {
			log.Errorf("Catalog reload rejected: %v", err)
			return
		}
		log.Infof("Catalog reloaded: %d entries", cat.Len())
		onReload(cat)
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			mu.Lock()
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(200*time.Millisecond, reload)
			mu.Unlock()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error(err)
		case <-ctx.Done():
			log.Info("Catalog watcher closed")
			return nil
		}
	}
}
