package driver

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// fastWake watches the walk root for the creation of _restart_requested or
// _planning_result.md so the driver can wake from sleep immediately
// instead of waiting out the full sleep interval. Grounded on the
// teacher's FileWatcher (cmd/bd/daemon_watcher.go), trimmed to the single
// directory this driver cares about — no polling fallback, since a failed
// fsnotify watch here only costs responsiveness, never correctness (the
// sequential sleep still fires on its own timer).
type fastWake struct {
	watcher *fsnotify.Watcher
	Events  chan struct{}
	done    chan struct{}
}

func newFastWake(walkDir string) (*fastWake, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(walkDir); err != nil {
		_ = w.Close()
		return nil, err
	}

	fw := &fastWake{watcher: w, Events: make(chan struct{}, 1), done: make(chan struct{})}
	go fw.run()
	return fw, nil
}

func (fw *fastWake) run() {
	for {
		select {
		case ev, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			name := filepath.Base(ev.Name)
			if !ev.Has(fsnotify.Create) || (name != restartMarkerName && name != "_planning_result.md") {
				continue
			}
			select {
			case fw.Events <- struct{}{}:
			default:
			}
		case _, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
		case <-fw.done:
			return
		}
	}
}

func (fw *fastWake) Close() error {
	close(fw.done)
	return fw.watcher.Close()
}
