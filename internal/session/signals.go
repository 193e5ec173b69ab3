package session

import (
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
)

// SignalWatcher routes external interrupt requests into the session
// manager: control files dropped into the .openswarm/signals directory
// ("pause", "kill") and OS signals (SIGINT, SIGTERM) all land on the same
// idempotent pause/stop paths.
type SignalWatcher struct {
	manager    *Manager
	signalsDir string

	watcher *fsnotify.Watcher
	sigCh   chan os.Signal
	done    chan struct{}
	once    sync.Once
}

// NewSignalWatcher creates a watcher rooted at the project's .openswarm
// directory. The fsnotify watcher is optional; when it cannot be set up
// the control files are still honored via CheckFiles polling.
func NewSignalWatcher(manager *Manager, projectRoot string) (*SignalWatcher, error) {
	signalsDir := filepath.Join(projectRoot, ".openswarm", "signals")
	if err := os.MkdirAll(signalsDir, 0755); err != nil {
		return nil, err
	}

	sw := &SignalWatcher{
		manager:    manager,
		signalsDir: signalsDir,
		sigCh:      make(chan os.Signal, 1),
		done:       make(chan struct{}),
	}

	signal.Notify(sw.sigCh, syscall.SIGINT, syscall.SIGTERM)
	go sw.watchOS()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return sw, nil
	}
	if err := watcher.Add(signalsDir); err != nil {
		watcher.Close()
		return sw, nil
	}
	sw.watcher = watcher
	go sw.watchFiles()

	return sw, nil
}

// watchOS pauses the session on the first interrupt so it can be resumed
// later; a second interrupt stops it.
func (sw *SignalWatcher) watchOS() {
	interrupted := false
	for {
		select {
		case <-sw.done:
			return
		case sig := <-sw.sigCh:
			if !interrupted {
				interrupted = true
				log.Printf("[session] received %v, pausing (interrupt again to stop)", sig)
				if err := sw.manager.Pause(); err != nil {
					log.Printf("[session] pause on signal: %v", err)
				}
			} else {
				log.Printf("[session] received %v again, stopping", sig)
				if err := sw.manager.Stop(); err != nil {
					log.Printf("[session] stop on signal: %v", err)
				}
				return
			}
		}
	}
}

// watchFiles reacts to pause/kill control files appearing in signalsDir.
func (sw *SignalWatcher) watchFiles() {
	for {
		select {
		case <-sw.done:
			return
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			switch filepath.Base(event.Name) {
			case "pause":
				if err := sw.manager.Pause(); err != nil {
					log.Printf("[session] pause on control file: %v", err)
				}
			case "kill":
				if err := sw.manager.Stop(); err != nil {
					log.Printf("[session] stop on control file: %v", err)
				}
			}
		case <-sw.watcher.Errors:
			// keep watching
		}
	}
}

// CheckFiles polls for control files directly, covering the case where
// the fsnotify watcher could not be started or missed an event.
func (sw *SignalWatcher) CheckFiles() {
	if _, err := os.Stat(filepath.Join(sw.signalsDir, "kill")); err == nil {
		if err := sw.manager.Stop(); err != nil {
			log.Printf("[session] stop on control file: %v", err)
		}
		return
	}
	if _, err := os.Stat(filepath.Join(sw.signalsDir, "pause")); err == nil {
		if err := sw.manager.Pause(); err != nil {
			log.Printf("[session] pause on control file: %v", err)
		}
	}
}

// SendPause drops a pause control file for another process to pick up.
func SendPause(projectRoot string) error {
	return writeControlFile(projectRoot, "pause")
}

// SendKill drops a kill control file for another process to pick up.
func SendKill(projectRoot string) error {
	return writeControlFile(projectRoot, "kill")
}

func writeControlFile(projectRoot, name string) error {
	dir := filepath.Join(projectRoot, ".openswarm", "signals")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, name), []byte(time.Now().Format(time.RFC3339)), 0644)
}

// ClearSignals removes any control files left from a previous run.
func ClearSignals(projectRoot string) {
	dir := filepath.Join(projectRoot, ".openswarm", "signals")
	os.Remove(filepath.Join(dir, "pause"))
	os.Remove(filepath.Join(dir, "kill"))
}

// Close stops watching files and OS signals.
func (sw *SignalWatcher) Close() {
	sw.once.Do(func() {
		close(sw.done)
		signal.Stop(sw.sigCh)
		if sw.watcher != nil {
			sw.watcher.Close()
		}
	})
}
