package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"gitpulse/internal/logger"
	"gitpulse/internal/model"
	"gitpulse/internal/pipeline"
)

// Watcher turns fsnotify notifications for a directory tree into
// ChangeEvents. Losing the OS watch is fatal and reported on Errors();
// the supervisor decides whether to restart or shut down.
type Watcher struct {
	fw             *fsnotify.Watcher
	eventCh        chan model.ChangeEvent
	errCh          chan error
	doneCh         chan struct{}
	stopOnce       sync.Once
	ignorePatterns []string
}

func New(bufferSize int, ignorePatterns []string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	return &Watcher{
		fw:             fw,
		eventCh:        make(chan model.ChangeEvent, bufferSize),
		errCh:          make(chan error, 1),
		doneCh:         make(chan struct{}),
		ignorePatterns: ignorePatterns,
	}, nil
}

func (w *Watcher) Watch(root string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	if _, err := os.Stat(absRoot); err != nil {
		return fmt.Errorf("watch root not found: %w", err)
	}

	if err := w.addRecursive(absRoot); err != nil {
		return err
	}

	go w.run()

	logger.Log.Info("watcher started",
		zap.String("root", absRoot))
	return nil
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() {
			return nil
		}

		if pipeline.ShouldIgnore(path, w.ignorePatterns) {
			return filepath.SkipDir
		}

		if err := w.fw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		logger.Log.Debug("watching directory",
			zap.String("path", path))

		return nil
	})
}

func (w *Watcher) run() {
	defer close(w.eventCh)

	for {
		select {
		case <-w.doneCh:
			logger.Log.Info("watcher stopping")
			return

		case fsEvent, ok := <-w.fw.Events:
			if !ok {
				w.fatal(fmt.Errorf("watch event stream closed"))
				return
			}

			eventType := toEventType(fsEvent.Op)
			if eventType == "" {
				continue
			}

			if fsEvent.Op.Has(fsnotify.Create) {
				w.maybeWatchNewDir(fsEvent.Name)
			}

			event := model.ChangeEvent{
				Type:       eventType,
				Path:       fsEvent.Name,
				ObservedAt: time.Now(),
			}

			select {
			case w.eventCh <- event:
			default:
				logger.Log.Warn("event channel is full, dropping event",
					zap.String("path", fsEvent.Name))
			}

		case err, ok := <-w.fw.Errors:
			if !ok {
				w.fatal(fmt.Errorf("watch error stream closed"))
				return
			}

			w.fatal(fmt.Errorf("watch failure: %w", err))
			return
		}
	}
}

func (w *Watcher) maybeWatchNewDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}

	if pipeline.ShouldIgnore(path, w.ignorePatterns) {
		return
	}

	if err := w.fw.Add(path); err != nil {
		logger.Log.Warn("failed to watch new directory",
			zap.String("path", path),
			zap.Error(err))
	} else {
		logger.Log.Debug("added new directory to watch",
			zap.String("path", path))
	}
}

func (w *Watcher) fatal(err error) {
	select {
	case w.errCh <- err:
	default:
	}
}

func (w *Watcher) Events() <-chan model.ChangeEvent {
	return w.eventCh
}

// Errors delivers at most one fatal watch failure.
func (w *Watcher) Errors() <-chan error {
	return w.errCh
}

// Stop is idempotent; the supervisor calls it on both the normal stop
// path and the fatal-error path.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.doneCh)
		_ = w.fw.Close()
	})
}

func toEventType(op fsnotify.Op) model.EventType {
	switch {
	case op.Has(fsnotify.Create):
		return model.EventCreate
	case op.Has(fsnotify.Write):
		return model.EventWrite
	case op.Has(fsnotify.Remove):
		return model.EventRemove
	case op.Has(fsnotify.Rename):
		return model.EventRename
	default:
		return ""
	}
}
