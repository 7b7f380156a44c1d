package eval

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 500 * time.Millisecond

// Watcher re-evaluates result files as they change.
type Watcher struct {
	eval     *Evaluator
	debounce time.Duration
}

// NewWatcher creates a watcher; a zero debounce selects DefaultDebounce.
func NewWatcher(e *Evaluator, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{eval: e, debounce: debounce}
}

// Watch evaluates the qualifying files already in dir, then every qualifying
// file created or written afterwards, handing each report to fn. It returns
// when ctx is done.
func (w *Watcher) Watch(ctx context.Context, dir string, fn func(FileReport)) error {
	log := w.eval.log.WithFields(map[string]interface{}{"dir": dir})

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(dir); err != nil {
		return err
	}

	evaluate := func(paths []string) {
		for _, path := range paths {
			if _, err := os.Stat(path); err != nil {
				continue
			}
			report, err := w.eval.EvaluateFile(ctx, path)
			if err != nil {
				log.Warn("evaluation failed", map[string]interface{}{
					"file":  filepath.Base(path),
					"error": err.Error(),
				})
				continue
			}
			fn(report)
		}
	}

	names, err := w.eval.ListFiles(dir)
	if err != nil {
		return err
	}
	initial := make([]string, len(names))
	for i, name := range names {
		initial[i] = filepath.Join(dir, name)
	}
	evaluate(initial)
	log.Info("watching for result files", nil)

	var (
		mu       sync.Mutex
		timer    *time.Timer
		pending  = make(map[string]bool)
		inFlight sync.WaitGroup
	)
	flush := func() {
		defer inFlight.Done()
		mu.Lock()
		paths := make([]string, 0, len(pending))
		for p := range pending {
			paths = append(paths, p)
		}
		pending = make(map[string]bool)
		mu.Unlock()
		sort.Strings(paths)
		evaluate(paths)
	}
	defer func() {
		mu.Lock()
		if timer != nil && timer.Stop() {
			inFlight.Done()
		}
		mu.Unlock()
		inFlight.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !w.eval.Matches(filepath.Base(event.Name)) {
				continue
			}

			mu.Lock()
			pending[event.Name] = true
			if timer != nil && timer.Stop() {
				inFlight.Done()
			}
			inFlight.Add(1)
			timer = time.AfterFunc(w.debounce, flush)
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", map[string]interface{}{"error": err.Error()})
		}
	}
}
