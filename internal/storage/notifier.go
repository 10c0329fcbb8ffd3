package storage

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const notifierDebounce = 400 * time.Millisecond

// Notifier watches a LocalStorage's root directory and emits an
// object-created callback for every file that settles, emulating the
// bucket-notification-to-queue wiring a real object store provides. Only
// used with the local filesystem backend; S3's AddBucketNotifications
// talks to the real notification pipeline instead.
type Notifier struct {
	rootDir  string
	onCreate func(key string)
	log      *zap.Logger

	mu          sync.Mutex
	debounceMap map[string]*time.Timer
	watcher     *fsnotify.Watcher
	stopOnce    sync.Once
	doneCh      chan struct{}
}

// NewNotifier builds a Notifier rooted at the same directory a
// LocalStorage instance writes to. onCreate receives the object key
// (the path relative to rootDir, using "/" separators) once a write has
// settled.
func NewNotifier(log *zap.Logger, rootDir string, onCreate func(key string)) *Notifier {
	return &Notifier{
		rootDir:     rootDir,
		onCreate:    onCreate,
		log:         log,
		debounceMap: make(map[string]*time.Timer),
		doneCh:      make(chan struct{}),
	}
}

// Start begins watching until ctx is cancelled or Stop is called.
func (n *Notifier) Start(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	n.mu.Lock()
	n.watcher = w
	n.mu.Unlock()

	if err := w.Add(n.rootDir); err != nil {
		w.Close()
		return err
	}

	go n.loop(ctx)
	return nil
}

func (n *Notifier) loop(ctx context.Context) {
	defer n.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case <-n.doneCh:
			return
		case event, ok := <-n.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				n.debounce(event.Name)
			}
		case err, ok := <-n.watcher.Errors:
			if !ok {
				return
			}
			n.log.Warn("storage notifier watch error", zap.Error(err))
		}
	}
}

func (n *Notifier) debounce(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if t, ok := n.debounceMap[path]; ok {
		t.Stop()
	}
	n.debounceMap[path] = time.AfterFunc(notifierDebounce, func() {
		rel, err := filepath.Rel(n.rootDir, path)
		if err != nil {
			return
		}
		n.onCreate(filepath.ToSlash(strings.TrimPrefix(rel, string(filepath.Separator))))
	})
}

// Stop halts the watch loop.
func (n *Notifier) Stop() {
	n.stopOnce.Do(func() { close(n.doneCh) })
}
