package persist

import (
	"context"
	"sync"
	"time"

	"github.com/zxweb/zx/internal/bus"
	"go.uber.org/zap"
)

// mutationNamespaces are the bus namespaces that dirty the snapshot.
// store.* is deliberately absent so our own saved events never re-trigger
// a save.
var mutationNamespaces = []string{"chat.", "roster.", "auth.", "call.", "settings."}

// Autosaver debounces store mutations into snapshot saves. The build
// callback assembles a fresh Snapshot from the live state holders.
type Autosaver struct {
	port   Port
	build  func() *Snapshot
	bus    *bus.Bus
	logger *zap.Logger

	interval time.Duration
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	mu    sync.Mutex
	dirty bool
}

// NewAutosaver creates an autosaver flushing at most once per interval.
func NewAutosaver(port Port, build func() *Snapshot, b *bus.Bus, logger *zap.Logger, interval time.Duration) *Autosaver {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &Autosaver{
		port:     port,
		build:    build,
		bus:      b,
		logger:   logger,
		interval: interval,
	}
}

// Start subscribes to mutation events and begins the flush loop.
func (a *Autosaver) Start(ctx context.Context) {
	ctx, a.cancel = context.WithCancel(ctx)

	for _, ns := range mutationNamespaces {
		ch, unsub := a.bus.Subscribe(ns, 256)
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			defer unsub()
			for {
				select {
				case <-ch:
					a.markDirty()
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				a.flush()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the loops and performs a final flush of any pending changes.
func (a *Autosaver) Stop() {
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()
	a.flush()
}

func (a *Autosaver) markDirty() {
	a.mu.Lock()
	a.dirty = true
	a.mu.Unlock()
}

func (a *Autosaver) flush() {
	a.mu.Lock()
	if !a.dirty {
		a.mu.Unlock()
		return
	}
	a.dirty = false
	a.mu.Unlock()

	if err := a.port.Save(a.build()); err != nil {
		a.logger.Error("snapshot save failed", zap.Error(err))
		a.markDirty()
		return
	}
	a.bus.Emit("store.saved", nil)
}
