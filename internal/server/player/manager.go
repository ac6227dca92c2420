package player

import (
	"context"
	"log/slog"
	"runtime"
	"sync/atomic"

	"github.com/sasha-s/go-deadlock"
	"golang.org/x/sync/errgroup"

	"github.com/OCharnyshevich/snake-server/internal/server/world"
)

// Manager tracks all connected observers and fans frame building out
// across them after every tick.
type Manager struct {
	mu        deadlock.RWMutex
	observers map[uint32]*Observer
	nextID    atomic.Uint32
	log       *slog.Logger

	sent    atomic.Int64
	dropped atomic.Int64
}

// NewManager creates an empty observer manager.
func NewManager(log *slog.Logger) *Manager {
	return &Manager{
		observers: make(map[uint32]*Observer),
		log:       log,
	}
}

// AllocateID returns the next unique observer id.
func (m *Manager) AllocateID() uint32 {
	return m.nextID.Add(1)
}

// Add registers an observer.
func (m *Manager) Add(o *Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers[o.ID] = o
}

// Remove unregisters the observer with the given id.
func (m *Manager) Remove(id uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.observers, id)
}

// Get returns the observer with the given id, or nil.
func (m *Manager) Get(id uint32) *Observer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.observers[id]
}

// Count returns the number of connected observers.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.observers)
}

// FrameStats returns how many frames were handed to the transport and how
// many it dropped.
func (m *Manager) FrameStats() (sent, dropped int64) {
	return m.sent.Load(), m.dropped.Load()
}

// BuildAll builds and hands off one frame per observer. Observers are
// independent, so frames are built in parallel; BuildAll returns once
// every frame was handed off and must finish before the next tick.
// Observers are returned through done, if non-nil, with their frame.
func (m *Manager) BuildAll(ctx context.Context, w *world.World, done func(*Observer, *Frame)) error {
	m.mu.RLock()
	observers := make([]*Observer, 0, len(m.observers))
	for _, o := range m.observers {
		observers = append(observers, o)
	}
	m.mu.RUnlock()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for _, o := range observers {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			f := o.BuildFrame(w)
			data, err := f.Encode()
			if err != nil {
				m.log.Error("encode frame", "observer", o.ID, "error", err)
				return nil
			}

			if o.WriteFrame != nil && o.WriteFrame(data) {
				m.sent.Add(1)
			} else {
				m.dropped.Add(1)
			}
			if done != nil {
				done(o, f)
			}
			return nil
		})
	}
	return g.Wait()
}
