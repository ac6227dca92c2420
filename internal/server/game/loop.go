// Package game drives the simulation: it runs the tick at a fixed rate,
// applies buffered client input, steers bots and dispatches frames.
package game

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/sasha-s/go-deadlock"

	"github.com/OCharnyshevich/snake-server/internal/server/bot"
	"github.com/OCharnyshevich/snake-server/internal/server/config"
	"github.com/OCharnyshevich/snake-server/internal/server/packet"
	"github.com/OCharnyshevich/snake-server/internal/server/player"
	"github.com/OCharnyshevich/snake-server/internal/server/world"
)

const maxNameLen = 24

type eventKind int

const (
	eventJoin eventKind = iota
	eventControl
	eventLeave
)

type event struct {
	kind    eventKind
	id      uint32
	name    string
	skin    uint8
	control packet.Control
}

// Stats is a point-in-time view for diagnostics.
type Stats struct {
	World         *world.Snapshot `json:"world" msgpack:"world"`
	Observers     int             `json:"observers" msgpack:"observers"`
	Bots          int             `json:"bots" msgpack:"bots"`
	FramesSent    int64           `json:"framesSent" msgpack:"framesSent"`
	FramesDropped int64           `json:"framesDropped" msgpack:"framesDropped"`
	LastTick      time.Duration   `json:"lastTickNanos" msgpack:"lastTickNanos"`
}

// Loop owns the world. Only the goroutine running Run (or Step) touches
// it; other goroutines talk to the loop through buffered events.
type Loop struct {
	cfg     *config.Config
	log     *slog.Logger
	world   *world.World
	players *player.Manager
	policy  bot.Policy
	rng     *rand.Rand
	now     func() time.Time

	mu      deadlock.Mutex
	pending []event
	texts   map[uint32]func(any) bool // observer id -> text writer

	// Tick goroutine only.
	snakes   map[uint32]uint32 // observer id -> live snake id
	owners   map[uint32]uint32 // live snake id -> observer id
	bots     map[uint32]struct{}
	botCount int

	botTotal atomic.Int64
	lastTick atomic.Int64
}

// New creates a loop with a fresh world.
func New(cfg *config.Config, log *slog.Logger) *Loop {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Loop{
		cfg:     cfg,
		log:     log,
		world:   world.New(cfg, log.With("component", "world")),
		players: player.NewManager(log.With("component", "players")),
		policy:  bot.DefaultWander(),
		rng:     rand.New(rand.NewSource(seed + 1)),
		now:     time.Now,
		texts:   make(map[uint32]func(any) bool),
		snakes:  make(map[uint32]uint32),
		owners:  make(map[uint32]uint32),
		bots:    make(map[uint32]struct{}),
	}
}

// World returns the simulated world. It must only be used from the tick
// goroutine.
func (l *Loop) World() *world.World { return l.world }

// Players returns the observer manager.
func (l *Loop) Players() *player.Manager { return l.players }

// Connect registers a new spectator and returns its observer id.
func (l *Loop) Connect(writeFrame func([]byte) bool, writeJSON func(any) bool) uint32 {
	id := l.players.AllocateID()
	view := player.View{
		Width:  l.cfg.ViewWidth,
		Height: l.cfg.ViewHeight,
		Margin: l.cfg.KnowledgeMargin,
	}
	o := player.NewObserver(id, "", view, l.world.Grid().Bounds().Center(), l.now, writeFrame)

	l.mu.Lock()
	l.texts[id] = writeJSON
	l.mu.Unlock()

	l.players.Add(o)
	return id
}

// Join asks for a snake for the observer. It is applied at the next tick.
func (l *Loop) Join(id uint32, name string, skin uint8) {
	l.push(event{kind: eventJoin, id: id, name: name, skin: skin})
}

// Control buffers a steering input for the next tick.
func (l *Loop) Control(id uint32, c packet.Control) {
	l.push(event{kind: eventControl, id: id, control: c})
}

// Leave removes the observer and its snake at the next tick.
func (l *Loop) Leave(id uint32) {
	l.push(event{kind: eventLeave, id: id})
}

func (l *Loop) push(e event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending = append(l.pending, e)
}

// Stats returns diagnostics. It is safe to call from any goroutine.
func (l *Loop) Stats() Stats {
	sent, dropped := l.players.FrameStats()
	return Stats{
		World:         l.world.Snapshot(),
		Observers:     l.players.Count(),
		Bots:          int(l.botTotal.Load()),
		FramesSent:    sent,
		FramesDropped: dropped,
		LastTick:      time.Duration(l.lastTick.Load()),
	}
}

// Run ticks at the configured interval until ctx is done. A late tick is
// followed immediately by the next one; lost time is not made up.
func (l *Loop) Run(ctx context.Context) error {
	interval := l.cfg.TickInterval
	l.log.Info("game loop started", "interval", interval, "bots", l.cfg.BotCount)

	timer := time.NewTimer(interval)
	defer timer.Stop()

	next := time.Now()
	for {
		if err := l.Step(ctx); err != nil {
			if ctx.Err() != nil {
				l.log.Info("game loop stopped")
				return nil
			}
			l.log.Error("tick failed", "error", err)
		}

		next = next.Add(interval)
		wait := time.Until(next)
		if wait <= 0 {
			next = time.Now()
			if ctx.Err() != nil {
				l.log.Info("game loop stopped")
				return nil
			}
			continue
		}

		timer.Reset(wait)
		select {
		case <-ctx.Done():
			l.log.Info("game loop stopped")
			return nil
		case <-timer.C:
		}
	}
}

// Step runs one tick: drain input, steer bots, advance the world, report
// deaths and build every observer's frame.
func (l *Loop) Step(ctx context.Context) error {
	start := time.Now()
	defer func() { l.lastTick.Store(int64(time.Since(start))) }()

	l.drain()
	l.steerBots()

	res := l.world.Tick()
	for _, hit := range res.Deaths {
		l.handleDeath(hit)
	}
	l.maintainBots()

	if err := l.players.BuildAll(ctx, l.world, l.sendNames); err != nil {
		return err
	}

	if every := l.leaderboardEvery(); res.Tick%every == 0 {
		l.broadcastLeaderboard()
	}
	return nil
}

func (l *Loop) drain() {
	l.mu.Lock()
	events := l.pending
	l.pending = nil
	l.mu.Unlock()

	for _, e := range events {
		switch e.kind {
		case eventJoin:
			l.join(e.id, e.name, e.skin)
		case eventControl:
			l.control(e.id, e.control)
		case eventLeave:
			l.leave(e.id)
		}
	}
}

func (l *Loop) join(id uint32, name string, skin uint8) {
	o := l.players.Get(id)
	if o == nil {
		return
	}
	if _, alive := l.snakes[id]; alive {
		return
	}
	if len(l.owners) >= l.cfg.MaxPlayers {
		l.log.Debug("join refused, arena full", "observer", id)
		return
	}

	name = cleanName(name)
	s, err := l.world.Spawn(name, skin)
	if errors.Is(err, world.ErrNoSpawn) {
		l.log.Warn("no room to spawn", "observer", id)
		return
	}
	if err != nil {
		l.log.Error("spawn", "observer", id, "error", err)
		return
	}

	o.Name = name
	o.SetSnake(s.ID)
	l.snakes[id] = s.ID
	l.owners[s.ID] = id

	l.text(id, packet.Spawn{
		Type:      packet.TypeSpawn,
		ID:        s.ID,
		Name:      name,
		Skin:      skin,
		ChunkSize: l.cfg.ChunkSize,
		Rows:      l.cfg.Rows,
		Cols:      l.cfg.Cols,
		MaxTurn:   l.cfg.MaxTurn,
		Speed:     l.cfg.NormalSpeed,
		Boost:     l.cfg.BoostSpeed,
	})
	l.log.Info("player joined", "observer", id, "snake", s.ID, "name", name)
}

func (l *Loop) control(id uint32, c packet.Control) {
	if o := l.players.Get(id); o != nil {
		o.SetViewRatio(float64(c.ViewRatio))
	}
	if s := l.world.Snake(l.snakes[id]); s != nil {
		s.Steer(float64(c.Direction), c.Boost)
	}
}

func (l *Loop) leave(id uint32) {
	if snakeID, ok := l.snakes[id]; ok {
		l.world.Remove(snakeID)
		delete(l.owners, snakeID)
		delete(l.snakes, id)
	}
	l.players.Remove(id)

	l.mu.Lock()
	delete(l.texts, id)
	l.mu.Unlock()
}

func (l *Loop) handleDeath(hit world.Collision) {
	victim := hit.Victim
	if _, ok := l.bots[victim.ID]; ok {
		delete(l.bots, victim.ID)
		return
	}

	id, ok := l.owners[victim.ID]
	if !ok {
		return
	}
	delete(l.owners, victim.ID)
	delete(l.snakes, id)
	if o := l.players.Get(id); o != nil {
		o.SetSnake(0)
	}

	msg := packet.Dead{Type: packet.TypeDead, Length: victim.Length()}
	if hit.Striker != nil {
		msg.Killer = hit.Striker.Name
	}
	l.text(id, msg)
	l.log.Debug("player died", "observer", id, "snake", victim.ID, "killer", msg.Killer)
}

func (l *Loop) steerBots() {
	for id := range l.bots {
		s := l.world.Snake(id)
		if s == nil {
			delete(l.bots, id)
			continue
		}
		d := l.policy.Decide(s, l.world, l.rng)
		s.Steer(d.Direction, d.Boost)
	}
}

func (l *Loop) maintainBots() {
	for len(l.bots) < l.cfg.BotCount {
		l.botCount++
		s, err := l.world.Spawn(bot.Name(l.botCount), uint8(l.rng.Intn(256)))
		if err != nil {
			l.log.Debug("bot spawn failed", "error", err)
			break
		}
		l.bots[s.ID] = struct{}{}
	}
	l.botTotal.Store(int64(len(l.bots)))
}

// sendNames runs on frame builder goroutines; it only reads the world.
func (l *Loop) sendNames(o *player.Observer, f *player.Frame) {
	if len(f.NewSnakes) == 0 {
		return
	}
	names := make(map[uint32]string, len(f.NewSnakes))
	for _, id := range f.NewSnakes {
		if s := l.world.Snake(id); s != nil {
			names[id] = s.Name
		}
	}
	l.text(o.ID, packet.Names{Type: packet.TypeNames, Names: names})
}

func (l *Loop) broadcastLeaderboard() {
	msg := packet.Leaderboard{Type: packet.TypeLeaderboard, Entries: l.world.Leaderboard(10)}

	l.mu.Lock()
	writers := make([]func(any) bool, 0, len(l.texts))
	for _, w := range l.texts {
		writers = append(writers, w)
	}
	l.mu.Unlock()

	for _, w := range writers {
		w(msg)
	}
}

func (l *Loop) text(id uint32, v any) {
	l.mu.Lock()
	w := l.texts[id]
	l.mu.Unlock()
	if w != nil {
		w(v)
	}
}

// leaderboardEvery is the number of ticks in one second, at least one.
func (l *Loop) leaderboardEvery() uint64 {
	return uint64(max(1, int64(time.Second/l.cfg.TickInterval)))
}

func cleanName(name string) string {
	r := []rune(name)
	if len(r) > maxNameLen {
		r = r[:maxNameLen]
	}
	if len(r) == 0 {
		return "anonymous"
	}
	return string(r)
}
