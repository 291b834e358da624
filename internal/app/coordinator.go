package app

import (
	"context"
	"sync"
	"time"

	"github.com/mkamel/airwave/internal/core"
	"github.com/mkamel/airwave/internal/domain"
	"github.com/rs/zerolog/log"
)

// CoordinatorConfig wires the coordinator's collaborators and timing
// policy.
type CoordinatorConfig struct {
	Registry core.RoomRegistry
	Presence *Presence
	Guard    *core.PendingGuard
	Messages core.MessageStore
	Tokens   core.TokenIssuer

	// Categories a room may be created under. Empty means any.
	Categories []string
	// RoomLifetime caps how long a room may exist.
	RoomLifetime time.Duration
	// AdminGrace is the reconnection window after the admin drops.
	AdminGrace time.Duration
	// UpdateRetries bounds re-read-and-retry on lost registry races.
	UpdateRetries int
}

// Coordinator owns room lifecycle, role transitions and the room
// timers. All membership mutations go through the registry's
// conditional updates; the coordinator never mutates shared state in
// handler-local memory.
type Coordinator struct {
	registry core.RoomRegistry
	presence *Presence
	guard    *core.PendingGuard
	messages core.MessageStore
	tokens   core.TokenIssuer
	notify   *Notifier

	categories map[string]bool
	lifetime   time.Duration
	grace      time.Duration
	retries    int

	mu     sync.Mutex
	timers map[domain.RoomName]*roomTimers
}

type roomTimers struct {
	lifetime *time.Timer
	grace    *time.Timer
}

func NewCoordinator(cfg CoordinatorConfig) *Coordinator {
	cats := make(map[string]bool, len(cfg.Categories))
	for _, c := range cfg.Categories {
		cats[c] = true
	}
	retries := cfg.UpdateRetries
	if retries <= 0 {
		retries = 3
	}
	return &Coordinator{
		registry:   cfg.Registry,
		presence:   cfg.Presence,
		guard:      cfg.Guard,
		messages:   cfg.Messages,
		tokens:     cfg.Tokens,
		notify:     &Notifier{Presence: cfg.Presence},
		categories: cats,
		lifetime:   cfg.RoomLifetime,
		grace:      cfg.AdminGrace,
		retries:    retries,
		timers:     make(map[domain.RoomName]*roomTimers),
	}
}

// Notifier exposes the coordinator's fan-out helper so the relay and
// adapters share one addressing path.
func (c *Coordinator) Notifier() *Notifier { return c.notify }

func (c *Coordinator) identityOf(sid core.SessionID) (*domain.Identity, error) {
	sess, ok := c.presence.SessionOf(sid)
	if !ok {
		return nil, core.NotFoundf("no live session")
	}
	return sess.Meta(), nil
}

func (c *Coordinator) categoryAllowed(name string) bool {
	if len(c.categories) == 0 {
		return true
	}
	return c.categories[name]
}

// updateRoom runs a re-read / mutate / conditional-write loop. The
// mutate func sees a fresh copy on every attempt, so its precondition
// checks stay valid under concurrent writers; a race that outlasts the
// retries surfaces as the registry's conflict error.
func (c *Coordinator) updateRoom(ctx context.Context, name domain.RoomName, mutate func(*domain.Room) error) (*domain.Room, error) {
	var lastErr error
	for attempt := 0; attempt < c.retries; attempt++ {
		room, err := c.registry.Get(ctx, name)
		if err != nil {
			return nil, err
		}
		if err := mutate(room); err != nil {
			return nil, err
		}
		if err := c.registry.Update(ctx, room); err != nil {
			if core.IsKind(err, core.KindConflict) {
				lastErr = err
				continue
			}
			return nil, err
		}
		return room, nil
	}
	return nil, lastErr
}

// Timers are keyed by room, not by any connection, so a dropped admin
// connection never leaks or strands them.

func (c *Coordinator) armLifetime(name domain.RoomName, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.timers[name]
	if t == nil {
		t = &roomTimers{}
		c.timers[name] = t
	}
	if t.lifetime != nil {
		t.lifetime.Stop()
	}
	t.lifetime = time.AfterFunc(d, func() {
		c.onTimer(name, "lifetime", func() { c.ensureRoomEnded(context.Background(), name) })
	})
}

func (c *Coordinator) armGrace(name domain.RoomName, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.timers[name]
	if t == nil {
		t = &roomTimers{}
		c.timers[name] = t
	}
	if t.grace != nil {
		t.grace.Stop()
	}
	t.grace = time.AfterFunc(d, func() {
		c.onTimer(name, "grace", func() { c.reapIfAdminAbsent(context.Background(), name) })
	})
}

func (c *Coordinator) cancelGrace(name domain.RoomName) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t := c.timers[name]; t != nil && t.grace != nil {
		t.grace.Stop()
		t.grace = nil
	}
}

func (c *Coordinator) stopTimers(name domain.RoomName) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t := c.timers[name]; t != nil {
		if t.lifetime != nil {
			t.lifetime.Stop()
		}
		if t.grace != nil {
			t.grace.Stop()
		}
		delete(c.timers, name)
	}
}

// onTimer shields the coordinator from panics inside timer callbacks;
// a failed callback leaves room state as-is.
func (c *Coordinator) onTimer(name domain.RoomName, which string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("module", "app.coordinator").Str("room", string(name)).Str("timer", which).Any("panic", r).Msg("timer callback panicked")
		}
	}()
	fn()
}

// reapIfAdminAbsent ends the room only if the admin is still gone. The
// delete is conditional on the version the absence was observed at, so
// a rejoin that commits between the read and the delete wins: its
// version bump turns the delete into a conflict and the room survives.
func (c *Coordinator) reapIfAdminAbsent(ctx context.Context, name domain.RoomName) {
	room, err := c.registry.Get(ctx, name)
	if err != nil {
		c.stopTimers(name)
		return
	}
	if room.Activated {
		return
	}
	if err := c.registry.DeleteIf(ctx, name, room.Version); err != nil {
		log.Info().Err(err).Str("module", "app.coordinator").Str("room", string(name)).Msg("grace reap lost the race, room kept")
		return
	}
	log.Info().Str("module", "app.coordinator").Str("room", string(name)).Msg("admin grace elapsed, ending room")
	c.finishRoomEnd(ctx, room)
}

// ensureRoomEnded is the idempotent teardown shared by endRoom and the
// max-lifetime timer. The registry delete decides the winner when
// several callers race; losers see not-found and stop.
func (c *Coordinator) ensureRoomEnded(ctx context.Context, name domain.RoomName) {
	room, err := c.registry.Get(ctx, name)
	if err != nil {
		c.stopTimers(name)
		return
	}
	if err := c.registry.Delete(ctx, name); err != nil {
		c.stopTimers(name)
		return
	}
	c.finishRoomEnd(ctx, room)
}

// finishRoomEnd runs the post-delete fan-out and cleanup. The room is
// already gone from the registry by the time this runs.
func (c *Coordinator) finishRoomEnd(ctx context.Context, room *domain.Room) {
	c.notify.BroadcastRoom(room.Name, RoomEndedEvent{Type: EvtRoomEnded, Room: room.Name})
	for _, snap := range c.presence.ConnectionsInRoom(room.Name) {
		c.presence.ClearRoom(snap.SID)
	}
	if err := c.messages.DeleteRoom(ctx, room.ID); err != nil {
		log.Error().Err(err).Str("module", "app.coordinator").Str("room", string(room.Name)).Msg("room chat cleanup")
	}
	c.stopTimers(room.Name)
	log.Info().Str("module", "app.coordinator").Str("room", string(room.Name)).Msg("room ended")
}

// Resume re-arms room timers from registry deadlines after a process
// start. Rooms past their max lifetime are ended immediately; rooms
// left waiting for their admin get the remainder of the grace window.
func (c *Coordinator) Resume(ctx context.Context) error {
	rooms, err := c.registry.List(ctx)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, room := range rooms {
		if !room.MaxLifetimeDeadline.After(now) {
			c.ensureRoomEnded(ctx, room.Name)
			continue
		}
		c.armLifetime(room.Name, room.MaxLifetimeDeadline.Sub(now))
		if !room.Activated && room.AdminGraceDeadline != nil {
			d := room.AdminGraceDeadline.Sub(now)
			if d < 0 {
				d = 0
			}
			c.armGrace(room.Name, d)
		}
		log.Info().Str("module", "app.coordinator").Str("room", string(room.Name)).Msg("re-armed room timers")
	}
	return nil
}
