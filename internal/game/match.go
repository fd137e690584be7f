package game

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/google/uuid"
)

// Match drives one complete game: two input sources, one world, one event
// bus. Everything the match does lands in the bus, so a finished match is
// fully reconstructible from its log alone.

// MatchOption configures a match before it starts.
type MatchOption func(*matchConfig)

type matchConfig struct {
	level    *Level
	seed     int64
	profiles [2]Profile
	sources  [2]InputSource
	winScore int
	maxTicks int64
}

// WithLevel sets the level geometry. Defaults to the first built-in level.
func WithLevel(l *Level) MatchOption {
	return func(c *matchConfig) { c.level = l }
}

// WithSeed sets the deterministic random seed.
func WithSeed(seed int64) MatchOption {
	return func(c *matchConfig) { c.seed = seed }
}

// WithProfile assigns an AI profile to one side.
func WithProfile(id PlayerID, p Profile) MatchOption {
	return func(c *matchConfig) { c.profiles[id] = p }
}

// WithSource overrides the input source for one side. Used to drop a human
// device or a ghost timeline into a seat normally held by the AI.
func WithSource(id PlayerID, src InputSource) MatchOption {
	return func(c *matchConfig) { c.sources[id] = src }
}

// WithWinScore sets the score that ends the match.
func WithWinScore(n int) MatchOption {
	return func(c *matchConfig) { c.winScore = n }
}

// WithMaxTicks caps match length; hitting the cap ends the match on score.
func WithMaxTicks(n int64) MatchOption {
	return func(c *matchConfig) { c.maxTicks = n }
}

// Outcome summarizes a finished match.
type Outcome struct {
	MatchID  string
	Winner   PlayerID // NoPlayer on a draw
	ScoreL   int
	ScoreR   int
	Ticks    int64
	Complete bool
}

// Match is one running game.
type Match struct {
	ID    string
	Seed  int64
	Level *Level
	Graph *NavGraph

	world   *World
	bus     *EventBus
	sources [2]InputSource

	winScore int
	maxTicks int64
	done     bool
	outcome  Outcome
}

// NewMatch assembles a match. With no overrides both seats are AI
// controllers sharing the match's seeded random stream.
func NewMatch(opts ...MatchOption) *Match {
	cfg := matchConfig{
		seed:     1,
		winScore: 3,
		maxTicks: 3 * 60 * TickRate,
	}
	cfg.profiles[PlayerL] = DefaultProfile()
	cfg.profiles[PlayerR] = DefaultProfile()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.level == nil {
		cfg.level = DefaultLevels().Get(0)
	}

	id := uuid.NewString()
	bus := NewEventBus(id)
	graph := BuildNavGraph(cfg.level)

	// Physics and each AI get independent streams derived from the seed.
	// A ghost replay recreates only the physics stream, so AI draws must
	// never interleave with it.
	physRng := rand.New(rand.NewSource(cfg.seed))

	m := &Match{
		ID:       id,
		Seed:     cfg.seed,
		Level:    cfg.level,
		Graph:    graph,
		bus:      bus,
		world:    NewWorld(cfg.level, graph, physRng, bus),
		winScore: cfg.winScore,
		maxTicks: cfg.maxTicks,
	}
	for _, side := range []PlayerID{PlayerL, PlayerR} {
		if cfg.sources[side] != nil {
			m.sources[side] = cfg.sources[side]
		} else {
			aiRng := rand.New(rand.NewSource(cfg.seed + int64(side) + 1))
			m.sources[side] = NewController(side, cfg.profiles[side], graph, bus, aiRng)
		}
	}

	// Profile names are quoted: they come from user YAML and may hold spaces.
	must(bus.Append(0, EvMatchStart, NoPlayer, fmt.Sprintf(
		"level=%s seed=%d left=%q right=%q win=%d cap=%d",
		cfg.level.ID, cfg.seed, cfg.profiles[PlayerL].Name, cfg.profiles[PlayerR].Name, cfg.winScore, cfg.maxTicks)))
	return m
}

// Bus exposes the match's event log.
func (m *Match) Bus() *EventBus { return m.bus }

// Snapshot returns the current world view.
func (m *Match) Snapshot() *WorldSnapshot { return m.world.Snapshot() }

// Done reports whether the match has ended.
func (m *Match) Done() bool { return m.done }

// Outcome returns the result; only meaningful once Done.
func (m *Match) Outcome() Outcome { return m.outcome }

// StepOnce advances one fixed tick: snapshot, collect both frames, record
// them, integrate. Input events are logged before physics consumes the
// latches so the log holds the frames exactly as produced.
func (m *Match) StepOnce() {
	if m.done {
		return
	}
	tick := m.world.Tick
	snap := m.world.Snapshot()

	var frames [2]*InputFrame
	for _, side := range []PlayerID{PlayerL, PlayerR} {
		f := m.sources[side].NextFrame(tick, snap)
		must(m.bus.Append(tick, EvInput, side, inputPayload(f)))
		frames[side] = f
	}

	m.world.Step(frames)

	if m.world.ScoreL >= m.winScore || m.world.ScoreR >= m.winScore || m.world.Tick >= m.maxTicks {
		m.finish()
	}
}

// RunTicks advances up to n ticks, stopping early if the match ends.
func (m *Match) RunTicks(n int64) {
	for i := int64(0); i < n && !m.done; i++ {
		m.StepOnce()
	}
}

// Run plays the match to completion. Cancellation aborts the match and
// marks its log incomplete.
func (m *Match) Run(ctx context.Context) (Outcome, error) {
	for !m.done {
		select {
		case <-ctx.Done():
			m.Abort()
			return m.outcome, ctx.Err()
		default:
		}
		m.StepOnce()
	}
	return m.outcome, nil
}

// Abort ends the match early. The log is sealed incomplete: aborted matches
// are never valid replay sources.
func (m *Match) Abort() {
	if m.done {
		return
	}
	must(m.bus.Append(m.world.Tick, EvAborted, NoPlayer,
		fmt.Sprintf("score=%d-%d", m.world.ScoreL, m.world.ScoreR)))
	m.bus.MarkIncomplete()
	m.done = true
	m.outcome = Outcome{
		MatchID: m.ID,
		Winner:  NoPlayer,
		ScoreL:  m.world.ScoreL,
		ScoreR:  m.world.ScoreR,
		Ticks:   m.world.Tick,
	}
}

func (m *Match) finish() {
	winner := NoPlayer
	if m.world.ScoreL > m.world.ScoreR {
		winner = PlayerL
	} else if m.world.ScoreR > m.world.ScoreL {
		winner = PlayerR
	}
	must(m.bus.Append(m.world.Tick, EvMatchEnd, winner,
		fmt.Sprintf("score=%d-%d ticks=%d", m.world.ScoreL, m.world.ScoreR, m.world.Tick)))
	m.bus.Seal()
	m.done = true
	m.outcome = Outcome{
		MatchID:  m.ID,
		Winner:   winner,
		ScoreL:   m.world.ScoreL,
		ScoreR:   m.world.ScoreR,
		Ticks:    m.world.Tick,
		Complete: true,
	}
}

// must panics on event-log append failures: the match loop appending out of
// order is a programming error, not a runtime condition.
func must(err error) {
	if err != nil {
		panic(err)
	}
}
