package game

import (
	"errors"
	"fmt"
)

// Ghost replay rebuilds a match from nothing but its event log: the recorded
// input frames are fed back through the same simulation, and because the
// integrator is deterministic the replay must reproduce the original log
// line for line. Any divergence means recording or simulation is broken,
// and is reported as a mismatch rather than papered over.

// ErrReplayMismatch reports a replayed match diverging from its recording.
var ErrReplayMismatch = errors.New("replay diverged from recording")

// ErrBadRecording reports an event log that cannot seed a replay.
var ErrBadRecording = errors.New("unusable recording")

// MismatchReport pinpoints the first divergence between recording and
// replay, as canonical log lines.
type MismatchReport struct {
	Index    int
	Tick     int64
	Expected string
	Actual   string
}

func (r *MismatchReport) String() string {
	return fmt.Sprintf("divergence at event %d (tick %d):\n  recorded: %s\n  replayed: %s",
		r.Index, r.Tick, r.Expected, r.Actual)
}

// GhostTimeline is one side's recorded inputs, keyed by fixed tick.
type GhostTimeline struct {
	Side   PlayerID
	frames map[int64]InputFrame
}

// TimelineFromEvents extracts one side's input frames from a recorded log.
func TimelineFromEvents(events []Event, side PlayerID) (*GhostTimeline, error) {
	t := &GhostTimeline{Side: side, frames: make(map[int64]InputFrame)}
	for _, e := range events {
		if e.Code != EvInput || e.Player != side {
			continue
		}
		f, err := parseInputPayload(e.Payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadRecording, err)
		}
		f.Tick = e.Tick
		t.frames[e.Tick] = f
	}
	if len(t.frames) == 0 {
		return nil, fmt.Errorf("%w: no input frames for %s", ErrBadRecording, side)
	}
	return t, nil
}

// Len returns the number of recorded frames.
func (t *GhostTimeline) Len() int { return len(t.frames) }

// GhostSource plays a timeline back as an InputSource. Each tick's frame is
// copied out of the timeline before handing it over, so latch consumption
// during replay never mutates the recording.
type GhostSource struct {
	timeline *GhostTimeline
	frame    InputFrame
}

// NewGhostSource wraps a timeline for playback.
func NewGhostSource(t *GhostTimeline) *GhostSource {
	return &GhostSource{timeline: t}
}

func (g *GhostSource) NextFrame(tick int64, _ *WorldSnapshot) *InputFrame {
	f, ok := g.timeline.frames[tick]
	if !ok {
		// Past the end of the recording: neutral input.
		f = InputFrame{Source: SourceGhost, Tick: tick}
	}
	f.Source = SourceGhost
	g.frame = f
	return &g.frame
}

// recordingHeader is the match-start metadata needed to rebuild a match.
type recordingHeader struct {
	levelID  string
	seed     int64
	left     string
	right    string
	winScore int
	maxTicks int64
}

func parseHeader(events []Event) (recordingHeader, error) {
	var h recordingHeader
	if len(events) == 0 || events[0].Code != EvMatchStart {
		return h, fmt.Errorf("%w: log does not begin with match start", ErrBadRecording)
	}
	// Profile names are quoted in the payload: they may contain spaces.
	_, err := fmt.Sscanf(events[0].Payload, "level=%s seed=%d left=%q right=%q win=%d cap=%d",
		&h.levelID, &h.seed, &h.left, &h.right, &h.winScore, &h.maxTicks)
	if err != nil {
		return h, fmt.Errorf("%w: parse match start %q: %v", ErrBadRecording, events[0].Payload, err)
	}
	return h, nil
}

// namedProfile makes a placeholder profile carrying a recorded name, so a
// rebuilt match reproduces the original match-start line exactly. Ghost
// seats never consult the profile beyond its name.
func namedProfile(name string) Profile {
	p := DefaultProfile()
	p.Name = name
	return p
}

// ReplayMatch rebuilds a recorded match with both seats driven by ghosts.
// The returned match has not been run yet.
func ReplayMatch(events []Event, levels *LevelDatabase) (*Match, error) {
	h, err := parseHeader(events)
	if err != nil {
		return nil, err
	}
	level := levels.ByID(h.levelID)
	if level == nil {
		return nil, fmt.Errorf("%w: unknown level %s", ErrBadRecording, h.levelID)
	}
	ghostL, err := TimelineFromEvents(events, PlayerL)
	if err != nil {
		return nil, err
	}
	ghostR, err := TimelineFromEvents(events, PlayerR)
	if err != nil {
		return nil, err
	}
	return NewMatch(
		WithLevel(level),
		WithSeed(h.seed),
		WithWinScore(h.winScore),
		WithMaxTicks(h.maxTicks),
		WithProfile(PlayerL, namedProfile(h.left)),
		WithProfile(PlayerR, namedProfile(h.right)),
		WithSource(PlayerL, NewGhostSource(ghostL)),
		WithSource(PlayerR, NewGhostSource(ghostR)),
	), nil
}

// VerifyReplay replays a recording and compares the resulting log with the
// original, canonical line by canonical line. A nil report means the replay
// reproduced the recording exactly.
func VerifyReplay(events []Event, levels *LevelDatabase) (*MismatchReport, error) {
	m, err := ReplayMatch(events, levels)
	if err != nil {
		return nil, err
	}
	m.RunTicks(m.maxTicks + 1)
	return CompareLogs(events, m.Bus().Events())
}

// CompareLogs diffs two logs over their simulation events, canonical line
// by canonical line. AI commentary events are excluded and sequences are
// renumbered within the filtered stream, so an AI-recorded log and its
// ghost replay compare byte for byte.
func CompareLogs(recorded, replayed []Event) (*MismatchReport, error) {
	rec := filterSimulation(recorded)
	rep := filterSimulation(replayed)

	n := len(rec)
	if len(rep) < n {
		n = len(rep)
	}
	for i := 0; i < n; i++ {
		exp, act := canonicalAt(rec[i], i), canonicalAt(rep[i], i)
		if exp != act {
			r := &MismatchReport{Index: i, Tick: rec[i].Tick, Expected: exp, Actual: act}
			return r, fmt.Errorf("%w: %s", ErrReplayMismatch, r)
		}
	}
	if len(rec) != len(rep) {
		r := &MismatchReport{Index: n, Tick: -1,
			Expected: fmt.Sprintf("%d events", len(rec)),
			Actual:   fmt.Sprintf("%d events", len(rep))}
		return r, fmt.Errorf("%w: %s", ErrReplayMismatch, r)
	}
	return nil, nil
}

func filterSimulation(events []Event) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if SimulationEvent(e.Code) {
			out = append(out, e)
		}
	}
	return out
}

// canonicalAt renders an event with its position in the filtered stream in
// place of the raw append sequence.
func canonicalAt(e Event, i int) string {
	e.Seq = int64(i)
	return e.Canonical()
}

// DefenseDrill rebuilds a recorded match with the ghost playing one side and
// a live AI in the other seat. The drill intentionally diverges from the
// recording; it is a practice mode, not a verification.
func DefenseDrill(events []Event, levels *LevelDatabase, ghostSide PlayerID, profile Profile) (*Match, error) {
	h, err := parseHeader(events)
	if err != nil {
		return nil, err
	}
	level := levels.ByID(h.levelID)
	if level == nil {
		return nil, fmt.Errorf("%w: unknown level %s", ErrBadRecording, h.levelID)
	}
	ghost, err := TimelineFromEvents(events, ghostSide)
	if err != nil {
		return nil, err
	}
	ghostName := h.left
	if ghostSide == PlayerR {
		ghostName = h.right
	}
	return NewMatch(
		WithLevel(level),
		WithSeed(h.seed),
		WithWinScore(h.winScore),
		WithMaxTicks(h.maxTicks),
		WithSource(ghostSide, NewGhostSource(ghost)),
		WithProfile(ghostSide, namedProfile(ghostName)),
		WithProfile(ghostSide.Opponent(), profile),
	), nil
}
