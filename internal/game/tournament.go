package game

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// The tournament harness runs a profiles-by-levels grid of matches. Matches
// are embarrassingly parallel: each owns its world, bus, and random streams,
// and results are written into a slot preallocated per job, so a parallel
// run aggregates to the same report as a sequential one with the same seeds.

// TournamentConfig describes one tournament.
type TournamentConfig struct {
	Profiles []Profile
	Levels   []*Level

	// Runs is the number of matches per profile pairing per level.
	Runs     int
	SeedBase int64
	SeedStep int64

	WinScore int
	MaxTicks int64

	// Parallel is the worker count; values below 1 run sequentially.
	Parallel int

	// ResolveProfile, when set, re-resolves each seat's profile by name just
	// before its match starts, so a profile database reloaded mid-run takes
	// effect for the matches not yet played. Nil plays the scheduled values.
	ResolveProfile func(name string) Profile

	// OnResult, when set, is called once per finished match with the
	// result and the match's full event log. Calls are serialized but
	// arrival order is scheduling-dependent; key anything persistent by
	// match ID.
	OnResult func(MatchResult, []Event)
}

// matchJob is one scheduled pairing.
type matchJob struct {
	index    int
	seed     int64
	level    *Level
	profileL Profile
	profileR Profile
}

// MatchStats is aggregated per side from one match's event log.
type MatchStats struct {
	Shots         [2]int
	Goals         [2]int
	StealAttempts [2]int
	StealWins     [2]int
	Jumps         [2]int

	// PossessionTicks is reconstructed from pickup/steal/release events.
	PossessionTicks [2]int64
}

// MatchResult is one finished (or failed) match.
type MatchResult struct {
	Index    int
	Seed     int64
	LevelID  string
	Profiles [2]string
	Outcome  Outcome
	Stats    MatchStats
	Err      error
}

// ComputeStats folds an event log into per-side counters. Possession is
// reconstructed by walking the holder through pickup, steal, and release
// events; an open possession is closed at the last event's tick.
func ComputeStats(events []Event) MatchStats {
	var s MatchStats
	holder := NoPlayer
	var heldSince int64
	release := func(tick int64) {
		if holder != NoPlayer {
			s.PossessionTicks[holder] += tick - heldSince
			holder = NoPlayer
		}
	}
	for _, e := range events {
		switch e.Code {
		case EvPickup:
			holder = e.Player
			heldSince = e.Tick
		case EvStealSuccess:
			release(e.Tick)
			holder = e.Player
			heldSince = e.Tick
		case EvShotRelease, EvMatchEnd, EvAborted:
			release(e.Tick)
		}
		if e.Player != PlayerL && e.Player != PlayerR {
			continue
		}
		i := int(e.Player)
		switch e.Code {
		case EvShotRelease:
			s.Shots[i]++
		case EvGoal:
			s.Goals[i]++
		case EvStealAttempt:
			s.StealAttempts[i]++
		case EvStealSuccess:
			s.StealWins[i]++
		case EvJump:
			s.Jumps[i]++
		}
	}
	return s
}

// Tournament executes a configured grid.
type Tournament struct {
	cfg  TournamentConfig
	jobs []matchJob
}

// NewTournament expands the config into its job grid: every ordered profile
// pairing, on every level, Runs times, each with its own derived seed.
func NewTournament(cfg TournamentConfig) *Tournament {
	if cfg.Runs < 1 {
		cfg.Runs = 1
	}
	if cfg.SeedStep == 0 {
		cfg.SeedStep = 1
	}
	if cfg.WinScore < 1 {
		cfg.WinScore = 3
	}
	if cfg.MaxTicks < 1 {
		cfg.MaxTicks = 3 * 60 * TickRate
	}
	if len(cfg.Profiles) == 0 {
		cfg.Profiles = []Profile{DefaultProfile()}
	}
	if len(cfg.Levels) == 0 {
		cfg.Levels = []*Level{DefaultLevels().Get(0)}
	}

	t := &Tournament{cfg: cfg}
	idx := 0
	for _, lvl := range cfg.Levels {
		for _, pl := range cfg.Profiles {
			for _, pr := range cfg.Profiles {
				for r := 0; r < cfg.Runs; r++ {
					t.jobs = append(t.jobs, matchJob{
						index:    idx,
						seed:     cfg.SeedBase + int64(idx)*cfg.SeedStep,
						level:    lvl,
						profileL: pl,
						profileR: pr,
					})
					idx++
				}
			}
		}
	}
	return t
}

// Matches returns the number of scheduled matches.
func (t *Tournament) Matches() int { return len(t.jobs) }

// Run plays every scheduled match and returns the aggregated report.
// Cancellation aborts in-flight matches; their results carry the context
// error and incomplete outcomes.
func (t *Tournament) Run(ctx context.Context) (*Report, error) {
	results := make([]MatchResult, len(t.jobs))

	workers := t.cfg.Parallel
	if workers < 1 {
		workers = 1
	}
	if workers > len(t.jobs) {
		workers = len(t.jobs)
	}

	jobs := make(chan matchJob)
	var wg sync.WaitGroup
	var cbMu sync.Mutex

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				res, events := t.playJob(ctx, job)
				results[job.index] = res
				if t.cfg.OnResult != nil {
					cbMu.Lock()
					t.cfg.OnResult(res, events)
					cbMu.Unlock()
				}
			}
		}()
	}

feed:
	for _, job := range t.jobs {
		select {
		case jobs <- job:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	return buildReport(t.cfg, results), ctx.Err()
}

// playJob runs one match and verifies its log never absorbed another
// match's events.
func (t *Tournament) playJob(ctx context.Context, job matchJob) (MatchResult, []Event) {
	profL, profR := job.profileL, job.profileR
	if t.cfg.ResolveProfile != nil {
		profL = t.cfg.ResolveProfile(profL.Name)
		profR = t.cfg.ResolveProfile(profR.Name)
	}
	m := NewMatch(
		WithLevel(job.level),
		WithSeed(job.seed),
		WithProfile(PlayerL, profL),
		WithProfile(PlayerR, profR),
		WithWinScore(t.cfg.WinScore),
		WithMaxTicks(t.cfg.MaxTicks),
	)
	res := MatchResult{
		Index:    job.index,
		Seed:     job.seed,
		LevelID:  job.level.ID,
		Profiles: [2]string{profL.Name, profR.Name},
	}

	outcome, err := m.Run(ctx)
	res.Outcome = outcome
	res.Err = err

	events := m.Bus().Events()
	for _, e := range events {
		if e.MatchID != m.ID {
			res.Err = fmt.Errorf("%w: match %s log holds event for %s", ErrIsolationViolation, m.ID, e.MatchID)
			break
		}
	}
	res.Stats = ComputeStats(events)
	return res, events
}

// Report aggregates a tournament's results per profile.
type Report struct {
	Results []MatchResult
	Rows    []ReportRow
	Failed  int
}

// ReportRow is one profile's aggregate line.
type ReportRow struct {
	Profile    string
	Played     int
	Wins       int
	Losses     int
	Draws      int
	Goals      int
	Shots      int
	Steals     int
	Possession int64 // ticks
}

func buildReport(cfg TournamentConfig, results []MatchResult) *Report {
	rows := make(map[string]*ReportRow)
	rep := &Report{Results: results}

	row := func(name string) *ReportRow {
		r, ok := rows[name]
		if !ok {
			r = &ReportRow{Profile: name}
			rows[name] = r
		}
		return r
	}

	for _, res := range results {
		if res.Err != nil || !res.Outcome.Complete {
			rep.Failed++
			continue
		}
		for _, side := range []PlayerID{PlayerL, PlayerR} {
			r := row(res.Profiles[side])
			r.Played++
			switch {
			case res.Outcome.Winner == side:
				r.Wins++
			case res.Outcome.Winner == NoPlayer:
				r.Draws++
			default:
				r.Losses++
			}
			r.Goals += res.Stats.Goals[side]
			r.Shots += res.Stats.Shots[side]
			r.Steals += res.Stats.StealWins[side]
			r.Possession += res.Stats.PossessionTicks[side]
		}
	}

	for _, r := range rows {
		rep.Rows = append(rep.Rows, *r)
	}
	sort.Slice(rep.Rows, func(i, j int) bool {
		if rep.Rows[i].Wins != rep.Rows[j].Wins {
			return rep.Rows[i].Wins > rep.Rows[j].Wins
		}
		return rep.Rows[i].Profile < rep.Rows[j].Profile
	})
	return rep
}

// Format renders the report as a fixed-width table.
func (r *Report) Format() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%-14s %7s %5s %7s %6s %6s %6s %7s %7s\n",
		"PROFILE", "PLAYED", "WINS", "LOSSES", "DRAWS", "GOALS", "SHOTS", "STEALS", "POSS(s)")
	for _, row := range r.Rows {
		fmt.Fprintf(&sb, "%-14s %7d %5d %7d %6d %6d %6d %7d %7.0f\n",
			row.Profile, row.Played, row.Wins, row.Losses, row.Draws, row.Goals, row.Shots, row.Steals,
			float64(row.Possession)/TickRate)
	}
	if r.Failed > 0 {
		fmt.Fprintf(&sb, "\n%d match(es) failed or incomplete\n", r.Failed)
	}
	return sb.String()
}
