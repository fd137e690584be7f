package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/google/uuid"

	"github.com/spncrlkt/ballgame/internal/eventstore"
	"github.com/spncrlkt/ballgame/internal/game"
	"github.com/spncrlkt/ballgame/internal/spectate"
)

func main() {
	var runs int
	var seedBase int64
	var seedStep int64
	var winScore int
	var maxSeconds int
	var parallel int
	var levelsPath string
	var levelNames string
	var profilesPath string
	var profileNames string
	var dbPath string
	var listen string
	var label string

	flag.IntVar(&runs, "runs", 3, "matches per profile pairing per level")
	flag.Int64Var(&seedBase, "seed-base", 42, "base RNG seed for match 1")
	flag.Int64Var(&seedStep, "seed-step", 1, "seed increment between matches")
	flag.IntVar(&winScore, "win-score", 3, "goals needed to win a match")
	flag.IntVar(&maxSeconds, "max-seconds", 180, "simulated seconds before a match ends on score")
	flag.IntVar(&parallel, "parallel", 4, "concurrent match workers")
	flag.StringVar(&levelsPath, "levels", "", "level YAML file (built-ins when empty)")
	flag.StringVar(&levelNames, "level-names", "", "comma-separated level names to use (all when empty)")
	flag.StringVar(&profilesPath, "profiles", "", "profile YAML file (built-ins when empty)")
	flag.StringVar(&profileNames, "profile-names", "", "comma-separated profile names to use (all when empty)")
	flag.StringVar(&dbPath, "db", "", "SQLite path for match persistence (off when empty)")
	flag.StringVar(&listen, "listen", "", "address for the live spectate websocket (off when empty)")
	flag.StringVar(&label, "label", "", "session label stored with the results")
	flag.Parse()

	if runs <= 0 {
		fmt.Println("error: -runs must be > 0")
		return
	}

	levelDB := game.DefaultLevels()
	if levelsPath != "" {
		var err error
		if levelDB, err = game.LoadLevelDatabase(levelsPath); err != nil {
			log.Printf("levels: %v", err)
		}
	}
	levels := pickLevels(levelDB, levelNames)
	if len(levels) == 0 {
		fmt.Println("error: no levels selected")
		return
	}

	var profiles []game.Profile
	var profileDB *game.ProfileDatabase
	if profilesPath != "" {
		profileDB = game.LoadProfileDatabase(profilesPath)
		profiles = pickProfiles(profileDB, profileNames)
	} else {
		profiles = filterProfiles(game.BuiltinProfiles(), profileNames)
	}
	if len(profiles) == 0 {
		fmt.Println("error: no profiles selected")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var store *eventstore.Store
	sessionID := uuid.NewString()
	if dbPath != "" {
		var err error
		store, err = eventstore.Open(ctx, dbPath)
		if err != nil {
			log.Fatalf("eventstore: %v", err)
		}
		defer store.Close()
		if err := store.BeginSession(ctx, sessionID, label); err != nil {
			log.Fatalf("eventstore: %v", err)
		}
	}

	var hub *spectate.Hub
	if listen != "" {
		hub = spectate.NewHub()
		defer hub.Close()
		mux := http.NewServeMux()
		mux.Handle("/watch", hub)
		srv := &http.Server{Addr: listen, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("spectate: %v", err)
			}
		}()
		defer srv.Close()
		fmt.Printf("spectate websocket on ws://%s/watch\n", listen)
	}

	cfg := game.TournamentConfig{
		Profiles: profiles,
		Levels:   levels,
		Runs:     runs,
		SeedBase: seedBase,
		SeedStep: seedStep,
		WinScore: winScore,
		MaxTicks: int64(maxSeconds) * game.TickRate,
		Parallel: parallel,
		OnResult: func(res game.MatchResult, events []game.Event) {
			if hub != nil {
				hub.BroadcastAll(events)
			}
			if store == nil {
				return
			}
			rec := eventstore.MatchRecord{
				MatchID:   res.Outcome.MatchID,
				SessionID: sessionID,
				LevelID:   res.LevelID,
				Seed:      res.Seed,
				ProfileL:  res.Profiles[game.PlayerL],
				ProfileR:  res.Profiles[game.PlayerR],
				ScoreL:    res.Outcome.ScoreL,
				ScoreR:    res.Outcome.ScoreR,
				Winner:    res.Outcome.Winner.String(),
				Ticks:     res.Outcome.Ticks,
				Complete:  res.Outcome.Complete,
			}
			if err := store.SaveMatch(ctx, rec, events); err != nil {
				log.Printf("eventstore: save %s: %v", rec.MatchID, err)
			}
		},
	}

	// With a profile file on disk, edits made during a long session apply to
	// matches not yet played: the watcher reloads the database and each match
	// re-resolves its seats by name just before it starts.
	if profileDB != nil {
		watchDone := make(chan struct{})
		defer close(watchDone)
		if err := profileDB.Watch(profilesPath, watchDone); err != nil {
			log.Printf("profiles: %v", err)
		} else {
			cfg.ResolveProfile = profileDB.Get
		}
	}

	t := game.NewTournament(cfg)
	fmt.Printf("=== Tournament ===\n")
	fmt.Printf("matches=%d levels=%d profiles=%d runs=%d seed_base=%d seed_step=%d win_score=%d parallel=%d\n\n",
		t.Matches(), len(levels), len(profiles), runs, seedBase, seedStep, winScore, parallel)

	report, runErr := t.Run(ctx)
	fmt.Print(report.Format())
	if dbPath != "" {
		fmt.Printf("\nsession %s saved to %s\n", sessionID, dbPath)
	}
	if runErr != nil {
		fmt.Printf("\nrun ended early: %v\n", runErr)
	}
	for _, res := range report.Results {
		if res.Err != nil && ctx.Err() == nil {
			log.Printf("match %d (seed=%d): %v", res.Index, res.Seed, res.Err)
		}
	}
}

func pickLevels(db *game.LevelDatabase, names string) []*game.Level {
	if names == "" {
		out := make([]*game.Level, 0, len(db.Levels))
		for i := range db.Levels {
			out = append(out, &db.Levels[i])
		}
		return out
	}
	var out []*game.Level
	for _, name := range splitList(names) {
		if lvl := db.ByName(name); lvl != nil {
			out = append(out, lvl)
		} else {
			log.Printf("levels: unknown level %q", name)
		}
	}
	return out
}

func pickProfiles(db *game.ProfileDatabase, names string) []game.Profile {
	want := splitList(names)
	if len(want) == 0 {
		want = db.Names()
	}
	out := make([]game.Profile, 0, len(want))
	for _, name := range want {
		out = append(out, db.Get(name))
	}
	return out
}

func filterProfiles(all []game.Profile, names string) []game.Profile {
	want := splitList(names)
	if len(want) == 0 {
		return all
	}
	var out []game.Profile
	for _, name := range want {
		for _, p := range all {
			if p.Name == name {
				out = append(out, p)
			}
		}
	}
	return out
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
