package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/spncrlkt/ballgame/internal/eventstore"
	"github.com/spncrlkt/ballgame/internal/game"
)

// replay-verify re-simulates stored matches from their recorded inputs and
// checks the replayed event log against the recording. A clean run proves
// the recording is a faithful, deterministic timeline.

func main() {
	var dbPath string
	var matchID string
	var sessionID string
	var levelsPath string

	flag.StringVar(&dbPath, "db", "", "SQLite match database (required)")
	flag.StringVar(&matchID, "match", "", "verify one match by ID")
	flag.StringVar(&sessionID, "session", "", "verify every complete match in a session")
	flag.StringVar(&levelsPath, "levels", "", "level YAML file (built-ins when empty)")
	flag.Parse()

	if dbPath == "" || (matchID == "" && sessionID == "") {
		fmt.Println("usage: replay-verify -db <path> (-match <id> | -session <id>) [-levels <file>]")
		os.Exit(2)
	}

	levels := game.DefaultLevels()
	if levelsPath != "" {
		var err error
		levels, err = game.LoadLevelDatabase(levelsPath)
		if err != nil {
			log.Printf("levels: %v", err)
		}
	}

	ctx := context.Background()
	store, err := eventstore.Open(ctx, dbPath)
	if err != nil {
		log.Fatalf("eventstore: %v", err)
	}
	defer store.Close()

	var ids []string
	if matchID != "" {
		ids = []string{matchID}
	} else {
		recs, err := store.ListMatches(ctx, sessionID)
		if err != nil {
			log.Fatalf("eventstore: %v", err)
		}
		for _, rec := range recs {
			if rec.Complete {
				ids = append(ids, rec.MatchID)
			}
		}
		if len(ids) == 0 {
			fmt.Printf("session %s has no complete matches\n", sessionID)
			return
		}
	}

	failed := 0
	for _, id := range ids {
		if !verifyOne(ctx, store, levels, id) {
			failed++
		}
	}
	fmt.Printf("\nverified %d match(es), %d divergent\n", len(ids), failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func verifyOne(ctx context.Context, store *eventstore.Store, levels *game.LevelDatabase, matchID string) bool {
	events, err := store.LoadTimeline(ctx, matchID)
	if err != nil {
		if errors.Is(err, eventstore.ErrIncompleteTimeline) {
			fmt.Printf("SKIP %s: %v\n", matchID, err)
			return false
		}
		log.Fatalf("eventstore: %v", err)
	}

	// Re-drive twice: once against the recording, once against the first
	// replay, so a nondeterministic simulation cannot hide behind a stale
	// recording.
	report, err := game.VerifyReplay(events, levels)
	if err != nil {
		fmt.Printf("FAIL %s\n%s\n", matchID, report)
		return false
	}
	replayed, err := game.ReplayMatch(events, levels)
	if err != nil {
		fmt.Printf("FAIL %s: %v\n", matchID, err)
		return false
	}
	if _, err := replayed.Run(ctx); err != nil {
		fmt.Printf("FAIL %s: %v\n", matchID, err)
		return false
	}
	if report, err = game.VerifyReplay(replayed.Bus().Events(), levels); err != nil {
		fmt.Printf("FAIL %s (second pass)\n%s\n", matchID, report)
		return false
	}

	fmt.Printf("OK   %s (%d events)\n", matchID, len(events))
	return true
}
