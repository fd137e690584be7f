package game

import (
	"fmt"
	"hash/fnv"
	"os"

	"gopkg.in/yaml.v3"
)

// Platform is a static axis-aligned surface, given by center and size.
type Platform struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Top returns the y coordinate of the walkable surface.
func (p Platform) Top() float64 { return p.Y + p.Height/2 }

// LeftX and RightX are the horizontal extents.
func (p Platform) LeftX() float64  { return p.X - p.Width/2 }
func (p Platform) RightX() float64 { return p.X + p.Width/2 }

// Level is the static geometry supplied by the level collaborator. Immutable
// for the duration of its active use; the nav graph built from it is cached
// until the level changes.
type Level struct {
	ID           string
	Name         string
	BasketY      float64
	BasketPushIn float64
	Platforms    []Platform
}

// basketX returns the horizontal distance of either basket center from x=0.
func (l *Level) basketX() float64 {
	pushIn := l.BasketPushIn
	if pushIn == 0 {
		pushIn = BasketPushIn
	}
	return ArenaWidth/2 - WallThickness - pushIn
}

func (l *Level) basketY() float64 {
	if l.BasketY == 0 {
		return DefaultBasketY
	}
	return l.BasketY
}

// LeftBasket returns the center of the left basket mouth.
func (l *Level) LeftBasket() Vec2 { return Vec2{X: -l.basketX(), Y: l.basketY()} }

// RightBasket returns the center of the right basket mouth.
func (l *Level) RightBasket() Vec2 { return Vec2{X: l.basketX(), Y: l.basketY()} }

// FloorBounds returns the walkable extent of the arena floor.
func (l *Level) FloorBounds() (left, right float64) {
	return -ArenaWidth/2 + WallThickness, ArenaWidth/2 - WallThickness
}

// levelID derives a stable 16-hex-char identifier from a level name, so
// levels keep their identity across config edits that don't rename them.
func levelID(name string) string {
	h := fnv.New64a()
	h.Write([]byte(name))
	return fmt.Sprintf("%016x", h.Sum64())
}

// LevelDatabase holds every level available to the harness.
type LevelDatabase struct {
	Levels []Level
}

// Get returns the level at index, wrapping out-of-range indices.
func (db *LevelDatabase) Get(i int) *Level {
	return &db.Levels[i%len(db.Levels)]
}

// ByID returns the level with the given stable ID, or nil.
func (db *LevelDatabase) ByID(id string) *Level {
	for i := range db.Levels {
		if db.Levels[i].ID == id {
			return &db.Levels[i]
		}
	}
	return nil
}

// ByName returns the named level, or nil.
func (db *LevelDatabase) ByName(name string) *Level {
	for i := range db.Levels {
		if db.Levels[i].Name == name {
			return &db.Levels[i]
		}
	}
	return nil
}

// levelFile is the YAML schema for level config files.
//
//	levels:
//	  - name: Twin Ledges
//	    basket_height: 240
//	    platforms:
//	      - {x: 330, y: -250, width: 220, height: 20, mirror: true}
type levelFile struct {
	Levels []struct {
		Name         string  `yaml:"name"`
		BasketHeight float64 `yaml:"basket_height"`
		BasketPushIn float64 `yaml:"basket_push_in"`
		Platforms    []struct {
			X      float64 `yaml:"x"`
			Y      float64 `yaml:"y"`
			Width  float64 `yaml:"width"`
			Height float64 `yaml:"height"`
			Mirror bool    `yaml:"mirror"` // also spawn the platform at -x
		} `yaml:"platforms"`
	} `yaml:"levels"`
}

// LoadLevelDatabase reads levels from a YAML file. A missing or unparseable
// file falls back to the built-in set rather than failing the run.
func LoadLevelDatabase(path string) (*LevelDatabase, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return DefaultLevels(), fmt.Errorf("read levels: %w", err)
	}
	var lf levelFile
	if err := yaml.Unmarshal(raw, &lf); err != nil {
		return DefaultLevels(), fmt.Errorf("parse levels: %w", err)
	}
	db := &LevelDatabase{}
	for _, le := range lf.Levels {
		lvl := Level{
			ID:           levelID(le.Name),
			Name:         le.Name,
			BasketY:      adjustBasketY(le.BasketHeight),
			BasketPushIn: le.BasketPushIn,
		}
		for _, p := range le.Platforms {
			h := p.Height
			if h == 0 {
				h = 20
			}
			lvl.Platforms = append(lvl.Platforms, Platform{X: p.X, Y: p.Y, Width: p.Width, Height: h})
			if p.Mirror && p.X != 0 {
				lvl.Platforms = append(lvl.Platforms, Platform{X: -p.X, Y: p.Y, Width: p.Width, Height: h})
			}
		}
		db.Levels = append(db.Levels, lvl)
	}
	if len(db.Levels) == 0 {
		return DefaultLevels(), fmt.Errorf("no levels in %s", path)
	}
	return db, nil
}

// adjustBasketY converts a height-above-floor config value into arena
// coordinates. Zero means "use the default".
func adjustBasketY(basketHeight float64) float64 {
	if basketHeight == 0 {
		return 0
	}
	return ArenaFloorY + basketHeight
}

// DefaultLevels is the compiled-in level set used when no config is present.
func DefaultLevels() *LevelDatabase {
	flat := Level{
		ID:   levelID("Flat Court"),
		Name: "Flat Court",
	}
	ledges := Level{
		ID:   levelID("Twin Ledges"),
		Name: "Twin Ledges",
		Platforms: []Platform{
			{X: -330, Y: ArenaFloorY + 180, Width: 220, Height: 20},
			{X: 330, Y: ArenaFloorY + 180, Width: 220, Height: 20},
		},
	}
	terraces := Level{
		ID:   levelID("Terraces"),
		Name: "Terraces",
		Platforms: []Platform{
			{X: -520, Y: ArenaFloorY + 150, Width: 200, Height: 20},
			{X: 520, Y: ArenaFloorY + 150, Width: 200, Height: 20},
			{X: -220, Y: ArenaFloorY + 290, Width: 180, Height: 20},
			{X: 220, Y: ArenaFloorY + 290, Width: 180, Height: 20},
			{X: 0, Y: ArenaFloorY + 420, Width: 160, Height: 20},
		},
	}
	return &LevelDatabase{Levels: []Level{flat, ledges, terraces}}
}
