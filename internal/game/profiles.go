package game

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// A Profile tunes one AI's personality without touching the decision logic
// itself: how patient it is, how far it shoots from, how greedy it is about
// steals. Profiles load from YAML so tournaments can sweep them without a
// rebuild.
type Profile struct {
	Name string `yaml:"name"`

	// Movement.
	PositionTolerance float64 `yaml:"position_tolerance"`

	// Shooting.
	ShootRange     float64 `yaml:"shoot_range"`
	MinShotQuality float64 `yaml:"min_shot_quality"`
	ChargeMin      float64 `yaml:"charge_min"` // seconds
	ChargeMax      float64 `yaml:"charge_max"`

	// Defense.
	StealRange    float64 `yaml:"steal_range"`
	DefenseOffset float64 `yaml:"defense_offset"`

	// Goal switching. Hysteresis is the utility margin a challenger must
	// clear; CommitScale stretches or shrinks the per-goal commitment timers.
	Hysteresis  float64 `yaml:"hysteresis"`
	CommitScale float64 `yaml:"commit_scale"`
}

// DefaultProfile is the balanced baseline every missing field falls back to.
func DefaultProfile() Profile {
	return Profile{
		Name:              "baseline",
		PositionTolerance: NavPositionTolerance,
		ShootRange:        650,
		MinShotQuality:    ShotQualityAcceptable,
		ChargeMin:         0.55,
		ChargeMax:         1.1,
		StealRange:        StealRange,
		DefenseOffset:     140,
		Hysteresis:        0.1,
		CommitScale:       1,
	}
}

// normalize fills zero fields from the baseline so partial YAML entries stay
// usable.
func (p *Profile) normalize() {
	base := DefaultProfile()
	if p.Name == "" {
		p.Name = base.Name
	}
	if p.PositionTolerance <= 0 {
		p.PositionTolerance = base.PositionTolerance
	}
	if p.ShootRange <= 0 {
		p.ShootRange = base.ShootRange
	}
	if p.MinShotQuality <= 0 {
		p.MinShotQuality = base.MinShotQuality
	}
	if p.ChargeMin <= 0 {
		p.ChargeMin = base.ChargeMin
	}
	if p.ChargeMax <= p.ChargeMin {
		p.ChargeMax = p.ChargeMin + 0.4
	}
	if p.StealRange <= 0 {
		p.StealRange = base.StealRange
	}
	if p.DefenseOffset <= 0 {
		p.DefenseOffset = base.DefenseOffset
	}
	if p.Hysteresis <= 0 {
		p.Hysteresis = base.Hysteresis
	}
	if p.CommitScale <= 0 {
		p.CommitScale = base.CommitScale
	}
}

// CommitTicks returns the profile-scaled commitment window for a goal.
func (p Profile) CommitTicks(k GoalKind) int {
	n := int(float64(commitTicks(k)) * p.CommitScale)
	if n < 1 {
		n = 1
	}
	return n
}

// BuiltinProfiles are the compiled-in personalities used when no profile
// file is supplied.
func BuiltinProfiles() []Profile {
	aggressive := DefaultProfile()
	aggressive.Name = "aggressive"
	aggressive.MinShotQuality = ShotQualityDesperate
	aggressive.ChargeMin = 0.35
	aggressive.ChargeMax = 0.8
	aggressive.StealRange = StealRange * 1.2
	aggressive.Hysteresis = 0.05
	aggressive.CommitScale = 0.6

	patient := DefaultProfile()
	patient.Name = "patient"
	patient.MinShotQuality = ShotQualityGood
	patient.ChargeMin = 0.9
	patient.ChargeMax = 1.5
	patient.DefenseOffset = 180
	patient.Hysteresis = 0.18
	patient.CommitScale = 1.5

	return []Profile{DefaultProfile(), aggressive, patient}
}

// profileFile is the YAML document layout.
type profileFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// ProfileDatabase holds the loaded profiles. It is safe for concurrent reads
// while a watcher swaps the set underneath.
type ProfileDatabase struct {
	mu       sync.RWMutex
	profiles map[string]Profile
	names    []string
}

// NewProfileDatabase builds a database over the given profiles.
func NewProfileDatabase(profiles []Profile) *ProfileDatabase {
	db := &ProfileDatabase{}
	db.replace(profiles)
	return db
}

// LoadProfileDatabase reads a profile YAML file; a missing or malformed file
// falls back to the builtins with a warning rather than failing the run.
func LoadProfileDatabase(path string) *ProfileDatabase {
	profiles, err := readProfileFile(path)
	if err != nil {
		log.Printf("profiles: load %s failed (%v), using builtins", path, err)
		return NewProfileDatabase(BuiltinProfiles())
	}
	return NewProfileDatabase(profiles)
}

func readProfileFile(path string) ([]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var pf profileFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(pf.Profiles) == 0 {
		return nil, fmt.Errorf("%s: no profiles defined", path)
	}
	return pf.Profiles, nil
}

func (db *ProfileDatabase) replace(profiles []Profile) {
	m := make(map[string]Profile, len(profiles))
	names := make([]string, 0, len(profiles))
	for _, p := range profiles {
		p.normalize()
		if _, dup := m[p.Name]; dup {
			log.Printf("profiles: duplicate name %q, keeping first", p.Name)
			continue
		}
		m[p.Name] = p
		names = append(names, p.Name)
	}
	sort.Strings(names)

	db.mu.Lock()
	db.profiles = m
	db.names = names
	db.mu.Unlock()
}

// Get returns the named profile, falling back to the baseline.
func (db *ProfileDatabase) Get(name string) Profile {
	db.mu.RLock()
	p, ok := db.profiles[name]
	db.mu.RUnlock()
	if !ok {
		p = DefaultProfile()
		p.normalize()
	}
	return p
}

// Names lists the loaded profile names, sorted.
func (db *ProfileDatabase) Names() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]string, len(db.names))
	copy(out, db.names)
	return out
}

// Watch reloads the database whenever the profile file changes on disk.
// Editors write in bursts, so events are debounced before reloading. The
// watcher stops when done is closed.
func (db *ProfileDatabase) Watch(path string, done <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("profile watcher: %w", err)
	}
	// Watch the directory: editors replace files by rename, which drops a
	// watch on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return fmt.Errorf("profile watcher add: %w", err)
	}

	go func() {
		defer watcher.Close()
		var timer *time.Timer
		var timerC <-chan time.Time
		base := filepath.Base(path)
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != base {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(200 * time.Millisecond)
					timerC = timer.C
				} else {
					timer.Reset(200 * time.Millisecond)
				}
			case <-timerC:
				timer = nil
				timerC = nil
				profiles, err := readProfileFile(path)
				if err != nil {
					log.Printf("profiles: reload %s failed (%v), keeping current set", path, err)
					continue
				}
				db.replace(profiles)
				log.Printf("profiles: reloaded %d from %s", len(profiles), path)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("profiles: watcher error: %v", err)
			case <-done:
				return
			}
		}
	}()
	return nil
}
