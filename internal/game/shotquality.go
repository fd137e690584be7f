package game

import "math"

// Shot quality estimates the probability-of-scoring for a shot taken from a
// position at a basket, on a 0–1 scale. The shape of the curve comes from
// heatmap analysis of recorded tournaments: elevated, in-front positions
// score several times more often than floor or under-rim positions.

const (
	ShotQualityExcellent  = 0.75
	ShotQualityGood       = 0.55
	ShotQualityAcceptable = 0.40
	ShotQualityDesperate  = 0.25

	// Best quality achievable on a level with good platform elevation; used
	// to scale profile thresholds down on flat levels.
	shotQualityReferenceMax = 0.85
)

// EvaluateShotQuality scores a shot from shooter toward basket.
func EvaluateShotQuality(shooter, basket Vec2) float64 {
	dx := shooter.X - basket.X
	dy := shooter.Y - basket.Y
	horiz := math.Abs(dx)

	// "In front" is the open side of the basket, toward arena center.
	inFront := dx > 0
	if basket.X > 0 {
		inFront = dx < 0
	}

	quality := 0.45

	// Height: above the rim the arc drops in; below is playable but worse.
	if dy > 0 {
		quality += math.Min(dy/250, 1) * 0.4
	} else {
		quality -= math.Min(-dy/800, 1) * 0.15
	}

	// Horizontal angle.
	if inFront {
		switch {
		case horiz < 100:
			quality += horiz / 100 * 0.1 // too close to arc over the rim
		case horiz < 400:
			quality += 0.15
		case horiz < 600:
			quality += 0.15 - (horiz-400)/200*0.1
		default:
			quality += 0.05
		}
	} else {
		quality -= math.Min(horiz/150, 1) * 0.25
	}

	// Straight up from under the rim barely ever goes in.
	if dy < 0 && horiz < 60 {
		quality -= (1 - horiz/60) * 0.2
	}

	// Floor-level shots are empirically far worse than elevated ones; the
	// penalty pushes the AI toward platforms before shooting.
	floorThreshold := ArenaFloorY + 100
	if shooter.Y < floorThreshold {
		quality -= math.Min((floorThreshold-shooter.Y)/100, 1) * 0.15
	}

	return math.Max(0.1, math.Min(1, quality))
}

// ScaleMinQuality lowers a profile's shot-quality threshold on levels where
// the best achievable quality is itself low, so the AI still shoots on flat
// courts instead of wandering forever.
func ScaleMinQuality(profileMin, levelMax float64) float64 {
	scale := math.Min(levelMax/shotQualityReferenceMax, 1)
	return profileMin * scale
}

// QualityLabel buckets a quality value for event payloads and reports.
func QualityLabel(q float64) string {
	switch {
	case q >= ShotQualityExcellent:
		return "excellent"
	case q >= ShotQualityGood:
		return "good"
	case q >= ShotQualityAcceptable:
		return "acceptable"
	case q >= ShotQualityDesperate:
		return "desperate"
	default:
		return "terrible"
	}
}
