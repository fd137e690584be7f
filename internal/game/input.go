package game

import "math"

// SourceKind tags where an InputFrame came from. The decision engine,
// planner, and physics never branch on it: Human, AI, and Ghost frames flow
// through the same consumption path.
type SourceKind int

const (
	SourceHuman SourceKind = iota
	SourceAI
	SourceGhost
)

func (s SourceKind) String() string {
	switch s {
	case SourceHuman:
		return "human"
	case SourceAI:
		return "ai"
	case SourceGhost:
		return "ghost"
	default:
		return "unknown"
	}
}

// InputFrame is one tick's worth of normalized intent for one side.
//
// The *_Pressed and ThrowReleased fields are latches: set by the producer on
// an edge, true for exactly one consumption, cleared by the consumer (never
// the producer). That contract is what lets a latch survive the boundary
// between the variable-rate capture phase and the fixed-rate physics phase
// without being dropped or double-fired. Held flags are plain current state.
type InputFrame struct {
	Source SourceKind
	Tick   int64

	MoveX float64 // deadzone-clamped, [-1, 1]

	JumpPressed   bool
	PickupPressed bool
	ThrowReleased bool
	SwapPressed   bool

	JumpHeld  bool
	ThrowHeld bool
}

// ConsumeLatches returns the latched flags and clears them in place. The
// fixed-rate consumer calls this exactly once per tick it acts on.
func (f *InputFrame) ConsumeLatches() (jump, pickup, throwReleased, swap bool) {
	jump, pickup, throwReleased, swap = f.JumpPressed, f.PickupPressed, f.ThrowReleased, f.SwapPressed
	f.JumpPressed = false
	f.PickupPressed = false
	f.ThrowReleased = false
	f.SwapPressed = false
	return
}

// DeviceState is the raw per-update control state supplied by the device
// collaborator. Booleans are level state, not edges; edge detection happens
// in the latch buffer.
type DeviceState struct {
	AxisX  float64
	Jump   bool
	Pickup bool
	Throw  bool
	Swap   bool
}

// LatchBuffer normalizes raw device state into InputFrames. Capture runs at
// the variable (per-rendered-frame) rate; latches accumulate until a fixed
// tick consumes them, however many captures or fixed ticks pass in between.
type LatchBuffer struct {
	prev  DeviceState
	frame InputFrame
}

// NewLatchBuffer creates a buffer producing frames tagged with the given
// source.
func NewLatchBuffer(source SourceKind) *LatchBuffer {
	return &LatchBuffer{frame: InputFrame{Source: source}}
}

// Capture folds one raw device update into the staged frame. Press edges OR
// into the latches; continuous state overwrites.
func (b *LatchBuffer) Capture(raw DeviceState) {
	if math.Abs(raw.AxisX) < StickDeadzone {
		b.frame.MoveX = 0
	} else {
		// Quantized to the precision the event log records, so a replayed
		// frame is bit-identical to the captured one.
		clamped := math.Max(-1, math.Min(1, raw.AxisX))
		b.frame.MoveX = math.Round(clamped*10000) / 10000
	}

	if raw.Jump && !b.prev.Jump {
		b.frame.JumpPressed = true
	}
	if raw.Pickup && !b.prev.Pickup {
		b.frame.PickupPressed = true
	}
	if raw.Swap && !b.prev.Swap {
		b.frame.SwapPressed = true
	}
	// Throw latches on release: the charge is held, the shot fires when the
	// button comes up.
	if !raw.Throw && b.prev.Throw {
		b.frame.ThrowReleased = true
	}

	b.frame.JumpHeld = raw.Jump
	b.frame.ThrowHeld = raw.Throw

	b.prev = raw
}

// Frame exposes the staged frame. The consumer clears latches through it.
func (b *LatchBuffer) Frame() *InputFrame { return &b.frame }

// InputSource produces one InputFrame per fixed tick. Human, AI, and Ghost
// implementations are interchangeable: the match loop consumes whatever
// frame comes back without knowing who made it.
type InputSource interface {
	NextFrame(tick int64, snap *WorldSnapshot) *InputFrame
}

// DeviceFunc supplies raw device state for a tick. The harness wires a
// polling function from the controller collaborator; tests wire scripts.
type DeviceFunc func(tick int64) DeviceState

// HumanSource adapts a device poll function through a latch buffer. In a
// live client Capture is driven by the render loop instead; NextFrame then
// just hands over the staged frame.
type HumanSource struct {
	buf  *LatchBuffer
	poll DeviceFunc
}

// NewHumanSource creates a human input source. poll may be nil when the
// caller drives Buffer().Capture itself.
func NewHumanSource(poll DeviceFunc) *HumanSource {
	return &HumanSource{buf: NewLatchBuffer(SourceHuman), poll: poll}
}

// Buffer exposes the latch buffer for variable-rate capture.
func (h *HumanSource) Buffer() *LatchBuffer { return h.buf }

func (h *HumanSource) NextFrame(tick int64, _ *WorldSnapshot) *InputFrame {
	if h.poll != nil {
		h.buf.Capture(h.poll(tick))
	}
	f := h.buf.Frame()
	f.Tick = tick
	return f
}
