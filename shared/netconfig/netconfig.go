// Package netconfig defines lightweight types shared between client and server
// for network serialization. It must stay free of engine and transport
// dependencies so both binaries can import it.
package netconfig

// ActionID represents a logical player action.
type ActionID int

const (
	ActionUp ActionID = iota
	ActionDown
	ActionLeft
	ActionRight
	ActionShoot
	ActionCount // Must be last - used for sizing
)

var actionNames = [ActionCount]string{
	ActionUp:    "up",
	ActionDown:  "down",
	ActionLeft:  "left",
	ActionRight: "right",
	ActionShoot: "shoot",
}

func (a ActionID) String() string {
	if a < 0 || a >= ActionCount {
		return "unknown"
	}
	return actionNames[a]
}

// PredictionMode says how a replicated component is treated on the client.
type PredictionMode int

const (
	// ModeNone components are never copied to predicted or interpolated entities.
	ModeNone PredictionMode = iota
	// ModeFull components are predicted (rolled back and replayed) or
	// interpolated with a numeric lerp.
	ModeFull
	// ModeOnce components are copied when the counterpart is created and never
	// touched again. Used for identity and metadata.
	ModeOnce
)

func (m PredictionMode) String() string {
	switch m {
	case ModeFull:
		return "full"
	case ModeOnce:
		return "once"
	default:
		return "none"
	}
}

// MovementMode selects how the movement step applies input.
type MovementMode int

const (
	// MovementVelocity sets the body's velocity and lets integration move it.
	MovementVelocity MovementMode = iota
	// MovementPosition translates the body directly.
	MovementPosition
)

// ChannelMode is the delivery guarantee of a logical channel.
type ChannelMode int

const (
	UnorderedUnreliable ChannelMode = iota
	OrderedReliable
)

// Direction is which peers may send on a logical channel.
type Direction int

const (
	ServerToClient Direction = iota
	ClientToServer
	Bidirectional
)
