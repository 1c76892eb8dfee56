package messages

import (
	"github.com/automoto/rollback-mp/shared/input"
	"github.com/automoto/rollback-mp/shared/tick"
)

// InputMessage is sent from client to server every tick. Snapshots holds the
// input for Tick plus the few ticks before it, oldest first, so one lost or
// late message does not leave a hole in the server's buffer.
type InputMessage struct {
	Tick      tick.Tick
	Snapshots []input.Snapshot
}

// NewInputMessage builds the message for the latest snapshot in history.
func NewInputMessage(history []input.Snapshot) InputMessage {
	msg := InputMessage{Snapshots: history}
	if n := len(history); n > 0 {
		msg.Tick = history[n-1].Tick
	}
	return msg
}
