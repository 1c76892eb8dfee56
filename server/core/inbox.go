package core

import (
	"sync"

	"github.com/leap-fish/necs/router"

	"github.com/automoto/rollback-mp/shared/messages"
)

type commandKind int

const (
	cmdJoin commandKind = iota
	cmdInput
	cmdLeave
)

// command is one network event waiting for the simulation goroutine.
type command struct {
	kind   commandKind
	client *router.NetworkClient
	join   messages.JoinRequest
	input  messages.InputMessage
}

// inbox collects commands from the router goroutines. The game loop drains
// it at the start of every tick so the world is only touched from one
// goroutine.
type inbox struct {
	mu       sync.Mutex
	commands []command
}

func (b *inbox) push(c command) {
	b.mu.Lock()
	b.commands = append(b.commands, c)
	b.mu.Unlock()
}

// drain returns the queued commands in arrival order and empties the inbox.
func (b *inbox) drain() []command {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.commands
	b.commands = nil
	return out
}
