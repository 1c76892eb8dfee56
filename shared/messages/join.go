package messages

// JoinRequest is sent by a client after connecting to request joining the game.
// PeerID is the client's persistent identity; the server copies it into the
// player entity so the client can recognise the entity it controls.
type JoinRequest struct {
	Version    string
	PeerID     uint64
	PlayerName string
}
