package netcomponents

import "github.com/yohamta/donburi"

// NetPlayerData marks a player-controlled body and names the peer that owns it.
type NetPlayerData struct {
	PeerID uint64
}

var NetPlayer = donburi.NewComponentType[NetPlayerData]()

// NetNameData is a display name. Replicated once.
type NetNameData struct {
	Name string
}

var NetName = donburi.NewComponentType[NetNameData]()
