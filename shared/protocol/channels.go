package protocol

import "github.com/automoto/rollback-mp/shared/netconfig"

// Channel describes one logical message stream. Every stream rides the same
// websocket connection, which is ordered and reliable, so the table records
// the guarantee each stream relies on rather than configuring the transport.
type Channel struct {
	Name      string
	Mode      netconfig.ChannelMode
	Direction netconfig.Direction
}

const (
	ChannelSnapshots = "snapshots"
	ChannelInputs    = "inputs"
	ChannelControl   = "control"
)

// Channels lists the logical channels of the protocol.
var Channels = []Channel{
	// World snapshots, sent every replication interval.
	{Name: ChannelSnapshots, Mode: netconfig.OrderedReliable, Direction: netconfig.ServerToClient},
	// Tick-tagged input messages carrying redundant history.
	{Name: ChannelInputs, Mode: netconfig.OrderedReliable, Direction: netconfig.ClientToServer},
	// Join requests.
	{Name: ChannelControl, Mode: netconfig.OrderedReliable, Direction: netconfig.ClientToServer},
}

// ChannelByName returns the channel with the given name.
func ChannelByName(name string) (Channel, bool) {
	for _, c := range Channels {
		if c.Name == name {
			return c, true
		}
	}
	return Channel{}, false
}
