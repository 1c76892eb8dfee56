package netcomponents

import "github.com/yohamta/donburi"

// NetBulletData marks a projectile and records who fired it.
type NetBulletData struct {
	ShooterPeerID uint64
}

var NetBullet = donburi.NewComponentType[NetBulletData]()
