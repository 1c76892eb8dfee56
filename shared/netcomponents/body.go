package netcomponents

import "github.com/yohamta/donburi"

// BodyKind is the rigid-body type of an entity.
type BodyKind int

const (
	BodyStatic BodyKind = iota
	BodyKinematic
	BodyDynamic
)

func (k BodyKind) String() string {
	switch k {
	case BodyKinematic:
		return "kinematic"
	case BodyDynamic:
		return "dynamic"
	default:
		return "static"
	}
}

// NetBodyData describes the collider of an entity: an axis-aligned box
// centered on the entity's position.
type NetBodyData struct {
	Kind          BodyKind
	Width, Height float64
	Controller    bool // receives kinematic controller collision response
}

var NetBody = donburi.NewComponentType[NetBodyData]()
