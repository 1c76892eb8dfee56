package sim

import "github.com/yohamta/donburi"

// ObserverFunc runs right after a component was added to entry.
type ObserverFunc func(entry *donburi.Entry)

// Observers dispatches component-add notifications. Handlers are keyed by
// component type and run synchronously in registration order.
type Observers struct {
	handlers map[donburi.IComponentType][]ObserverFunc
}

func NewObservers() *Observers {
	return &Observers{handlers: make(map[donburi.IComponentType][]ObserverFunc)}
}

// On registers fn for additions of ctype.
func (o *Observers) On(ctype donburi.IComponentType, fn ObserverFunc) {
	o.handlers[ctype] = append(o.handlers[ctype], fn)
}

// Add attaches ctype to entry if missing and notifies the observers. The
// observers also run when the component was already present, since callers
// use Add to announce that a value was (re)initialised.
func (o *Observers) Add(entry *donburi.Entry, ctype donburi.IComponentType) {
	if !entry.HasComponent(ctype) {
		entry.AddComponent(ctype)
	}
	o.Notify(entry, ctype)
}

// Notify runs the observers of ctype for entry.
func (o *Observers) Notify(entry *donburi.Entry, ctype donburi.IComponentType) {
	for _, fn := range o.handlers[ctype] {
		if !entry.Valid() {
			return
		}
		fn(entry)
	}
}
