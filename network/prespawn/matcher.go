package prespawn

import (
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/automoto/rollback-mp/logging"
)

var ErrHashCollision = eris.New("pre-spawn hash already registered")

type registration[K comparable] struct {
	entity K
	hash   Hash
	at     time.Time
	seq    uint64
	orphan bool
}

// Matcher pairs locally pre-spawned entities with server entities carrying
// the same hash. A local entity merges at most once; anything still unmatched
// after the window is handed back by Expire to be discarded.
type Matcher[K comparable] struct {
	window   time.Duration
	pending  map[Hash]*registration[K]
	entities map[K]*registration[K]
	merged   map[Hash]time.Time
	seq      uint64
	log      zerolog.Logger
}

// NewMatcher returns a matcher that keeps registrations for window.
func NewMatcher[K comparable](window time.Duration) *Matcher[K] {
	return &Matcher[K]{
		window:   window,
		pending:  make(map[Hash]*registration[K]),
		entities: make(map[K]*registration[K]),
		merged:   make(map[Hash]time.Time),
		log:      logging.For("prespawn"),
	}
}

// Register records a local pre-spawned entity under hash. If another local
// entity already holds the hash the first one keeps it: entity is tracked as
// an orphan that can never match and will expire with the window, and
// ErrHashCollision is returned.
func (m *Matcher[K]) Register(entity K, hash Hash, at time.Time) error {
	m.seq++
	r := &registration[K]{entity: entity, hash: hash, at: at, seq: m.seq}

	_, taken := m.pending[hash]
	_, done := m.merged[hash]
	if taken || done {
		r.orphan = true
		m.entities[entity] = r
		m.log.Warn().Uint64("hash", uint64(hash)).Msg("pre-spawn hash collision")
		return eris.Wrapf(ErrHashCollision, "hash %016x", uint64(hash))
	}

	m.pending[hash] = r
	m.entities[entity] = r
	return nil
}

// Match looks up the local entity registered under hash. On success the
// registration is consumed; a later Match with the same hash returns false.
// A registration whose window elapsed is left for Expire.
func (m *Matcher[K]) Match(hash Hash, at time.Time) (K, bool) {
	r, ok := m.pending[hash]
	if !ok || at.Sub(r.at) >= m.window {
		var zero K
		return zero, false
	}
	delete(m.pending, hash)
	delete(m.entities, r.entity)
	m.merged[hash] = at
	return r.entity, true
}

// Merged reports whether hash already merged with a local entity.
func (m *Matcher[K]) Merged(hash Hash) bool {
	_, ok := m.merged[hash]
	return ok
}

// Pending reports whether entity is waiting for its server counterpart.
func (m *Matcher[K]) Pending(entity K) bool {
	r, ok := m.entities[entity]
	return ok && !r.orphan
}

// Expire removes every registration older than the window and returns the
// entities, oldest first. Callers discard them as mispredictions.
func (m *Matcher[K]) Expire(now time.Time) []K {
	var expired []*registration[K]
	for _, r := range m.entities {
		if now.Sub(r.at) >= m.window {
			expired = append(expired, r)
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].seq < expired[j].seq })

	out := make([]K, 0, len(expired))
	for _, r := range expired {
		m.forget(r)
		out = append(out, r.entity)
	}

	for h, at := range m.merged {
		if now.Sub(at) >= m.window {
			delete(m.merged, h)
		}
	}
	return out
}

// Forget drops the registration of entity, e.g. when it was despawned.
func (m *Matcher[K]) Forget(entity K) {
	if r, ok := m.entities[entity]; ok {
		m.forget(r)
	}
}

func (m *Matcher[K]) forget(r *registration[K]) {
	delete(m.entities, r.entity)
	if !r.orphan && m.pending[r.hash] == r {
		delete(m.pending, r.hash)
	}
}

// Len returns the number of registered local entities, orphans included.
func (m *Matcher[K]) Len() int {
	return len(m.entities)
}
