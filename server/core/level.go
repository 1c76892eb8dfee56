package core

import (
	"github.com/rotisserie/eris"

	"github.com/automoto/rollback-mp/logging"
	"github.com/automoto/rollback-mp/shared/leveldata"
)

// LoadLevel loads the arena at path, or the built-in arena when path is
// empty.
func LoadLevel(path string) (*leveldata.Arena, error) {
	level, err := leveldata.LoadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "load level")
	}
	min, max := level.Bounds()
	l := logging.For("server")
	l.Info().
		Str("path", path).
		Int("walls", len(level.Walls)).
		Int("spawns", len(level.SpawnPoints)).
		Float64("width", max.X-min.X).
		Float64("height", max.Y-min.Y).
		Msg("loaded level")
	return level, nil
}
