package leveldata

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/lafriks/go-tiled"
	"github.com/rotisserie/eris"

	"github.com/automoto/rollback-mp/shared/gamemath"
)

// Object group names read from TMX files.
const (
	WallsGroup = "Walls"
	SpawnGroup = "PlayerSpawn"
)

// LoadArena parses a TMX file and returns its walls and spawn points. TMX
// coordinates have y pointing down with the origin at the map's top-left
// corner; they are converted to y-up coordinates centered on the map. It
// takes an fs.FS so callers can pass embed.FS or os.DirFS.
func LoadArena(fsys fs.FS, tmxPath string) (*Arena, error) {
	levelMap, err := tiled.LoadFile(tmxPath, tiled.WithFileSystem(fsys))
	if err != nil {
		return nil, eris.Wrapf(err, "load TMX %s", tmxPath)
	}

	mapW := float64(levelMap.Width * levelMap.TileWidth)
	mapH := float64(levelMap.Height * levelMap.TileHeight)
	toArena := func(x, y float64) gamemath.Vec2 {
		return gamemath.Vec2{X: x - mapW/2, Y: mapH/2 - y}
	}

	arena := &Arena{}
	for _, og := range levelMap.ObjectGroups {
		switch og.Name {
		case WallsGroup:
			for _, o := range og.Objects {
				if o.Width <= 0 || o.Height <= 0 {
					continue
				}
				arena.Walls = append(arena.Walls, Wall{
					Center: toArena(o.X+o.Width/2, o.Y+o.Height/2),
					Width:  o.Width,
					Height: o.Height,
				})
			}
		case SpawnGroup:
			for _, o := range og.Objects {
				arena.SpawnPoints = append(arena.SpawnPoints, toArena(o.X, o.Y))
			}
		}
	}

	if len(arena.Walls) == 0 {
		return nil, eris.Errorf("TMX %s has no %q object group", tmxPath, WallsGroup)
	}

	// Sort spawns left-to-right for consistent assignment
	sort.Slice(arena.SpawnPoints, func(i, j int) bool {
		return arena.SpawnPoints[i].X < arena.SpawnPoints[j].X
	})

	return arena, nil
}

// LoadFile loads the TMX file at path from the local disk. An empty path
// returns the default arena.
func LoadFile(path string) (*Arena, error) {
	if path == "" {
		return DefaultArena(), nil
	}
	return LoadArena(os.DirFS(filepath.Dir(path)), filepath.Base(path))
}
