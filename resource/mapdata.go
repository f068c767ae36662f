package resource

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/lafriks/go-tiled"
	"gopkg.in/yaml.v3"
)

// DefaultTileSize is the world size of one tile when a map does not set it.
const DefaultTileSize = 8.0

// Tiled layer and object group names.
const (
	tmxWallLayer  = "walls"
	tmxActorGroup = "actors"
	tmxItemGroup  = "items"
)

const wallRune = '#'

// ActorPosition places one actor in a map.
type ActorPosition struct {
	X         float64 `yaml:"x"`
	Y         float64 `yaml:"y"`
	ActorType string  `yaml:"actor_type"`
}

// ItemPosition places one item in a map.
type ItemPosition struct {
	X        float64 `yaml:"x"`
	Y        float64 `yaml:"y"`
	ItemType string  `yaml:"item_type"`
}

// MapData is a decoded map file: the wall grid plus spawn lists.
type MapData struct {
	Width    int
	Height   int
	TileSize float64
	// Walls[y][x] is true for solid tiles.
	Walls  [][]bool
	Actors []ActorPosition
	Items  []ItemPosition
}

// Wall reports whether tile (x, y) is solid. Out-of-range tiles are solid.
func (md *MapData) Wall(x, y int) bool {
	if x < 0 || y < 0 || x >= md.Width || y >= md.Height {
		return true
	}
	return md.Walls[y][x]
}

type mapFile struct {
	Width    int             `yaml:"width"`
	Height   int             `yaml:"height"`
	TileSize float64         `yaml:"tile_size"`
	Tiles    []string        `yaml:"tiles"`
	Actors   []ActorPosition `yaml:"actors"`
	Items    []ItemPosition  `yaml:"items"`
}

// LoadMapFile loads a map from disk, choosing the format by extension.
func LoadMapFile(p string) (*MapData, error) {
	return LoadMap(os.DirFS(filepath.Dir(p)), filepath.Base(p))
}

// LoadMap loads a map from fsys. ".tmx" files are read as Tiled maps, anything
// else as YAML.
func LoadMap(fsys fs.FS, name string) (*MapData, error) {
	if strings.EqualFold(path.Ext(name), ".tmx") {
		return loadTMX(fsys, name)
	}
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("resource: read %s: %w", name, err)
	}
	md, err := ParseMap(data)
	if err != nil {
		return nil, fmt.Errorf("resource: load %s: %w", name, err)
	}
	return md, nil
}

// ParseMap decodes a YAML map. Width and height default to the tile rows'
// extent; cells missing from short rows are floor.
func ParseMap(data []byte) (*MapData, error) {
	var f mapFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("resource: parse map: %w", err)
	}

	w, h := f.Width, f.Height
	if h == 0 {
		h = len(f.Tiles)
	}
	if w == 0 {
		for _, row := range f.Tiles {
			w = max(w, len(row))
		}
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("resource: map: %w: width and height must be positive", ErrInvalidField)
	}
	if f.TileSize < 0 {
		return nil, fmt.Errorf("resource: map: %w: tile_size must not be negative", ErrInvalidField)
	}

	md := &MapData{
		Width:    w,
		Height:   h,
		TileSize: f.TileSize,
		Walls:    newGrid(w, h),
		Actors:   f.Actors,
		Items:    f.Items,
	}
	if md.TileSize == 0 {
		md.TileSize = DefaultTileSize
	}
	for y := 0; y < h && y < len(f.Tiles); y++ {
		row := f.Tiles[y]
		for x := 0; x < w && x < len(row); x++ {
			md.Walls[y][x] = row[x] == wallRune
		}
	}
	md.fillDefaults()
	return md, nil
}

func loadTMX(fsys fs.FS, name string) (*MapData, error) {
	tm, err := tiled.LoadFile(name, tiled.WithFileSystem(fsys))
	if err != nil {
		return nil, fmt.Errorf("resource: load TMX %s: %w", name, err)
	}
	if tm.TileWidth != tm.TileHeight {
		return nil, fmt.Errorf("resource: load TMX %s: %w: tiles must be square (%dx%d)",
			name, ErrInvalidField, tm.TileWidth, tm.TileHeight)
	}

	md := &MapData{
		Width:    tm.Width,
		Height:   tm.Height,
		TileSize: float64(tm.TileWidth),
		Walls:    newGrid(tm.Width, tm.Height),
	}
	if md.TileSize <= 0 {
		md.TileSize = DefaultTileSize
	}

	for _, layer := range tm.Layers {
		if layer.Name != tmxWallLayer {
			continue
		}
		for y := 0; y < tm.Height; y++ {
			for x := 0; x < tm.Width; x++ {
				i := y*tm.Width + x
				if i < len(layer.Tiles) && !layer.Tiles[i].IsNil() {
					md.Walls[y][x] = true
				}
			}
		}
		break
	}

	for _, og := range tm.ObjectGroups {
		switch og.Name {
		case tmxActorGroup:
			for _, o := range og.Objects {
				kind := o.Properties.GetString("actor_type")
				if kind == "" {
					kind = o.Name
				}
				md.Actors = append(md.Actors, ActorPosition{X: o.X, Y: o.Y, ActorType: kind})
			}
		case tmxItemGroup:
			for _, o := range og.Objects {
				kind := o.Properties.GetString("item_type")
				if kind == "" {
					kind = o.Name
				}
				md.Items = append(md.Items, ItemPosition{X: o.X, Y: o.Y, ItemType: kind})
			}
		}
	}
	md.fillDefaults()
	return md, nil
}

func (md *MapData) fillDefaults() {
	for i := range md.Items {
		if md.Items[i].ItemType == "" {
			md.Items[i].ItemType = DefaultItemType
		}
	}
}

func newGrid(w, h int) [][]bool {
	g := make([][]bool, h)
	for y := range g {
		g[y] = make([]bool, w)
	}
	return g
}
