package scenario

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/voxnav/core"
	"github.com/lixenwraith/voxnav/grid"
	"github.com/lixenwraith/voxnav/movement"
	"github.com/lixenwraith/voxnav/navigation"
	"github.com/lixenwraith/voxnav/status"
)

const small = `
name: small
heightmap: |
  000
  010
  000
tiles:
  - {x: 1, y: 1, z: 4}
obstacles:
  - {x: 2, y: 0, layer: air}
destinations:
  - {x: 2, y: 2}
  - {x: 1, y: 1, z: 1}
agents:
  - name: runner
    start: {x: 0, y: 0}
    goal: {x: 2, y: 2}
    commit: jump
    speed: 6
    climb_height: 2
  - start: {x: 0, y: 2}
    driver: field
    layer: air
    avoid_backtrack: true
navigation:
  rate: 500
  min_refresh_ms: 0
  climb_height: 2
  connectivity: 8
`

func TestParseAndBuild(t *testing.T) {
	sc, err := Parse([]byte(small))
	require.NoError(t, err)
	assert.Equal(t, "small", sc.Name)

	reg := status.NewRegistry()
	w, err := sc.Build(reg)
	require.NoError(t, err)

	assert.Equal(t, 10, w.Grid.Len(), "9 heightmap tiles plus one bridge")
	assert.True(t, w.Grid.IsOccupied(w.Grid.Top(2, 0), grid.LayerAir))
	assert.False(t, w.Grid.IsOccupied(w.Grid.Top(2, 0), grid.LayerGround))
	require.Len(t, w.Obstacles, 1)

	require.Len(t, w.Destinations, 2)
	assert.Equal(t, core.Coord{X: 2, Y: 2}, w.Destinations[0].Coord)
	assert.Equal(t, core.Coord{X: 1, Y: 1, Z: 1}, w.Destinations[1].Coord, "explicit z picks the lower tile")

	assert.Equal(t, 500, w.MapOptions.Rate)
	assert.Equal(t, time.Duration(0), w.MapOptions.MinRefresh)
	assert.Equal(t, 2, w.MapOptions.ClimbHeight)
	assert.Same(t, reg, w.MapOptions.Status)
	assert.Equal(t, navigation.Connect8, w.PathOptions.Connectivity)
	assert.True(t, w.Buffered)

	require.Len(t, w.Agents, 2)
	runner := w.Agents[0]
	assert.Equal(t, "runner", runner.Name)
	assert.Equal(t, DriverPath, runner.Driver)
	assert.Equal(t, w.Grid.Top(2, 2), runner.Goal)
	assert.Equal(t, movement.CommitJump, runner.Config.Commit)
	assert.Equal(t, float32(6), runner.Config.Speed)
	assert.Equal(t, 2, runner.Config.ClimbHeight)

	field := w.Agents[1]
	assert.Equal(t, "agent-1", field.Name)
	assert.Equal(t, DriverField, field.Driver)
	assert.Nil(t, field.Goal)
	assert.Equal(t, grid.LayerAir, field.Layer)
	assert.True(t, field.Config.AvoidBacktrack)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"bad yaml", "name: [unclosed"},
		{"no tiles", "name: empty"},
		{"bad connectivity", "heightmap: \"00\"\nnavigation: {connectivity: 6}"},
		{"bad layer", "heightmap: \"00\"\nnavigation: {layer: water}"},
		{"path without goal", "heightmap: \"00\"\nagents: [{start: {x: 0, y: 0}}]"},
		{"unknown driver", "heightmap: \"00\"\nagents: [{start: {x: 0, y: 0}, driver: warp}]"},
		{"bad obstacle layer", "heightmap: \"00\"\nobstacles: [{x: 0, y: 0, layer: lava}]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"bad heightmap rune", "heightmap: \"0!\""},
		{"destination off grid", "heightmap: \"00\"\ndestinations: [{x: 5, y: 5}]"},
		{"missing z", "heightmap: \"00\"\ndestinations: [{x: 0, y: 0, z: 3}]"},
		{"double obstacle", "heightmap: \"00\"\nobstacles: [{x: 0, y: 0}, {x: 0, y: 0}]"},
		{"bad commit", "heightmap: \"00\"\nagents: [{start: {x: 0, y: 0}, goal: {x: 1, y: 0}, commit: warp}]"},
		{"agent off grid", "heightmap: \"00\"\nagents: [{start: {x: 9, y: 0}, driver: field}]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, err := Parse([]byte(tt.doc))
			require.NoError(t, err)
			_, err = sc.Build(nil)
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "level.yaml")
	require.NoError(t, os.WriteFile(file, []byte(small+"script: dest.tengo\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dest.tengo"), []byte("destinations := [[0, 0]]\n"), 0o644))

	src, err := Load(file)
	require.NoError(t, err)
	assert.False(t, src.Embedded)
	assert.Equal(t, filepath.Join(dir, "dest.tengo"), src.ScriptPath)

	code, err := src.LoadScript()
	require.NoError(t, err)
	assert.Contains(t, string(code), "destinations")

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadBuiltIn(t *testing.T) {
	names := BuiltIn()
	require.Contains(t, names, "corridor.yaml")
	require.Contains(t, names, "open.yaml")

	for _, name := range names {
		src, err := Load(name)
		require.NoError(t, err, name)
		assert.True(t, src.Embedded)

		w, err := src.Build(nil)
		require.NoError(t, err, name)
		assert.NotEmpty(t, w.Agents, name)

		if src.ScriptPath != "" {
			code, err := src.LoadScript()
			require.NoError(t, err)
			_, err = CompileDestinationScript(src.ScriptPath, code)
			require.NoError(t, err)
		}
	}

	open, err := Load("open.yaml")
	require.NoError(t, err)
	w, err := open.Build(nil)
	require.NoError(t, err)
	assert.False(t, w.Buffered)
}

func TestWorldResolve(t *testing.T) {
	sc, err := Parse([]byte("heightmap: |\n  0#0\n"))
	require.NoError(t, err)
	w, err := sc.Build(nil)
	require.NoError(t, err)

	tiles := w.Resolve([]core.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}})
	require.Len(t, tiles, 2)
	assert.Equal(t, 2, tiles[1].X())
}
