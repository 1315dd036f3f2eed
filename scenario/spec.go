package scenario

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lixenwraith/voxnav/grid"
)

// Scenario is the on-disk description of a level's initial state
// Runtime state is never written back
type Scenario struct {
	Name        string  `yaml:"name"`
	Heightmap   string  `yaml:"heightmap"`
	CellSize    float32 `yaml:"cell_size"`
	LayerHeight float32 `yaml:"layer_height"`

	Tiles        []CoordSpec    `yaml:"tiles"` // extra tiles, e.g. bridges above the heightmap
	Obstacles    []ObstacleSpec `yaml:"obstacles"`
	Destinations []CoordSpec    `yaml:"destinations"`
	Agents       []AgentSpec    `yaml:"agents"`
	Navigation   NavigationSpec `yaml:"navigation"`
	Script       string         `yaml:"script"` // tengo destination script, relative to the scenario file
	Audio        AudioSpec      `yaml:"audio"`
}

// CoordSpec addresses a tile; a missing Z selects the top of the column
type CoordSpec struct {
	X int  `yaml:"x"`
	Y int  `yaml:"y"`
	Z *int `yaml:"z"`
}

// ObstacleSpec is a static occupant
type ObstacleSpec struct {
	CoordSpec `yaml:",inline"`
	Layer     string `yaml:"layer"`
}

// AgentSpec places a mover and picks its driver
type AgentSpec struct {
	Name            string     `yaml:"name"`
	Start           CoordSpec  `yaml:"start"`
	Driver          string     `yaml:"driver"` // "path" or "field"
	Goal            *CoordSpec `yaml:"goal"`   // path: required; field: optional explicit stop
	IncludeAdjacent bool       `yaml:"include_adjacent"`
	Layer           string     `yaml:"layer"`
	Speed           float32    `yaml:"speed"`
	ClimbHeight     *int       `yaml:"climb_height"`
	Commit          string     `yaml:"commit"` // "step" or "jump"
	SingleAxis      bool       `yaml:"single_axis"`
	AvoidBacktrack  bool       `yaml:"avoid_backtrack"`
}

// NavigationSpec configures the shared field and the pathfinder
type NavigationSpec struct {
	Rate         int    `yaml:"rate"`
	MinRefreshMs *int   `yaml:"min_refresh_ms"`
	ClimbHeight  *int   `yaml:"climb_height"`
	Layer        string `yaml:"layer"`
	Connectivity int    `yaml:"connectivity"` // 4 or 8
	Buffered     *bool  `yaml:"buffered"`
}

// AudioSpec toggles completion cues
type AudioSpec struct {
	Enabled bool    `yaml:"enabled"`
	Volume  float64 `yaml:"volume"`
}

// Driver kinds
const (
	DriverPath  = "path"
	DriverField = "field"
)

// Parse decodes and validates a scenario document
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("scenario: unmarshal: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks fields that do not need the grid
func (sc *Scenario) Validate() error {
	if strings.TrimSpace(sc.Heightmap) == "" && len(sc.Tiles) == 0 {
		return fmt.Errorf("scenario %q: no heightmap or tiles", sc.Name)
	}
	if c := sc.Navigation.Connectivity; c != 0 && c != 4 && c != 8 {
		return fmt.Errorf("scenario %q: connectivity must be 4 or 8, got %d", sc.Name, c)
	}
	if _, err := grid.ParseLayer(sc.Navigation.Layer); err != nil {
		return fmt.Errorf("scenario %q: navigation: %w", sc.Name, err)
	}
	for i, o := range sc.Obstacles {
		if _, err := grid.ParseLayer(o.Layer); err != nil {
			return fmt.Errorf("scenario %q: obstacle %d: %w", sc.Name, i, err)
		}
	}
	for i, a := range sc.Agents {
		name := a.Name
		if name == "" {
			name = fmt.Sprintf("#%d", i)
		}
		switch a.Driver {
		case "", DriverPath:
			if a.Goal == nil {
				return fmt.Errorf("scenario %q: agent %s: path driver needs a goal", sc.Name, name)
			}
		case DriverField:
		default:
			return fmt.Errorf("scenario %q: agent %s: unknown driver %q", sc.Name, name, a.Driver)
		}
		if _, err := grid.ParseLayer(a.Layer); err != nil {
			return fmt.Errorf("scenario %q: agent %s: %w", sc.Name, name, err)
		}
	}
	return nil
}
