package scenario

import (
	"context"
	"fmt"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"

	"github.com/lixenwraith/voxnav/core"
	"github.com/lixenwraith/voxnav/parameter"
)

// DestinationScript is a compiled tengo program choosing destinations
//
// Inputs: tick (int), width and height (grid bounds), agents (array of [x, y]).
// Output: a global `destinations` holding [x, y] pairs or {x: .., y: ..} maps.
// Stdlib modules are importable
type DestinationScript struct {
	compiled *tengo.Compiled
	name     string
}

// CompileDestinationScript compiles src; name is used in errors only
func CompileDestinationScript(name string, src []byte) (*DestinationScript, error) {
	script := tengo.NewScript(src)
	for _, v := range []string{"tick", "width", "height"} {
		if err := script.Add(v, 0); err != nil {
			return nil, fmt.Errorf("scenario: script %s: %w", name, err)
		}
	}
	if err := script.Add("agents", []any{}); err != nil {
		return nil, fmt.Errorf("scenario: script %s: %w", name, err)
	}
	script.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("scenario: compile script %s: %w", name, err)
	}
	return &DestinationScript{compiled: compiled, name: name}, nil
}

// Eval runs the script once and returns the chosen points
func (s *DestinationScript) Eval(ctx context.Context, tick uint64, width, height int, agents []core.Point) ([]core.Point, error) {
	agentList := make([]any, len(agents))
	for i, a := range agents {
		agentList[i] = []any{a.X, a.Y}
	}

	for name, v := range map[string]any{
		"tick":   int64(tick),
		"width":  width,
		"height": height,
		"agents": agentList,
	} {
		if err := s.compiled.Set(name, v); err != nil {
			return nil, fmt.Errorf("scenario: script %s: set %s: %w", s.name, name, err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, parameter.ScriptTimeout)
	defer cancel()
	if err := s.compiled.RunContext(ctx); err != nil {
		return nil, fmt.Errorf("scenario: run script %s: %w", s.name, err)
	}

	if !s.compiled.IsDefined("destinations") {
		return nil, fmt.Errorf("scenario: script %s: destinations not set", s.name)
	}
	raw := s.compiled.Get("destinations").Array()
	out := make([]core.Point, 0, len(raw))
	for i, item := range raw {
		p, ok := toPoint(item)
		if !ok {
			return nil, fmt.Errorf("scenario: script %s: destination %d: expected [x, y] or {x, y}, got %v", s.name, i, item)
		}
		out = append(out, p)
	}
	return out, nil
}

func toPoint(v any) (core.Point, bool) {
	switch val := v.(type) {
	case []any:
		if len(val) != 2 {
			return core.Point{}, false
		}
		x, okX := toInt(val[0])
		y, okY := toInt(val[1])
		return core.Point{X: x, Y: y}, okX && okY
	case map[string]any:
		x, okX := toInt(val["x"])
		y, okY := toInt(val["y"])
		return core.Point{X: x, Y: y}, okX && okY
	}
	return core.Point{}, false
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int64:
		return int(n), true
	case int:
		return n, true
	case float64:
		return int(n), true
	}
	return 0, false
}
