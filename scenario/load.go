package scenario

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

//go:embed levels/*.yaml levels/*.tengo
var levelsFS embed.FS

// Source is a loaded scenario plus where it came from
type Source struct {
	*Scenario
	Path       string // disk path, or "levels/<name>" for built-ins
	Embedded   bool
	ScriptPath string // resolved script location, empty when none
}

// Load reads a scenario from disk, falling back to the built-in levels by name
func Load(name string) (*Source, error) {
	data, embedded, resolved, err := readFile(name)
	if err != nil {
		return nil, fmt.Errorf("scenario: load %s: %w", name, err)
	}

	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("scenario: load %s: %w", name, err)
	}

	src := &Source{Scenario: sc, Path: resolved, Embedded: embedded}
	if sc.Script != "" {
		if embedded {
			src.ScriptPath = path.Join(path.Dir(resolved), sc.Script)
		} else {
			src.ScriptPath = filepath.Join(filepath.Dir(resolved), sc.Script)
		}
	}
	return src, nil
}

// LoadScript reads the scenario's destination script source
func (s *Source) LoadScript() ([]byte, error) {
	if s.ScriptPath == "" {
		return nil, nil
	}
	var (
		data []byte
		err  error
	)
	if s.Embedded {
		data, err = levelsFS.ReadFile(s.ScriptPath)
	} else {
		data, err = os.ReadFile(s.ScriptPath)
	}
	if err != nil {
		return nil, fmt.Errorf("scenario: load script %s: %w", s.ScriptPath, err)
	}
	return data, nil
}

// BuiltIn lists the embedded level files
func BuiltIn() []string {
	entries, _ := fs.Glob(levelsFS, "levels/*.yaml")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, path.Base(e))
	}
	return names
}

func readFile(name string) (data []byte, embedded bool, resolved string, err error) {
	data, err = os.ReadFile(name)
	if err == nil {
		return data, false, name, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, false, name, err
	}

	clean := path.Join("levels", path.Base(filepath.ToSlash(name)))
	data, embErr := levelsFS.ReadFile(clean)
	if embErr != nil {
		return nil, false, name, err
	}
	return data, true, clean, nil
}
