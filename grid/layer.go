package grid

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Layer is an independent occupancy slot of a tile
type Layer uint8

const (
	LayerGround Layer = iota
	LayerAir
	LayerSecondary
	LayerCount
)

var layerNames = [LayerCount]string{"ground", "air", "secondary"}

func (l Layer) String() string {
	if l >= LayerCount {
		return fmt.Sprintf("layer(%d)", uint8(l))
	}
	return layerNames[l]
}

// ParseLayer resolves a layer name, case-insensitive; empty means ground
func ParseLayer(s string) (Layer, error) {
	if s == "" {
		return LayerGround, nil
	}
	for i, name := range layerNames {
		if strings.EqualFold(s, name) {
			return Layer(i), nil
		}
	}
	return LayerGround, fmt.Errorf("grid: unknown layer %q", s)
}

// EntityID identifies an occupant; the zero value means "no occupant"
type EntityID uuid.UUID

// NoEntity is the empty occupant
var NoEntity EntityID

// NewEntityID returns a fresh random identifier
func NewEntityID() EntityID {
	return EntityID(uuid.New())
}

// IsNone reports whether e is the empty occupant
func (e EntityID) IsNone() bool {
	return e == NoEntity
}

func (e EntityID) String() string {
	return uuid.UUID(e).String()
}

// Short returns the first 8 hex digits, for logs and overlays
func (e EntityID) Short() string {
	return e.String()[:8]
}
