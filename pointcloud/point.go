package pointcloud

import (
	"image/color"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// NewVector convenience method for creating a vector.
func NewVector(x, y, z float64) r3.Vector {
	return r3.Vector{X: x, Y: y, Z: z}
}

// Data describes the descriptor attached to a single kernel of a Model.
type Data interface {
	// HasColor returns whether or not this point is colored.
	HasColor() bool

	// RGB255 returns, if colored, the RGB components of the color. There
	// is no alpha channel right now and as such the data can be assumed to be
	// premultiplied.
	RGB255() (uint8, uint8, uint8)

	// Color returns the native color of the point.
	Color() color.Color

	// SetColor sets the given color on the point.
	SetColor(c color.NRGBA) Data

	// MarshalBinary stores the color, if any, as four bytes.
	MarshalBinary() ([]byte, error)

	// UnmarshalBinary restores data stored by MarshalBinary.
	UnmarshalBinary(data []byte) error
}

type basicData struct {
	hasColor bool
	c        color.NRGBA
}

// NewBasicData returns a point that is solely positionally based.
func NewBasicData() Data {
	return &basicData{}
}

// NewColoredData returns a point that has both position and color.
func NewColoredData(c color.NRGBA) Data {
	return &basicData{c: c, hasColor: true}
}

func (bp *basicData) SetColor(c color.NRGBA) Data {
	bp.c = c
	bp.hasColor = true
	return bp
}

func (bp *basicData) HasColor() bool {
	return bp.hasColor
}

func (bp *basicData) RGB255() (uint8, uint8, uint8) {
	return bp.c.R, bp.c.G, bp.c.B
}

func (bp *basicData) Color() color.Color {
	return &bp.c
}

// MarshalBinary checks for the presence of color data. If present, it will store said data in an order byte
// array.
func (bp *basicData) MarshalBinary() ([]byte, error) {
	if !bp.HasColor() {
		return nil, nil
	}
	return []byte{bp.c.R, bp.c.G, bp.c.B, bp.c.A}, nil
}

// UnmarshalBinary takes in a bytes array and checking the length and setting the color appropriately.
func (bp *basicData) UnmarshalBinary(dataBytes []byte) error {
	switch len(dataBytes) {
	case 4:
		bp.SetColor(color.NRGBA{R: dataBytes[0], G: dataBytes[1], B: dataBytes[2], A: dataBytes[3]})
	case 0:
	default:
		// Invalid data packet size
		return errors.Errorf("error unmarshaling data invalid packet size (%d)", len(dataBytes))
	}
	return nil
}

// colorToPCDInt packs a color as 0x00RRGGBB. Points without color are white.
func colorToPCDInt(d Data) uint32 {
	if d == nil || !d.HasColor() {
		return 0xFFFFFF
	}
	r, g, b := d.RGB255()
	return uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}

func pcdIntToColor(c uint32) color.NRGBA {
	r := uint8(0xFF & (c >> 16))
	g := uint8(0xFF & (c >> 8))
	b := uint8(0xFF & (c >> 0))
	return color.NRGBA{r, g, b, 255}
}
