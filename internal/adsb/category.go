package adsb

import (
	"strings"
)

// Category is an ADS-B emitter category, converted once from its two character code
type Category uint8

// Emitter categories. Codes are laid out as set letter (A-D) by number (0-7).
const (
	CategoryUnknown Category = iota
	CategoryNoInfo           // A0
	CategoryLight            // A1
	CategorySmall            // A2
	CategoryLarge            // A3
	CategoryHighVortex       // A4
	CategoryHeavy            // A5
	CategoryHighPerformance  // A6
	CategoryRotorcraft       // A7
	CategoryNoInfoB          // B0
	CategoryGlider           // B1
	CategoryLighterThanAir   // B2
	CategoryParachutist      // B3
	CategoryUltralight       // B4
	CategoryReservedB5       // B5
	CategoryUAV              // B6
	CategorySpace            // B7
	CategoryNoInfoC          // C0
	CategoryEmergencyVehicle // C1
	CategoryServiceVehicle   // C2
	CategoryPointObstacle    // C3
	CategoryClusterObstacle  // C4
	CategoryLineObstacle     // C5
	CategoryReservedC6       // C6
	CategoryReservedC7       // C7
)

const categoryMax = Category(4 * 8)

// ParseCategory converts a raw code such as "A3". Anything unrecognized is CategoryUnknown.
func ParseCategory(code string) Category {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 2 || code[0] < 'A' || code[0] > 'D' || code[1] < '0' || code[1] > '7' {
		return CategoryUnknown
	}
	return Category(int(code[0]-'A')*8 + int(code[1]-'0') + 1)
}

// Code returns the two character code, empty for CategoryUnknown
func (c Category) Code() string {
	if c == CategoryUnknown || c > categoryMax {
		return ""
	}
	n := int(c) - 1
	return string([]byte{byte('A' + n/8), byte('0' + n%8)})
}

func (c Category) String() string {
	if code := c.Code(); code != "" {
		return code
	}
	return "unknown"
}

// IsSurfaceVehicle reports the C1-C7 surface vehicle and obstacle codes
func (c Category) IsSurfaceVehicle() bool {
	return c >= CategoryEmergencyVehicle && c <= CategoryReservedC7
}

// MarshalText renders the code for JSON views
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.Code()), nil
}

// UnmarshalText accepts the codes MarshalText produces
func (c *Category) UnmarshalText(text []byte) error {
	*c = ParseCategory(string(text))
	return nil
}
