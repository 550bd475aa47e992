package sep

import (
	"fmt"
	"strings"
)

// WhiteInkMode selects how a white-ink channel attenuates the colour inks
// printed over it.
type WhiteInkMode int

const (
	// WhiteInkNone leaves colour values untouched.
	WhiteInkNone WhiteInkMode = iota

	// WhiteInkSubtractive subtracts the white value, clamping at zero.
	WhiteInkSubtractive

	// WhiteInkMultiplicative removes the share white/255 of the colour value.
	WhiteInkMultiplicative
)

func (m WhiteInkMode) String() string {
	switch m {
	case WhiteInkNone:
		return "none"
	case WhiteInkSubtractive:
		return "subtractive"
	case WhiteInkMultiplicative:
		return "multiplicative"
	default:
		return fmt.Sprintf("WhiteInkMode(%d)", int(m))
	}
}

// ParseWhiteInkMode accepts the names produced by String, case-insensitively.
// The empty string means WhiteInkNone.
func ParseWhiteInkMode(s string) (WhiteInkMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return WhiteInkNone, nil
	case "subtractive":
		return WhiteInkSubtractive, nil
	case "multiplicative":
		return WhiteInkMultiplicative, nil
	default:
		return WhiteInkNone, fmt.Errorf("unknown white ink mode %q (want none, subtractive or multiplicative)", s)
	}
}

// ApplyWhiteInk blends one colour byte against the white-ink byte printed at
// the same position.
//
//	none:           color
//	subtractive:    color <= white ? 0 : color - white
//	multiplicative: white > 0 ? color - floor(color*white/255) : color
func ApplyWhiteInk(white, color uint8, mode WhiteInkMode) uint8 {
	switch mode {
	case WhiteInkSubtractive:
		if color <= white {
			return 0
		}
		return color - white
	case WhiteInkMultiplicative:
		if white == 0 {
			return color
		}
		return color - uint8(uint16(color)*uint16(white)/255)
	default:
		return color
	}
}

// WhiteInkChooser is asked how to interpret a descriptor's white channel.
// It is only consulted when the descriptor actually has a W entry.
type WhiteInkChooser interface {
	ChooseWhiteInk(descriptorPath string) (WhiteInkMode, error)
}

// FixedChoice answers every question with the same mode.
type FixedChoice WhiteInkMode

// ChooseWhiteInk returns the fixed mode.
func (f FixedChoice) ChooseWhiteInk(string) (WhiteInkMode, error) {
	return WhiteInkMode(f), nil
}
