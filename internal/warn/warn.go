// Package warn defines the non-fatal conditions raised while loading colour
// registries, separation descriptors and channel files.
//
// None of these conditions stops a load. The component that raises one logs
// it, substitutes a safe default and hands the warning back so the caller can
// surface it to the user.
package warn

import (
	"fmt"
	"strings"
)

// Kind classifies a warning.
type Kind int

const (
	// ConfigWarning covers duplicate names or aliases, malformed registry
	// sources and missing registry files.
	ConfigWarning Kind = iota

	// DescriptorWarning covers bad width/height values and malformed or
	// unknown channel lines in a descriptor.
	DescriptorWarning

	// ChannelIOError covers channel files that cannot be opened or read.
	ChannelIOError
)

func (k Kind) String() string {
	switch k {
	case ConfigWarning:
		return "config"
	case DescriptorWarning:
		return "descriptor"
	case ChannelIOError:
		return "channel-io"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Warning is a single human-readable, non-fatal problem.
type Warning struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("WARNING (%s): %s", w.Kind, w.Message)
}

// MarshalText renders the kind by name in JSON output.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText accepts the names produced by String.
func (k *Kind) UnmarshalText(b []byte) error {
	for _, c := range []Kind{ConfigWarning, DescriptorWarning, ChannelIOError} {
		if c.String() == string(b) {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("unknown warning kind %q", b)
}

// List accumulates warnings in the order they were raised.
type List []Warning

// Addf appends a formatted warning of the given kind.
func (l *List) Addf(kind Kind, format string, args ...any) {
	*l = append(*l, Warning{Kind: kind, Message: fmt.Sprintf(format, args...)})
}

// Merge appends every warning of other.
func (l *List) Merge(other List) {
	*l = append(*l, other...)
}

// Has reports whether any warning of kind was recorded.
func (l List) Has(kind Kind) bool {
	for _, w := range l {
		if w.Kind == kind {
			return true
		}
	}
	return false
}

// String joins all warnings, one per line.
func (l List) String() string {
	var sb strings.Builder
	for _, w := range l {
		sb.WriteString(w.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
