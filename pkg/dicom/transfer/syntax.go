// Package transfer defines the DICOM Transfer Syntaxes the codec can encode
package transfer

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Syntax represents a DICOM Transfer Syntax
type Syntax string

// Uncompressed transfer syntaxes
const (
	ImplicitVRLittleEndian         Syntax = "1.2.840.10008.1.2"
	ExplicitVRLittleEndian         Syntax = "1.2.840.10008.1.2.1"
	DeflatedExplicitVRLittleEndian Syntax = "1.2.840.10008.1.2.1.99"
	ExplicitVRBigEndian            Syntax = "1.2.840.10008.1.2.2" // Retired
)

// IsExplicitVR returns true if this transfer syntax uses explicit VR
func (s Syntax) IsExplicitVR() bool {
	return s != ImplicitVRLittleEndian
}

// IsLittleEndian returns true if this transfer syntax uses little endian byte order
func (s Syntax) IsLittleEndian() bool {
	return s != ExplicitVRBigEndian
}

// IsDeflated returns true if the dataset following the file meta is deflated
func (s Syntax) IsDeflated() bool {
	return s == DeflatedExplicitVRLittleEndian
}

// ByteOrder returns the byte order for the dataset body
func (s Syntax) ByteOrder() binary.ByteOrder {
	if s.IsLittleEndian() {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// Supported reports whether the codec can read and write this syntax
func (s Syntax) Supported() bool {
	switch s {
	case ImplicitVRLittleEndian, ExplicitVRLittleEndian, DeflatedExplicitVRLittleEndian, ExplicitVRBigEndian:
		return true
	}
	return false
}

// Name returns a human-readable name for the transfer syntax
func (s Syntax) Name() string {
	switch s {
	case ImplicitVRLittleEndian:
		return "Implicit VR Little Endian"
	case ExplicitVRLittleEndian:
		return "Explicit VR Little Endian"
	case DeflatedExplicitVRLittleEndian:
		return "Deflated Explicit VR Little Endian"
	case ExplicitVRBigEndian:
		return "Explicit VR Big Endian (Retired)"
	default:
		return string(s)
	}
}

// FromUID converts a UID string to a Syntax
func FromUID(uid string) Syntax {
	return Syntax(strings.TrimRight(uid, "\x00 "))
}

// FromName maps the option names used on the command line and in config
// files to a Syntax.
func FromName(name string) (Syntax, error) {
	switch strings.ToLower(name) {
	case "", "explicit-le", "little", "explicit":
		return ExplicitVRLittleEndian, nil
	case "implicit-le", "implicit":
		return ImplicitVRLittleEndian, nil
	case "explicit-be", "big":
		return ExplicitVRBigEndian, nil
	case "deflated", "deflate":
		return DeflatedExplicitVRLittleEndian, nil
	}
	return "", fmt.Errorf("unknown transfer syntax %q", name)
}
