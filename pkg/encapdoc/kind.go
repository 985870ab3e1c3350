package encapdoc

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jpfielding/encapdoc.go/pkg/cda"
)

// DocumentKind is the format of the encapsulated document
type DocumentKind string

const (
	KindCDA DocumentKind = "cda"
	KindPDF DocumentKind = "pdf"
	KindSTL DocumentKind = "stl"
	KindOBJ DocumentKind = "obj"
	KindMTL DocumentKind = "mtl"
)

// DocumentKinds lists the supported kinds
var DocumentKinds = []DocumentKind{KindCDA, KindPDF, KindSTL, KindOBJ, KindMTL}

type kindInfo struct {
	sopClassUID string
	modality    string
	mimeType    string
	model3D     bool
	sniff       func([]byte) error
}

var kindTable = map[DocumentKind]kindInfo{
	KindCDA: {"1.2.840.10008.5.1.4.1.1.104.2", "DOC", "text/XML", false, sniffCDA},
	KindPDF: {"1.2.840.10008.5.1.4.1.1.104.1", "DOC", "application/pdf", false, sniffPDF},
	KindSTL: {"1.2.840.10008.5.1.4.1.1.104.3", "M3D", "model/stl", true, sniffSTL},
	KindOBJ: {"1.2.840.10008.5.1.4.1.1.104.4", "M3D", "model/obj", true, sniffText},
	KindMTL: {"1.2.840.10008.5.1.4.1.1.104.5", "M3D", "model/mtl", true, sniffText},
}

// ParseDocumentKind accepts the kind names case-insensitively
func ParseDocumentKind(s string) (DocumentKind, error) {
	k := DocumentKind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := kindTable[k]; !ok {
		return "", errors.WithHint(
			errors.Wrapf(ErrUsage, "unknown document kind %q", s),
			"use one of cda, pdf, stl, obj, mtl")
	}
	return k, nil
}

func (k DocumentKind) info() kindInfo {
	return kindTable[k]
}

// SOPClassUID of the encapsulated document IOD for this kind
func (k DocumentKind) SOPClassUID() string { return k.info().sopClassUID }

// Modality is DOC for documents and M3D for models
func (k DocumentKind) Modality() string { return k.info().modality }

// MIMEType written to (0042,0012)
func (k DocumentKind) MIMEType() string { return k.info().mimeType }

// Is3D reports whether the kind is a 3D model with a frame of reference
func (k DocumentKind) Is3D() bool { return k.info().model3D }

// Sniff checks the payload looks like the declared kind
func (k DocumentKind) Sniff(b []byte) error {
	info, ok := kindTable[k]
	if !ok {
		return fmt.Errorf("unknown document kind %q", k)
	}
	return info.sniff(b)
}

func sniffPDF(b []byte) error {
	if !bytes.HasPrefix(b, []byte("%PDF-")) {
		return errors.New("missing %PDF- header")
	}
	return nil
}

func sniffCDA(b []byte) error {
	if !bytes.Contains(b, []byte("<"+cda.RootElement)) && !bytes.Contains(b, []byte(":"+cda.RootElement)) {
		return errors.Newf("no %s element", cda.RootElement)
	}
	return nil
}

// sniffSTL accepts binary STL whose triangle count matches the length, or
// ASCII STL starting with "solid"
func sniffSTL(b []byte) error {
	if len(b) >= 84 {
		n := binary.LittleEndian.Uint32(b[80:84])
		if uint64(len(b)) == 84+50*uint64(n) {
			return nil
		}
	}
	if bytes.HasPrefix(bytes.TrimLeft(b, " \t\r\n"), []byte("solid")) {
		return nil
	}
	return errors.New("neither binary STL nor ASCII STL")
}

func sniffText(b []byte) error {
	if len(bytes.TrimSpace(b)) == 0 {
		return errors.New("empty model file")
	}
	return nil
}
