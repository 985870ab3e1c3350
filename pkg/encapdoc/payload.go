package encapdoc

import (
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/jpfielding/encapdoc.go/pkg/dicom"
	"github.com/jpfielding/encapdoc.go/pkg/dicom/tag"
	"github.com/jpfielding/encapdoc.go/pkg/dicom/vr"
)

// MaxPayloadLength is the largest document that fits a single OB value: the
// largest even 32 bit length below the undefined length marker.
const MaxPayloadLength int64 = 0xFFFFFFFE

// SourceDocument is the document file to encapsulate
type SourceDocument struct {
	Path string
	Kind DocumentKind
}

// InsertPayload reads the whole document and stores it as
// EncapsulatedDocument, padded to even length, with its unpadded length in
// EncapsulatedDocumentLength. limit lowers MaxPayloadLength when positive.
func InsertPayload(ds *dicom.Dataset, src SourceDocument, limit int64) (int64, error) {
	ceiling := MaxPayloadLength
	if limit > 0 && limit < ceiling {
		ceiling = limit
	}

	f, err := os.Open(src.Path)
	if err != nil {
		return 0, mark(err, ErrIOFailure, "opening %s", src.Path)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return 0, mark(err, ErrIOFailure, "stat %s", src.Path)
	}
	if fi.IsDir() {
		return 0, errors.Wrapf(ErrIOFailure, "%s is a directory", src.Path)
	}
	if fi.Size() > ceiling {
		return 0, errors.Wrapf(ErrPayloadTooLarge, "%s is %d bytes, limit is %d", src.Path, fi.Size(), ceiling)
	}

	// one extra byte notices a file that grew past the ceiling after Stat
	data, err := io.ReadAll(io.LimitReader(f, ceiling+1))
	if err != nil {
		return 0, mark(err, ErrIOFailure, "reading %s", src.Path)
	}
	n := int64(len(data))
	if n > ceiling {
		return 0, errors.Wrapf(ErrPayloadTooLarge, "%s grew past the limit of %d bytes while reading", src.Path, ceiling)
	}
	if err := src.Kind.Sniff(data); err != nil {
		return 0, mark(err, ErrMalformedInput, "%s is not %s", src.Path, src.Kind)
	}

	if n%2 != 0 {
		data = append(data, 0x00)
	}
	ds.Set(tag.EncapsulatedDocument, string(vr.OB), data)
	ds.Set(tag.EncapsulatedDocumentLength, string(vr.UL), uint32(n))
	return n, nil
}
