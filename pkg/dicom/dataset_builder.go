package dicom

import (
	"fmt"

	"github.com/jpfielding/encapdoc.go/pkg/dicom/module"
	"github.com/jpfielding/encapdoc.go/pkg/dicom/tag"
)

// Identification of this implementation in the file meta group
const (
	ImplementationClassUID    = "1.2.826.0.1.3680043.8.498.1"
	ImplementationVersionName = "GO_ENCAPDOC"
)

// Option configures a Dataset during construction
type Option func(*Dataset) error

// NewDataset creates a Dataset with the given options
func NewDataset(opts ...Option) (*Dataset, error) {
	ds := NewEmptyDataset()
	for _, opt := range opts {
		if err := opt(ds); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// WithElement adds a single element to the dataset, taking the VR from the dictionary
func WithElement(t tag.Tag, value interface{}) Option {
	return func(ds *Dataset) error {
		vr := tag.VROf(t)
		if vr == "UN" && !t.IsPrivate() {
			return fmt.Errorf("%w: %v", tag.ErrUnknown, t)
		}
		ds.Set(t, vr, value)
		return nil
	}
}

// WithElementVR adds a single element with an explicit VR
func WithElementVR(t tag.Tag, vr string, value interface{}) Option {
	return func(ds *Dataset) error {
		ds.Set(t, vr, value)
		return nil
	}
}

// WithSequence adds a sequence element to the dataset
func WithSequence(t tag.Tag, items ...*Dataset) Option {
	return func(ds *Dataset) error {
		if items == nil {
			items = []*Dataset{}
		}
		ds.Set(t, "SQ", items)
		return nil
	}
}

// WithFileMeta adds standard file meta information elements
func WithFileMeta(sopClassUID, sopInstanceUID, transferSyntax string) Option {
	return func(ds *Dataset) error {
		opts := []Option{
			WithElement(tag.FileMetaInformationVersion, []byte{0x00, 0x01}),
			WithElement(tag.MediaStorageSOPClassUID, sopClassUID),
			WithElement(tag.MediaStorageSOPInstanceUID, sopInstanceUID),
			WithElement(tag.TransferSyntaxUID, transferSyntax),
			WithElement(tag.ImplementationClassUID, ImplementationClassUID),
			WithElement(tag.ImplementationVersionName, ImplementationVersionName),
		}
		for _, opt := range opts {
			if err := opt(ds); err != nil {
				return err
			}
		}
		return nil
	}
}

// WithModule adds all elements from a module's ToTags() result. Nested
// module elements become single item sequences.
func WithModule(tags []module.IODElement) Option {
	return func(ds *Dataset) error {
		for _, el := range tags {
			if items, ok := el.Value.([][]module.IODElement); ok {
				seq := make([]*Dataset, 0, len(items))
				for _, item := range items {
					sub, err := NewDataset(WithModule(item))
					if err != nil {
						return err
					}
					seq = append(seq, sub)
				}
				if err := WithSequence(el.Tag, seq...)(ds); err != nil {
					return err
				}
				continue
			}
			if err := WithElement(el.Tag, el.Value)(ds); err != nil {
				return err
			}
		}
		return nil
	}
}
