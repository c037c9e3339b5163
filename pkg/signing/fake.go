package signing

import (
	"bytes"
	"context"
	"io"
)

// FakeSigner is a test double that prefixes the artifact with a signature
// marker, or fails with a canned error.
type FakeSigner struct {
	Prefix string
	Err    error
	Calls  int
}

// NewFakeSigner creates a fake that signs by prefixing "signed:"
func NewFakeSigner() *FakeSigner {
	return &FakeSigner{Prefix: "signed:"}
}

// Sign returns the prefixed artifact or the configured error
func (f *FakeSigner) Sign(ctx context.Context, r io.Reader) (io.ReadCloser, int64, error) {
	f.Calls++
	if f.Err != nil {
		return nil, 0, f.Err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, err
	}

	signed := append([]byte(f.Prefix), data...)
	return io.NopCloser(bytes.NewReader(signed)), int64(len(signed)), nil
}
