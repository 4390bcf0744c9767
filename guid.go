package adldap

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const guidLength = 16

// Active Directory stores objectGUID in mixed-endian order: the first
// three UUID fields are little-endian, the final eight bytes big-endian.
// swapGUIDEndianness converts between the wire form and RFC 4122 order;
// the transform is its own inverse.
func swapGUIDEndianness(in []byte) []byte {
	out := make([]byte, guidLength)
	out[0], out[1], out[2], out[3] = in[3], in[2], in[1], in[0]
	out[4], out[5] = in[5], in[4]
	out[6], out[7] = in[7], in[6]
	copy(out[8:], in[8:])
	return out
}

// GUIDFromBytes converts a raw 16-byte objectGUID value to its canonical
// hyphenated string form.
func GUIDFromBytes(raw []byte) (string, error) {
	if len(raw) != guidLength {
		return "", fmt.Errorf("%w: objectGUID is %d bytes, want %d", ErrFormat, len(raw), guidLength)
	}
	id, err := uuid.FromBytes(swapGUIDEndianness(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return id.String(), nil
}

// GUIDToFilter builds a search filter matching an object by GUID. The
// directory requires the filter value in binary wire form, with every
// byte hex-escaped.
func GUIDToFilter(guid string) (string, error) {
	id, err := uuid.Parse(guid)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFormat, err)
	}

	var b strings.Builder
	for _, v := range swapGUIDEndianness(id[:]) {
		fmt.Fprintf(&b, `\%02x`, v)
	}
	return fmt.Sprintf("(objectGUID=%s)", b.String()), nil
}
