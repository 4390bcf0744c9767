package adldap

import (
	"fmt"

	"github.com/bwmarrin/go-objectsid"
)

// SIDFromBytes converts a raw binary objectSid value to its S-1-5-21-...
// string representation.
func SIDFromBytes(raw []byte) (string, error) {
	if len(raw) < 8 {
		return "", fmt.Errorf("%w: objectSid is %d bytes", ErrFormat, len(raw))
	}
	sid := objectsid.Decode(raw)
	return sid.String(), nil
}
