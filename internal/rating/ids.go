package rating

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// IDValidator reports whether an identifier is well formed.
type IDValidator func(id string) bool

// IsUUID accepts canonical UUID strings, the key type of the Postgres store.
func IsUUID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

// IsObjectIDHex accepts 24 hexadecimal characters, the shape of document-store ids.
func IsObjectIDHex(id string) bool {
	if len(id) != 24 {
		return false
	}
	_, err := hex.DecodeString(id)
	return err == nil
}

// NewUUID returns a random UUID string.
func NewUUID() string {
	return uuid.NewString()
}

// NewObjectIDHex returns 24 random hexadecimal characters, accepted by IsObjectIDHex.
func NewObjectIDHex() string {
	id := uuid.New()
	return hex.EncodeToString(id[:12])
}
