package client

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

// localIDPrefix distinguishes records created while disconnected. The prefix
// survives on the wire for UI compatibility; code should branch on the
// pending-record types, not on the string.
const localIDPrefix = "local-"

// NewLocalID returns an identifier for a record created while offline. ULIDs
// keep locally created records sortable by creation time.
func NewLocalID() string {
	return localIDPrefix + ulid.Make().String()
}

// IsLocalID reports whether id was generated locally and is awaiting sync.
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, localIDPrefix)
}
