package pos

import (
	"strings"

	"github.com/google/uuid"
)

// TemporaryPrefix marks ids generated on the device that the remote has not
// confirmed yet.
const TemporaryPrefix = "OFFLINE-"

func NewTemporaryID() string {
	return TemporaryPrefix + uuid.NewString()
}

func IsTemporaryID(id string) bool {
	return strings.HasPrefix(id, TemporaryPrefix)
}

func NewLocalID() string {
	return uuid.NewString()
}
