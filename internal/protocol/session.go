package protocol

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// NewSessionID generates a 128-bit id, hex-encoded to 32 characters, using
// google/uuid as the entropy source (grounded on the teacher's session-id
// generation in internal/mcp/streamable_server.go, which also reaches for
// uuid for this purpose).
func NewSessionID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}
