package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// New builds a prefixed unique id, used for receipt numbers on sale headers.
func New(prefix string) string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixNano(), hex.EncodeToString(buf))
}
