package primitives

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/comalice/avssm"
)

// TableVersion computes a deterministic fingerprint of t: the first eight
// bytes of SHA-256 over its JSON document.
func TableVersion(t avssm.Table) string {
	data, err := json.Marshal(DocumentTable(t))
	if err != nil {
		return "invalid"
	}
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash[:8])
}

// StreamTableVersion is TableVersion of the stream table, computed once.
var StreamTableVersion = sync.OnceValue(func() string {
	return TableVersion(avssm.StreamTable())
})
