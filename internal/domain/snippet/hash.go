package snippet

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/penlabhq/penlab/internal/shared/types"
)

// Fingerprint computes a deterministic content hash for a bundle. Buffers
// are length-prefixed before hashing so shifting text between panes cannot
// collide.
func Fingerprint(bundle types.SourceBundle) string {
	var b strings.Builder
	for _, part := range []string{bundle.HTML, bundle.CSS, bundle.JavaScript} {
		b.WriteString(strconv.Itoa(len(part)))
		b.WriteByte('|')
		b.WriteString(part)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// ShortFingerprint returns the 8-character display form of a fingerprint.
func ShortFingerprint(full string) string {
	if len(full) < 8 {
		return full
	}
	return full[:8]
}
