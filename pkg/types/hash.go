package types

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// NormalizeContent canonicalizes chunk content before hashing: line endings
// become LF, trailing whitespace is trimmed from each line, interior
// whitespace is preserved.
func NormalizeContent(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}

// HashContent computes the canonical content hash: lower-case hex SHA-256
// over the UTF-8 bytes of the normalized content. This hash is the sole
// basis of change detection across runs.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(NormalizeContent(content)))
	return hex.EncodeToString(sum[:])
}
