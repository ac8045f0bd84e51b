package index

import (
	"crypto/sha256"
	"fmt"
)

// GenerateFileID produces a stable identifier for a document key.
func GenerateFileID(key string) string {
	sum := sha256.Sum256([]byte(key))
	return fmt.Sprintf("doc:%x", sum[:8])
}

// HashContent returns a hash used to skip re-parsing unchanged documents.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return fmt.Sprintf("%x", sum[:])
}

// symbolID is stable for a symbol within one version of a document.
func symbolID(fileID, name string, line int) string {
	return fmt.Sprintf("%s:%s:%d", fileID, name, line)
}
