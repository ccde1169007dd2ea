package ledger

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
)

// Checksum returns the hex xxhash digest of data.
func Checksum(data []byte) string {
	digest := xxhash.New()
	digest.Write(data)
	return hex.EncodeToString(digest.Sum(nil))
}

// FileChecksum streams a file through xxhash.
func FileChecksum(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer file.Close()

	hasher := xxhash.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("failed to hash file %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// checksums maps every managed file to its checksum. Missing or unreadable
// files map to the empty string.
func (s *Store) checksums() map[string]string {
	sums := make(map[string]string, 4)
	for _, path := range s.allPaths() {
		sum, err := FileChecksum(path)
		if err != nil {
			sum = ""
		}
		sums[path] = sum
	}
	return sums
}
