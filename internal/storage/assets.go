package storage

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// AssetKey returns a fresh object key for an upload of mediaType. Each call
// yields a distinct key, so concurrent uploads never share a staging file.
func AssetKey(mediaType string) string {
	return uuid.NewString() + mediaTypeToExt(mediaType)
}

// StagingPath is where an upload with the given key is written before
// being pushed to the object store.
func StagingPath(root, key string) string {
	return filepath.Join(root, filepath.Base(key))
}

func mediaTypeToExt(mediaType string) string {
	parts := strings.Split(mediaType, "/")
	if len(parts) != 2 || parts[1] == "" {
		return ".bin"
	}
	return "." + parts[1]
}

// EnsureDir creates the staging root if it does not exist yet.
func EnsureDir(root string) error {
	return os.MkdirAll(root, 0o755)
}
