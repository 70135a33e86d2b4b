package store

import (
	"os"
	"path/filepath"
)

// CacheDirEnv is the environment variable that overrides the cache root,
// per spec.md §6.
const CacheDirEnv = "NIT_CACHE_DIR"

// DefaultRoot resolves the content store root: NIT_CACHE_DIR if set,
// otherwise a platform-appropriate user-cache directory, falling back to
// the home directory if even that is unavailable — the same fallback
// chain as the original implementation's engine::get_cache_dir.
func DefaultRoot() (string, error) {
	if dir := os.Getenv(CacheDirEnv); dir != "" {
		return dir, nil
	}
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "nit"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".nit", "cache"), nil
}
