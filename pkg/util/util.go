package util

import (
	"errors"
	"fmt"
	"os"
)

// EnsureCacheDirs ensures that the cache directories are correctly setup.
func EnsureCacheDirs() error {
	userCacheDir, err := GetUserCacheDir()
	if err != nil {
		return fmt.Errorf("failed to find cache directory: %v", err)
	}
	if err = ensureDir(userCacheDir, os.ModePerm); err != nil {
		return err
	}
	stubCacheDir, err := HitStubCacheDir()
	if err != nil {
		return err
	}
	return ensureDir(stubCacheDir, os.ModePerm)
}

func ensureDir(path string, perm os.FileMode) error {
	_, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err := os.Mkdir(path, perm)
			if err != nil {
				return err
			}
			return nil
		}
		return err
	}
	return nil
}
