package version

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/blang/semver/v4"
	"github.com/hbagdi/hitstub/pkg/log"
	"github.com/hbagdi/hitstub/pkg/util"
	"go.uber.org/zap"
)

var (
	Version    = "dev"
	CommitHash = "dev"
)

const (
	requestTimeout = 3 * time.Second
	cacheTTL       = 24 * time.Hour
)

// Endpoint answers with the latest released version as
// {"version": "x.y.z"}.
var Endpoint = "https://hitstub.yolo42.com/api/v1/latest-version"

func checkForUpdate(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, Endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("prepare HTTP request: %w", err)
	}
	req.Header.Add("user-agent", "hitstub/"+Version)
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("do http request: %w", err)
	}
	defer func() {
		err := res.Body.Close()
		if err != nil {
			log.Logger.Debug("version-check: failed to close response body", zap.Error(err))
		}
	}()
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %v", res.StatusCode)
	}
	js, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}
	return parseVersionFromResponseOrFile(js)
}

type data struct {
	Errored bool   `json:"errored"`
	Version string `json:"version"`
}

func parseVersionFromResponseOrFile(js []byte) (string, error) {
	var d data
	if err := json.Unmarshal(js, &d); err != nil {
		return "", err
	}
	if d.Errored {
		return "", fmt.Errorf("no version in cache")
	}
	if d.Version == "" {
		return "", fmt.Errorf("no version in response")
	}
	return d.Version, nil
}

var versionCacheFullPath string

func versionCacheFileName() (string, error) {
	if versionCacheFullPath != "" {
		return versionCacheFullPath, nil
	}
	const versionCacheFilename = "latest_version.json"
	if err := util.EnsureCacheDirs(); err != nil {
		return "", err
	}
	cacheDir, err := util.HitStubCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, versionCacheFilename), nil
}

var errCacheMiss = fmt.Errorf("cache miss")

func loadVersionFromCache(now time.Time) (string, error) {
	filename, err := versionCacheFileName()
	if err != nil {
		return "", err
	}
	js, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", errCacheMiss
		}
		return "", err
	}
	cacheInfo, err := os.Stat(filename)
	if err != nil {
		return "", err
	}
	if cacheInfo.ModTime().Before(now.Add(-cacheTTL)) {
		return "", errCacheMiss
	}
	return parseVersionFromResponseOrFile(js)
}

func refreshVersionCache(ctx context.Context) (string, error) {
	version, err := checkForUpdate(ctx)
	updateCacheErr := updateCache(version, err != nil)
	if updateCacheErr != nil {
		log.Logger.Debug("version-check: failed to update version cache",
			zap.Error(updateCacheErr))
	}
	return version, err
}

func updateCache(version string, errored bool) error {
	const fileMode = 0o0600
	js, err := json.Marshal(data{
		Version: version,
		Errored: errored,
	})
	if err != nil {
		return err
	}
	filename, err := versionCacheFileName()
	if err != nil {
		return err
	}
	err = os.WriteFile(filename, js, fileMode)
	if err != nil {
		return fmt.Errorf("update version cache: %w", err)
	}
	return nil
}

// LoadLatestVersion returns the latest released version, asking Endpoint at
// most once a day.
func LoadLatestVersion(ctx context.Context) (string, error) {
	version, err := loadVersionFromCache(time.Now())
	if err != nil {
		if errors.Is(err, errCacheMiss) {
			return refreshVersionCache(ctx)
		}
		return "", err
	}
	return version, nil
}

// IsNewer reports whether latest is a newer release than current. Builds
// that are not semantically versioned, such as dev, are never outdated.
func IsNewer(current, latest string) (bool, error) {
	cur, err := semver.ParseTolerant(current)
	if err != nil {
		return false, nil
	}
	l, err := semver.ParseTolerant(latest)
	if err != nil {
		return false, fmt.Errorf("parse latest version '%v': %v", latest, err)
	}
	return l.GT(cur), nil
}

// UpdateNotice returns a message when a newer release than Version is
// available, or an empty string.
func UpdateNotice(ctx context.Context) (string, error) {
	latest, err := LoadLatestVersion(ctx)
	if err != nil {
		return "", err
	}
	newer, err := IsNewer(Version, latest)
	if err != nil || !newer {
		return "", err
	}
	return fmt.Sprintf("hitstub %s is available, you are running %s", latest, Version), nil
}
