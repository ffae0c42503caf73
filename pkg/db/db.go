package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hbagdi/hitstub/pkg/util"
	_ "github.com/mattn/go-sqlite3" // sqlite driver
	"go.uber.org/zap"
)

const (
	dbFilename = "hitstub-deliveries.db"
	// EnvPath overrides the location of the database file.
	EnvPath = "HITSTUB_DB"
)

type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %v", err)
	}
	return nil
}

type StoreOpts struct {
	Logger *zap.Logger
	// Path of the database file. Defaults to $HITSTUB_DB, then a file in
	// the user's cache directory.
	Path string
}

func defaultPath() (string, error) {
	if p := os.Getenv(EnvPath); p != "" {
		return p, nil
	}
	if err := util.EnsureCacheDirs(); err != nil {
		return "", err
	}
	cacheDir, err := util.HitStubCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to find cache dir: %v", err)
	}
	return filepath.Join(cacheDir, dbFilename), nil
}

func genDSN(fileName string) string {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=500", fileName)
	return dsn
}

func NewStore(opts StoreOpts) (*Store, error) {
	if opts.Logger == nil {
		return nil, fmt.Errorf("no logger")
	}
	path := opts.Path
	if path == "" {
		var err error
		path, err = defaultPath()
		if err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite3", genDSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open db file: %v", err)
	}
	err = migrate(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	opts.Logger.Debug("opened delivery store", zap.String("path", path))
	return &Store{
		db:     db,
		logger: opts.Logger,
	}, nil
}
