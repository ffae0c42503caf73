package cache

import (
	"context"

	"github.com/hbagdi/hitstub/pkg/model"
)

// Cache records delivered hits and answers references into the body of
// the latest hit of a stub.
type Cache interface {
	// Get resolves a reference of the form "<stub-id>.<json-path>".
	Get(ctx context.Context, key string) (interface{}, error)
	Save(ctx context.Context, hit model.Hit) error
	Flush() error
}
