package cache

import (
	"context"
	"fmt"
	"strings"

	"github.com/hbagdi/hitstub/pkg/db"
	"github.com/hbagdi/hitstub/pkg/model"
	"github.com/tidwall/gjson"
)

type DBCache struct {
	store *db.Store
}

var _ Cache = (*DBCache)(nil)

func GetDBCache(store *db.Store) *DBCache {
	c := &DBCache{
		store: store,
	}
	return c
}

// SplitKey splits a reference into the stub ID and the JSON path within
// its body.
func SplitKey(key string) (string, string, error) {
	const splitN = 2
	splits := strings.SplitN(strings.TrimPrefix(key, "@"), ".", splitN)
	if len(splits) != splitN || splits[0] == "" || splits[1] == "" {
		return "", "", fmt.Errorf("invalid reference: '@%s'", strings.TrimPrefix(key, "@"))
	}
	return splits[0], splits[1], nil
}

func (c *DBCache) Get(ctx context.Context, key string) (interface{}, error) {
	id, path, err := SplitKey(key)
	if err != nil {
		return nil, err
	}
	hit, err := c.store.LoadLatestHitForID(ctx, id)
	if err != nil {
		return nil, err
	}
	if hit.Failed() {
		return nil, fmt.Errorf("latest hit of '@%s' failed: %s", id, hit.Error)
	}
	js := gjson.ParseBytes(hit.Response.Body)
	res := js.Get(path)
	switch res.Type {
	case gjson.Null:
		return nil, fmt.Errorf("key not found: '%v'", key)
	case gjson.JSON:
		return nil, fmt.Errorf("found json, expected a string, "+
			"number or boolean for key '%v'", key)
	case gjson.Number:
		return res.Num, nil
	case gjson.False:
		return false, nil
	case gjson.True:
		return true, nil
	case gjson.String:
		return res.Str, nil
	default:
		panic(fmt.Sprintf("unexpected JSON data-type: %v", res.Type))
	}
}

func (c *DBCache) Save(ctx context.Context, hit model.Hit) error {
	return c.store.Save(ctx, hit)
}

func (c *DBCache) Flush() error {
	return nil
}
