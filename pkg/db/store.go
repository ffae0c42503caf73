package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hbagdi/hitstub/pkg/model"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("hit not found")

const hitColumns = `id, stub_id, created_at, http_response_proto, http_response_code,
	http_response_status, http_response_headers, http_response_body,
	ttfb_ns, transfer_ns, chunks, elapsed_ns, error`

func (s *Store) Save(ctx context.Context, hit model.Hit) error {
	headers, err := json.Marshal(hit.Response.Header)
	if err != nil {
		return fmt.Errorf("marshal response headers: %v", err)
	}
	_, err = s.db.ExecContext(ctx, `insert into hits(stub_id, created_at,
	http_response_proto, http_response_code, http_response_status,
	http_response_headers, http_response_body, ttfb_ns, transfer_ns, chunks,
	elapsed_ns, error) values(?,?,?,?,?,?,?,?,?,?,?,?);`,
		hit.StubID, hit.CreatedAt,
		hit.Response.Proto, hit.Response.Code, hit.Response.Status,
		string(headers), hit.Response.Body,
		int64(hit.Timing.TTFB), int64(hit.Timing.Transfer), hit.Timing.Chunks,
		int64(hit.Timing.Elapsed), hit.Error)
	if err != nil {
		return fmt.Errorf("insert hit: %v", err)
	}
	s.logger.Debug("saved hit", zap.String("stub", hit.StubID))
	return nil
}

type PageOpts struct {
	// Limit defaults to 100.
	Limit int
}

const defaultPageLimit = 100

// List returns hits, most recent first.
func (s *Store) List(ctx context.Context, opts PageOpts) ([]model.Hit, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`select `+hitColumns+` from hits order by id desc limit ?;`, limit)
	if err != nil {
		return nil, fmt.Errorf("list hits: %v", err)
	}
	defer rows.Close()
	var res []model.Hit
	for rows.Next() {
		hit, err := scanHit(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list hits: %v", err)
	}
	return res, nil
}

func (s *Store) LoadLatestHitForID(ctx context.Context, stubID string) (model.Hit, error) {
	row := s.db.QueryRowContext(ctx, `select `+hitColumns+
		` from hits where stub_id=? order by id desc limit 1;`, stubID)
	hit, err := scanHit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Hit{}, fmt.Errorf("stub '%v': %w", stubID, ErrNotFound)
	}
	return hit, err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanHit(row scanner) (model.Hit, error) {
	var (
		hit                         model.Hit
		headers                     string
		ttfb, transfer, elapsed     int64
		proto, status, errorMessage sql.NullString
		body                        []byte
	)
	err := row.Scan(&hit.ID, &hit.StubID, &hit.CreatedAt, &proto,
		&hit.Response.Code, &status, &headers, &body,
		&ttfb, &transfer, &hit.Timing.Chunks, &elapsed, &errorMessage)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Hit{}, err
		}
		return model.Hit{}, fmt.Errorf("scan hit: %v", err)
	}
	if err := json.Unmarshal([]byte(headers), &hit.Response.Header); err != nil {
		return model.Hit{}, fmt.Errorf("unmarshal response headers: %v", err)
	}
	hit.Response.Proto = proto.String
	hit.Response.Status = status.String
	hit.Response.Body = body
	hit.Timing.TTFB = time.Duration(ttfb)
	hit.Timing.Transfer = time.Duration(transfer)
	hit.Timing.Elapsed = time.Duration(elapsed)
	hit.Error = errorMessage.String
	return hit, nil
}
