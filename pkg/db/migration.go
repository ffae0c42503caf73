package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

func migrate(db *sql.DB) error {
	var name string
	err := db.QueryRow(`SELECT name FROM sqlite_master WHERE name='schema_migrations';`).
		Scan(&name)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if err := initSchemaMigration(db); err != nil {
			return err
		}
	case err != nil:
		return fmt.Errorf("look up schema_migrations: %v", err)
	}
	return doMigrate(db, migrations)
}

func initSchemaMigration(sql *sql.DB) error {
	_, err := sql.Exec("create table schema_migrations(" +
		"id varchar primary key, count int)")
	if err != nil {
		return fmt.Errorf("create schema_migrations table: %v", err)
	}
	_, err = sql.Exec(`insert into schema_migrations values('current_state',0);`)
	if err != nil {
		return fmt.Errorf("init schema_migrations: %v", err)
	}
	return nil
}

var migrations = []string{
	`create table if not exists hits(id integer primary key);`,
	`alter table hits add column stub_id text;`,
	`alter table hits add column created_at integer;`,
	`alter table hits add column http_response_proto text;`,
	`alter table hits add column http_response_code integer;`,
	`alter table hits add column http_response_status text;`,
	`alter table hits add column http_response_headers text;`,
	`alter table hits add column http_response_body blob;`,
	`alter table hits add column ttfb_ns integer;`,
	`alter table hits add column transfer_ns integer;`,
	`alter table hits add column chunks integer;`,
	`alter table hits add column elapsed_ns integer;`,
	`alter table hits add column error text;`,
	`create index if not exists hits_stub_id on hits(stub_id, id);`,
}

func doMigrate(db *sql.DB, migrations []string) error {
	currentState, err := currentState(db)
	if err != nil {
		return err
	}
	if len(migrations) == currentState {
		return nil
	}
	tx, err := db.BeginTx(context.Background(), nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %v", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	for i := currentState; i < len(migrations); i++ {
		_, err := tx.Exec(migrations[i])
		if err != nil {
			return fmt.Errorf("migration(%d): %v", i, err)
		}
	}
	err = updateCurrentState(tx, len(migrations))
	if err != nil {
		return err
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("commit transaction: %v", err)
	}
	return nil
}

func updateCurrentState(tx *sql.Tx, newState int) error {
	_, err := tx.Exec(`update schema_migrations set count=? where id='current_state';`, newState)
	if err != nil {
		return fmt.Errorf("update current state: %v", err)
	}
	return nil
}

func currentState(db *sql.DB) (int, error) {
	var currentState int
	err := db.QueryRow(`select count from schema_migrations where id='current_state';`).
		Scan(&currentState)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("no current_state in schema_migrations: possible" +
			" database corruption")
	}
	if err != nil {
		return 0, fmt.Errorf("read current state: %v", err)
	}
	return currentState, nil
}
