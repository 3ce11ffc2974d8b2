// Package dbinit prepares the postgres database behind the postgres session driver.
package dbinit

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

//go:embed migrations
var migrationsFS embed.FS

// lockKey serialises concurrent migrators ('acco').
const lockKey = int64(0x6163636f)

// EnsureDatabaseAndMigrate creates targetDB through adminConn when it is missing, then
// applies the embedded migrations to it. adminConn points at a maintenance database
// (usually "postgres") whose role may CREATE DATABASE.
func EnsureDatabaseAndMigrate(ctx context.Context, adminConn, targetDB, owner string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	if err := ensureDatabase(ctx, adminConn, targetDB, owner); err != nil {
		return err
	}
	targetConn, err := replaceDBName(adminConn, targetDB)
	if err != nil {
		return err
	}
	conn, err := pgx.Connect(ctx, targetConn)
	if err != nil {
		return fmt.Errorf("target connect: %w", err)
	}
	defer conn.Close(ctx)
	return Migrate(ctx, conn)
}

func ensureDatabase(ctx context.Context, adminConn, targetDB, owner string) error {
	admin, err := pgx.Connect(ctx, adminConn)
	if err != nil {
		return fmt.Errorf("admin connect: %w", err)
	}
	defer admin.Close(ctx)

	var exists bool
	if err := admin.QueryRow(ctx,
		`select exists (select 1 from pg_database where datname = $1)`, targetDB,
	).Scan(&exists); err != nil {
		return fmt.Errorf("check database existence: %w", err)
	}
	if exists {
		return nil
	}
	stmt := `create database ` + pgx.Identifier{targetDB}.Sanitize()
	if owner != "" {
		stmt += ` with owner ` + pgx.Identifier{owner}.Sanitize()
	}
	if _, err := admin.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("create database %q: %w", targetDB, err)
	}
	slog.Info("db.created", "database", targetDB)
	return nil
}

// Migrate applies every embedded migration not yet recorded in schema_migrations,
// each in its own transaction, holding an advisory lock throughout.
func Migrate(ctx context.Context, conn *pgx.Conn) error {
	if _, err := conn.Exec(ctx, `select pg_advisory_lock($1)`, lockKey); err != nil {
		return fmt.Errorf("advisory lock: %w", err)
	}
	defer conn.Exec(context.Background(), `select pg_advisory_unlock($1)`, lockKey)

	if _, err := conn.Exec(ctx, `
		create table if not exists schema_migrations (
			filename text primary key,
			applied_at timestamptz not null default now()
		)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	files, err := migrationFiles(migrationsFS)
	if err != nil {
		return err
	}
	for _, f := range files {
		var done bool
		if err := conn.QueryRow(ctx, `select exists (select 1 from schema_migrations where filename=$1)`, f).Scan(&done); err != nil {
			return fmt.Errorf("check applied %s: %w", f, err)
		}
		if done {
			continue
		}
		if err := apply(ctx, conn, f); err != nil {
			return err
		}
		slog.Info("db.migrated", "file", f)
	}
	return nil
}

func apply(ctx context.Context, conn *pgx.Conn, f string) error {
	sqlBytes, err := migrationsFS.ReadFile("migrations/" + f)
	if err != nil {
		return fmt.Errorf("read migration %s: %w", f, err)
	}
	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", f, err)
	}
	defer tx.Rollback(ctx)
	if _, err := tx.Exec(ctx, string(sqlBytes)); err != nil {
		return fmt.Errorf("exec migration %s: %w", f, err)
	}
	if _, err := tx.Exec(ctx, `insert into schema_migrations (filename) values ($1)`, f); err != nil {
		return fmt.Errorf("record migration %s: %w", f, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit migration %s: %w", f, err)
	}
	return nil
}

// migrationFiles lists the .sql files under migrations/ in filename order.
func migrationFiles(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, "migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// Execer is the subset of a pool or connection used by maintenance jobs.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PurgeStaleStorage deletes console storage rows not written for longer than olderThan
// and reports how many went.
func PurgeStaleStorage(ctx context.Context, db Execer, olderThan time.Duration) (int64, error) {
	tag, err := db.Exec(ctx,
		`delete from console_storage where updated_at < now() - make_interval(secs => $1)`,
		olderThan.Seconds())
	if err != nil {
		return 0, fmt.Errorf("purge console_storage: %w", err)
	}
	return tag.RowsAffected(), nil
}

// replaceDBName replaces the database name segment of a PostgreSQL URL.
// It assumes a URL of the form postgres://.../<dbname>?...
func replaceDBName(conn, db string) (string, error) {
	i := strings.LastIndex(conn, "/")
	if i < 0 {
		return "", errors.New("unexpected conn string format; expected '/' before db name")
	}
	j := strings.Index(conn[i+1:], "?")
	if j == -1 {
		return conn[:i+1] + db, nil
	}
	return conn[:i+1] + db + conn[i+1+j:], nil
}
