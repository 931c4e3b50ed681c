// Package shadow verifies translated DDL against a throwaway database before
// it touches the real target.
package shadow

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"github.com/sqlshift/sqlshift/internal/debug"
	"github.com/sqlshift/sqlshift/migrate/introspect"
	"github.com/sqlshift/sqlshift/migrate/planner"
)

// DB manages a shadow database on the target server. The shadow database is
// created on demand, receives the plan's DDL, and is dropped afterwards, so a
// plan that fails to compile never reaches the real target.
type DB struct {
	provider      string
	targetConnStr string
	shadowConnStr string
	db            *sql.DB
	skip          bool
}

// New creates a shadow database manager. An empty shadowConnStr derives the
// shadow database name from the target connection string. skip disables
// shadow verification entirely.
func New(provider, targetConnStr, shadowConnStr string, skip bool) *DB {
	return &DB{
		provider:      provider,
		targetConnStr: targetConnStr,
		shadowConnStr: shadowConnStr,
		skip:          skip,
	}
}

// Verify creates the shadow database, applies every plan step, checks that
// each object exists afterwards, and drops the shadow database again. With
// skip set it is a no-op.
func (s *DB) Verify(ctx context.Context, plan *planner.Plan) error {
	if s.skip {
		return nil
	}

	if err := s.create(ctx); err != nil {
		return err
	}
	defer func() {
		if err := s.drop(ctx); err != nil {
			debug.Warn("dropping shadow database failed", "error", err)
		}
	}()

	for i, step := range plan.Steps {
		if _, err := s.db.ExecContext(ctx, step.SQL); err != nil {
			return fmt.Errorf("shadow verification failed at step %d (%s): %w", i+1, step.Name, err)
		}
	}

	return s.checkObjects(ctx, plan)
}

// checkObjects introspects the shadow database and confirms every plan step
// produced a view or table.
func (s *DB) checkObjects(ctx context.Context, plan *planner.Plan) error {
	introspector, err := introspect.NewIntrospector(s.db, s.provider)
	if err != nil {
		return err
	}
	schema, err := introspector.Introspect(ctx)
	if err != nil {
		return fmt.Errorf("introspect shadow database: %w", err)
	}

	present := map[string]bool{}
	for _, v := range schema.Views {
		present[strings.ToLower(v.Name)] = true
		present[strings.ToLower(v.QualifiedName())] = true
	}
	for _, t := range schema.Tables {
		present[strings.ToLower(t.Name)] = true
		present[strings.ToLower(t.QualifiedName())] = true
	}

	for _, step := range plan.Steps {
		if !present[strings.ToLower(step.Name)] {
			return fmt.Errorf("shadow verification: object %q missing after apply", step.Name)
		}
	}
	return nil
}

// create makes the shadow database and connects to it.
func (s *DB) create(ctx context.Context) error {
	if s.shadowConnStr == "" {
		s.shadowConnStr = deriveShadowConnStr(s.targetConnStr)
	}

	adminDB, err := sql.Open(driverName(s.provider), adminConnStr(s.provider, s.targetConnStr))
	if err != nil {
		return fmt.Errorf("connect for shadow creation: %w", err)
	}
	defer adminDB.Close()

	name := shadowDBName(s.shadowConnStr)
	createSQL := fmt.Sprintf("CREATE DATABASE %s", quoteIdentifier(s.provider, name))
	if _, err := adminDB.ExecContext(ctx, createSQL); err != nil {
		if !strings.Contains(err.Error(), "already exists") {
			return fmt.Errorf("create shadow database: %w", err)
		}
	}

	db, err := sql.Open(driverName(s.provider), s.shadowConnStr)
	if err != nil {
		return fmt.Errorf("connect to shadow database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("ping shadow database: %w", err)
	}

	s.db = db
	debug.Debug("created shadow database", "name", name)
	return nil
}

// drop disconnects and removes the shadow database.
func (s *DB) drop(ctx context.Context) error {
	if s.db != nil {
		s.db.Close()
		s.db = nil
	}

	adminDB, err := sql.Open(driverName(s.provider), adminConnStr(s.provider, s.targetConnStr))
	if err != nil {
		return fmt.Errorf("connect for shadow drop: %w", err)
	}
	defer adminDB.Close()

	name := shadowDBName(s.shadowConnStr)
	dropSQL := fmt.Sprintf("DROP DATABASE IF EXISTS %s", quoteIdentifier(s.provider, name))
	_, err = adminDB.ExecContext(ctx, dropSQL)
	return err
}

// deriveShadowConnStr appends _shadow to the database name segment of a
// connection string. Works for postgres URLs and mysql DSNs, both of which
// end in /dbname[?params].
func deriveShadowConnStr(connStr string) string {
	slash := strings.LastIndex(connStr, "/")
	if slash == -1 {
		return connStr + "_shadow"
	}
	dbPart := connStr[slash+1:]
	params := ""
	if idx := strings.Index(dbPart, "?"); idx != -1 {
		params = dbPart[idx:]
		dbPart = dbPart[:idx]
	}
	return connStr[:slash+1] + dbPart + "_shadow" + params
}

// adminConnStr swaps the database name for one that always exists, so the
// shadow database can be created and dropped from outside itself.
func adminConnStr(provider, connStr string) string {
	slash := strings.LastIndex(connStr, "/")
	if slash == -1 {
		return connStr
	}
	params := ""
	if idx := strings.Index(connStr[slash+1:], "?"); idx != -1 {
		params = connStr[slash+1+idx:]
	}
	switch provider {
	case "postgresql", "postgres":
		return connStr[:slash+1] + "postgres" + params
	default:
		return connStr[:slash+1] + params
	}
}

// shadowDBName extracts the database name from a connection string.
func shadowDBName(connStr string) string {
	slash := strings.LastIndex(connStr, "/")
	if slash == -1 {
		return "sqlshift_shadow"
	}
	name := connStr[slash+1:]
	if idx := strings.Index(name, "?"); idx != -1 {
		name = name[:idx]
	}
	if name == "" {
		return "sqlshift_shadow"
	}
	return name
}

func driverName(provider string) string {
	switch provider {
	case "postgresql", "postgres":
		return "postgres"
	case "mysql":
		return "mysql"
	default:
		return provider
	}
}

func quoteIdentifier(provider, name string) string {
	if provider == "mysql" {
		return "`" + name + "`"
	}
	return `"` + name + `"`
}
