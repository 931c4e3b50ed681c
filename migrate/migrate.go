// Package migrate drives the end to end migration of T-SQL objects to a
// target database: introspect the source, translate each object, order the
// results, verify them against a shadow database, and apply them.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"github.com/sqlshift/sqlshift/internal/debug"
	"github.com/sqlshift/sqlshift/migrate/executor"
	"github.com/sqlshift/sqlshift/migrate/history"
	"github.com/sqlshift/sqlshift/migrate/introspect"
	"github.com/sqlshift/sqlshift/migrate/planner"
	"github.com/sqlshift/sqlshift/migrate/shadow"
	"github.com/sqlshift/sqlshift/migrate/validate"
	"github.com/sqlshift/sqlshift/translate"
	"github.com/sqlshift/sqlshift/translate/rules"
	"github.com/sqlshift/sqlshift/tsql/ast"
)

// Config holds everything the engine needs to run a migration.
type Config struct {
	// SourceDSN is the SQL Server connection string.
	SourceDSN string
	// TargetDSN is the target database connection string.
	TargetDSN string
	// Target is the target dialect.
	Target translate.Dialect
	// Options control schema mapping during translation.
	Options translate.Options
	// Rules are optional user-defined rewrite rules.
	Rules *rules.Set
	// ShadowDSN overrides the derived shadow database connection string.
	ShadowDSN string
	// SkipShadow disables shadow verification before apply.
	SkipShadow bool
	// CachePath points at the local translation cache; empty disables it.
	CachePath string
	// RowCap bounds the default validation queries. Zero means unbounded.
	RowCap int
}

// Engine runs migrations from a SQL Server source to the target.
type Engine struct {
	cfg        Config
	translator *translate.Translator
	source     *sql.DB
	target     *sql.DB
	cache      *history.Cache
}

// TranslatedObject pairs a source view with its translation.
type TranslatedObject struct {
	// SourceName is the qualified name on the source.
	SourceName string
	// TargetName is the qualified name on the target after schema mapping.
	TargetName string
	// Result is the translation outcome.
	Result *translate.Result
	// SourceChecksum digests the source definition, for the history table.
	SourceChecksum string
	// DependsOn lists target names of other migrated objects this one reads.
	DependsOn []string
}

// NewEngine creates an engine. Connections are opened lazily by Connect.
func NewEngine(cfg Config) (*Engine, error) {
	translator, err := translate.New(cfg.Target, cfg.Options)
	if err != nil {
		return nil, err
	}
	if cfg.Rules != nil {
		translator.WithRules(cfg.Rules)
	}
	return &Engine{cfg: cfg, translator: translator}, nil
}

// Connect opens and pings the source and target databases.
func (e *Engine) Connect(ctx context.Context) error {
	source, err := sql.Open("sqlserver", e.cfg.SourceDSN)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	if err := source.PingContext(ctx); err != nil {
		source.Close()
		return fmt.Errorf("ping source: %w", err)
	}

	target, err := sql.Open(targetDriver(e.cfg.Target), e.cfg.TargetDSN)
	if err != nil {
		source.Close()
		return fmt.Errorf("open target: %w", err)
	}
	if err := target.PingContext(ctx); err != nil {
		source.Close()
		target.Close()
		return fmt.Errorf("ping target: %w", err)
	}

	e.source = source
	e.target = target

	if e.cfg.CachePath != "" {
		cache, err := history.OpenCache(e.cfg.CachePath)
		if err != nil {
			debug.Warn("translation cache unavailable", "error", err)
		} else {
			e.cache = cache
		}
	}
	return nil
}

// Close releases all connections.
func (e *Engine) Close() {
	if e.source != nil {
		e.source.Close()
	}
	if e.target != nil {
		e.target.Close()
	}
	if e.cache != nil {
		e.cache.Close()
	}
}

// Source returns the source connection.
func (e *Engine) Source() *sql.DB { return e.source }

// Target returns the target connection.
func (e *Engine) Target() *sql.DB { return e.target }

// TranslateViews introspects the source and translates every view. Objects
// whose translation fails are returned with their diagnostics; the caller
// decides whether to continue.
func (e *Engine) TranslateViews(ctx context.Context) ([]*TranslatedObject, error) {
	introspector := introspect.NewSQLServerIntrospector(e.source)
	schema, err := introspector.Introspect(ctx)
	if err != nil {
		return nil, err
	}

	targetNames := map[string]string{}
	for _, view := range schema.Views {
		targetNames[strings.ToLower(view.QualifiedName())] = e.targetName(view.Schema, view.Name)
		targetNames[strings.ToLower(view.Name)] = e.targetName(view.Schema, view.Name)
	}

	var objects []*TranslatedObject
	for _, view := range schema.Views {
		obj, err := e.translateView(ctx, view, targetNames)
		if err != nil {
			return nil, err
		}
		objects = append(objects, obj)
	}
	return objects, nil
}

func (e *Engine) translateView(ctx context.Context, view introspect.View, targetNames map[string]string) (*TranslatedObject, error) {
	sourceChecksum := history.Checksum(view.Definition)
	var cached *history.CachedTranslation
	if e.cache != nil {
		var err error
		cached, err = e.cache.Get(ctx, view.QualifiedName(), sourceChecksum)
		if err != nil {
			debug.Warn("cache lookup failed", "name", view.QualifiedName(), "error", err)
		}
	}

	// Diagnostics and dependency extraction need the syntax tree, so the
	// object is always re-translated; the cache only tells us whether the
	// source changed since the last run.
	result, _ := e.translator.Translate(view.QualifiedName(), view.Definition)
	if cached != nil && cached.TranslatedSQL != result.SQL {
		debug.Warn("translation differs from cached result",
			"name", view.QualifiedName(), "cached_at", cached.TranslatedAt)
	}

	obj := &TranslatedObject{
		SourceName:     view.QualifiedName(),
		TargetName:     e.targetName(view.Schema, view.Name),
		Result:         result,
		SourceChecksum: sourceChecksum,
		DependsOn:      e.dependencies(result, targetNames),
	}

	if e.cache != nil && result.Ok() {
		err := e.cache.Put(ctx, &history.CachedTranslation{
			Name:           view.QualifiedName(),
			SourceChecksum: sourceChecksum,
			TranslatedSQL:  result.SQL,
			Warnings:       len(result.Diagnostics.Warnings()),
		})
		if err != nil {
			debug.Warn("cache write failed", "name", view.QualifiedName(), "error", err)
		}
	}
	return obj, nil
}

// dependencies collects target names of migrated objects referenced by the
// translated statements.
func (e *Engine) dependencies(result *translate.Result, targetNames map[string]string) []string {
	seen := map[string]bool{}
	var deps []string
	for _, stmt := range result.Statements {
		for _, rel := range relationRefs(stmt) {
			if target, ok := targetNames[strings.ToLower(rel)]; ok && !seen[target] {
				seen[target] = true
				deps = append(deps, target)
			}
		}
	}
	return deps
}

// Plan translates all views and orders them into a migration plan.
func (e *Engine) Plan(ctx context.Context, name string) (*planner.Plan, []*TranslatedObject, error) {
	objects, err := e.TranslateViews(ctx)
	if err != nil {
		return nil, nil, err
	}

	var planObjects []planner.Object
	for _, obj := range objects {
		if !obj.Result.Ok() {
			continue
		}
		planObjects = append(planObjects, planner.Object{
			Name:      obj.TargetName,
			SQL:       obj.Result.SQL,
			Checksum:  obj.SourceChecksum,
			DependsOn: obj.DependsOn,
		})
	}

	plan, err := planner.New().Plan(name, planObjects)
	if err != nil {
		return nil, objects, err
	}
	return plan, objects, nil
}

// Apply verifies a plan against the shadow database and executes it on the
// target.
func (e *Engine) Apply(ctx context.Context, plan *planner.Plan) error {
	shadowDB := shadow.New(string(e.cfg.Target), e.cfg.TargetDSN, e.cfg.ShadowDSN, e.cfg.SkipShadow)
	if err := shadowDB.Verify(ctx, plan); err != nil {
		return err
	}
	return executor.New(e.target, string(e.cfg.Target)).Execute(ctx, plan)
}

// Status returns the applied migration records from the target.
func (e *Engine) Status(ctx context.Context) ([]history.Record, error) {
	manager := history.NewManager(e.target, string(e.cfg.Target))
	if err := manager.InitTable(ctx); err != nil {
		return nil, err
	}
	return manager.GetAll(ctx)
}

// Validate compares each object's rows between source and target, flagging
// matching objects as validated in the history table. The test query defaults
// to a full ordered scan; overrides map a source name to a custom T-SQL test
// query, which is translated for the target side.
func (e *Engine) Validate(ctx context.Context, objects []*TranslatedObject, overrides map[string]string) ([]*validate.Validation, error) {
	comparator := validate.NewComparator(e.source, e.target, validate.DefaultOptions())
	manager := history.NewManager(e.target, string(e.cfg.Target))
	if err := manager.InitTable(ctx); err != nil {
		return nil, err
	}

	var validations []*validate.Validation
	for _, obj := range objects {
		if !obj.Result.Ok() {
			continue
		}
		sourceQuery, targetQuery, err := e.testQueries(obj, overrides)
		if err != nil {
			return nil, err
		}
		v := comparator.Compare(ctx, obj.SourceName, sourceQuery, targetQuery)
		if v.Outcome == validate.OutcomeMatch {
			if err := manager.MarkValidated(ctx, obj.TargetName); err != nil {
				debug.Warn("failed to mark object validated", "name", obj.TargetName, "error", err)
			}
		}
		validations = append(validations, v)
	}
	return validations, nil
}

// testQueries builds the source and target test queries for one object.
func (e *Engine) testQueries(obj *TranslatedObject, overrides map[string]string) (string, string, error) {
	if override, ok := overrides[obj.SourceName]; ok {
		result, err := e.translator.Translate(obj.SourceName+":test", override)
		if err != nil {
			return "", "", fmt.Errorf("translate test query for %s: %w", obj.SourceName, err)
		}
		return override, strings.TrimSuffix(strings.TrimSpace(result.SQL), ";"), nil
	}

	// ORDER BY 1 keeps row order deterministic on both sides.
	sourceQuery := fmt.Sprintf("SELECT * FROM %s ORDER BY 1", bracketQualified(obj.SourceName))
	targetQuery := fmt.Sprintf("SELECT * FROM %s ORDER BY 1", obj.TargetName)
	if e.cfg.RowCap > 0 {
		sourceQuery = fmt.Sprintf("SELECT TOP %d * FROM %s ORDER BY 1", e.cfg.RowCap, bracketQualified(obj.SourceName))
		targetQuery = fmt.Sprintf("SELECT * FROM %s ORDER BY 1 LIMIT %d", obj.TargetName, e.cfg.RowCap)
	}
	return sourceQuery, targetQuery, nil
}

// targetName maps a source schema and object name to the target's qualified
// name.
func (e *Engine) targetName(schema, name string) string {
	if target, ok := e.cfg.Options.TargetSchema(schema); ok {
		if target == "" {
			return strings.ToLower(name)
		}
		return target + "." + strings.ToLower(name)
	}
	if schema == "" {
		return strings.ToLower(name)
	}
	return schema + "." + strings.ToLower(name)
}

// bracketQualified wraps each part of a dotted name in T-SQL brackets.
func bracketQualified(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = "[" + strings.ReplaceAll(p, "]", "]]") + "]"
	}
	return strings.Join(parts, ".")
}

func targetDriver(target translate.Dialect) string {
	switch target {
	case translate.DialectMySQL:
		return "mysql"
	default:
		return "postgres"
	}
}

// relationRefs walks a statement and collects every table or view name
// referenced in FROM clauses, joins, derived tables and subqueries.
func relationRefs(stmt ast.Statement) []string {
	var refs []string
	switch s := stmt.(type) {
	case *ast.SelectStatement:
		refs = append(refs, selectRefs(s)...)
	case *ast.CreateViewStatement:
		refs = append(refs, selectRefs(s.Select)...)
	}
	return refs
}

func selectRefs(s *ast.SelectStatement) []string {
	if s == nil {
		return nil
	}
	var refs []string
	refs = append(refs, tableSourceRefs(s.From)...)
	refs = append(refs, expressionRefs(s.Where)...)
	refs = append(refs, expressionRefs(s.Having)...)
	for _, c := range s.Compounds {
		refs = append(refs, selectRefs(c.Select)...)
	}
	return refs
}

func tableSourceRefs(ts ast.TableSource) []string {
	switch t := ts.(type) {
	case *ast.TableRef:
		// Join the raw identifier values: the rendered form carries target
		// quoting, which would never match the target name map.
		parts := make([]string, len(t.Name.Parts))
		for i, p := range t.Name.Parts {
			parts[i] = p.Value
		}
		return []string{strings.Join(parts, ".")}
	case *ast.DerivedTable:
		return selectRefs(t.Subquery)
	case *ast.Join:
		refs := tableSourceRefs(t.Left)
		refs = append(refs, tableSourceRefs(t.Right)...)
		return refs
	default:
		return nil
	}
}

func expressionRefs(expr ast.Expression) []string {
	switch x := expr.(type) {
	case *ast.ExistsExpression:
		return selectRefs(x.Subquery)
	case *ast.SubqueryExpression:
		return selectRefs(x.Subquery)
	case *ast.InExpression:
		return selectRefs(x.Subquery)
	case *ast.InfixExpression:
		refs := expressionRefs(x.Left)
		refs = append(refs, expressionRefs(x.Right)...)
		return refs
	case *ast.PrefixExpression:
		return expressionRefs(x.Right)
	case *ast.ParenExpression:
		return expressionRefs(x.Expr)
	default:
		return nil
	}
}
