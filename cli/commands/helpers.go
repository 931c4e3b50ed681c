package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/sqlshift/sqlshift/cli/internal/config"
	"github.com/sqlshift/sqlshift/cli/internal/ui"
	"github.com/sqlshift/sqlshift/migrate"
	"github.com/sqlshift/sqlshift/translate"
	"github.com/sqlshift/sqlshift/translate/rules"
)

// loadRules reads the rewrite rules file named by the config, if any.
func loadRules() (*rules.Set, error) {
	if cfg.RulesPath == "" {
		return nil, nil
	}
	f, err := config.AppFs.Open(cfg.RulesPath)
	if err != nil {
		return nil, fmt.Errorf("open rules file: %w", err)
	}
	defer f.Close()

	set, err := rules.Parse(cfg.RulesPath, f)
	if err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}
	return set, nil
}

// translateOptions builds translation options from the configured schema map.
func translateOptions() translate.Options {
	opts := translate.DefaultOptions()
	if len(cfg.SchemaMap) > 0 {
		opts.SchemaMap = map[string]string{}
		for source, target := range cfg.SchemaMap {
			opts.SchemaMap[strings.ToLower(source)] = target
		}
	}
	return opts
}

// engineConfig assembles the migration engine configuration.
func engineConfig() (migrate.Config, error) {
	target, err := translate.ParseDialect(cfg.Target)
	if err != nil {
		return migrate.Config{}, err
	}
	if cfg.SourceDSN == "" {
		return migrate.Config{}, fmt.Errorf("no source connection string: set SOURCE_DATABASE_URL or source_dsn in .sqlshift.yaml")
	}
	if cfg.TargetDSN == "" {
		return migrate.Config{}, fmt.Errorf("no target connection string: set TARGET_DATABASE_URL or target_dsn in .sqlshift.yaml")
	}

	ruleSet, err := loadRules()
	if err != nil {
		return migrate.Config{}, err
	}

	return migrate.Config{
		SourceDSN:  cfg.SourceDSN,
		TargetDSN:  cfg.TargetDSN,
		Target:     target,
		Options:    translateOptions(),
		Rules:      ruleSet,
		ShadowDSN:  cfg.ShadowDSN,
		SkipShadow: cfg.SkipShadow,
		CachePath:  cfg.CachePath,
		RowCap:     cfg.RowCap,
	}, nil
}

// reportTranslationFailures prints diagnostics for every object whose
// translation produced errors.
func reportTranslationFailures(objects []*migrate.TranslatedObject) {
	for _, obj := range objects {
		if obj.Result.Ok() {
			continue
		}
		ui.PrintError("Translation of %s failed with %d error(s)",
			obj.SourceName, len(obj.Result.Diagnostics.Errors()))
	}
}

// connectEngine creates the engine and opens both database connections. The
// caller owns the returned engine and must Close it.
func connectEngine(ctx context.Context) (*migrate.Engine, error) {
	engineCfg, err := engineConfig()
	if err != nil {
		return nil, err
	}
	engine, err := migrate.NewEngine(engineCfg)
	if err != nil {
		return nil, err
	}
	if err := engine.Connect(ctx); err != nil {
		return nil, err
	}
	return engine, nil
}
