// Package config loads CLI configuration from config files, environment
// variables, and .env files.
package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

var AppFs = afero.NewOsFs()

// Config holds the CLI configuration.
type Config struct {
	// SourceDSN is the SQL Server connection string.
	SourceDSN string
	// TargetDSN is the target database connection string.
	TargetDSN string
	// Target is the target dialect name.
	Target string
	// ShadowDSN overrides the derived shadow database connection string.
	ShadowDSN string
	// SkipShadow disables shadow verification before apply.
	SkipShadow bool
	// RulesPath points at an optional rewrite rules file.
	RulesPath string
	// CachePath points at the local translation cache.
	CachePath string
	// ReportDir is where validation reports are written.
	ReportDir string
	// SchemaMap maps source schema names to target schema names.
	SchemaMap map[string]string
	// RowCap bounds the default validation queries. Zero means unbounded.
	RowCap int
}

// Load reads configuration from .sqlshift.yaml, the SQLSHIFT_* environment,
// and .env files. Connection strings come from SOURCE_DATABASE_URL and
// TARGET_DATABASE_URL when not set in the config file.
func Load() (*Config, error) {
	home, err := homedir.Dir()
	if err != nil {
		return nil, err
	}

	viper.SetConfigName(".sqlshift")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath(home)
	viper.AddConfigPath(filepath.Join(home, ".config", "sqlshift"))

	viper.SetEnvPrefix("SQLSHIFT")
	viper.AutomaticEnv()

	viper.SetDefault("target", "postgres")
	viper.SetDefault("report_dir", "reports")
	viper.SetDefault("cache_path", ".sqlshift.cache")
	viper.SetDefault("skip_shadow", false)
	viper.SetDefault("row_cap", 0)

	// Config file is optional.
	_ = viper.ReadInConfig()

	if _, err := AppFs.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}
	// .env.local wins over .env.
	if _, err := AppFs.Stat(".env.local"); err == nil {
		_ = godotenv.Overload(".env.local")
	}

	cfg := &Config{
		SourceDSN:  viper.GetString("source_dsn"),
		TargetDSN:  viper.GetString("target_dsn"),
		Target:     viper.GetString("target"),
		ShadowDSN:  viper.GetString("shadow_dsn"),
		SkipShadow: viper.GetBool("skip_shadow"),
		RulesPath:  viper.GetString("rules_path"),
		CachePath:  viper.GetString("cache_path"),
		ReportDir:  viper.GetString("report_dir"),
		SchemaMap:  viper.GetStringMapString("schema_map"),
		RowCap:     viper.GetInt("row_cap"),
	}

	if cfg.SourceDSN == "" {
		cfg.SourceDSN = os.Getenv("SOURCE_DATABASE_URL")
	}
	if cfg.TargetDSN == "" {
		cfg.TargetDSN = os.Getenv("TARGET_DATABASE_URL")
	}

	return cfg, nil
}

// Save writes the configuration to .sqlshift.yaml in the current directory.
// Connection strings are not persisted; they belong in the environment.
func Save(cfg *Config) error {
	viper.Set("target", cfg.Target)
	viper.Set("report_dir", cfg.ReportDir)
	viper.Set("cache_path", cfg.CachePath)
	viper.Set("skip_shadow", cfg.SkipShadow)
	if cfg.RulesPath != "" {
		viper.Set("rules_path", cfg.RulesPath)
	}
	if len(cfg.SchemaMap) > 0 {
		viper.Set("schema_map", cfg.SchemaMap)
	}
	if cfg.RowCap > 0 {
		viper.Set("row_cap", cfg.RowCap)
	}
	return viper.WriteConfigAs(".sqlshift.yaml")
}
