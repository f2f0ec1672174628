package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	sharedcfg "github.com/leapstack-labs/dbrefs/internal/config"
)

// loggerKey is used to store logger in context.
type loggerKey struct{}

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// EnvPrefix prefixes environment overrides. Nested keys use a double
// underscore: DBREFS_SEARCH__WORKERS sets search.workers. Database names keep
// their case: DBREFS_DATABASES__Sales sets databases.Sales.
const EnvPrefix = "DBREFS_"

// databasesKey holds the name to root mapping. Names may contain the koanf
// delimiter, so the file's mapping is decoded outside of k.
const databasesKey = "databases"

// Package-level koanf instance and config file tracking
var (
	k              = koanf.New(".")
	configFileUsed string
	currentConfig  *Config // Stores the loaded config for access by commands
)

// legacyKeys maps keys of the original JSON configuration to current keys.
var legacyKeys = map[string]string{
	"db":     "databases",
	"etl":    "etl_path",
	"csharp": "source_path",
}

// flagKeys maps flag names to config keys where they differ from the
// kebab-to-snake rule. Flags not listed here and not present in the
// config are ignored by the loader.
var flagKeys = map[string]string{
	"out":        "output_dir",
	"state":      "state_path",
	"etl":        "etl_path",
	"source":     "source_path",
	"templates":  "templates_dir",
	"workers":    "search.workers",
	"max-depth":  "search.max_depth",
	"cache-size": "search.cache_size",
	"output":     "output",
	"verbose":    "verbose",
}

// pathFlags are flags whose values are paths relative to the working directory.
var pathFlags = []string{"out", "state", "etl", "source", "templates"}

// findConfigFile finds the config file to use.
// Priority: explicit path > dbrefs.yaml / dbrefs.yml in the nearest ancestor.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	root := sharedcfg.FindProjectRoot(cwd, maxUpwardSearchLevels)
	if root == "" {
		return ""
	}
	return sharedcfg.FindConfigFile(root)
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	currentConfig = nil
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	// Reset koanf for fresh load
	k = koanf.New(".")

	// 1. Load defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"output_dir":        DefaultOutputDir,
		"state_path":        DefaultStateFile,
		"output":            DefaultOutput,
		"verbose":           false,
		"search.workers":    0,
		"search.max_depth":  0,
		"search.cache_size": 0,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Find and load config file
	var fileDatabases map[string]string
	configFileUsed = findConfigFile(cfgFile)
	if configFileUsed != "" {
		dbs, err := loadFile(configFileUsed)
		if err != nil {
			return nil, err
		}
		fileDatabases = dbs
	}

	// 3. Load environment variables (DBREFS_ prefix)
	// Transform: DBREFS_SEARCH__MAX_DEPTH -> search.max_depth
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Load flags (highest priority - overrides env vars and config file)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal into Config struct. List values may come from env vars
	// as comma separated strings.
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook:       mapstructure.StringToSliceHookFunc(","),
			Result:           &cfg,
			TagName:          "koanf",
			WeaklyTypedInput: true,
		},
	}); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.Databases = mergeDatabases(fileDatabases, cfg.Databases)

	// 6. Resolve relative paths. Values from flags are relative to the
	// working directory, everything else to the config file's directory.
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	cfg.BaseDir = cwd
	if configFileUsed != "" {
		if abs, err := filepath.Abs(configFileUsed); err == nil {
			cfg.BaseDir = filepath.Dir(abs)
		}
	}
	resolvePaths(&cfg, cwd, changedFlags(flags))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Store config for access by commands
	currentConfig = &cfg

	return &cfg, nil
}

// envKey maps an environment variable to a config key. Every segment but a
// database name is lowercased.
func envKey(s string) string {
	parts := strings.Split(strings.TrimPrefix(s, EnvPrefix), "__")
	for i, p := range parts {
		if i == 1 && strings.EqualFold(parts[0], databasesKey) {
			continue
		}
		parts[i] = strings.ToLower(p)
	}
	return strings.Join(parts, ".")
}

// mergeDatabases overlays env entries on the file's mapping. An env name
// matching a file name case-insensitively replaces that entry.
func mergeDatabases(fromFile, fromEnv map[string]string) map[string]string {
	if len(fromFile) == 0 {
		return fromEnv
	}
	merged := make(map[string]string, len(fromFile)+len(fromEnv))
	for name, root := range fromFile {
		merged[name] = root
	}
	for name, root := range fromEnv {
		for existing := range merged {
			if strings.EqualFold(existing, name) {
				name = existing
				break
			}
		}
		merged[name] = root
	}
	return merged
}

// loadFile reads the config file into k, translating legacy keys, and
// returns the databases mapping separately. A legacy key never overrides
// its current spelling when both are present.
func loadFile(path string) (map[string]string, error) {
	fk := koanf.New(".")
	if err := fk.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	raw := fk.Raw()
	for legacy, key := range legacyKeys {
		v, ok := raw[legacy]
		if !ok {
			continue
		}
		if _, set := raw[key]; !set {
			raw[key] = v
		}
		delete(raw, legacy)
	}

	var databases map[string]string
	if v, ok := raw[databasesKey]; ok {
		if err := mapstructure.WeakDecode(v, &databases); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %s: %w", path, databasesKey, err)
		}
		delete(raw, databasesKey)
	}

	if err := k.Load(confmap.Provider(raw, ""), nil); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return databases, nil
}

func changedFlags(flags *pflag.FlagSet) map[string]bool {
	changed := make(map[string]bool)
	if flags == nil {
		return changed
	}
	for _, name := range pathFlags {
		if f := flags.Lookup(name); f != nil && f.Changed {
			changed[name] = true
		}
	}
	return changed
}

func resolvePaths(cfg *Config, cwd string, fromFlag map[string]bool) {
	base := func(flag string) string {
		if fromFlag[flag] {
			return cwd
		}
		return cfg.BaseDir
	}

	for name, root := range cfg.Databases {
		cfg.Databases[name] = resolvePathRelativeTo(root, cfg.BaseDir)
	}
	cfg.ETLPath = resolvePathRelativeTo(cfg.ETLPath, base("etl"))
	cfg.SourcePath = resolvePathRelativeTo(cfg.SourcePath, base("source"))
	cfg.OutputDir = resolvePathRelativeTo(cfg.OutputDir, base("out"))
	cfg.TemplatesDir = resolvePathRelativeTo(cfg.TemplatesDir, base("templates"))
	cfg.StatePath = resolvePathRelativeTo(cfg.StatePath, base("state"))
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the currently loaded configuration.
// This is available after LoadConfig is called.
func GetCurrentConfig() *Config {
	return currentConfig
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return slog.New(slog.DiscardHandler)
	}
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}
