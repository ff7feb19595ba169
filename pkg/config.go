package dupelink

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
	"github.com/go-ini/ini"
	"github.com/kelseyhightower/envconfig"
)

// Config is the dupelink configuration file
type Config struct {
	configPath string
	ini        *ini.File
}

// Settings is the resolved configuration of one run
type Settings struct {
	Roots      []string
	Order      string // OrderSorted or OrderNative
	Symlinks   string // SymlinksSkip or SymlinksFollow
	Ignore     []string
	IgnoreFile string

	HashAlgorithm string
	HashBuffer    string // human size, see ParseHumanSize
	HashWorkers   int

	ReferenceOrder string // ReferenceDiscovery or ReferencePath

	DryRun bool
	Verify bool

	Format string
	Color  string

	VerboseLevel int
	Debug        string
}

// EnvSettings are the environment variables read with the DUPELINK prefix.
// Values are strings so that unset can be told apart from zero.
type EnvSettings struct {
	Root    string `envconfig:"ROOT"`
	DryRun  string `envconfig:"DRY_RUN"`
	Hash    string `envconfig:"HASH"`
	Workers string `envconfig:"WORKERS"`
	Format  string `envconfig:"FORMAT"`
	Order   string `envconfig:"ORDER"`
	Verbose string `envconfig:"VERBOSE"`
}

// DefaultConfigPath returns $DUPELINK_CONFIG or the XDG location
func DefaultConfigPath() string {
	if path := os.Getenv("DUPELINK_CONFIG"); path != "" {
		return path
	}
	return filepath.Join(xdg.ConfigHome, "dupelink", "config")
}

// DefaultSettings returns the built in defaults
func DefaultSettings() Settings {
	return Settings{
		Roots:          []string{"."},
		Order:          OrderSorted,
		Symlinks:       SymlinksSkip,
		HashAlgorithm:  DefaultHashAlgorithm,
		HashBuffer:     DefaultHashBuffer,
		HashWorkers:    DefaultHashWorkers,
		ReferenceOrder: ReferenceDiscovery,
		DryRun:         true,
		Verify:         true,
		Format:         FormatHuman,
		Color:          ColorAuto,
	}
}

// LoadConfig loads the configuration at path. A missing file yields the
// defaults; nothing is written until Save.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return NewDefaultConfig(path)
	}

	iniFile, err := ini.Load(path)
	if err != nil {
		return nil, newError(ErrConfig, path, "failed to load config file", err)
	}
	return &Config{configPath: path, ini: iniFile}, nil
}

// NewDefaultConfig returns an in-memory configuration holding every default,
// bound to path for Save
func NewDefaultConfig(path string) (*Config, error) {
	cfg := &Config{configPath: path, ini: ini.Empty()}
	if err := cfg.setDefaults(); err != nil {
		return nil, newError(ErrConfig, path, "failed to set default config", err)
	}
	return cfg, nil
}

// Path returns the file the configuration is read from and saved to
func (c *Config) Path() string {
	return c.configPath
}

// setDefaults fills an empty file with the default keys
func (c *Config) setDefaults() error {
	d := DefaultSettings()
	defaults := []struct {
		section, key, value string
	}{
		{"scan", "roots", strings.Join(d.Roots, ",")},
		{"scan", "order", d.Order},
		{"scan", "symlinks", d.Symlinks},
		{"scan", "ignore", ""},
		{"scan", "ignore_file", ""},
		{"filehash", "default", d.HashAlgorithm},
		{"filehash", "buffer", d.HashBuffer},
		{"performance", "hash_workers", strconv.Itoa(d.HashWorkers)},
		{"index", "reference_order", d.ReferenceOrder},
		{"replace", "dry_run", strconv.FormatBool(d.DryRun)},
		{"replace", "verify", strconv.FormatBool(d.Verify)},
		{"output", "format", d.Format},
		{"output", "color", d.Color},
		{"verbose", "level", "0"},
		{"verbose", "debug", ""},
	}

	for _, def := range defaults {
		section := c.ini.Section(def.section)
		if _, err := section.NewKey(def.key, def.value); err != nil {
			return fmt.Errorf("failed to set default %s.%s: %w", def.section, def.key, err)
		}
	}
	return nil
}

// Settings reads every key into a Settings value. Keys missing from the file
// keep their defaults; malformed numbers and booleans are config errors.
func (c *Config) Settings() (Settings, error) {
	s := DefaultSettings()

	if v, ok := c.value("scan", "roots"); ok && v != "" {
		s.Roots = splitList(v)
	}
	if v, ok := c.value("scan", "order"); ok && v != "" {
		s.Order = strings.ToLower(v)
	}
	if v, ok := c.value("scan", "symlinks"); ok && v != "" {
		s.Symlinks = strings.ToLower(v)
	}
	if v, ok := c.value("scan", "ignore"); ok {
		s.Ignore = splitList(v)
	}
	if v, ok := c.value("scan", "ignore_file"); ok {
		s.IgnoreFile = v
	}

	if v, ok := c.value("filehash", "default"); ok && v != "" {
		s.HashAlgorithm = strings.ToLower(v)
	}
	if v, ok := c.value("filehash", "buffer"); ok && v != "" {
		s.HashBuffer = v
	}

	if v, ok := c.value("performance", "hash_workers"); ok && v != "" {
		workers, err := strconv.Atoi(v)
		if err != nil {
			return s, newErrorf(ErrConfig, c.configPath, "invalid performance.hash_workers %q", v)
		}
		s.HashWorkers = workers
	}

	if v, ok := c.value("index", "reference_order"); ok && v != "" {
		s.ReferenceOrder = strings.ToLower(v)
	}

	var err error
	if s.DryRun, err = c.boolValue("replace", "dry_run", s.DryRun); err != nil {
		return s, err
	}
	if s.Verify, err = c.boolValue("replace", "verify", s.Verify); err != nil {
		return s, err
	}

	if v, ok := c.value("output", "format"); ok && v != "" {
		s.Format = strings.ToLower(v)
	}
	if v, ok := c.value("output", "color"); ok && v != "" {
		s.Color = strings.ToLower(v)
	}

	if v, ok := c.value("verbose", "level"); ok && v != "" {
		level, err := strconv.Atoi(v)
		if err != nil {
			return s, newErrorf(ErrConfig, c.configPath, "invalid verbose.level %q", v)
		}
		s.VerboseLevel = level
	}
	if v, ok := c.value("verbose", "debug"); ok {
		s.Debug = v
	}

	return s, nil
}

func (c *Config) value(section, key string) (string, bool) {
	if !c.ini.HasSection(section) {
		return "", false
	}
	sec := c.ini.Section(section)
	if !sec.HasKey(key) {
		return "", false
	}
	return strings.TrimSpace(sec.Key(key).String()), true
}

func (c *Config) boolValue(section, key string, fallback bool) (bool, error) {
	v, ok := c.value(section, key)
	if !ok || v == "" {
		return fallback, nil
	}
	b, err := parseBool(v)
	if err != nil {
		return fallback, newErrorf(ErrConfig, c.configPath, "invalid %s.%s %q", section, key, v)
	}
	return b, nil
}

func (c *Config) set(section, key, value string) {
	c.ini.Section(section).Key(key).SetValue(value)
}

// Save writes the configuration to its path, creating the directory
func (c *Config) Save() error {
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to path
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := c.ini.SaveTo(path); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}

// WriteTo writes the configuration in INI form
func (c *Config) WriteTo(w io.Writer) (int64, error) {
	return c.ini.WriteTo(w)
}

// overrideKeys maps override keys to their section and key
var overrideKeys = map[string][2]string{
	"roots":           {"scan", "roots"},
	"root":            {"scan", "roots"},
	"order":           {"scan", "order"},
	"symlinks":        {"scan", "symlinks"},
	"ignore":          {"scan", "ignore"},
	"ignore_file":     {"scan", "ignore_file"},
	"default":         {"filehash", "default"},
	"hash":            {"filehash", "default"},
	"buffer":          {"filehash", "buffer"},
	"hash_workers":    {"performance", "hash_workers"},
	"workers":         {"performance", "hash_workers"},
	"reference_order": {"index", "reference_order"},
	"dry_run":         {"replace", "dry_run"},
	"verify":          {"replace", "verify"},
	"format":          {"output", "format"},
	"color":           {"output", "color"},
	"level":           {"verbose", "level"},
	"debug":           {"verbose", "debug"},
}

// ApplyOverrides applies overrides such as "hash:md5", "dry_run:false" or
// "workers:8" on top of the file values
func (c *Config) ApplyOverrides(overrides []string) error {
	for _, override := range overrides {
		parts := strings.SplitN(override, ":", 2)
		if len(parts) != 2 {
			return newErrorf(ErrConfig, "", "invalid override format '%s', expected 'key:value'", override)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		target, ok := overrideKeys[key]
		if !ok {
			return newErrorf(ErrConfig, "", "unsupported override key '%s'", key)
		}
		c.set(target[0], target[1], value)
	}
	return nil
}

// EnvOverrides reads DUPELINK_* variables and returns them as overrides
func EnvOverrides() ([]string, error) {
	var env EnvSettings
	if err := envconfig.Process("DUPELINK", &env); err != nil {
		return nil, newError(ErrConfig, "", "failed to read environment", err)
	}

	var overrides []string
	add := func(key, value string) {
		if value != "" {
			overrides = append(overrides, key+":"+value)
		}
	}
	add("roots", env.Root)
	add("dry_run", env.DryRun)
	add("hash", env.Hash)
	add("workers", env.Workers)
	add("format", env.Format)
	add("order", env.Order)
	add("level", env.Verbose)
	return overrides, nil
}

// Validate checks every setting
func (s Settings) Validate() error {
	checks := []error{
		ValidateHashAlgorithm(s.HashAlgorithm),
		ValidateOutputFormat(s.Format),
		ValidateVerboseLevel(s.VerboseLevel),
		ValidateDebugFlags(s.Debug),
		ValidateSymlinkMode(s.Symlinks),
		ValidateHashWorkers(s.HashWorkers),
		ValidateScanOrder(s.Order),
		ValidateReferenceOrder(s.ReferenceOrder),
		ValidateColorMode(s.Color),
	}
	for _, err := range checks {
		if err != nil {
			return newError(ErrConfig, "", "invalid configuration", err)
		}
	}
	if _, err := ParseHumanSize(s.HashBuffer); err != nil {
		return newError(ErrConfig, "", "invalid filehash.buffer", err)
	}
	if len(s.Roots) == 0 {
		return newErrorf(ErrConfig, "", "no scan roots configured")
	}
	return nil
}

// HashBufferBytes returns HashBuffer in bytes
func (s Settings) HashBufferBytes() int {
	n, err := ParseHumanSize(s.HashBuffer)
	if err != nil || n <= 0 {
		n, _ = ParseHumanSize(DefaultHashBuffer)
	}
	return int(n)
}

// ValidateHashAlgorithm validates that a hash algorithm is supported
func ValidateHashAlgorithm(algorithm string) error {
	switch strings.ToLower(algorithm) {
	case "md5", "sha1", "sha256", "sha512", "blake2b":
		return nil
	default:
		return fmt.Errorf("unsupported hash algorithm: %s (supported: md5, sha1, sha256, sha512, blake2b)", algorithm)
	}
}

// ValidateOutputFormat validates that an output format is supported
func ValidateOutputFormat(format string) error {
	switch strings.ToLower(format) {
	case FormatHuman, FormatJSON, FormatFdupes:
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s (supported: human, json, fdupes)", format)
	}
}

// ValidateVerboseLevel validates that a verbose level is valid
func ValidateVerboseLevel(level int) error {
	if level < 0 || level > 3 {
		return fmt.Errorf("invalid verbose level: %d (supported: 0-3)", level)
	}
	return nil
}

// ValidateDebugFlags accepts any comma separated flags
func ValidateDebugFlags(debug string) error {
	return nil
}

// ValidateSymlinkMode validates that a symlink mode is supported
func ValidateSymlinkMode(mode string) error {
	switch strings.ToLower(mode) {
	case SymlinksSkip, SymlinksFollow:
		return nil
	default:
		return fmt.Errorf("unsupported symlink mode: %s (supported: skip, follow)", mode)
	}
}

// ValidateHashWorkers validates that the hash worker count is reasonable
func ValidateHashWorkers(workers int) error {
	if workers < 1 {
		return fmt.Errorf("hash workers must be at least 1, got: %d", workers)
	}
	if workers > 64 {
		return fmt.Errorf("hash workers should not exceed 64, got: %d", workers)
	}
	return nil
}

// ValidateScanOrder validates the directory entry order
func ValidateScanOrder(order string) error {
	switch strings.ToLower(order) {
	case OrderSorted, OrderNative:
		return nil
	default:
		return fmt.Errorf("unsupported scan order: %s (supported: sorted, native)", order)
	}
}

// ValidateReferenceOrder validates the within-group order
func ValidateReferenceOrder(order string) error {
	switch strings.ToLower(order) {
	case ReferenceDiscovery, ReferencePath:
		return nil
	default:
		return fmt.Errorf("unsupported reference order: %s (supported: discovery, path)", order)
	}
}

// ValidateColorMode validates the report color mode
func ValidateColorMode(mode string) error {
	switch strings.ToLower(mode) {
	case ColorAuto, ColorAlways, ColorNever:
		return nil
	default:
		return fmt.Errorf("unsupported color mode: %s (supported: auto, always, never)", mode)
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "yes", "on":
		return true, nil
	case "no", "off":
		return false, nil
	}
	return strconv.ParseBool(v)
}
