package dupelink

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Path())

	settings, err := cfg.Settings()
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), settings)
	assert.True(t, settings.DryRun, "dry run must be the default")

	// Loading never writes
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestLoadConfig_File(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "config"), `
[scan]
roots = /srv/a, /srv/b
order = native
symlinks = follow
ignore = \.git/, \.tmp$

[filehash]
default = md5
buffer = 1M

[performance]
hash_workers = 8

[index]
reference_order = path

[replace]
dry_run = false
verify = no

[output]
format = json
color = never

[verbose]
level = 2
debug = walk,hash
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	s, err := cfg.Settings()
	require.NoError(t, err)
	require.NoError(t, s.Validate())

	assert.Equal(t, []string{"/srv/a", "/srv/b"}, s.Roots)
	assert.Equal(t, OrderNative, s.Order)
	assert.Equal(t, SymlinksFollow, s.Symlinks)
	assert.Equal(t, []string{`\.git/`, `\.tmp$`}, s.Ignore)
	assert.Equal(t, "md5", s.HashAlgorithm)
	assert.Equal(t, 1024*1024, s.HashBufferBytes())
	assert.Equal(t, 8, s.HashWorkers)
	assert.Equal(t, ReferencePath, s.ReferenceOrder)
	assert.False(t, s.DryRun)
	assert.False(t, s.Verify)
	assert.Equal(t, FormatJSON, s.Format)
	assert.Equal(t, ColorNever, s.Color)
	assert.Equal(t, 2, s.VerboseLevel)
	assert.Equal(t, "walk,hash", s.Debug)
}

func TestLoadConfig_PartialFileKeepsDefaults(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "config"), "[output]\nformat = fdupes\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	s, err := cfg.Settings()
	require.NoError(t, err)

	assert.Equal(t, FormatFdupes, s.Format)
	assert.Equal(t, DefaultHashAlgorithm, s.HashAlgorithm)
	assert.Equal(t, DefaultHashWorkers, s.HashWorkers)
	assert.True(t, s.DryRun)
}

func TestConfig_MalformedValues(t *testing.T) {
	tests := map[string]string{
		"workers": "[performance]\nhash_workers = many\n",
		"dry run": "[replace]\ndry_run = perhaps\n",
		"level":   "[verbose]\nlevel = loud\n",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, filepath.Join(t.TempDir(), "config"), content)
			cfg, err := LoadConfig(path)
			require.NoError(t, err)

			_, err = cfg.Settings()
			require.Error(t, err)
			assert.True(t, IsKind(err, ErrConfig))
		})
	}
}

func TestConfig_ApplyOverrides(t *testing.T) {
	cfg, err := NewDefaultConfig(filepath.Join(t.TempDir(), "config"))
	require.NoError(t, err)

	require.NoError(t, cfg.ApplyOverrides([]string{
		"hash:sha512",
		"workers: 2",
		"dry_run:false",
		"reference_order:path",
		"format:fdupes",
		"level:1",
	}))

	s, err := cfg.Settings()
	require.NoError(t, err)
	assert.Equal(t, "sha512", s.HashAlgorithm)
	assert.Equal(t, 2, s.HashWorkers)
	assert.False(t, s.DryRun)
	assert.Equal(t, ReferencePath, s.ReferenceOrder)
	assert.Equal(t, FormatFdupes, s.Format)
	assert.Equal(t, 1, s.VerboseLevel)
}

func TestConfig_ApplyOverrides_Invalid(t *testing.T) {
	cfg, err := NewDefaultConfig("")
	require.NoError(t, err)

	err = cfg.ApplyOverrides([]string{"no-colon"})
	assert.True(t, IsKind(err, ErrConfig))

	err = cfg.ApplyOverrides([]string{"snapshot:daily"})
	assert.True(t, IsKind(err, ErrConfig))
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DUPELINK_DRY_RUN", "false")
	t.Setenv("DUPELINK_HASH", "sha1")
	t.Setenv("DUPELINK_WORKERS", "3")
	t.Setenv("DUPELINK_FORMAT", "json")
	t.Setenv("DUPELINK_ROOT", "/srv/one")

	overrides, err := EnvOverrides()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"roots:/srv/one",
		"dry_run:false",
		"hash:sha1",
		"workers:3",
		"format:json",
	}, overrides)

	cfg, err := NewDefaultConfig("")
	require.NoError(t, err)
	require.NoError(t, cfg.ApplyOverrides(overrides))
	s, err := cfg.Settings()
	require.NoError(t, err)
	assert.Equal(t, []string{"/srv/one"}, s.Roots)
	assert.False(t, s.DryRun)
	assert.Equal(t, 3, s.HashWorkers)
}

func TestDefaultConfigPath(t *testing.T) {
	t.Setenv("DUPELINK_CONFIG", "/etc/dupelink.ini")
	assert.Equal(t, "/etc/dupelink.ini", DefaultConfigPath())

	t.Setenv("DUPELINK_CONFIG", "")
	assert.True(t, strings.HasSuffix(DefaultConfigPath(), filepath.Join("dupelink", "config")))
}

func TestConfig_SaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dir", "config")
	cfg, err := NewDefaultConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.ApplyOverrides([]string{"format:json"}))
	require.NoError(t, cfg.Save())

	reloaded, err := LoadConfig(path)
	require.NoError(t, err)
	s, err := reloaded.Settings()
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, s.Format)

	var buf bytes.Buffer
	_, err = reloaded.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "[replace]")
	assert.Contains(t, buf.String(), "reference_order")
}

func TestSettings_Validate(t *testing.T) {
	mutations := map[string]func(*Settings){
		"hash":            func(s *Settings) { s.HashAlgorithm = "crc32" },
		"format":          func(s *Settings) { s.Format = "xml" },
		"level":           func(s *Settings) { s.VerboseLevel = 7 },
		"symlinks":        func(s *Settings) { s.Symlinks = "contained" },
		"workers low":     func(s *Settings) { s.HashWorkers = 0 },
		"workers high":    func(s *Settings) { s.HashWorkers = 65 },
		"order":           func(s *Settings) { s.Order = "random" },
		"reference order": func(s *Settings) { s.ReferenceOrder = "size" },
		"color":           func(s *Settings) { s.Color = "rainbow" },
		"buffer":          func(s *Settings) { s.HashBuffer = "huge" },
		"roots":           func(s *Settings) { s.Roots = nil },
	}

	require.NoError(t, DefaultSettings().Validate())

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			s := DefaultSettings()
			mutate(&s)
			err := s.Validate()
			require.Error(t, err)
			assert.True(t, IsKind(err, ErrConfig))
		})
	}
}
