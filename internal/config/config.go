package config

import (
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"

	"github.com/Norgate-AV/buildenv/internal/codes"
	"github.com/Norgate-AV/buildenv/internal/profile"
	"github.com/Norgate-AV/buildenv/internal/utils"
)

// Default configuration values
const (
	DefaultMode      = "debug"
	DefaultModern    = true
	DefaultParanoid  = true
	DefaultColorful  = true
	DefaultSuccinct  = true
	DefaultSrcDir    = "src"
	DefaultLibDir    = "lib"
	DefaultTestDir   = "test"
	DefaultBuildDir  = "build"
	DefaultCCFlags   = ""
	DefaultLinkFlags = ""
	DefaultDryRun    = false
	DefaultRunTests  = false
	DefaultVerbose   = false
)

// Keys lists every configuration key accepted in files and key=value arguments
var Keys = []string{
	"mode",
	"modern",
	"paranoid",
	"colorful",
	"succinct",
	"src_dir",
	"lib_dir",
	"test_dir",
	"build_dir",
	"ccflags",
	"linkflags",
	"dry_run",
	"run_tests",
	"verbose",
}

// IsKey reports whether key is a known configuration key
func IsKey(key string) bool {
	for _, k := range Keys {
		if k == key {
			return true
		}
	}

	return false
}

// Holds the configuration options for buildenv
type Config struct {
	// Profile kinds to build, in order
	Modes []string

	Modern   bool
	Paranoid bool
	Colorful bool
	Succinct bool

	// Directory the relative paths below are resolved against
	ProjectDir string

	SrcDir   string
	LibDir   string
	TestDir  string
	BuildDir string

	// Extra compiler and linker flags
	CCFlags   []string
	LinkFlags []string

	// Print actions without running them
	DryRun bool

	// Run linked test programs after building
	RunTests bool

	// Enable verbose output
	Verbose bool
}

func Load(projectDir string) (*Config, error) {
	cfg := &Config{
		Modes:      utils.ParseModes(viper.GetString("mode")),
		Modern:     getBool("modern"),
		Paranoid:   getBool("paranoid"),
		Colorful:   getBool("colorful"),
		Succinct:   getBool("succinct"),
		ProjectDir: projectDir,
		SrcDir:     viper.GetString("src_dir"),
		LibDir:     viper.GetString("lib_dir"),
		TestDir:    viper.GetString("test_dir"),
		BuildDir:   viper.GetString("build_dir"),
		DryRun:     getBool("dry_run"),
		RunTests:   getBool("run_tests"),
		Verbose:    getBool("verbose"),
	}

	var err error

	cfg.CCFlags, err = utils.SplitFlags(viper.GetString("ccflags"))
	if err != nil {
		return nil, eris.Wrap(codes.ErrInvalidConfiguration, err.Error())
	}

	cfg.LinkFlags, err = utils.SplitFlags(viper.GetString("linkflags"))
	if err != nil {
		return nil, eris.Wrap(codes.ErrInvalidConfiguration, err.Error())
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// getBool reads key with the build-tool truthiness rule
func getBool(key string) bool {
	return utils.ParseBool(viper.GetString(key))
}

func (c *Config) Validate() error {
	if len(c.Modes) == 0 {
		return eris.Wrap(codes.ErrInvalidConfiguration, "no build mode given")
	}

	for _, mode := range c.Modes {
		if _, err := profile.ParseKind(mode); err != nil {
			return err
		}
	}

	if c.ProjectDir == "" {
		c.ProjectDir = "."
	}

	abs, err := filepath.Abs(c.ProjectDir)
	if err != nil {
		return eris.Wrapf(codes.ErrInvalidConfiguration, "invalid project directory: %v", err)
	}
	c.ProjectDir = abs

	dirs := []struct {
		name  string
		value *string
	}{
		{"src_dir", &c.SrcDir},
		{"lib_dir", &c.LibDir},
		{"test_dir", &c.TestDir},
		{"build_dir", &c.BuildDir},
	}

	for _, d := range dirs {
		if *d.value == "" {
			return eris.Wrapf(codes.ErrInvalidConfiguration, "%s must not be empty", d.name)
		}

		*d.value = c.resolve(*d.value)
	}

	return nil
}

func (c *Config) resolve(dir string) string {
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}

	return filepath.Join(c.ProjectDir, dir)
}
