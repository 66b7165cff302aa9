package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Norgate-AV/buildenv/internal/codes"
	"github.com/Norgate-AV/buildenv/internal/utils"
)

// Extensions are the config file formats looked for, in order
var Extensions = []string{"yml", "yaml", "json", "toml"}

// Loader handles configuration loading from various sources
type Loader struct {
	// GlobalDir holds config.<ext>; empty disables the global file
	GlobalDir string
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	l := &Loader{}

	if dir, err := os.UserConfigDir(); err == nil {
		l.GlobalDir = filepath.Join(dir, "buildenv")
	}

	return l
}

// LoadForBuild loads configuration for a build of projectDir. args are
// key=value assignments that override every other source.
func (l *Loader) LoadForBuild(cmd *cobra.Command, projectDir string, args []string) (*Config, error) {
	l.setupViperDefaults()
	l.loadGlobalConfig()
	l.loadLocalConfig(projectDir)
	l.bindCommandFlags(cmd)

	if err := l.applyAssignments(args); err != nil {
		return nil, err
	}

	return Load(projectDir)
}

// setupViperDefaults sets up default values for viper
func (l *Loader) setupViperDefaults() {
	viper.SetDefault("mode", DefaultMode)
	viper.SetDefault("modern", DefaultModern)
	viper.SetDefault("paranoid", DefaultParanoid)
	viper.SetDefault("colorful", DefaultColorful)
	viper.SetDefault("succinct", DefaultSuccinct)
	viper.SetDefault("src_dir", DefaultSrcDir)
	viper.SetDefault("lib_dir", DefaultLibDir)
	viper.SetDefault("test_dir", DefaultTestDir)
	viper.SetDefault("build_dir", DefaultBuildDir)
	viper.SetDefault("ccflags", DefaultCCFlags)
	viper.SetDefault("linkflags", DefaultLinkFlags)
	viper.SetDefault("dry_run", DefaultDryRun)
	viper.SetDefault("run_tests", DefaultRunTests)
	viper.SetDefault("verbose", DefaultVerbose)
}

// loadGlobalConfig loads the per-user configuration file
func (l *Loader) loadGlobalConfig() {
	if l.GlobalDir == "" {
		return
	}

	for _, ext := range Extensions {
		globalPath := filepath.Join(l.GlobalDir, "config."+ext)

		if _, err := os.Stat(globalPath); err == nil {
			viper.SetConfigFile(globalPath)

			if err := viper.ReadInConfig(); err == nil {
				break
			}
		}
	}
}

// loadLocalConfig merges the nearest project configuration over the global one
func (l *Loader) loadLocalConfig(projectDir string) {
	dir, err := filepath.Abs(projectDir)
	if err != nil {
		return // silently ignore, Load will report the bad directory
	}

	localPath := FindLocalConfig(dir)
	if localPath != "" {
		viper.SetConfigFile(localPath)
		_ = viper.MergeInConfig()
	}
}

// bindCommandFlags binds command flags to viper
func (l *Loader) bindCommandFlags(cmd *cobra.Command) {
	if cmd == nil {
		return
	}

	bindings := map[string]string{
		"mode":      "mode",
		"verbose":   "verbose",
		"dry_run":   "dry-run",
		"run_tests": "run-tests",
		"src_dir":   "src-dir",
		"lib_dir":   "lib-dir",
		"test_dir":  "test-dir",
		"build_dir": "build-dir",
		"ccflags":   "ccflags",
		"linkflags": "linkflags",
		"modern":    "modern",
		"paranoid":  "paranoid",
		"colorful":  "colorful",
		"succinct":  "succinct",
	}

	for key, name := range bindings {
		if flag := cmd.Flags().Lookup(name); flag != nil {
			_ = viper.BindPFlag(key, flag)
		}
	}
}

// applyAssignments sets key=value arguments, e.g. mode=release succinct=0
func (l *Loader) applyAssignments(args []string) error {
	for _, arg := range args {
		key, value, ok := utils.SplitAssignment(arg)
		if !ok {
			return eris.Wrapf(codes.ErrInvalidConfiguration, "unexpected argument %q, expected key=value", arg)
		}

		key = strings.ReplaceAll(strings.ToLower(key), "-", "_")
		if !IsKey(key) {
			return eris.Wrapf(codes.ErrInvalidConfiguration, "unknown option %q", key)
		}

		viper.Set(key, value)
	}

	return nil
}
