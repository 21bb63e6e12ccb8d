// Package config resolves gitstatusd's small CLI-only surface (spec.md §6)
// through viper bound to the root command's flag set, following the
// teacher's "one viper.Viper carrying defaults plus bound flags" pattern
// (see internal/config/load.go's newViperConfig in the teacher) scaled down
// to a single flat struct — gitstatusd has no project/settings/registry
// scopes to layer, just process flags and their defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// SettingsFileEnv overrides the settings file path, following the
	// teacher's *_HOME environment variable convention.
	SettingsFileEnv = "GITSTATUSD_SETTINGS_FILE"
	// DefaultSettingsFileName is the file viper looks for under the user's
	// home directory when --settings-file is left at its default.
	DefaultSettingsFileName = ".gitstatusd.yaml"
)

// defaultSettingsFile resolves the on-disk location of the optional YAML
// settings file: GITSTATUSD_SETTINGS_FILE if set, else ~/.gitstatusd.yaml.
// A file that doesn't exist there is not an error — it just means every
// flag falls back to its compiled-in default (see Load).
func defaultSettingsFile() string {
	if p := os.Getenv(SettingsFileEnv); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, DefaultSettingsFileName)
}

// Config is the resolved set of CLI-configurable knobs from spec.md §6.
type Config struct {
	NumThreads       int
	DirtyMaxIndexSize int
	MaxNumStaged     int
	MaxNumUnstaged   int
	MaxNumConflicted int
	MaxNumUntracked  int

	RecurseUntrackedDirs bool

	IgnoreStatusShowUntrackedFiles bool
	IgnoreBashShowUntrackedFiles   bool
	IgnoreBashShowDirtyState       bool

	RepoTTLSeconds int
	LockFD         int
	ParentPID      int
	LogLevel       string
	LogDir         string
	LogMaxSizeMB   int
	LogMaxAgeDays  int
	LogMaxBackups  int
}

// defaults mirror gitstatusd's upstream reference defaults: caps generous
// enough that an interactive prompt rarely notices them, TTL long enough to
// keep a shell session's repeat visits warm.
var defaults = map[string]any{
	"num-threads":         0, // 0 means "runtime.NumCPU()", resolved by the caller
	"dirty-max-index-size": 4096,
	"max-num-staged":      1,
	"max-num-unstaged":    1,
	"max-num-conflicted":  1,
	"max-num-untracked":   1,

	"recurse-untracked-dirs": false,

	"ignore-status-show-untracked-files": false,
	"ignore-bash-show-untracked-files":   false,
	"ignore-bash-show-dirty-state":       false,

	"repo-ttl-seconds": 3600,
	"lock-fd":          -1,
	"parent-pid":       -1,
	"log-level":        "INFO",
	"log-dir":          "",
	"log-max-size-mb":  50,
	"log-max-age-days": 7,
	"log-max-backups":  3,
}

// AddFlags registers every flag from spec.md §6 onto fs, ready for
// cobra.Command.Flags() to own.
func AddFlags(fs *pflag.FlagSet) {
	fs.Int("num-threads", defaults["num-threads"].(int), "worker pool size (0 = number of CPUs)")
	fs.Int("dirty-max-index-size", defaults["dirty-max-index-size"].(int), "skip the unstaged/untracked scan above this many index entries (negative means infinity)")
	fs.Int("max-num-staged", defaults["max-num-staged"].(int), "cap on reported staged count (0 disables the scan, negative means infinity)")
	fs.Int("max-num-unstaged", defaults["max-num-unstaged"].(int), "cap on reported unstaged count (0 disables the scan, negative means infinity)")
	fs.Int("max-num-conflicted", defaults["max-num-conflicted"].(int), "cap on reported conflicted count (0 disables the scan, negative means infinity)")
	fs.Int("max-num-untracked", defaults["max-num-untracked"].(int), "cap on reported untracked count (0 disables the scan, negative means infinity)")
	fs.Bool("recurse-untracked-dirs", defaults["recurse-untracked-dirs"].(bool), "report files inside untracked directories individually")
	fs.Bool("ignore-status-show-untracked-files", defaults["ignore-status-show-untracked-files"].(bool), "ignore status.showUntrackedFiles=false")
	fs.Bool("ignore-bash-show-untracked-files", defaults["ignore-bash-show-untracked-files"].(bool), "ignore bash.showUntrackedFiles=false")
	fs.Bool("ignore-bash-show-dirty-state", defaults["ignore-bash-show-dirty-state"].(bool), "ignore bash.showDirtyState=false")
	fs.Int("repo-ttl-seconds", defaults["repo-ttl-seconds"].(int), "evict a cached repository handle after this many idle seconds")
	fs.Int("lock-fd", defaults["lock-fd"].(int), "inherited fd to flock() as a liveness sentinel (-1 disables)")
	fs.Int("parent-pid", defaults["parent-pid"].(int), "PID to signal-0 probe as a liveness sentinel (-1 disables)")
	fs.String("log-level", defaults["log-level"].(string), "DEBUG, INFO, WARN, ERROR, or FATAL")
	fs.String("log-dir", defaults["log-dir"].(string), "mirror logs to a rotating file under this directory in addition to stderr (empty disables)")
	fs.Int("log-max-size-mb", defaults["log-max-size-mb"].(int), "rotate the log file after it reaches this size in megabytes")
	fs.Int("log-max-age-days", defaults["log-max-age-days"].(int), "delete rotated log files older than this many days")
	fs.Int("log-max-backups", defaults["log-max-backups"].(int), "keep at most this many rotated log files")
	fs.String("settings-file", "", "optional YAML file supplying flag defaults (default: $GITSTATUSD_SETTINGS_FILE or ~/.gitstatusd.yaml)")
}

// Load builds a Viper bound to fs (flags win, env vars named GITSTATUSD_*
// come next, an optional YAML settings file after that, defaults last) and
// decodes it into a Config. The settings file follows the shape of the
// teacher's SettingsLoader: a file that isn't there yet is not an error,
// it just leaves every key at its compiled-in default.
func Load(fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GITSTATUSD")
	v.AutomaticEnv()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	settingsFile, _ := fs.GetString("settings-file")
	if settingsFile == "" {
		settingsFile = defaultSettingsFile()
	}
	if settingsFile != "" {
		data, err := os.ReadFile(settingsFile)
		switch {
		case err == nil:
			var raw map[string]any
			if err := yaml.Unmarshal(data, &raw); err != nil {
				return Config{}, fmt.Errorf("parsing settings file %s: %w", settingsFile, err)
			}
			if err := v.MergeConfigMap(raw); err != nil {
				return Config{}, fmt.Errorf("merging settings file %s: %w", settingsFile, err)
			}
		case os.IsNotExist(err):
			// No settings file at this path: every key keeps its compiled-in default.
		default:
			return Config{}, fmt.Errorf("reading settings file %s: %w", settingsFile, err)
		}
	}

	if err := v.BindPFlags(fs); err != nil {
		return Config{}, fmt.Errorf("binding flags: %w", err)
	}

	return Config{
		NumThreads:        v.GetInt("num-threads"),
		DirtyMaxIndexSize: v.GetInt("dirty-max-index-size"),
		MaxNumStaged:      v.GetInt("max-num-staged"),
		MaxNumUnstaged:    v.GetInt("max-num-unstaged"),
		MaxNumConflicted:  v.GetInt("max-num-conflicted"),
		MaxNumUntracked:   v.GetInt("max-num-untracked"),

		RecurseUntrackedDirs: v.GetBool("recurse-untracked-dirs"),

		IgnoreStatusShowUntrackedFiles: v.GetBool("ignore-status-show-untracked-files"),
		IgnoreBashShowUntrackedFiles:   v.GetBool("ignore-bash-show-untracked-files"),
		IgnoreBashShowDirtyState:       v.GetBool("ignore-bash-show-dirty-state"),

		RepoTTLSeconds: v.GetInt("repo-ttl-seconds"),
		LockFD:         v.GetInt("lock-fd"),
		ParentPID:      v.GetInt("parent-pid"),
		LogLevel:       v.GetString("log-level"),
		LogDir:         v.GetString("log-dir"),
		LogMaxSizeMB:   v.GetInt("log-max-size-mb"),
		LogMaxAgeDays:  v.GetInt("log-max-age-days"),
		LogMaxBackups:  v.GetInt("log-max-backups"),
	}, nil
}

// Validate reports a non-nil error for arguments the daemon must refuse to
// start with (exit code 10 per spec.md §6).
func (c Config) Validate() error {
	if c.NumThreads < 0 {
		return fmt.Errorf("--num-threads must be >= 0, got %d", c.NumThreads)
	}
	if c.RepoTTLSeconds <= 0 {
		return fmt.Errorf("--repo-ttl-seconds must be positive, got %d", c.RepoTTLSeconds)
	}
	switch c.LogLevel {
	case "DEBUG", "INFO", "WARN", "ERROR", "FATAL":
	default:
		return fmt.Errorf("--log-level must be one of DEBUG,INFO,WARN,ERROR,FATAL, got %q", c.LogLevel)
	}
	return nil
}
