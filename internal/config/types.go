// Package config holds the global TOML configuration: where manifests come
// from, where downloads are cached, and where installed files land.
package config

// Config is the frozen v1 schema.
type Config struct {
	Version   int             `toml:"version"`
	Cache     CacheConfig     `toml:"cache"`
	Manifests ManifestsConfig `toml:"manifests"`
	Dirs      DirsConfig      `toml:"dirs"`
	Logging   LoggingConfig   `toml:"logging"`
	Repos     []RepoConfig    `toml:"repos"`
}

type CacheConfig struct {
	Root string `toml:"root"`
}

// ManifestsConfig points at the local manifest directory. Synced
// repositories are searched after it.
type ManifestsConfig struct {
	Dir string `toml:"dir"`
}

// DirsConfig overrides individual destination directories. Empty fields
// fall back to the conventional home layout.
type DirsConfig struct {
	Bin            string `toml:"bin,omitempty"`
	Man            string `toml:"man,omitempty"`
	FishCompletion string `toml:"fish_completion,omitempty"`
	BashCompletion string `toml:"bash_completion,omitempty"`
	ZshCompletion  string `toml:"zsh_completion,omitempty"`
	SystemdUser    string `toml:"systemd_user,omitempty"`
}

type LoggingConfig struct {
	// Audit is the JSONL audit log path. Empty disables the log.
	Audit string `toml:"audit,omitempty"`
}

// RepoConfig is one git repository of manifests.
type RepoConfig struct {
	Name   string `toml:"name" json:"name"`
	URL    string `toml:"url" json:"url"`
	Branch string `toml:"branch,omitempty" json:"branch,omitempty"`
}
