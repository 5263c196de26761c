package config

const (
	SchemaVersion = 1
)

// DefaultConfig returns a fully-populated v1 config document.
func DefaultConfig() Config {
	return Config{
		Version: SchemaVersion,
		Cache: CacheConfig{
			Root: "~/.cache/binhome",
		},
		Manifests: ManifestsConfig{
			Dir: "~/.local/share/binhome/manifests",
		},
		Logging: LoggingConfig{
			Audit: "~/.local/share/binhome/audit.log",
		},
	}
}
