package config

func Normalize(cfg Config) Config {
	if cfg.Version == 0 {
		cfg.Version = SchemaVersion
	}
	if cfg.Cache.Root == "" {
		cfg.Cache.Root = "~/.cache/binhome"
	}
	if cfg.Manifests.Dir == "" {
		cfg.Manifests.Dir = "~/.local/share/binhome/manifests"
	}
	for i := range cfg.Repos {
		if cfg.Repos[i].Branch == "" {
			cfg.Repos[i].Branch = "main"
		}
	}
	return cfg
}
