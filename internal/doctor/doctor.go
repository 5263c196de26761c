// Package doctor checks the environment an install would run in: config
// health, destination directories, PATH coverage, and the external tools
// the engine shells out to.
package doctor

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"binhome/internal/config"
	"binhome/internal/home"
)

type Finding struct {
	Code    string `json:"code"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

type Report struct {
	Healthy  bool      `json:"healthy"`
	Findings []Finding `json:"findings"`
}

type Service struct {
	ConfigPath string
	Dirs       home.Dirs
	// LookPath is swappable for tests; defaults to exec.LookPath.
	LookPath func(string) (string, error)
	// PathEnv defaults to $PATH.
	PathEnv string
}

func (s *Service) Run() Report {
	findings := []Finding{}

	if _, err := os.Stat(s.ConfigPath); err != nil {
		findings = append(findings, Finding{Code: "DOC_CONFIG_MISSING", Level: "error", Message: err.Error()})
	} else if _, err := config.Load(s.ConfigPath); err != nil {
		findings = append(findings, Finding{Code: "DOC_CONFIG_INVALID", Level: "error", Message: err.Error()})
	}

	if !s.binDirOnPath() {
		findings = append(findings, Finding{
			Code:    "DOC_PATH",
			Level:   "warn",
			Message: s.Dirs.Bin + " is not on $PATH; installed binaries will not be found",
		})
	}

	findings = append(findings, s.checkWritable("DOC_BIN_DIR", s.Dirs.Bin)...)
	findings = append(findings, s.checkWritable("DOC_MAN_DIR", s.Dirs.ManBase)...)

	lookPath := s.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	if _, err := lookPath("git"); err != nil {
		findings = append(findings, Finding{
			Code:    "DOC_GIT",
			Level:   "warn",
			Message: "git not found; manifest repositories cannot be synced",
		})
	}

	healthy := true
	for _, f := range findings {
		if f.Level == "error" {
			healthy = false
			break
		}
	}
	return Report{Healthy: healthy, Findings: findings}
}

func (s *Service) binDirOnPath() bool {
	pathEnv := s.PathEnv
	if pathEnv == "" {
		pathEnv = os.Getenv("PATH")
	}
	for _, dir := range strings.Split(pathEnv, string(os.PathListSeparator)) {
		if dir != "" && filepath.Clean(dir) == filepath.Clean(s.Dirs.Bin) {
			return true
		}
	}
	return false
}

// checkWritable probes a destination directory by creating it and writing
// a throwaway file. A directory that cannot be created yet is fine; it
// will be created on first install.
func (s *Service) checkWritable(code, dir string) []Finding {
	if dir == "" {
		return []Finding{{Code: code, Level: "error", Message: "destination directory not configured"}}
	}
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return []Finding{{Code: code, Level: "error", Message: err.Error()}}
	}
	probe, err := os.CreateTemp(dir, ".binhome-doctor-*")
	if err != nil {
		return []Finding{{Code: code, Level: "error", Message: dir + " is not writable: " + err.Error()}}
	}
	probe.Close()
	_ = os.Remove(probe.Name())
	return nil
}
