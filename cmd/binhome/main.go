package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"binhome/internal/app"
)

type ExitCoder interface {
	ExitCode() int
}

type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }
func (e *exitError) ExitCode() int { return e.code }

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if ex, ok := err.(ExitCoder); ok {
			os.Exit(ex.ExitCode())
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	var manifestDir string
	var jsonOutput bool

	newSvc := func() (*app.Service, error) {
		return app.New(app.Options{ConfigPath: configPath, ManifestDir: manifestDir})
	}

	cmd := &cobra.Command{
		Use:           "binhome",
		Short:         "Install manifest-described binaries into your home directory",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	cmd.PersistentFlags().StringVar(&manifestDir, "manifest-dir", "", "local manifest directory")
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")

	cmd.AddCommand(newListCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newInstalledCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newOutdatedCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newFilesCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newInstallCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newUpdateCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newRemoveCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newManifestCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newReposCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newDoctorCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newVersionCmd(&jsonOutput))

	return cmd
}

func newListCmd(newSvc func() (*app.Service, error), jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all known manifests",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			manifests, err := svc.ListManifests()
			if err != nil {
				return err
			}
			if *jsonOutput {
				return print(true, manifests, "")
			}
			if len(manifests) == 0 {
				fmt.Println("no manifests found")
				return nil
			}
			for _, m := range manifests {
				fmt.Printf("- %s %s (%s)\n", m.Meta.Name, m.Meta.Version, m.Meta.URL)
			}
			return nil
		},
	}
}

func newInstalledCmd(newSvc func() (*app.Service, error), jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "installed",
		Short: "List installed tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			installed, err := svc.Installed(context.Background())
			if err != nil {
				return err
			}
			if *jsonOutput {
				return print(true, installed, "")
			}
			if len(installed) == 0 {
				fmt.Println("nothing installed")
				return nil
			}
			for _, st := range installed {
				fmt.Printf("- %s %s (%s)\n", st.Name, st.InstalledVersion, st.State)
			}
			return nil
		},
	}
}

func newOutdatedCmd(newSvc func() (*app.Service, error), jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "outdated",
		Short: "List installed tools with a newer manifest version",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			outdated, err := svc.Outdated(context.Background())
			if err != nil {
				return err
			}
			if *jsonOutput {
				return print(true, outdated, "")
			}
			if len(outdated) == 0 {
				fmt.Println("everything up to date")
				return nil
			}
			for _, st := range outdated {
				fmt.Printf("- %s %s -> %s\n", st.Name, st.InstalledVersion, st.ManifestVersion)
			}
			return nil
		},
	}
}

func newFilesCmd(newSvc func() (*app.Service, error), jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "files <name>",
		Short: "Show the files a manifest installs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			files, err := svc.Files(args[0])
			if err != nil {
				return err
			}
			if *jsonOutput {
				return print(true, files, "")
			}
			for _, f := range files {
				fmt.Println(f)
			}
			return nil
		},
	}
}

func newInstallCmd(newSvc func() (*app.Service, error), jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:     "install <name>...",
		Aliases: []string{"i"},
		Short:   "Install tools",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			outcomes := svc.Install(context.Background(), args)
			return reportOutcomes(*jsonOutput, outcomes)
		},
	}
}

func newUpdateCmd(newSvc func() (*app.Service, error), jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:     "update [name]...",
		Aliases: []string{"up", "upgrade"},
		Short:   "Update tools; with no names, everything outdated",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			outcomes, err := svc.Update(context.Background(), args)
			if err != nil {
				return err
			}
			return reportOutcomes(*jsonOutput, outcomes)
		},
	}
}

func newRemoveCmd(newSvc func() (*app.Service, error), jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <name>...",
		Aliases: []string{"rm", "uninstall"},
		Short:   "Remove installed tools",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			outcomes := svc.Remove(args)
			return reportOutcomes(*jsonOutput, outcomes)
		},
	}
}

func newManifestCmd(newSvc func() (*app.Service, error), jsonOutput *bool) *cobra.Command {
	manifestCmd := &cobra.Command{Use: "manifest", Short: "Work with manifest files"}

	validateCmd := &cobra.Command{
		Use:   "validate <path>...",
		Short: "Validate manifest files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			type result struct {
				Path  string `json:"path"`
				Valid bool   `json:"valid"`
				Error string `json:"error,omitempty"`
			}
			results := make([]result, 0, len(args))
			failed := false
			for _, path := range args {
				if _, err := svc.ValidateManifest(path); err != nil {
					results = append(results, result{Path: path, Error: err.Error()})
					failed = true
				} else {
					results = append(results, result{Path: path, Valid: true})
				}
			}
			if *jsonOutput {
				if err := print(true, results, ""); err != nil {
					return err
				}
			} else {
				for _, r := range results {
					if r.Valid {
						fmt.Printf("ok   %s\n", r.Path)
					} else {
						fmt.Printf("FAIL %s: %s\n", r.Path, r.Error)
					}
				}
			}
			if failed {
				return &exitError{code: 1, msg: "validation failed"}
			}
			return nil
		},
	}

	manifestCmd.AddCommand(validateCmd)
	return manifestCmd
}

func newReposCmd(newSvc func() (*app.Service, error), jsonOutput *bool) *cobra.Command {
	reposCmd := &cobra.Command{Use: "repos", Short: "Manage manifest repositories"}

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Clone or update configured manifest repositories",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			outcomes := svc.SyncRepos(context.Background())
			return reportOutcomes(*jsonOutput, outcomes)
		},
	}

	reposCmd.AddCommand(syncCmd)
	return reposCmd
}

func newDoctorCmd(newSvc func() (*app.Service, error), jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check environment health",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			report := svc.Doctor.Run()
			if *jsonOutput {
				if err := print(true, report, ""); err != nil {
					return err
				}
			} else {
				for _, f := range report.Findings {
					fmt.Printf("[%s] %s: %s\n", f.Level, f.Code, f.Message)
				}
				if report.Healthy {
					fmt.Println("environment healthy")
				}
			}
			if !report.Healthy {
				return &exitError{code: 1, msg: "environment unhealthy"}
			}
			return nil
		},
	}
}

// reportOutcomes prints batch results and exits nonzero when any manifest
// failed, after all of them have been reported.
func reportOutcomes(jsonOutput bool, outcomes []app.Outcome) error {
	if jsonOutput {
		if err := print(true, outcomes, ""); err != nil {
			return err
		}
	} else {
		for _, o := range outcomes {
			if o.Err != nil {
				fmt.Printf("%s: %s: %s\n", o.Action, o.Name, o.Error)
			} else {
				fmt.Printf("%s: %s\n", o.Action, o.Name)
			}
		}
	}
	if app.Failed(outcomes) {
		return &exitError{code: 1, msg: "some operations failed"}
	}
	return nil
}

func print(jsonOutput bool, payload any, message string) error {
	if jsonOutput {
		blob, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(blob))
		return nil
	}
	if message != "" {
		fmt.Println(message)
	}
	return nil
}
