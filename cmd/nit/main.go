package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"nit/internal/app"
)

// ExitCoder lets a command signal a specific process exit code instead
// of the default 1 every other error maps to.
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
		if msg := err.Error(); msg != "" {
			fmt.Fprintln(os.Stderr, msg)
		}
		if ex, ok := err.(ExitCoder); ok {
			os.Exit(ex.ExitCode())
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	var jsonOutput bool

	newSvc := func() (*app.Service, error) {
		return app.New(app.Options{ConfigPath: configPath})
	}

	cmd := &cobra.Command{
		Use:           "nit",
		Short:         "Run WASM-sandboxed linters against a repository",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to .nit.json5/.nit.jsonc/.nit.json")
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")

	cmd.AddCommand(newRunCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newFetchCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newCleanCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newInstallCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newUninstallCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newSampleConfigCmd())
	cmd.AddCommand(newValidateConfigCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newShowMetadataCmd(&jsonOutput))
	cmd.AddCommand(newSetMetadataCmd())
	cmd.AddCommand(newPreCommitCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newPrePushCmd(newSvc, &jsonOutput))

	return cmd
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
