package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"nit/internal/app"
	"nit/internal/config"
	"nit/internal/report"
)

func newRunCmd(newSvc func() (*app.Service, error), jsonOutput *bool) *cobra.Command {
	var all bool
	var files []string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every configured linter against the candidate file set",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return &exitError{code: 2, msg: err.Error()}
			}
			rep, err := svc.Run(cmd.Context(), app.RunOptions{All: all, Files: files})
			if err != nil {
				code := 1
				if isConfigError(err) {
					code = 2
				}
				return &exitError{code: code, msg: err.Error()}
			}

			if *jsonOutput {
				if err := print(true, rep, ""); err != nil {
					return err
				}
			} else {
				printReport(rep)
			}
			if !rep.Clean() {
				return &exitError{code: 1, msg: ""}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "walk the entire working tree instead of just staged files")
	cmd.Flags().StringSliceVar(&files, "files", nil, "lint exactly these paths instead of any enumeration")
	return cmd
}

func newFetchCmd(newSvc func() (*app.Service, error), jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Warm the content store with every remote linter's module",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return &exitError{code: 2, msg: err.Error()}
			}
			n, err := svc.Fetch(cmd.Context())
			if err != nil {
				return &exitError{code: 1, msg: err.Error()}
			}
			return print(*jsonOutput, map[string]int{"fetched": n}, fmt.Sprintf("fetched %d module(s)", n))
		},
	}
	return cmd
}

func newCleanCmd(newSvc func() (*app.Service, error), jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove and recreate the content store",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return &exitError{code: 2, msg: err.Error()}
			}
			if err := svc.Clean(); err != nil {
				return &exitError{code: 1, msg: err.Error()}
			}
			return print(*jsonOutput, map[string]bool{"cleaned": true}, "content store cleaned")
		},
	}
	return cmd
}

func printReport(rep report.Report) {
	if rep.Clean() {
		fmt.Println("clean")
		return
	}
	for linter, findings := range rep.FindingsByLinter() {
		for _, f := range findings {
			fmt.Printf("%s: exit %d\n", linter, f.ExitCode)
			if f.Stderr != "" {
				fmt.Println(f.Stderr)
			}
		}
	}
	if len(rep.Mutated) > 0 {
		fmt.Println("fixed:", strings.Join(rep.Mutated, ", "))
	}
	if len(rep.Failed) > 0 {
		fmt.Println("failed to run:", strings.Join(rep.Failed, ", "))
	}
}

// isConfigError reports whether err originated while loading/validating
// the config rather than during dispatch.
func isConfigError(err error) bool {
	var cfgErr *config.Error
	if errors.As(err, &cfgErr) {
		return true
	}
	return strings.Contains(err.Error(), "CONFIG_")
}
