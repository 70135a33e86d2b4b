package main

import (
	"bufio"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"nit/internal/app"
)

func newInstallCmd(newSvc func() (*app.Service, error), jsonOutput *bool) *cobra.Command {
	var hookType string
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install a git hook that invokes nit",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return &exitError{code: 2, msg: err.Error()}
			}
			path, err := svc.InstallHook(cmd.Context(), hookType)
			if err != nil {
				return &exitError{code: 1, msg: err.Error()}
			}
			return print(*jsonOutput, map[string]string{"installed": path}, "installed "+hookType+" hook at "+path)
		},
	}
	cmd.Flags().StringVar(&hookType, "hook-type", "pre-commit", "pre-commit|pre-push")
	return cmd
}

func newUninstallCmd(newSvc func() (*app.Service, error), jsonOutput *bool) *cobra.Command {
	var hookType string
	cmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Remove a previously installed git hook",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return &exitError{code: 2, msg: err.Error()}
			}
			if err := svc.UninstallHook(cmd.Context(), hookType); err != nil {
				return &exitError{code: 1, msg: err.Error()}
			}
			return print(*jsonOutput, map[string]string{"uninstalled": hookType}, "uninstalled "+hookType+" hook")
		},
	}
	cmd.Flags().StringVar(&hookType, "hook-type", "pre-commit", "pre-commit|pre-push")
	return cmd
}

func newPreCommitCmd(newSvc func() (*app.Service, error), jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:    "pre-commit",
		Short:  "Hook entry point: lint staged files",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return &exitError{code: 2, msg: err.Error()}
			}
			rep, err := svc.Run(cmd.Context(), app.RunOptions{})
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
}

// prePushUpdate is one parsed line of stdin git hands a pre-push hook,
// per githooks(5): "<local-ref> <local-sha> <remote-ref> <remote-sha>".
type prePushUpdate struct {
	localRef, localSHA, remoteRef, remoteSHA string
}

func readPrePushUpdates(r *bufio.Scanner) []prePushUpdate {
	var out []prePushUpdate
	for r.Scan() {
		fields := strings.Fields(r.Text())
		if len(fields) != 4 {
			continue
		}
		out = append(out, prePushUpdate{
			localRef: fields[0], localSHA: fields[1],
			remoteRef: fields[2], remoteSHA: fields[3],
		})
	}
	return out
}

func newPrePushCmd(newSvc func() (*app.Service, error), jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:    "pre-push <remote> <url>",
		Short:  "Hook entry point: lint what a push would introduce",
		Hidden: true,
		Args:   cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			updates := readPrePushUpdates(bufio.NewScanner(os.Stdin))

			svc, err := newSvc()
			if err != nil {
				return &exitError{code: 2, msg: err.Error()}
			}

			against := ""
			for _, u := range updates {
				if u.remoteSHA != "" && u.remoteSHA != strings.Repeat("0", len(u.remoteSHA)) {
					against = u.remoteSHA
					break
				}
			}

			rep, err := svc.Run(cmd.Context(), app.RunOptions{Against: against})
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
}
