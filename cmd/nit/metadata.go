package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"nit/internal/app"
	"nit/internal/metadata"
)

func newShowMetadataCmd(jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "show-metadata MODULE",
		Short: "Print the invocation contract embedded in a module file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := app.New(app.Options{})
			if err != nil {
				return &exitError{code: 2, msg: err.Error()}
			}
			c, err := svc.ShowMetadata(args[0])
			if err != nil {
				return &exitError{code: 1, msg: err.Error()}
			}
			if *jsonOutput {
				payload, err := metadata.Encode(c)
				if err != nil {
					return err
				}
				fmt.Println(string(payload))
				return nil
			}
			fmt.Printf("mode: %s\n", c.InvocationMode)
			fmt.Printf("fixes: %t\n", c.Fixes)
			fmt.Printf("argv0: %s\n", c.Argv0)
			fmt.Printf("max_filenames: %d\n", c.MaxFilenames)
			fmt.Printf("require_serial: %t\n", c.RequireSerial)
			if c.Repo != "" {
				fmt.Printf("repo: %s\n", c.Repo)
			}
			return nil
		},
	}
}

func newSetMetadataCmd() *cobra.Command {
	var metadataPath string
	cmd := &cobra.Command{
		Use:   "set-metadata MODULE",
		Short: "Replace a module's invocation contract from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if metadataPath == "" {
				return &exitError{code: 2, msg: "set-metadata: --metadata is required"}
			}
			payload, err := os.ReadFile(metadataPath)
			if err != nil {
				return &exitError{code: 2, msg: err.Error()}
			}
			svc, err := app.New(app.Options{})
			if err != nil {
				return &exitError{code: 2, msg: err.Error()}
			}
			if err := svc.SetMetadata(args[0], payload); err != nil {
				return &exitError{code: 1, msg: err.Error()}
			}
			fmt.Fprintln(os.Stdout, "metadata updated")
			return nil
		},
	}
	cmd.Flags().StringVar(&metadataPath, "metadata", "", "path to a JSON file containing the contract")
	return cmd
}
