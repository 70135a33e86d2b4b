package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"nit/internal/app"
	"nit/internal/config"
)

func newSampleConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sample-config",
		Short: "Print an example .nit.json5",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Print(config.Sample)
			return nil
		},
	}
}

func newValidateConfigCmd(newSvc func() (*app.Service, error), jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "validate-config",
		Short: "Load and validate the config without running anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return &exitError{code: 2, msg: err.Error()}
			}
			path, err := svc.ValidateConfig()
			if err != nil {
				return &exitError{code: 2, msg: err.Error()}
			}
			return print(*jsonOutput, map[string]string{"config": path, "valid": "true"}, "config at "+path+" is valid")
		},
	}
}
