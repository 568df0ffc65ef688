package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deixis/publish"
)

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(a.stdout, publish.Version)
		},
	}
}
