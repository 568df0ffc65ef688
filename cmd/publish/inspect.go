package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/deixis/publish/internal/console"
	"github.com/deixis/publish/internal/report"
)

func (a *app) inspectCmd() *cobra.Command {
	var (
		steps    []string
		jsonFlag bool
	)

	cmd := &cobra.Command{
		Use:   "inspect [run-id]",
		Short: "Show a recorded run (default: the most recent one)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, disk, err := openStore()
			if err != nil {
				return err
			}

			var result *report.RunResult
			if len(args) == 1 {
				result, err = store.Load(args[0])
			} else {
				result, err = disk.Latest()
			}
			if err != nil {
				return err
			}

			selected, err := report.Filter(result, steps...)
			if err != nil {
				return err
			}

			if jsonFlag {
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				if len(steps) > 0 {
					return enc.Encode(selected)
				}
				return enc.Encode(result)
			}

			if err := console.RenderRun(a.stdout, result, selected); err != nil {
				return err
			}
			console.RenderStderr(a.stdout, selected)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&steps, "step", nil, "only show the named steps (repeatable)")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "output the run as JSON")
	return cmd
}
