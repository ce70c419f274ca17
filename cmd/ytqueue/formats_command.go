package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ytqueue/internal/ipc"
)

func newFormatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List the format catalog and target directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Formats()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				rows := make([][]string, 0, len(resp.Formats))
				for i, format := range resp.Formats {
					label := format.Label
					if i == 0 {
						label += " (default)"
					}
					rows = append(rows, []string{label, format.Spec})
				}
				fmt.Fprintln(out, renderTable([]column{left("Format"), left("Selector")}, rows))
				fmt.Fprintln(out)
				dirRows := make([][]string, 0, len(resp.TargetDirs))
				for i, dir := range resp.TargetDirs {
					dirRows = append(dirRows, []string{fmt.Sprintf("%d", i+1), dir})
				}
				fmt.Fprintln(out, renderTable([]column{right("#"), left("Target directory")}, dirRows))
				return nil
			})
		},
	}
}
