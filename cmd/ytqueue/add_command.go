package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ytqueue/internal/ipc"
)

type submitFlags struct {
	format string
	target string
}

func (f *submitFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.format, "format", "f", "", "Format label from the catalog (defaults to the first entry)")
	cmd.Flags().StringVarP(&f.target, "target", "t", "", "Destination directory (defaults to the first configured target)")
}

func (f *submitFlags) request(url string) (ipc.SubmitRequest, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return ipc.SubmitRequest{}, errors.New("url is required")
	}
	return ipc.SubmitRequest{
		URL:       url,
		Format:    strings.TrimSpace(f.format),
		TargetDir: strings.TrimSpace(f.target),
	}, nil
}

func newAddCommand(ctx *commandContext) *cobra.Command {
	var flags submitFlags
	cmd := &cobra.Command{
		Use:   "add <url>",
		Short: "Queue a video for download",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.request(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Submit(req)
				if err != nil {
					return err
				}
				if !resp.Admitted {
					return rejectionError(resp.Reason, resp.Message)
				}
				out := cmd.OutOrStdout()
				if resp.Job == nil {
					fmt.Fprintln(out, "Queued")
					return nil
				}
				fmt.Fprintf(out, "Queued job %d: %s\n", resp.Job.ID, resp.Job.URL)
				fmt.Fprintf(out, "  Format: %s\n", resp.Job.Format)
				fmt.Fprintf(out, "  Target: %s\n", resp.Job.TargetDir)
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var flags submitFlags
	cmd := &cobra.Command{
		Use:   "check <url>",
		Short: "Report whether a video would be accepted without queueing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.request(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Check(req)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "URL:    %s\n", resp.URL)
				format := resp.Format
				if format == "" {
					format = "(default applied on add)"
				}
				fmt.Fprintf(out, "Format: %s\n", format)
				fmt.Fprintf(out, "Target: %s\n", resp.TargetDir)
				if !resp.Admitted {
					return rejectionError(resp.Reason, resp.Message)
				}
				fmt.Fprintln(out, "Would be queued")
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func rejectionError(reason, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		message = "submission rejected"
	}
	if reason = strings.TrimSpace(reason); reason != "" {
		return fmt.Errorf("rejected (%s): %s", reason, message)
	}
	return fmt.Errorf("rejected: %s", message)
}
