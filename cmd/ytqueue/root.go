package main

import (
	"github.com/spf13/cobra"
)

const (
	groupDaemon = "daemon"
	groupQueue  = "queue"
	groupSetup  = "setup"
)

func newRootCommand() *cobra.Command {
	var socketFlag, configFlag string
	ctx := newCommandContext(&socketFlag, &configFlag)

	root := &cobra.Command{
		Use:           "ytqueue",
		Short:         "Queue and download videos with yt-dlp",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&socketFlag, "socket", "", "Daemon socket path (defaults to the configured state directory)")
	flags.StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	root.AddGroup(
		&cobra.Group{ID: groupDaemon, Title: "Daemon:"},
		&cobra.Group{ID: groupQueue, Title: "Queue:"},
		&cobra.Group{ID: groupSetup, Title: "Setup:"},
	)

	addGrouped(root, groupDaemon, newDaemonCommands(ctx)...)
	addGrouped(root, groupDaemon, newLogsCommand(ctx), newTestNotifyCommand(ctx))
	addGrouped(root, groupQueue,
		newAddCommand(ctx),
		newCheckCommand(ctx),
		newQueueCommand(ctx),
		newFormatsCommand(ctx),
	)
	addGrouped(root, groupSetup, newPreflightCommand(ctx), newConfigCommand(ctx))

	// Hidden; spawned by `ytqueue start`.
	root.AddCommand(newDaemonRunCommand(ctx))

	return root
}

func addGrouped(root *cobra.Command, group string, cmds ...*cobra.Command) {
	for _, cmd := range cmds {
		cmd.GroupID = group
		root.AddCommand(cmd)
	}
}
