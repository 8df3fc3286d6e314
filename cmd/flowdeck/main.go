package main

import (
	"context"
	"log"
	"os"

	"github.com/spf13/cobra"

	"pkt.systems/psi"
	"pkt.systems/pslog"
)

func main() {
	psi.Run(submain)
}

func submain(ctx context.Context) int {
	logger := pslog.LoggerFromEnv(
		pslog.WithEnvWriter(os.Stderr),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeConsole}),
	)
	ctx = pslog.ContextWithLogger(ctx, logger)
	log.SetOutput(pslog.LogLogger(logger).Writer())
	log.SetFlags(0)

	root := newRootCmd()
	root.SetArgs(os.Args[1:])

	if err := root.ExecuteContext(ctx); err != nil {
		pslog.Ctx(ctx).With("err", err).Error("flowdeck command failed")
		return 1
	}
	return 0
}

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "flowdeck",
		Short:         "Multi-tab workflow editor session",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to config file")

	root.AddCommand(newTabsCmd(opts))
	root.AddCommand(newOpenCmd(opts))
	root.AddCommand(newSwitchCmd(opts))
	root.AddCommand(newCloseCmd(opts))
	root.AddCommand(newNewCmd(opts))
	root.AddCommand(newSaveCmd(opts))
	root.AddCommand(newNodeCmd(opts))
	root.AddCommand(newConnectCmd(opts))
	root.AddCommand(newRunCmd(opts))
	root.AddCommand(newHistoryCmd(opts))
	root.AddCommand(newDebugCmd(opts))
	root.AddCommand(newWorkflowsCmd(opts))
	root.AddCommand(newConfigCmd(opts))
	root.AddCommand(newVersionCmd())

	return root
}
