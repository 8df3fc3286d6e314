package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"pkt.systems/flowdeck/schema"
)

func withApp(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	a, err := openRestored(ctx, opts.configPath)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	return fn(ctx, a)
}

func parseIDArg(args []string) (schema.WorkflowID, error) {
	id, err := schema.ParseWorkflowID(args[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", err, args[0])
	}
	return id, nil
}

func newTabsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tabs",
		Short: "List open tabs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				return printTabs(cmd.OutOrStdout(), a.session.Snapshot())
			})
		},
	}
}

func newOpenCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "open <workflow-id>",
		Short: "Open a workflow in a tab and make it active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.session.OpenWorkflow(ctx, id); err != nil {
					return err
				}
				return printActive(cmd.OutOrStdout(), a.session.Snapshot())
			})
		},
	}
}

func newSwitchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "switch <workflow-id>",
		Short: "Make an open tab active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.requireTab(id); err != nil {
					return err
				}
				if err := a.session.SwitchTab(ctx, id); err != nil {
					return err
				}
				return printActive(cmd.OutOrStdout(), a.session.Snapshot())
			})
		},
	}
}

func newCloseCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "close <workflow-id>",
		Short: "Close an open tab",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.requireTab(id); err != nil {
					return err
				}
				if err := a.session.CloseTab(ctx, id); err != nil {
					return err
				}
				return printActive(cmd.OutOrStdout(), a.session.Snapshot())
			})
		},
	}
}

func newNewCmd(opts *rootOptions) *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "new <name>",
		Short: "Create an empty workflow and open it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				wf, err := a.session.CreateNewWorkflow(ctx, args[0], description)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "created %d %s\n", wf.ID, wf.Name)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "workflow description")
	return cmd
}

func newSaveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Write the active tab's canvas to the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				return saveAndReport(ctx, cmd, a)
			})
		},
	}
}

func printTabs(w io.Writer, snap schema.SessionSnapshot) error {
	if len(snap.Tabs) == 0 {
		_, err := fmt.Fprintln(w, "no open tabs")
		return err
	}
	for _, tab := range snap.Tabs {
		marker := " "
		if snap.ActiveTab != nil && *snap.ActiveTab == tab.ID {
			marker = "*"
		}
		if _, err := fmt.Fprintf(w, "%s %d\t%s\n", marker, tab.ID, tab.Name); err != nil {
			return err
		}
	}
	return nil
}

func printActive(w io.Writer, snap schema.SessionSnapshot) error {
	if snap.ActiveTab == nil {
		_, err := fmt.Fprintln(w, "no open tabs")
		return err
	}
	name := ""
	if snap.Workflow != nil {
		name = snap.Workflow.Name
	}
	_, err := fmt.Fprintf(w, "active %d %s (%d nodes, %d edges)\n", *snap.ActiveTab, name, len(snap.Canvas.Nodes), len(snap.Canvas.Edges))
	return err
}
