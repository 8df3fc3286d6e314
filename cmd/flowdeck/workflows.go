package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newWorkflowsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflows",
		Short: "List and manage workflows on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				workflows, err := a.session.FetchWorkflows(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(workflows) == 0 {
					_, err := fmt.Fprintln(out, "no workflows")
					return err
				}
				for _, wf := range workflows {
					if _, err := fmt.Fprintf(out, "%d\t%s\t%s\n", wf.ID, wf.Name, strings.TrimSpace(wf.Description)); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.AddCommand(newWorkflowRemoveCmd(opts))
	cmd.AddCommand(newWorkflowImportCmd(opts))
	cmd.AddCommand(newWorkflowExportCmd(opts))
	return cmd
}

func newWorkflowRemoveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <workflow-id>",
		Short: "Delete a workflow and close its tab",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.session.RemoveWorkflow(ctx, id); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "deleted %d\n", id)
				return err
			})
		},
	}
}

func newWorkflowImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|->",
		Short: "Import a workflow document and open it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				wf, err := a.session.ImportWorkflow(ctx, doc)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "imported %d %s\n", wf.ID, wf.Name)
				return err
			})
		},
	}
}

func newWorkflowExportCmd(opts *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export <workflow-id>",
		Short: "Write a workflow's export document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				doc, err := a.client.ExportWorkflow(ctx, id)
				if err != nil {
					return err
				}
				if output == "" || output == "-" {
					_, err := fmt.Fprintln(cmd.OutOrStdout(), string(doc))
					return err
				}
				return os.WriteFile(output, append(doc, '\n'), 0o644)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout when empty)")
	return cmd
}

func readDocument(stdin io.Reader, name string) (json.RawMessage, error) {
	var data []byte
	var err error
	if name == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}
