package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pkt.systems/flowdeck/schema"
)

func newNodeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Edit nodes of the active workflow",
	}
	cmd.AddCommand(newNodeListCmd(opts))
	cmd.AddCommand(newNodeAddCmd(opts))
	cmd.AddCommand(newNodeSetCmd(opts))
	cmd.AddCommand(newNodeRemoveCmd(opts))
	return cmd
}

func newNodeListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List nodes and edges of the active workflow",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if _, ok := a.session.ActiveTab(); !ok {
					return schema.ErrNoActiveTab
				}
				out := cmd.OutOrStdout()
				canvas := a.session.Canvas()
				for _, node := range canvas.Nodes {
					if _, err := fmt.Fprintf(out, "node %s\t%s\t%q\t(%g,%g)\n", node.ID, node.Type, node.Data.Label, node.Position.X, node.Position.Y); err != nil {
						return err
					}
				}
				for _, edge := range canvas.Edges {
					if _, err := fmt.Fprintf(out, "edge %s\t%s -> %s\n", edge.ID, edge.Source, edge.Target); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newNodeAddCmd(opts *rootOptions) *cobra.Command {
	var nodeType string
	var label string
	var x, y float64
	var props []string
	cmd := &cobra.Command{
		Use:   "add <node-id>",
		Short: "Add a node and save",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			properties, err := parseProperties(props)
			if err != nil {
				return err
			}
			node := schema.Node{
				ID:       schema.NodeID(args[0]),
				Type:     schema.NodeType(nodeType),
				Position: schema.Position{X: x, Y: y},
				Data:     schema.NodeData{Label: label, Properties: properties},
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.session.AddNode(node); err != nil {
					return err
				}
				return saveAndReport(ctx, cmd, a)
			})
		},
	}
	cmd.Flags().StringVarP(&nodeType, "type", "t", string(schema.DefaultNodeType), "node type")
	cmd.Flags().StringVarP(&label, "label", "l", "", "node label")
	cmd.Flags().Float64Var(&x, "x", 0, "canvas x position")
	cmd.Flags().Float64Var(&y, "y", 0, "canvas y position")
	cmd.Flags().StringArrayVarP(&props, "prop", "p", nil, "property as key=value (value parsed as JSON when possible)")
	return cmd
}

func newNodeSetCmd(opts *rootOptions) *cobra.Command {
	var label string
	cmd := &cobra.Command{
		Use:   "set <node-id> [key=value...]",
		Short: "Update a node's label or properties and save",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := parseProperties(args[1:])
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("label") {
				patch["label"] = label
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.session.UpdateNodeData(schema.NodeID(args[0]), patch); err != nil {
					return err
				}
				return saveAndReport(ctx, cmd, a)
			})
		},
	}
	cmd.Flags().StringVarP(&label, "label", "l", "", "new node label")
	return cmd
}

func newNodeRemoveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <node-id>",
		Short: "Remove a node with its edges and save",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.session.RemoveNode(schema.NodeID(args[0])); err != nil {
					return err
				}
				return saveAndReport(ctx, cmd, a)
			})
		},
	}
}

func newConnectCmd(opts *rootOptions) *cobra.Command {
	var edge schema.Edge
	var id, sourceHandle, targetHandle string
	cmd := &cobra.Command{
		Use:   "connect <source-node> <target-node>",
		Short: "Connect two nodes and save",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			edge.ID = schema.EdgeID(id)
			edge.Source = schema.NodeID(args[0])
			edge.Target = schema.NodeID(args[1])
			edge.SourceHandle = sourceHandle
			edge.TargetHandle = targetHandle
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				created, err := a.session.Connect(edge)
				if err != nil {
					return err
				}
				a.log.Debug("edge added", "edge", string(created.ID))
				return saveAndReport(ctx, cmd, a)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "edge id (derived from the endpoints when empty)")
	cmd.Flags().StringVar(&sourceHandle, "source-handle", "", "source handle")
	cmd.Flags().StringVar(&targetHandle, "target-handle", "", "target handle")
	cmd.Flags().StringVar(&edge.Label, "label", "", "edge label")
	return cmd
}

func saveAndReport(ctx context.Context, cmd *cobra.Command, a *app) error {
	wf, err := a.session.SaveActiveWorkflow(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "saved %d %s (%d nodes, %d edges)\n", wf.ID, wf.Name, len(wf.Definition.Nodes), len(wf.Definition.Edges))
	return err
}

// parseProperties turns key=value pairs into a property bag. Values that
// parse as JSON keep their JSON type; anything else is a string.
func parseProperties(pairs []string) (map[string]any, error) {
	props := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: property %q must be key=value", schema.ErrInvalidRequest, pair)
		}
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		props[key] = value
	}
	return props, nil
}
