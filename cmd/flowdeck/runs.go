package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/flowdeck/internal/debugstream"
	"pkt.systems/flowdeck/internal/eventbus"
	"pkt.systems/flowdeck/schema"
	"pkt.systems/pslog"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Save and execute the active workflow",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				exec, err := a.session.RunActiveWorkflow(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if _, err := fmt.Fprintf(out, "execution %d %s\n", exec.ID, exec.Status); err != nil {
					return err
				}
				return printExecutions(out, a.session.Snapshot().Executions)
			})
		},
	}
}

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var execID int64
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show executions of the active workflow",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				out := cmd.OutOrStdout()
				if execID > 0 {
					logs, err := a.session.FetchExecutionLogs(ctx, schema.ExecutionID(execID))
					if err != nil {
						return err
					}
					return printExecutionLogs(out, logs)
				}
				execs, err := a.session.FetchExecutions(ctx)
				if err != nil {
					return err
				}
				a.session.SetExecutionsVisible(true)
				return printExecutions(out, execs)
			})
		},
	}
	cmd.Flags().Int64Var(&execID, "logs", 0, "show the node logs of this execution id")
	return cmd
}

func newDebugCmd(opts *rootOptions) *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "debug",
		Short: "Save the active workflow and stream a debug run as JSON lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				addr := metricsAddr
				if !cmd.Flags().Changed("metrics-addr") {
					addr = a.cfg.Metrics.Addr
				}
				if strings.TrimSpace(addr) != "" {
					stop, err := serveMetrics(ctx, addr, a.metrics.Handler(), a.log)
					if err != nil {
						return err
					}
					defer stop()
				}
				return streamDebugRun(ctx, cmd.OutOrStdout(), a)
			})
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while the run streams")
	return cmd
}

func streamDebugRun(ctx context.Context, out io.Writer, a *app) error {
	stream, err := a.session.StartDebugRun(ctx)
	if err != nil {
		return err
	}
	mirrored, cancel := a.bus.Subscribe(stream.WorkflowID())
	defer cancel()

	enc := json.NewEncoder(out)
	var runErr error
	var writeErr error
	debugstream.Consume(ctx, stream, debugstream.Handlers{
		OnEvent: func(event schema.DebugEvent) {
			if writeErr == nil {
				writeErr = enc.Encode(event)
			}
		},
		OnError: func(err error) {
			runErr = err
		},
		OnDone: func() {
			a.log.Info("debug run finished", "workflow", int64(stream.WorkflowID()), "events", stream.Delivered(), "dropped", stream.Dropped(), "mirrored", drain(mirrored))
		},
	})
	if runErr != nil {
		return runErr
	}
	return writeErr
}

func drain(ch <-chan eventbus.Event) int {
	n := 0
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return n
			}
			n++
		default:
			return n
		}
	}
}

func serveMetrics(ctx context.Context, addr string, handler http.Handler, logger pslog.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listen %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server failed", "err", err)
		}
	}()
	logger.Info("metrics server listening", "addr", ln.Addr().String())
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}, nil
}

func printExecutions(w io.Writer, execs []schema.Execution) error {
	if len(execs) == 0 {
		_, err := fmt.Fprintln(w, "no executions")
		return err
	}
	for _, exec := range execs {
		started := "-"
		if exec.StartedAt != nil {
			started = exec.StartedAt.UTC().Format(time.RFC3339)
		}
		line := strconv.FormatInt(int64(exec.ID), 10) + "\t" + exec.Status + "\t" + started
		if exec.Error != "" {
			line += "\t" + exec.Error
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func printExecutionLogs(w io.Writer, logs []schema.ExecutionLog) error {
	if len(logs) == 0 {
		_, err := fmt.Fprintln(w, "no execution logs")
		return err
	}
	for _, entry := range logs {
		line := fmt.Sprintf("%s\t%s\t%s", entry.NodeID, entry.NodeType, entry.Status)
		if entry.Output != "" {
			line += "\t" + entry.Output
		}
		if entry.Error != "" {
			line += "\terror: " + entry.Error
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
