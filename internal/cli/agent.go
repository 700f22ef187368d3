package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/idilsaglam/todo-copilot/internal/agent"
	"github.com/idilsaglam/todo-copilot/internal/mcp"
	"github.com/idilsaglam/todo-copilot/internal/model"
	"github.com/idilsaglam/todo-copilot/internal/ui"
)

func newAgentCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Act on a running server through the assistant endpoint",
	}
	cmd.AddCommand(newAgentToolsCmd(opts))
	cmd.AddCommand(newAgentContextCmd(opts))
	cmd.AddCommand(newAgentCallCmd(opts))
	cmd.AddCommand(newAgentUpdateCmd(opts))
	cmd.AddCommand(newAgentDeleteCmd(opts))
	return cmd
}

func newAgentToolsCmd(opts *Options) *cobra.Command {
	var schema bool
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the actions the assistant can call",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			tools, err := c.ListTools(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			th := ui.Current()
			for _, t := range tools {
				fmt.Fprintf(out, "%s  %s\n", ui.C(th.Accent, t.Name), t.Description)
				if schema && len(t.InputSchema) > 0 {
					var buf bytes.Buffer
					if err := json.Indent(&buf, t.InputSchema, "    ", "  "); err == nil {
						fmt.Fprintf(out, "    %s\n", buf.String())
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&schema, "schema", false, "print each input schema")
	return cmd
}

func newAgentContextCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "context",
		Short: "Print the context the assistant reads",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			text, err := c.ReadResource(cmd.Context(), mcp.URIContext)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
}

func newAgentCallCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "call <action> [json-arguments]",
		Short: "Call an action with raw JSON arguments",
		Args:  usageArgs(cobra.RangeArgs(1, 2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			callArgs := map[string]any{}
			if len(args) == 2 {
				if err := json.Unmarshal([]byte(args[1]), &callArgs); err != nil {
					return usageErrorf("arguments must be a JSON object: %w", err)
				}
			}
			return callAction(cmd, opts, args[0], callArgs)
		},
	}
}

func newAgentUpdateCmd(opts *Options) *cobra.Command {
	var (
		item model.Todo
		done bool
	)
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Create or overwrite one todo",
		Long: "Create or overwrite one todo by id. Fields not given are reset, " +
			"so pass --done and --assign again when editing an existing item.",
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			item.Text = strings.TrimSpace(item.Text)
			if item.Text == "" {
				return usageErrorf("--text is required")
			}
			if item.ID == "" {
				item.ID = uuid.NewString()
			}
			item.IsCompleted = done
			return callAction(cmd, opts, agent.ActionUpdateTodoList, map[string]any{
				"items": []model.Todo{item},
			})
		},
	}
	cmd.Flags().StringVar(&item.ID, "id", "", "item id (default: new id)")
	cmd.Flags().StringVar(&item.Text, "text", "", "item text")
	cmd.Flags().BoolVar(&done, "done", false, "mark completed")
	cmd.Flags().StringVar(&item.AssignedTo, "assign", "", "assignee")
	return cmd
}

func newAgentDeleteCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one todo by id",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return callAction(cmd, opts, agent.ActionDeleteTodo, map[string]any{"id": args[0]})
		},
	}
}

func callAction(cmd *cobra.Command, opts *Options, name string, args any) error {
	c, err := opts.client()
	if err != nil {
		return err
	}
	if _, err := c.CallTool(cmd.Context(), name, args); err != nil {
		return err
	}
	ui.OK(cmd.OutOrStdout(), name)
	return nil
}
