package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/idilsaglam/todo-copilot/internal/mcp"
	"github.com/idilsaglam/todo-copilot/internal/model"
	"github.com/idilsaglam/todo-copilot/internal/ui"
)

func newLsCmd(opts *Options) *cobra.Command {
	var group, asJSON bool
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List the todos of a running server",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			items, err := fetchItems(cmd.Context(), c)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(items)
			}
			ui.Panel(out, listLines(items, group))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&group, "group", "g", false, "group output by pending/done")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw list as JSON")
	return cmd
}

func fetchItems(ctx context.Context, c *mcp.Client) ([]model.Todo, error) {
	raw, err := c.ReadResource(ctx, mcp.URIItems)
	if err != nil {
		return nil, err
	}
	items := []model.Todo{}
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", mcp.URIItems, err)
	}
	return items, nil
}

func listLines(items []model.Todo, group bool) []string {
	th := ui.Current()
	d, p := stats(items)
	header := fmt.Sprintf("%s  %s %d  %s %d  %s %d",
		ui.C(th.Title, "Todos"),
		ui.C(th.Success, th.SymDone), d,
		ui.C(th.Pending, th.SymUnchecked), p,
		ui.C(th.Accent, "Total"), len(items),
	)

	lines := []string{header, ui.C(th.Muted, ui.ProgressBar(d, d+p, 28)), ""}
	if group {
		lines = append(lines, groupLines(items)...)
	} else {
		lines = append(lines, flatLines(items)...)
	}
	lines = append(lines, "", ui.C(th.Muted, "Tip: add with `todo agent update --text \"Buy milk\"`"))
	return lines
}

func stats(items []model.Todo) (done, pending int) {
	for _, it := range items {
		if it.IsCompleted {
			done++
		} else {
			pending++
		}
	}
	return
}

func flatLines(items []model.Todo) []string {
	th := ui.Current()
	if len(items) == 0 {
		return []string{ui.C(th.Muted, "no items")}
	}
	out := make([]string, 0, len(items))
	for i, it := range items {
		idx := fmt.Sprintf("%2d.", i+1)
		box := th.BoxUnchecked
		color := th.Muted
		if it.IsCompleted {
			box, color = th.BoxChecked, th.Success
		}
		text := it.Text
		if len(text) > 80 {
			text = text[:77] + "..."
		}
		if it.Assigned() {
			text = ui.Badge(it.AssignedTo) + " " + text
		}
		out = append(out, fmt.Sprintf("%s %s %s", ui.Dim(idx), ui.C(color, box), text))
	}
	return out
}

func groupLines(items []model.Todo) []string {
	th := ui.Current()
	var pend, done []model.Todo
	for _, it := range items {
		if it.IsCompleted {
			done = append(done, it)
		} else {
			pend = append(pend, it)
		}
	}
	section := func(title string, items []model.Todo) []string {
		lines := []string{ui.C(th.Accent, title)}
		if len(items) == 0 {
			return append(lines, ui.C(th.Muted, "(none)"))
		}
		return append(lines, flatLines(items)...)
	}
	lines := section("Pending", pend)
	lines = append(lines, "")
	return append(lines, section("Done", done)...)
}
