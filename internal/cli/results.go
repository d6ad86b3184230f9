package cli

import (
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/forPelevin/sportsight/internal/results"
)

func newResultsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "results",
		Short: "List produced clips and their captions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			items, err := results.List(a.cfg.Paths.ClipsDir, a.cfg.Paths.CaptionsDir, func(name string) string { return name })
			if err != nil {
				return err
			}
			renderResults(cmd, items)
			return nil
		},
	}
}

func renderResults(cmd *cobra.Command, items []results.Item) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Clip", "Size", "Caption"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
	})
	for _, it := range items {
		clip, size := "-", "-"
		if it.Produced {
			clip = it.ClipURL
			size = humanize.Bytes(uint64(it.Size))
		}
		t.AppendRow(table.Row{it.Index, clip, size, it.Caption})
	}
	t.AppendFooter(table.Row{"", "", "", humanize.Comma(int64(len(items))) + " item(s)"})
	t.Render()
}
