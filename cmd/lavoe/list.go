package main

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored analyses",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	summaries, err := st.ListAnalyses()
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No stored analyses.")
		return nil
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header([]string{"ID", "File", "Saved", "Notes"})
	for _, s := range summaries {
		row := []string{
			s.ID,
			s.File,
			s.SavedAt.Format("2006-01-02 15:04:05"),
			strconv.Itoa(s.NoteCount),
		}
		if err := table.Append(row); err != nil {
			return fmt.Errorf("append table row: %w", err)
		}
	}
	return table.Render()
}
