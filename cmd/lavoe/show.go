package main

import (
	"github.com/spf13/cobra"

	"github.com/Skymero/lavoe/export"
)

var showFormat string

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a stored analysis",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().StringVar(&showFormat, "format", "json", "output format: json, csv or table")
}

func runShow(cmd *cobra.Command, args []string) error {
	format, err := export.ParseFormat(showFormat)
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	record, err := st.GetAnalysis(args[0])
	if err != nil {
		return err
	}

	return export.Write(cmd.OutOrStdout(), format, record.Analysis)
}
