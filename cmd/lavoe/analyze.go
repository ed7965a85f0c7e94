package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/Skymero/lavoe/analysis"
	"github.com/Skymero/lavoe/export"
)

var (
	analyzeInput      string
	analyzeFormat     string
	analyzeOutput     string
	analyzeMonophonic string
	analyzeWorkers    int
	analyzeStart      float64
	analyzeEnd        float64
	analyzeSave       bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze an audio file note by note",
	RunE:  runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVarP(&analyzeInput, "input", "i", "", "audio file to analyze")
	analyzeCmd.MarkFlagRequired("input")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "json", "output format: json, csv or table")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "", "write output to file instead of stdout")
	analyzeCmd.Flags().StringVar(&analyzeMonophonic, "monophonic", "auto", "segmentation mode: auto, yes or no")
	analyzeCmd.Flags().IntVar(&analyzeWorkers, "workers", 0, "note analysis workers (default NumCPU)")
	analyzeCmd.Flags().Float64Var(&analyzeStart, "start", 0, "analyze from this offset in seconds")
	analyzeCmd.Flags().Float64Var(&analyzeEnd, "end", 0, "analyze up to this offset in seconds")
	analyzeCmd.Flags().BoolVar(&analyzeSave, "save", false, "persist the result in the analysis store")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	format, err := export.ParseFormat(analyzeFormat)
	if err != nil {
		return err
	}

	mode, err := parseMonophony(analyzeMonophonic)
	if err != nil {
		return err
	}

	cfg := analysis.DefaultConfig()
	if analyzeWorkers > 0 {
		cfg.Workers = analyzeWorkers
	}
	cfg.DecodeStart = analyzeStart
	cfg.DecodeEnd = analyzeEnd

	analyzer, err := analysis.NewAnalyzer(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := analyzer.AnalyzeFile(ctx, analyzeInput, mode)
	if err != nil {
		return err
	}

	if analyzeSave {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		id, err := st.SaveAnalysis(result)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "Saved analysis:", id)
	}

	out := cmd.OutOrStdout()
	if analyzeOutput != "" {
		f, err := os.Create(analyzeOutput)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	return export.Write(out, format, result)
}

func parseMonophony(s string) (analysis.Monophony, error) {
	switch s {
	case "auto":
		return analysis.MonophonyAuto, nil
	case "yes":
		return analysis.MonophonyMono, nil
	case "no":
		return analysis.MonophonyPoly, nil
	}
	return 0, fmt.Errorf("unknown monophonic mode %q (want auto, yes or no)", s)
}
