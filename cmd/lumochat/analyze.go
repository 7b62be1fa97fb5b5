package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/lumopack/lumobot/internal/analysis"
	"github.com/lumopack/lumobot/internal/models"
	"github.com/spf13/cobra"
)

var (
	analyzeLength float64
	analyzeWidth  float64
	analyzeHeight float64
	analyzeWeight float64
	analyzeFlute  string
	analyzeJSON   bool
)

var (
	safeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42")).
			Padding(0, 1)

	dangerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")).
			Padding(0, 1)
)

var errInvalidDimensions = errors.New("length, width and height must be positive")

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Check whether a corrugated box can carry a product",
	Long: `Estimate box compression strength with the McKee formula.

Dimensions are in centimetres and weight in kilograms. When the box is not
strong enough, stronger flutes or a larger perimeter are suggested.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dims := models.Dimensions{Length: analyzeLength, Width: analyzeWidth, Height: analyzeHeight}
		return runAnalyze(cmd.OutOrStdout(), dims, analyzeWeight, analyzeFlute, analyzeJSON)
	},
}

// analyzeResult is the --json output.
type analyzeResult struct {
	Report       analysis.Report        `json:"report"`
	Alternatives *analysis.Alternatives `json:"alternatives,omitempty"`
}

func runAnalyze(out io.Writer, dims models.Dimensions, weightKg float64, flute string, asJSON bool) error {
	if dims.Length <= 0 || dims.Width <= 0 || dims.Height <= 0 {
		return errInvalidDimensions
	}
	if weightKg < 0 {
		return fmt.Errorf("weight must not be negative: %g", weightKg)
	}

	result := analyzeResult{Report: analysis.Analyze(dims, weightKg, flute)}
	if result.Report.Status == analysis.StatusDanger && weightKg > 0 {
		alts := analysis.SuggestAlternatives(dims, weightKg, flute)
		result.Alternatives = &alts
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	badge := safeStyle.Render(string(result.Report.Status))
	if result.Report.Status == analysis.StatusDanger {
		badge = dangerStyle.Render(string(result.Report.Status))
	}
	fmt.Fprintf(out, "%s %.0f x %.0f x %.0f cm\n", badge, dims.Length, dims.Width, dims.Height)
	fmt.Fprintln(out, analysis.FormatForChat(result.Report))
	if result.Alternatives != nil {
		if text := analysis.FormatAlternatives(*result.Alternatives); text != "" {
			fmt.Fprintln(out, text)
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().Float64Var(&analyzeLength, "length", 0, "Box length in cm")
	analyzeCmd.Flags().Float64Var(&analyzeWidth, "width", 0, "Box width in cm")
	analyzeCmd.Flags().Float64Var(&analyzeHeight, "height", 0, "Box height in cm")
	analyzeCmd.Flags().Float64Var(&analyzeWeight, "weight", 0, "Product weight per box in kg")
	analyzeCmd.Flags().StringVar(&analyzeFlute, "flute", analysis.DefaultFlute, "Flute code (E, B, C, A, BC)")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Print the result as JSON")
	_ = analyzeCmd.MarkFlagRequired("length")
	_ = analyzeCmd.MarkFlagRequired("width")
	_ = analyzeCmd.MarkFlagRequired("height")
}
