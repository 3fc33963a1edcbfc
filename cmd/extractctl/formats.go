package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vish4lsharma/extractor/internal/core/extractors"
	"github.com/vish4lsharma/extractor/internal/models"
)

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List supported file extensions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		formats := extractors.SupportedFormats()
		kinds := make([]string, 0, len(formats))
		for k := range formats {
			kinds = append(kinds, string(k))
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			fmt.Fprintf(cmd.OutOrStdout(), "%-12s %s\n", k, strings.Join(formats[models.ExtractorKind(k)], " "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(formatsCmd)
}
