package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/address-geocoder/internal/dataset"
	"github.com/sells-group/address-geocoder/internal/model"
	"github.com/sells-group/address-geocoder/internal/report"
)

var (
	reportDataset    string
	reportMinScore   float64
	reportFailedOnly bool
	reportGroup      string
	reportLimit      int
	reportJSON       bool
	reportGeoJSON    string
	reportSummary    string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize a written dataset",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := reportDataset
		if path == "" {
			if err := cfg.Validate("report"); err != nil {
				return err
			}
			path = cfg.Output.Path
		}

		records, err := dataset.ReadOutput(path)
		if err != nil {
			return err
		}
		filtered := report.Filter{
			MinScore:   reportMinScore,
			FailedOnly: reportFailedOnly,
			Group:      reportGroup,
		}.Apply(records)

		if reportGeoJSON != "" {
			if err := writeGeoJSON(reportGeoJSON, filtered); err != nil {
				return err
			}
		}
		if reportSummary != "" {
			doc := report.NewSummaryDocument(path, report.KPIs(filtered), model.RunStats{})
			if err := report.WriteSummaryYAML(reportSummary, doc); err != nil {
				return err
			}
		}

		if reportJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"summary":  report.KPIs(filtered),
				"failures": report.Failures(filtered, reportLimit),
			})
		}
		return printReport(cmd.OutOrStdout(), path, filtered, reportLimit)
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportDataset, "dataset", "", "dataset to read (default output.path)")
	reportCmd.Flags().Float64Var(&reportMinScore, "min-score", 0, "only records scoring at least this")
	reportCmd.Flags().BoolVar(&reportFailedOnly, "failed-only", false, "only records that were not geocoded")
	reportCmd.Flags().StringVar(&reportGroup, "group", "", "only records in this group")
	reportCmd.Flags().IntVar(&reportLimit, "limit", report.DefaultFailureLimit, "max failures to list")
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "print JSON instead of a table")
	reportCmd.Flags().StringVar(&reportGeoJSON, "geojson", "", "also write geocoded points as GeoJSON to this path")
	reportCmd.Flags().StringVar(&reportSummary, "summary", "", "also write the filtered summary as YAML to this path")
	rootCmd.AddCommand(reportCmd)
}

func printReport(w io.Writer, path string, records []model.EnrichedRecord, limit int) error {
	s := report.KPIs(records)
	fmt.Fprintf(w, "dataset:      %s\n", path)
	fmt.Fprintf(w, "total:        %d\n", s.Total)
	fmt.Fprintf(w, "succeeded:    %d (%.1f%%)\n", s.Succeeded, s.SuccessRate)
	fmt.Fprintf(w, "not found:    %d\n", s.NotFound)
	fmt.Fprintf(w, "faulted:      %d\n", s.Faulted)
	if lat, lon, ok := report.Center(records); ok {
		fmt.Fprintf(w, "center:       %.5f, %.5f\n", lat, lon)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if len(s.Groups) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(tw, "CITY\tCOUNT\tSUCCEEDED\tRATE")
		for _, g := range s.Groups {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%.1f%%\n", g.Group, g.Count, g.Succeeded, g.SuccessRate)
		}
		if err := tw.Flush(); err != nil {
			return eris.Wrap(err, "report: flush groups")
		}
	}

	failures := report.Failures(records, limit)
	if len(failures) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(tw, "ADDRESS\tNORMALIZED\tERROR")
		for _, r := range failures {
			errText := r.Error
			if errText == "" {
				errText = "not found"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", strconv.Quote(r.OriginalText), r.NormalizedText, errText)
		}
		if err := tw.Flush(); err != nil {
			return eris.Wrap(err, "report: flush failures")
		}
	}
	return nil
}

func writeGeoJSON(path string, records []model.EnrichedRecord) error {
	data, err := json.MarshalIndent(report.GeoJSON(records), "", "  ")
	if err != nil {
		return eris.Wrap(err, "report: encode geojson")
	}
	return eris.Wrap(os.WriteFile(path, data, 0o644), "report: write geojson")
}
