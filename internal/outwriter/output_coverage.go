package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/huangsam/autoindex/internal/contract"
	"github.com/huangsam/autoindex/schema"
	"github.com/olekukonko/tablewriter/tw"
)

func writeCoverageTable(w io.Writer, statuses []schema.CoverageStatus, cfg *contract.Config) error {
	table := newTable(w, []string{"Source", "Enabled", "Bounds", "Windows", "Covered", "Coverage", "Label", "Job"}, tw.AlignRight)

	var data [][]string
	for _, s := range statuses {
		label := contract.GetPlainLabel(s.Percent)
		if cfg.UseColors {
			label = contract.GetColorLabel(s.Percent)
		}
		job := "-"
		if s.Job != nil {
			job = string(s.Job.State())
		}
		data = append(data, []string{
			s.SourceID,
			strconv.FormatBool(s.Enabled),
			formatBounds(s.Bounds),
			strconv.Itoa(s.Windows),
			(time.Duration(s.CoveredSeconds) * time.Second).String(),
			fmtPercent(s.Percent),
			label,
			job,
		})
	}
	if err := renderTable(table, data); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Showing %d tracked sources\n", len(statuses))
	return err
}

func writeCSVCoverage(w io.Writer, statuses []schema.CoverageStatus) error {
	header := []string{"source_id", "enabled", "bounds_from", "bounds_to", "windows", "covered_seconds", "percent", "label", "job_id", "job_state"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, s := range statuses {
			boundsFrom, boundsTo := "", ""
			if s.Bounds != nil {
				boundsFrom = strconv.FormatInt(s.Bounds.From, 10)
				boundsTo = strconv.FormatInt(s.Bounds.To, 10)
			}
			jobID, jobState := "", ""
			if s.Job != nil {
				jobID, jobState = s.Job.JobID, string(s.Job.State())
			}
			row := []string{
				s.SourceID,
				strconv.FormatBool(s.Enabled),
				boundsFrom,
				boundsTo,
				strconv.Itoa(s.Windows),
				strconv.FormatInt(s.CoveredSeconds, 10),
				strconv.FormatFloat(s.Percent, 'f', 2, 64),
				contract.GetPlainLabel(s.Percent),
				jobID,
				jobState,
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}
