package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/huangsam/autoindex/schema"
	"github.com/olekukonko/tablewriter/tw"
)

func writeJobsTable(w io.Writer, jobs []schema.IndexJob) error {
	table := newTable(w, []string{"Job", "Source", "Window", "State", "Created", "Started"}, tw.AlignLeft)
	var data [][]string
	for _, j := range jobs {
		data = append(data, []string{
			j.JobID,
			j.SourceID,
			formatWindow(j.Window),
			string(j.State()),
			formatTime(j.CreatedTime()),
			formatTime(j.StartedTime()),
		})
	}
	if err := renderTable(table, data); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Showing %d open jobs\n", len(jobs))
	return err
}

func writeCSVJobs(w io.Writer, jobs []schema.IndexJob) error {
	header := []string{"job_id", "source_id", "window_from", "window_to", "state", "created_at", "started_at"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, j := range jobs {
			row := []string{
				j.JobID,
				j.SourceID,
				strconv.FormatInt(j.Window.From, 10),
				strconv.FormatInt(j.Window.To, 10),
				string(j.State()),
				strconv.FormatInt(j.CreatedAt, 10),
				strconv.FormatInt(j.StartedAt, 10),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeSourcesTable(w io.Writer, sources []schema.TrackedSource) error {
	table := newTable(w, []string{"Source", "Raw", "Indexed", "Time Field", "Window", "Lookback", "Enabled"}, tw.AlignLeft)
	var data [][]string
	for _, s := range sources {
		data = append(data, []string{
			s.ID,
			s.Raw.String(),
			s.Indexed.String(),
			s.TimeField,
			formatSeconds(s.WindowSize),
			formatSeconds(s.Lookback),
			strconv.FormatBool(s.Enabled),
		})
	}
	return renderTable(table, data)
}

func writeCSVSources(w io.Writer, sources []schema.TrackedSource) error {
	header := []string{"id", "raw", "indexed", "time_field", "window_size", "lookback", "enabled"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, s := range sources {
			row := []string{
				s.ID,
				s.Raw.String(),
				s.Indexed.String(),
				s.TimeField,
				strconv.FormatInt(s.WindowSize, 10),
				strconv.FormatInt(s.Lookback, 10),
				strconv.FormatBool(s.Enabled),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}
