// Package report renders run output: the per-town summary table, the
// business CSV and the error-log export.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/leadscout/leadscout/errlog"
	"github.com/leadscout/leadscout/models"
	"github.com/leadscout/leadscout/runlog"
)

// WriteTownSummary renders the per-town outcome table.
func WriteTownSummary(w io.Writer, towns []runlog.TownLog) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Town", "Status", "Leads", "Errors", "Duration"})

	for _, town := range towns {
		table.Append([]string{
			town.TownName,
			string(town.Status),
			strconv.Itoa(town.LeadCount),
			strconv.Itoa(len(town.Errors)),
			townDuration(town),
		})
	}

	table.Render()
}

func townDuration(town runlog.TownLog) string {
	if town.EndTime.IsZero() {
		return "-"
	}

	return town.EndTime.Sub(town.StartTime).Round(time.Second).String()
}

// WriteSummary renders the run totals below the town table.
func WriteSummary(w io.Writer, sum runlog.Summary) {
	fmt.Fprintf(w, "towns: %d of %d completed\n", sum.CompletedTowns, sum.TotalTowns)
	fmt.Fprintf(w, "leads: %d, errors: %d\n", sum.TotalLeads, sum.TotalErrors)

	if sum.CompletedTowns > 0 {
		fmt.Fprintf(w, "avg town duration: %s\n", sum.AverageDuration.Round(time.Second))
	}
}

var csvHeader = []string{"name", "phone", "provider", "address", "maps_address", "type_of_business", "town"}

// WriteCSV streams the collected businesses as CSV, header first.
func WriteCSV(w io.Writer, businesses []models.Business) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for i := range businesses {
		b := &businesses[i]

		record := []string{b.Name, b.Phone, b.Provider, b.Address, b.MapsAddress, b.TypeOfBusiness, b.Town}

		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()

	return cw.Error()
}

// WriteErrorReport exports the bounded error log as JSON.
func WriteErrorReport(w io.Writer, errs *errlog.Logger) error {
	payload, err := errs.Export()
	if err != nil {
		return err
	}

	_, err = w.Write(payload)

	return err
}
