// Package export writes calculation reports as text, JSON, CSV or iCalendar
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/emersion/go-ical"
	"github.com/gocarina/gocsv"
	"github.com/username/workdays-calculator/internal/calculator"
	"github.com/username/workdays-calculator/internal/display"
)

// Format is an output format
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatICS  Format = "ics"
)

const prodID = "-//workdays-calculator//EN"

// Formats lists the supported formats
func Formats() []string {
	return []string{string(FormatText), string(FormatJSON), string(FormatCSV), string(FormatICS)}
}

// Write renders the reports in the requested format
func Write(w io.Writer, format Format, reports ...*calculator.Report) error {
	switch Format(strings.ToLower(string(format))) {
	case "", FormatText:
		return Text(w, reports...)
	case FormatJSON:
		return JSON(w, reports...)
	case FormatCSV:
		return CSV(w, reports...)
	case FormatICS:
		return ICS(w, time.Now(), reports...)
	default:
		return fmt.Errorf("unknown output format %q (supported: %s)", format, strings.Join(Formats(), ", "))
	}
}

// Text writes a human-readable table
func Text(w io.Writer, reports ...*calculator.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	for i, report := range reports {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		fmt.Fprintf(tw, "Start: %s (%s)\n", report.Start, strings.ToUpper(report.Country))
		if report.Degraded {
			fmt.Fprintln(tw, "Warning: public holidays unavailable, only weekends and extra holidays applied")
		}
		if len(report.Results) == 0 {
			fmt.Fprintln(tw, "No intervals configured")
			continue
		}

		fmt.Fprintln(tw, "ID\tINTERVAL\tDATE\tHOLIDAYS")
		for _, r := range report.Results {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", r.IntervalID, r.Label, r.DisplayDate, joinHolidays(r.Holidays))
		}
	}

	return tw.Flush()
}

type jsonReport struct {
	Start    string              `json:"start"`
	Country  string              `json:"country"`
	Degraded bool                `json:"degraded,omitempty"`
	Results  []calculator.Result `json:"results"`
	Skipped  []string            `json:"skipped,omitempty"`
}

// JSON writes the reports as a JSON array
func JSON(w io.Writer, reports ...*calculator.Report) error {
	out := make([]jsonReport, 0, len(reports))
	for _, report := range reports {
		jr := jsonReport{
			Start:    report.Start.String(),
			Country:  report.Country,
			Degraded: report.Degraded,
			Results:  report.Results,
		}
		for _, err := range report.Skipped {
			jr.Skipped = append(jr.Skipped, err.Error())
		}
		out = append(out, jr)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// csvRow is one interval of one report
type csvRow struct {
	Start        string `csv:"start"`
	IntervalID   int    `csv:"interval_id"`
	Label        string `csv:"interval"`
	Unit         string `csv:"unit"`
	ResolvedDate string `csv:"resolved_date"`
	DisplayDate  string `csv:"display_date"`
	Holidays     string `csv:"holidays"`
}

// CSV writes one row per interval and start date
func CSV(w io.Writer, reports ...*calculator.Report) error {
	rows := []*csvRow{}
	for _, report := range reports {
		for _, r := range report.Results {
			rows = append(rows, &csvRow{
				Start:        report.Start.String(),
				IntervalID:   r.IntervalID,
				Label:        r.Label,
				Unit:         string(r.Unit),
				ResolvedDate: r.ResolvedDate,
				DisplayDate:  r.DisplayDate,
				Holidays:     joinHolidays(r.Holidays),
			})
		}
	}

	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("failed to encode CSV: %w", err)
	}
	return nil
}

// ICS writes an iCalendar feed with one all-day event per resolved date
func ICS(w io.Writer, now time.Time, reports ...*calculator.Report) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, prodID)

	for _, report := range reports {
		for _, r := range report.Results {
			resolved, err := time.Parse("2006-01-02", r.ResolvedDate)
			if err != nil {
				return fmt.Errorf("interval %d: invalid resolved date %q: %w", r.IntervalID, r.ResolvedDate, err)
			}

			event := ical.NewEvent()
			event.Props.SetText(ical.PropUID, fmt.Sprintf("%s-%d-%s@workdays-calculator",
				report.Start, r.IntervalID, strings.ToLower(report.Country)))
			event.Props.SetText(ical.PropSummary, fmt.Sprintf("%s from %s", r.Label, report.Start))

			stamp := ical.NewProp(ical.PropDateTimeStamp)
			stamp.SetDateTime(now.UTC())
			event.Props.Set(stamp)

			start := ical.NewProp(ical.PropDateTimeStart)
			start.SetDate(resolved)
			event.Props.Set(start)

			if len(r.Holidays) > 0 {
				event.Props.SetText(ical.PropDescription, "Holidays: "+joinHolidays(r.Holidays))
			}

			cal.Children = append(cal.Children, event.Component)
		}
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode iCalendar: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func joinHolidays(holidays []display.Holiday) string {
	parts := make([]string, 0, len(holidays))
	for _, h := range holidays {
		parts = append(parts, fmt.Sprintf("%s (%s)", h.Title, h.Date))
	}
	return strings.Join(parts, "; ")
}
