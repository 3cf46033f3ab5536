package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/workdays-calculator/internal/calculator"
	"github.com/username/workdays-calculator/internal/display"
	"github.com/username/workdays-calculator/internal/resolver"
	"github.com/username/workdays-calculator/pkg/dateutil"
)

func sampleReport() *calculator.Report {
	return &calculator.Report{
		Start:   dateutil.MustParse("2024-12-20"),
		Country: "nz",
		Results: []calculator.Result{
			{
				IntervalID:   1,
				Offset:       5,
				Unit:         resolver.UnitWeekdays,
				Label:        "+5 working days",
				ResolvedDate: "2025-01-03",
				DisplayDate:  "03/01/2025",
				Holidays: []display.Holiday{
					{Title: "Christmas Day", Date: "25/12/2024"},
					{Title: "Year-end shutdown", Date: "30/12/2024 - 31/12/2024"},
				},
			},
			{
				IntervalID:   2,
				Offset:       1,
				Unit:         resolver.UnitDays,
				Label:        "+1 day",
				ResolvedDate: "2024-12-23",
				DisplayDate:  "23/12/2024",
				Holidays:     []display.Holiday{},
			},
		},
		Skipped: []error{errors.New("interval 3: negative offset")},
	}
}

func TestText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatText, sampleReport()))

	out := buf.String()
	assert.Contains(t, out, "Start: 2024-12-20 (NZ)")
	assert.Contains(t, out, "+5 working days")
	assert.Contains(t, out, "03/01/2025")
	assert.Contains(t, out, "Christmas Day (25/12/2024); Year-end shutdown (30/12/2024 - 31/12/2024)")
	assert.NotContains(t, out, "Warning")
}

func TestTextDegraded(t *testing.T) {
	report := sampleReport()
	report.Degraded = true
	report.Results = nil

	var buf bytes.Buffer
	require.NoError(t, Text(&buf, report))
	assert.Contains(t, buf.String(), "Warning: public holidays unavailable")
	assert.Contains(t, buf.String(), "No intervals configured")
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, sampleReport()))

	var got []struct {
		Start   string              `json:"start"`
		Country string              `json:"country"`
		Results []calculator.Result `json:"results"`
		Skipped []string            `json:"skipped"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 1)

	assert.Equal(t, "2024-12-20", got[0].Start)
	assert.Equal(t, "nz", got[0].Country)
	assert.Equal(t, []string{"interval 3: negative offset"}, got[0].Skipped)
	require.Len(t, got[0].Results, 2)
	assert.Equal(t, "2025-01-03", got[0].Results[0].ResolvedDate)
	assert.Equal(t, "30/12/2024 - 31/12/2024", got[0].Results[0].Holidays[1].Date)
}

func TestCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, sampleReport()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "start,interval_id,interval,unit,resolved_date,display_date,holidays", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "2024-12-20,1,+5 working days,weekdays,2025-01-03,03/01/2025,"))
	assert.Equal(t, "2024-12-20,2,+1 day,days,2024-12-23,23/12/2024,", lines[2])
}

func TestICS(t *testing.T) {
	var buf bytes.Buffer
	now := time.Date(2024, 12, 20, 9, 0, 0, 0, time.UTC)
	require.NoError(t, ICS(&buf, now, sampleReport()))

	cal, err := ical.NewDecoder(&buf).Decode()
	require.NoError(t, err)

	events := cal.Events()
	require.Len(t, events, 2)

	summary, err := events[0].Props.Text(ical.PropSummary)
	require.NoError(t, err)
	assert.Equal(t, "+5 working days from 2024-12-20", summary)

	start := events[0].Props.Get(ical.PropDateTimeStart)
	require.NotNil(t, start)
	assert.Equal(t, "20250103", start.Value)

	uid, err := events[1].Props.Text(ical.PropUID)
	require.NoError(t, err)
	assert.Equal(t, "2024-12-20-2-nz@workdays-calculator", uid)
	assert.Nil(t, events[1].Props.Get(ical.PropDescription))
}

func TestWriteUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, Format("xml"), sampleReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}
