package report

import (
	"strconv"
	"time"

	"github.com/JonMunkholm/sheetsync/internal/core"
)

const timeLayout = "2006-01-02 15:04:05"

// Pass renders one pass report: a summary table and, when rows failed, a
// failures table.
type Pass struct {
	Report core.PassReport
}

func (p Pass) Value() any { return p.Report }

func (p Pass) Tables() []Data {
	r := p.Report
	mode := "live"
	if r.DryRun {
		mode = "dry run"
	}

	summary := Data{
		Title:   "Pass " + r.PassID,
		Headers: []string{"Field", "Value"},
		Rows: [][]string{
			{"Source", r.Source},
			{"Mode", mode},
			{"Phase", string(r.Phase)},
			{"Started", r.StartedAt.Local().Format(timeLayout)},
			{"Duration", r.Duration.Round(time.Millisecond).String()},
			{"Processed", strconv.Itoa(r.Processed)},
			{"Skipped", strconv.Itoa(r.Skipped)},
			{"Excluded", strconv.Itoa(r.Excluded)},
			{"Created", strconv.Itoa(r.Created)},
			{"Updated", strconv.Itoa(r.Updated)},
			{"Unchanged", strconv.Itoa(r.Unchanged)},
			{"Failed", strconv.Itoa(r.Failed)},
			{"Deleted", strconv.FormatInt(r.Deleted, 10)},
		},
	}
	if r.Error != "" {
		summary.Rows = append(summary.Rows, []string{"Error", r.Error})
	}

	tables := []Data{summary}
	if len(r.Failures) > 0 {
		tables = append(tables, Failures(r.Failures))
	}
	return tables
}

// Failures renders row failures.
func Failures(failures []core.RowFailure) Data {
	d := Data{
		Title:      "Failed rows",
		Headers:    []string{"Row", "Key", "Reason"},
		RightAlign: []int{0},
	}
	for _, f := range failures {
		d.Rows = append(d.Rows, []string{strconv.Itoa(f.Index), f.Key, f.Reason})
	}
	return d
}

// Records renders stored records.
type Records []core.PersistedRecord

func (r Records) Value() any {
	if r == nil {
		return []core.PersistedRecord{}
	}
	return []core.PersistedRecord(r)
}

func (r Records) Tables() []Data {
	d := Data{
		Headers: []string{"Key", "Name", "Persona", "Birthday", "Affiliation", "Logo", "Updated"},
	}
	for _, rec := range r {
		d.Rows = append(d.Rows, []string{
			rec.Key,
			text(rec.Name),
			text(rec.Persona),
			core.BirthdayString(rec.Birthday),
			text(rec.Affiliation),
			text(rec.AffiliationLogo),
			rec.UpdatedAt.Local().Format(timeLayout),
		})
	}
	return []Data{d}
}

func text(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
