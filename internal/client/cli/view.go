package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/hongminglow/community-site/internal/models"
)

const maxCell = 48

// renderRecords prints records of one kind as an aligned table.
func renderRecords(w io.Writer, kind models.Kind, records []models.Record) error {
	if len(records) == 0 {
		_, err := fmt.Fprintf(w, "No %s yet.\n", kind)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	switch kind {
	case models.KindAnnouncement:
		fmt.Fprintln(tw, "ID\tTITLE\tWHEN\tDESCRIPTION")
		for _, r := range records {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, cell(r.Title), when(r), cell(r.Description))
		}
	case models.KindCoordinator:
		fmt.Fprintln(tw, "ID\tNAME\tPHOTO")
		for _, r := range records {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", r.ID, cell(r.Name), photoURL(r))
		}
	default:
		fmt.Fprintln(tw, "ID\tTITLE\tDESCRIPTION\tPHOTO")
		for _, r := range records {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, cell(r.Title), cell(r.Description), photoURL(r))
		}
	}
	return tw.Flush()
}

func when(r models.Record) string {
	if r.TimeAndDate == nil {
		return "-"
	}
	t := r.TimeAndDate.UTC()
	if t.Hour() == 0 && t.Minute() == 0 {
		return t.Format("02 Jan 2006")
	}
	return t.Format("02 Jan 2006 15:04")
}

func photoURL(r models.Record) string {
	if r.Photo == nil {
		return "-"
	}
	return r.Photo.URL
}

// cell flattens and truncates free text for a single table cell.
func cell(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return "-"
	}
	if r := []rune(s); len(r) > maxCell {
		return string(r[:maxCell-1]) + "…"
	}
	return s
}
