// Package cli renders extraction results, listings and search hits for the
// boq command.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/salamony4all/boq/internal/models"
	"github.com/salamony4all/boq/pkg/utils"
)

// OutputFormat selects how results are written.
type OutputFormat string

const (
	// OutputText is a human-readable table (default).
	OutputText OutputFormat = "text"
	// OutputJSON is indented JSON.
	OutputJSON OutputFormat = "json"
	// OutputCompact is single-line JSON, one document per call.
	OutputCompact OutputFormat = "compact"
)

const maxCellWidth = 40

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return OutputText, nil
	case OutputText, OutputJSON, OutputCompact:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (use text, json or compact)", s)
	}
}

func writeJSON(w io.Writer, v interface{}, format OutputFormat) error {
	enc := json.NewEncoder(w)
	if format == OutputJSON {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

// WriteExtractionResult writes the stitched tables of an extraction.
func WriteExtractionResult(w io.Writer, result *models.ExtractionResult, format OutputFormat) error {
	if format != OutputText {
		return writeJSON(w, result, format)
	}
	if result == nil || len(result.Tables) == 0 {
		fmt.Fprintln(w, "No tables found.")
		return nil
	}
	for _, table := range result.Tables {
		writeTable(w, &table)
	}
	fmt.Fprintf(w, "%d rows, %d images\n", result.RowCount(), result.ImageCount())
	return nil
}

func writeTable(w io.Writer, table *models.Table) {
	fmt.Fprintf(w, "\n== %s (%d columns, %d rows) ==\n", table.SheetName, table.ColumnCount, len(table.Rows))
	if table.Header == nil {
		fmt.Fprintln(w, "(no header row detected)")
		return
	}

	widths := make([]int, table.ColumnCount)
	grid := make([][]string, 0, len(table.Rows)+1)
	grid = append(grid, padCells(table.Header, table.ColumnCount))
	for _, row := range table.Rows {
		cells := make([]string, table.ColumnCount)
		for i := 0; i < table.ColumnCount && i < len(row.Cells); i++ {
			cells[i] = cellText(row.Cells[i])
		}
		grid = append(grid, cells)
	}
	for _, cells := range grid {
		for i, c := range cells {
			if n := len([]rune(c)); n > widths[i] {
				widths[i] = n
			}
		}
	}

	for r, cells := range grid {
		parts := make([]string, len(cells))
		for i, c := range cells {
			parts[i] = utils.PadRight(c, widths[i])
		}
		line := strings.TrimRight(strings.Join(parts, " | "), " ")
		if r > 0 && table.Rows[r-1].IsSummary {
			line += "  (summary)"
		}
		fmt.Fprintln(w, line)
		if r == 0 {
			sep := make([]string, len(widths))
			for i, n := range widths {
				sep[i] = strings.Repeat("-", n)
			}
			fmt.Fprintln(w, strings.Join(sep, "-+-"))
		}
	}
}

func padCells(values []string, width int) []string {
	out := make([]string, width)
	for i := 0; i < width && i < len(values); i++ {
		out[i] = utils.Truncate(utils.SingleLine(values[i]), maxCellWidth)
	}
	return out
}

func cellText(c models.Cell) string {
	s := utils.Truncate(utils.SingleLine(c.Value), maxCellWidth)
	if n := len(c.Images); n > 0 {
		marker := fmt.Sprintf("[%d img]", n)
		if s == "" {
			return marker
		}
		s += " " + marker
	}
	return s
}

// WriteExtraction writes one stored extraction with its metadata.
func WriteExtraction(w io.Writer, ext *models.Extraction, format OutputFormat) error {
	if format != OutputText {
		return writeJSON(w, ext, format)
	}
	fmt.Fprintf(w, "ID:      %s\n", ext.ID)
	fmt.Fprintf(w, "File:    %s (%s)\n", ext.FileName, ext.Format)
	if ext.SourcePath != "" {
		fmt.Fprintf(w, "Source:  %s\n", ext.SourcePath)
	}
	fmt.Fprintf(w, "Created: %s\n", ext.CreatedAt.Format(time.RFC3339))
	return WriteExtractionResult(w, ext.Result, format)
}

// ExtractionList is a page of stored extractions.
type ExtractionList struct {
	Extractions []*models.Extraction `json:"extractions"`
	Total       int64                `json:"total"`
	Offset      int                  `json:"offset"`
	Limit       int                  `json:"limit"`
}

// WriteExtractionList writes a listing of extraction summaries.
func WriteExtractionList(w io.Writer, list *ExtractionList, format OutputFormat) error {
	if format != OutputText {
		return writeJSON(w, list, format)
	}
	if len(list.Extractions) == 0 {
		fmt.Fprintln(w, "No extractions.")
		return nil
	}
	fmt.Fprintf(w, "Showing %d of %d extractions\n\n", len(list.Extractions), list.Total)
	for _, ext := range list.Extractions {
		fmt.Fprintf(w, "%s  %-5s %5d rows %4d images  %s  %s\n",
			ext.ID, ext.Format, ext.RowCount, ext.ImageCount,
			ext.CreatedAt.Format("2006-01-02 15:04"), ext.FileName)
	}
	return nil
}

// WriteItemSearch writes line-item search hits.
func WriteItemSearch(w io.Writer, resp *models.ItemSearchResponse, format OutputFormat) error {
	if format != OutputText {
		return writeJSON(w, resp, format)
	}
	fmt.Fprintf(w, "\nFound %d line items for %q in %dms\n\n", resp.Total, resp.Query, resp.QueryTime)
	for _, hit := range resp.Hits {
		if hit.Item == nil {
			continue
		}
		fmt.Fprintf(w, "%2d. %s  (score %.3f)\n", hit.Rank, utils.Truncate(utils.SingleLine(hit.Item.Description), 80), hit.Score)
		fmt.Fprintf(w, "    %s row %d [%s]\n", hit.Item.FileName, hit.Item.RowIndex+1, hit.Item.ExtractionID)
		if fields := formatFields(hit.Item.Fields, hit.Item.Description); fields != "" {
			fmt.Fprintf(w, "    %s\n", fields)
		}
		for _, u := range hit.Item.ImageURLs {
			fmt.Fprintf(w, "    image: %s\n", u)
		}
	}
	return nil
}

func formatFields(fields map[string]string, skip string) string {
	keys := make([]string, 0, len(fields))
	for k, v := range fields {
		if v != skip {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + utils.Truncate(utils.SingleLine(fields[k]), maxCellWidth)
	}
	return strings.Join(parts, ", ")
}
