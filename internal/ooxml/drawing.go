package ooxml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// DrawingAnchor is a picture's top-left cell within a worksheet, 1-based.
type DrawingAnchor struct {
	RelID  string
	Row    int
	Column int
}

// CellRange is an inclusive, 1-based rectangle of cells.
type CellRange struct {
	StartRow, StartCol int
	EndRow, EndCol     int
}

// Contains reports whether (row, col) lies inside the range.
func (r CellRange) Contains(row, col int) bool {
	return row >= r.StartRow && row <= r.EndRow && col >= r.StartCol && col <= r.EndCol
}

// ResolveAnchors parses drawingPath and returns one anchor per embedded picture.
// Both twoCellAnchor and oneCellAnchor are read; pictures inside group shapes take
// the anchor of their group.
func (c *Container) ResolveAnchors(drawingPath string) ([]DrawingAnchor, error) {
	data, err := c.ReadEntry(drawingPath)
	if err != nil {
		return nil, relError(drawingPath, err)
	}

	var anchors []DrawingAnchor
	decoder := xml.NewDecoder(bytes.NewReader(data))
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return anchors, relError(drawingPath, err)
		}

		se, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "twoCellAnchor", "oneCellAnchor":
			found, err := parseAnchor(decoder)
			if err != nil {
				return anchors, relError(drawingPath, err)
			}
			anchors = append(anchors, found...)
		}
	}
	return anchors, nil
}

// parseAnchor consumes an anchor element up to its end tag.
func parseAnchor(decoder *xml.Decoder) ([]DrawingAnchor, error) {
	var (
		row, col int
		hasFrom  bool
		inFrom   bool
		field    string
		relIDs   []string
	)

	depth := 1
	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			return nil, err
		}

		switch t := token.(type) {
		case xml.StartElement:
			depth++
			switch t.Name.Local {
			case "from":
				inFrom = true
			case "row", "col":
				if inFrom {
					field = t.Name.Local
				}
			case "blip":
				for _, attr := range t.Attr {
					if attr.Name.Local == "embed" && attr.Value != "" {
						relIDs = append(relIDs, attr.Value)
					}
				}
			}
		case xml.CharData:
			if field == "" {
				continue
			}
			v, err := strconv.Atoi(strings.TrimSpace(string(t)))
			if err != nil {
				return nil, fmt.Errorf("anchor %s: %w", field, err)
			}
			if field == "row" {
				row = v
			} else {
				col = v
			}
		case xml.EndElement:
			depth--
			switch t.Name.Local {
			case "from":
				inFrom = false
				hasFrom = true
			case "row", "col":
				field = ""
			}
		}
	}

	if !hasFrom {
		return nil, nil
	}
	out := make([]DrawingAnchor, 0, len(relIDs))
	for _, id := range relIDs {
		out = append(out, DrawingAnchor{RelID: id, Row: row + 1, Column: col + 1})
	}
	return out, nil
}

// ResolveMergedRanges streams sheetPath and collects its merged cell ranges.
// Cell data is skipped without being buffered.
func (c *Container) ResolveMergedRanges(sheetPath string) ([]CellRange, error) {
	rc, err := c.OpenEntry(sheetPath)
	if err != nil {
		return nil, relError(sheetPath, err)
	}
	defer rc.Close()

	var ranges []CellRange
	decoder := xml.NewDecoder(rc)
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return ranges, relError(sheetPath, err)
		}

		se, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "sheetData":
			if err := decoder.Skip(); err != nil {
				return ranges, relError(sheetPath, err)
			}
		case "mergeCell":
			for _, attr := range se.Attr {
				if attr.Name.Local != "ref" {
					continue
				}
				if r, err := ParseRange(attr.Value); err == nil {
					ranges = append(ranges, r)
				}
			}
		}
	}
	return ranges, nil
}

// ParseRange parses an A1-style reference such as "B2:D4". A single cell
// reference yields a one-cell range.
func ParseRange(ref string) (CellRange, error) {
	start, end, found := strings.Cut(strings.ReplaceAll(ref, "$", ""), ":")
	if !found {
		end = start
	}
	c1, r1, err := excelize.CellNameToCoordinates(start)
	if err != nil {
		return CellRange{}, err
	}
	c2, r2, err := excelize.CellNameToCoordinates(end)
	if err != nil {
		return CellRange{}, err
	}
	if r2 < r1 {
		r1, r2 = r2, r1
	}
	if c2 < c1 {
		c1, c2 = c2, c1
	}
	return CellRange{StartRow: r1, StartCol: c1, EndRow: r2, EndCol: c2}, nil
}
