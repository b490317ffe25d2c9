package ooxml

import (
	"encoding/xml"
	"errors"
	"path"
	"strings"
)

const workbookRelsPart = "xl/_rels/workbook.xml.rels"

// SheetRef joins a worksheet's manifest entry to its sheet-data part.
type SheetRef struct {
	Name    string
	SheetID int
	Path    string
}

type relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr"`
}

type relationshipsXML struct {
	Items []relationship `xml:"Relationship"`
}

type workbookXML struct {
	Sheets []struct {
		Name    string `xml:"name,attr"`
		SheetID int    `xml:"sheetId,attr"`
		RelID   string `xml:"id,attr"`
	} `xml:"sheets>sheet"`
}

// relsPartFor returns the relationship part that belongs to part,
// e.g. xl/worksheets/sheet1.xml -> xl/worksheets/_rels/sheet1.xml.rels.
func relsPartFor(part string) string {
	return path.Join(path.Dir(part), "_rels", path.Base(part)+".rels")
}

// resolveTarget turns a relationship target into an absolute in-archive path.
// Targets are relative to the directory of the source part unless they start with "/".
func resolveTarget(source, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(path.Clean(target), "/")
	}
	return path.Join(path.Dir(source), target)
}

// readRelationships parses the relationship part owned by part. A missing rels
// part yields (nil, nil, false).
func (c *Container) readRelationships(part string) ([]relationship, bool, error) {
	relsPart := relsPartFor(part)
	data, err := c.ReadEntry(relsPart)
	if err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			return nil, false, nil
		}
		return nil, true, relError(relsPart, err)
	}

	var rels relationshipsXML
	if err := xml.Unmarshal(data, &rels); err != nil {
		return nil, true, relError(relsPart, err)
	}
	return rels.Items, true, nil
}

// ResolveSheets returns the workbook's worksheets in manifest order with their
// numeric ids and sheet-data parts. Sheets whose relationship cannot be resolved
// are omitted.
func (c *Container) ResolveSheets() ([]SheetRef, error) {
	data, err := c.ReadEntry(workbookPart)
	if err != nil {
		return nil, relError(workbookPart, err)
	}
	var wb workbookXML
	if err := xml.Unmarshal(data, &wb); err != nil {
		return nil, relError(workbookPart, err)
	}

	rels, found, err := c.readRelationships(workbookPart)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, relError(workbookRelsPart, ErrEntryNotFound)
	}

	targets := make(map[string]string, len(rels))
	for _, r := range rels {
		if r.TargetMode == "External" {
			continue
		}
		targets[r.ID] = resolveTarget(workbookPart, r.Target)
	}

	refs := make([]SheetRef, 0, len(wb.Sheets))
	for _, s := range wb.Sheets {
		p, ok := targets[s.RelID]
		if !ok {
			continue
		}
		refs = append(refs, SheetRef{Name: s.Name, SheetID: s.SheetID, Path: p})
	}
	return refs, nil
}

// ResolveSheetIDs maps each sheet-data part to its declared sheet id.
func (c *Container) ResolveSheetIDs() (map[string]int, error) {
	refs, err := c.ResolveSheets()
	ids := make(map[string]int, len(refs))
	for _, r := range refs {
		ids[r.Path] = r.SheetID
	}
	return ids, err
}

// ResolveDrawingForSheet returns the drawing part attached to sheetPath, or ""
// when the sheet has no drawing.
func (c *Container) ResolveDrawingForSheet(sheetPath string) (string, error) {
	rels, _, err := c.readRelationships(sheetPath)
	if err != nil {
		return "", err
	}
	for _, r := range rels {
		if r.TargetMode == "External" {
			continue
		}
		if strings.HasSuffix(r.Type, "/drawing") {
			return resolveTarget(sheetPath, r.Target), nil
		}
	}
	return "", nil
}

// ResolveMediaForDrawing maps relationship ids of drawingPath to media parts.
func (c *Container) ResolveMediaForDrawing(drawingPath string) (map[string]string, error) {
	rels, found, err := c.readRelationships(drawingPath)
	if err != nil {
		return map[string]string{}, err
	}
	if !found {
		return map[string]string{}, relError(relsPartFor(drawingPath), ErrEntryNotFound)
	}

	media := make(map[string]string, len(rels))
	for _, r := range rels {
		if r.TargetMode == "External" || !strings.HasSuffix(r.Type, "/image") {
			continue
		}
		media[r.ID] = resolveTarget(drawingPath, r.Target)
	}
	return media, nil
}
