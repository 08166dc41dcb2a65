// Package ooxml has shared helpers for reading Office Open XML packages
// (DOCX, PPTX): member lookup and relationship parsing.
package ooxml

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
)

// Relationship represents an OOXML package relationship.
type Relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr"`
}

type relationships struct {
	XMLName       xml.Name       `xml:"Relationships"`
	Relationships []Relationship `xml:"Relationship"`
}

// ReadFile returns the contents of a named member of the package.
func ReadFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, fmt.Errorf("%s: not found in package", name)
}

// ParseRelationships parses a .rels member into a map keyed by relationship ID.
// A missing .rels member is not an error; an empty map is returned.
func ParseRelationships(zr *zip.Reader, relsPath string) (map[string]Relationship, error) {
	data, err := ReadFile(zr, relsPath)
	if err != nil {
		return map[string]Relationship{}, nil
	}

	var rels relationships
	if err := xml.Unmarshal(data, &rels); err != nil {
		return nil, fmt.Errorf("parse %s: %w", relsPath, err)
	}

	out := make(map[string]Relationship, len(rels.Relationships))
	for _, r := range rels.Relationships {
		out[r.ID] = r
	}
	return out, nil
}
