package source

import (
	"encoding/xml"
	"fmt"
	"os"
)

// Minimal designspace document model: just the parts the build graph needs.
// Axes give the variable axis tags, the master count decides variability,
// and instances drive static chains.
type dsDocument struct {
	XMLName   xml.Name     `xml:"designspace"`
	Axes      []dsAxis     `xml:"axes>axis"`
	Sources   []dsSource   `xml:"sources>source"`
	Instances []dsInstance `xml:"instances>instance"`
}

type dsAxis struct {
	Tag  string `xml:"tag,attr"`
	Name string `xml:"name,attr"`
}

type dsSource struct {
	Filename   string `xml:"filename,attr"`
	FamilyName string `xml:"familyname,attr"`
}

type dsInstance struct {
	Name       string        `xml:"name,attr"`
	FamilyName string        `xml:"familyname,attr"`
	StyleName  string        `xml:"stylename,attr"`
	Filename   string        `xml:"filename,attr"`
	Location   []dsDimension `xml:"location>dimension"`
}

type dsDimension struct {
	Name   string  `xml:"name,attr"`
	XValue float64 `xml:"xvalue,attr"`
}

func designspaceFacts(path string) (facts, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return facts{}, err
	}
	var doc dsDocument
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return facts{}, fmt.Errorf("parse designspace: %w", err)
	}
	if len(doc.Sources) == 0 {
		return facts{}, fmt.Errorf("designspace declares no sources")
	}

	f := facts{variable: len(doc.Sources) >= 2}
	for _, ax := range doc.Axes {
		f.axisTags = append(f.axisTags, ax.Tag)
	}

	// Axis names map to tags for instance locations.
	axisTagByName := make(map[string]string, len(doc.Axes))
	for _, ax := range doc.Axes {
		axisTagByName[ax.Name] = ax.Tag
	}

	f.familyName = doc.Sources[0].FamilyName
	for _, inst := range doc.Instances {
		loc := make(map[string]float64, len(inst.Location))
		for _, dim := range inst.Location {
			tag := axisTagByName[dim.Name]
			if tag == "" {
				tag = dim.Name
			}
			loc[tag] = dim.XValue
		}
		name := inst.Name
		if name == "" {
			name = inst.StyleName
		}
		f.instances = append(f.instances, Instance{
			Name:       name,
			FamilyName: inst.FamilyName,
			StyleName:  inst.StyleName,
			Filename:   inst.Filename,
			Location:   loc,
		})
		if f.familyName == "" {
			f.familyName = inst.FamilyName
		}
	}
	if f.familyName == "" {
		return facts{}, fmt.Errorf("designspace declares no family name")
	}
	return f, nil
}
