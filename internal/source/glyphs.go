package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// glyphsFacts extracts the graph-relevant facts from a Glyphs source. A
// .glyphspackage is a directory whose fontinfo.plist carries the same
// top-level dict minus the glyph data.
func glyphsFacts(path string) (facts, error) {
	plistPath := path
	if strings.HasSuffix(strings.ToLower(path), ".glyphspackage") {
		plistPath = filepath.Join(path, "fontinfo.plist")
	}
	raw, err := os.ReadFile(plistPath)
	if err != nil {
		return facts{}, err
	}
	doc, err := parseOpenstep(string(raw))
	if err != nil {
		return facts{}, fmt.Errorf("parse glyphs source: %w", err)
	}
	root, ok := doc.(map[string]any)
	if !ok {
		return facts{}, fmt.Errorf("glyphs source is not a dict")
	}

	family, _ := root["familyName"].(string)
	if family == "" {
		return facts{}, fmt.Errorf("glyphs source declares no familyName")
	}

	masters, _ := root["fontMaster"].([]any)
	f := facts{
		variable:   len(masters) >= 2,
		familyName: family,
		axisTags:   glyphsAxisTags(root),
	}

	instances, _ := root["instances"].([]any)
	for _, entry := range instances {
		inst, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		// Glyphs 3 marks non-exporting instances with exports = 0.
		if exports, ok := inst["exports"].(string); ok && exports == "0" {
			continue
		}
		name, _ := inst["name"].(string)
		if name == "" {
			continue
		}
		f.instances = append(f.instances, Instance{
			Name:       name,
			FamilyName: family,
			StyleName:  name,
			Filename:   strings.ReplaceAll(family+"-"+name, " ", "") + ".ufo",
		})
	}
	return f, nil
}

// glyphsAxisTags reads the Glyphs 3 axes list. Older sources without an
// axes entry interpolate on weight only.
func glyphsAxisTags(root map[string]any) []string {
	axes, _ := root["axes"].([]any)
	var tags []string
	for _, entry := range axes {
		axis, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		if tag, ok := axis["tag"].(string); ok && tag != "" {
			tags = append(tags, tag)
		}
	}
	if len(tags) == 0 {
		tags = []string{"wght"}
	}
	return tags
}
