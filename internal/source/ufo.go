package source

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ufoFacts reads fontinfo.plist inside the UFO package. A UFO holds exactly
// one master, so it is never variable and yields one synthetic instance.
func ufoFacts(path string) (facts, error) {
	info, err := readFontinfo(filepath.Join(path, "fontinfo.plist"))
	if err != nil {
		return facts{}, err
	}
	family := info["familyName"]
	if family == "" {
		return facts{}, fmt.Errorf("fontinfo.plist declares no familyName")
	}
	style := info["styleName"]
	if style == "" {
		style = "Regular"
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return facts{
		variable:   false,
		familyName: family,
		instances: []Instance{{
			Name:       style,
			FamilyName: family,
			StyleName:  style,
			Filename:   base + ".ufo",
		}},
	}, nil
}

// readFontinfo pulls the string-valued entries out of an XML plist dict.
// Only top-level <key>/<string> pairs matter here; nested collections are
// skipped wholesale.
func readFontinfo(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := xml.NewDecoder(f)
	out := make(map[string]string)
	var key string
	depth := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse fontinfo.plist: %w", err)
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "dict":
				depth++
			case "key":
				var k string
				if err := dec.DecodeElement(&k, &el); err != nil {
					return nil, err
				}
				if depth == 1 {
					key = k
				}
			case "string":
				var v string
				if err := dec.DecodeElement(&v, &el); err != nil {
					return nil, err
				}
				if depth == 1 && key != "" {
					out[key] = v
				}
				key = ""
			case "array":
				// Skip nested structures entirely.
				if err := dec.Skip(); err != nil {
					return nil, err
				}
				key = ""
			}
		case xml.EndElement:
			if el.Name.Local == "dict" {
				depth--
			}
		}
	}
	return out, nil
}
