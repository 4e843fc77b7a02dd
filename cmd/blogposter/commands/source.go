package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"blogposter/internal/post"
	"blogposter/internal/source"
)

// readRecords reads the records of an input file. kind is "xlsx", "form" or
// empty to decide by extension. A form also carries credentials, they are
// returned when set.
func readRecords(path, kind, sheet string) ([]post.Record, *post.Credentials, error) {
	if kind == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".xlsx", ".xlsm":
			kind = "xlsx"
		case ".json", ".json5":
			kind = "form"
		default:
			return nil, nil, fmt.Errorf("cannot tell the source type of %s, use --source", path)
		}
	}

	switch kind {
	case "xlsx":
		records, err := source.ReadSpreadsheet(path, sheet)
		return records, nil, err
	case "form":
		form, err := source.ReadForm(path)
		if err != nil {
			return nil, nil, err
		}
		var creds *post.Credentials
		if form.Identifier != "" && form.Secret != "" {
			c := form.Credentials()
			creds = &c
		}
		return form.Records(), creds, nil
	}
	return nil, nil, fmt.Errorf("unknown source %q, expected xlsx or form", kind)
}
