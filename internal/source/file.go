package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/model"
)

// File reads contacts from a CSV, XLSX or JSON file chosen by extension.
// CSV and XLSX files need a header row; JSON files hold an array of contacts.
type File struct {
	Path string
}

// Name implements Source.
func (f File) Name() string { return "file:" + filepath.Base(f.Path) }

// Fetch reads every contact in the file.
func (f File) Fetch(ctx context.Context, _ model.Playbook) ([]model.Contact, error) {
	switch strings.ToLower(filepath.Ext(f.Path)) {
	case ".csv":
		fh, err := os.Open(f.Path)
		if err != nil {
			return nil, eris.Wrapf(err, "source: open %s", f.Path)
		}
		defer fh.Close() //nolint:errcheck
		rows, errs := streamCSV(ctx, fh)
		return collectRows(rows, errs)
	case ".xlsx":
		rows, errs := streamXLSX(ctx, f.Path)
		return collectRows(rows, errs)
	case ".json":
		fh, err := os.Open(f.Path)
		if err != nil {
			return nil, eris.Wrapf(err, "source: open %s", f.Path)
		}
		defer fh.Close() //nolint:errcheck
		items, errs := decodeJSONArray[model.Contact](ctx, fh)
		var out []model.Contact
		for c := range items {
			out = append(out, c)
		}
		if err := <-errs; err != nil {
			return nil, err
		}
		return out, nil
	default:
		return nil, eris.Errorf("source: unsupported file type %q", filepath.Ext(f.Path))
	}
}

// collectRows treats the first row as the header and maps the rest.
func collectRows(rows <-chan []string, errs <-chan error) ([]model.Contact, error) {
	var (
		mapper rowMapper
		header bool
		out    []model.Contact
	)
	for row := range rows {
		if !header {
			mapper = newRowMapper(row)
			header = true
			continue
		}
		out = append(out, mapper.contact(row))
	}
	if err := <-errs; err != nil {
		return nil, err
	}
	return out, nil
}
