package source

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// streamCSV reads CSV rows, header included, onto a channel. Both channels
// are closed when reading stops.
func streamCSV(ctx context.Context, r io.Reader) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		reader := csv.NewReader(r)
		reader.FieldsPerRecord = -1
		reader.LazyQuotes = true
		reader.TrimLeadingSpace = true

		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "source: csv cancelled")
				return
			}
			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "source: read csv row")
				return
			}
			if blank(record) {
				continue
			}
			select {
			case rowCh <- record:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "source: csv cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

// streamXLSX reads the first sheet's rows onto a channel.
func streamXLSX(ctx context.Context, path string) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		f, err := xlsx.OpenFile(path)
		if err != nil {
			errCh <- eris.Wrap(err, "source: open xlsx")
			return
		}
		if len(f.Sheets) == 0 {
			errCh <- eris.New("source: xlsx has no sheets")
			return
		}

		for _, row := range f.Sheets[0].Rows {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "source: xlsx cancelled")
				return
			}
			cells := make([]string, len(row.Cells))
			for j, cell := range row.Cells {
				cells[j] = cell.String()
			}
			if blank(cells) {
				continue
			}
			select {
			case rowCh <- cells:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "source: xlsx cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

// decodeJSONArray decodes a JSON array element by element.
func decodeJSONArray[T any](ctx context.Context, r io.Reader) (<-chan T, <-chan error) {
	outCh := make(chan T, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(outCh)
		defer close(errCh)

		decoder := json.NewDecoder(r)
		tok, err := decoder.Token()
		if err != nil {
			if err == io.EOF {
				return
			}
			errCh <- eris.Wrap(err, "source: read json opening token")
			return
		}
		if delim, ok := tok.(json.Delim); !ok || delim != '[' {
			errCh <- eris.Errorf("source: expected json array, got %v", tok)
			return
		}

		for decoder.More() {
			var item T
			if err := decoder.Decode(&item); err != nil {
				errCh <- eris.Wrap(err, "source: decode json element")
				return
			}
			select {
			case outCh <- item:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "source: json cancelled")
				return
			}
		}
	}()

	return outCh, errCh
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
