package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/fineplay-930/apply/internal/application"
)

// utf8BOM lets spreadsheet applications detect UTF-8 (Korean names).
const utf8BOM = "\ufeff"

// CSVMIMEType is the content type of each CSV attachment.
const CSVMIMEType = "text/csv; charset=utf-8"

// CSVBuilder encodes the summary and roster as two in-memory CSV files.
// Nothing touches the filesystem.
type CSVBuilder struct{}

// Description implements Builder.
func (CSVBuilder) Description() string { return "CSV" }

// Build implements Builder.
func (CSVBuilder) Build(ctx context.Context, app *application.Application, createdAt time.Time) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	team := SanitizeTeam(app.HomeTeam)
	ts := Timestamp(createdAt)

	artifact := &Artifact{}
	for _, t := range tables(app, createdAt) {
		content, err := encodeCSV(t)
		if err != nil {
			return nil, fmt.Errorf("encode %s csv: %w", t.Name, err)
		}
		artifact.Attachments = append(artifact.Attachments, Attachment{
			Filename: fmt.Sprintf("fineplay_application_%s_%s_%s.csv", t.Name, team, ts),
			Content:  content,
			MIMEType: CSVMIMEType,
		})
	}

	return artifact, nil
}

// encodeCSV writes the BOM, the header row and every data row.
func encodeCSV(t Table) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(utf8BOM)

	w := csv.NewWriter(&buf)
	if err := w.Write(t.Columns); err != nil {
		return nil, err
	}
	for _, row := range t.Rows {
		if err := w.Write(record(row)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
