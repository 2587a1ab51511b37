// Package export turns an application into the tabular files attached to the
// operations email.
//
// Two tables are produced for every submission: a one-row summary and the
// roster listing. A Builder encodes them either as a single workbook with
// "summary" and "players" sheets, or as two UTF-8 CSV files with a byte
// order mark so spreadsheet applications detect the encoding. Both encodings
// carry identical cell values for identical input.
package export

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fineplay-930/apply/internal/application"
)

// Export formats accepted by New.
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

// Attachment is one named file ready to be mailed.
type Attachment struct {
	Filename string
	Content  []byte
	MIMEType string
}

// Artifact holds the attachments built for one submission. Close releases
// any disk resources and must be called once the send attempt is over.
type Artifact struct {
	Attachments []Attachment

	cleanup func() error
}

// Close releases resources held by the artifact. It is safe to call on a nil
// artifact and more than once.
func (a *Artifact) Close() error {
	if a == nil || a.cleanup == nil {
		return nil
	}
	cleanup := a.cleanup
	a.cleanup = nil
	return cleanup()
}

// Builder encodes an application into an Artifact.
type Builder interface {
	// Build encodes app using createdAt for the summary timestamp and the
	// filenames.
	Build(ctx context.Context, app *application.Application, createdAt time.Time) (*Artifact, error)

	// Description names the attachment kind for humans ("Excel", "CSV").
	Description() string
}

// New returns the Builder for format. tempDir is the scratch base for the
// workbook encoding; "" means the OS temp directory.
func New(format, tempDir string) (Builder, error) {
	switch strings.ToLower(format) {
	case FormatXLSX:
		return &WorkbookBuilder{TempDir: tempDir}, nil
	case FormatCSV:
		return CSVBuilder{}, nil
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}

// tables returns the summary and roster tables in attachment order.
func tables(app *application.Application, createdAt time.Time) []Table {
	return []Table{Summary(app, createdAt), Roster(app)}
}
