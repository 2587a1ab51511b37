package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/fineplay-930/apply/internal/application"
	"github.com/xuri/excelize/v2"
)

// WorkbookMIMEType is the content type of the xlsx attachment.
const WorkbookMIMEType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ErrCellValue is returned when a value cannot be stored in a workbook cell
// unchanged: it is longer than application.MaxCellChars or contains
// characters XML does not allow.
var ErrCellValue = errors.New("value does not fit in a workbook cell")

// defaultSheet is the sheet excelize creates with a new file.
const defaultSheet = "Sheet1"

// WorkbookBuilder encodes the summary and roster as one xlsx workbook.
//
// The workbook is written into a private directory created under TempDir
// for each submission, so concurrent submissions for the same team in the
// same second never share a path. The directory is removed by
// Artifact.Close.
type WorkbookBuilder struct {
	TempDir string
}

// Description implements Builder.
func (b *WorkbookBuilder) Description() string { return "엑셀" }

// Build implements Builder.
func (b *WorkbookBuilder) Build(ctx context.Context, app *application.Application, createdAt time.Time) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tabs := tables(app, createdAt)
	if err := checkCells(tabs); err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp(b.TempDir, "fineplay-export-")
	if err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	artifact := &Artifact{cleanup: func() error { return os.RemoveAll(dir) }}

	name := fmt.Sprintf("fineplay_application_%s_%s.xlsx", SanitizeTeam(app.HomeTeam), Timestamp(createdAt))
	path := filepath.Join(dir, name)

	if err := writeWorkbook(path, tabs); err != nil {
		artifact.Close()
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		artifact.Close()
		return nil, fmt.Errorf("read workbook: %w", err)
	}

	artifact.Attachments = []Attachment{{
		Filename: name,
		Content:  content,
		MIMEType: WorkbookMIMEType,
	}}
	return artifact, nil
}

// checkCells rejects string cells excelize would truncate or rewrite.
func checkCells(tables []Table) error {
	for _, t := range tables {
		for r, row := range t.Rows {
			for c, v := range row {
				s, ok := v.(string)
				if !ok {
					continue
				}
				if utf8.RuneCountInString(s) <= application.MaxCellChars && application.ValidCellText(s) {
					continue
				}
				cell, err := excelize.CoordinatesToCellName(c+1, r+2)
				if err != nil {
					return err
				}
				return fmt.Errorf("%s!%s (%s): %w", t.Name, cell, t.Columns[c], ErrCellValue)
			}
		}
	}
	return nil
}

// writeWorkbook saves one sheet per table, in order, to path.
func writeWorkbook(path string, tables []Table) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, t := range tables {
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, t.Name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(t.Name); err != nil {
			return err
		}

		if err := writeSheet(f, t); err != nil {
			return fmt.Errorf("sheet %s: %w", t.Name, err)
		}
	}

	f.SetActiveSheet(0)
	return f.SaveAs(path)
}

// writeSheet writes the header on row 1 and data rows below it.
func writeSheet(f *excelize.File, t Table) error {
	header := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}

	rows := append([][]any{header}, t.Rows...)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(t.Name, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
