package process

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

const logSheet = "Logs"

var logColumns = []string{"Timestamp", "Actor", "Actor Kind", "Action", "Actor ID"}

// exportLogs renders the process log as an .xlsx workbook, oldest first.
func exportLogs(p *Process) ([]byte, string, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", logSheet); err != nil {
		return nil, "", err
	}
	if err := writeLogSheet(f, logSheet, p.Logs); err != nil {
		return nil, "", err
	}

	buffer, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}
	return buffer.Bytes(), fmt.Sprintf("%s-%s-logs.xlsx", fileSafe(p.Name), p.Version), nil
}

func writeLogSheet(f *excelize.File, sheet string, logs []LogEntry) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	for i, col := range logColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, col); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return err
		}
	}

	for rowIdx, entry := range logs {
		row := []any{
			entry.Timestamp.Format("2006-01-02 15:04:05"),
			entry.ActorEmail,
			string(entry.ActorKind),
			entry.Action,
			entry.ActorID.Hex(),
		}
		for colIdx, v := range row {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}

	first, err := excelize.ColumnNumberToName(1)
	if err != nil {
		return err
	}
	last, err := excelize.ColumnNumberToName(len(logColumns))
	if err != nil {
		return err
	}
	return f.SetColWidth(sheet, first, last, 22)
}

func fileSafe(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, strings.TrimSpace(name))
	if name == "" {
		return "process"
	}
	return name
}
