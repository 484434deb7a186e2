package export

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/draftflow/internal/application/service"
)

const (
	summarySheet = "Summary"
	historySheet = "History"
	timeLayout   = "2006-01-02 15:04:05"
)

// HistoryExporter renders a draft and its audit trail as an XLSX workbook
type HistoryExporter struct {
	logger *zap.Logger
}

// NewHistoryExporter creates a new exporter
func NewHistoryExporter(logger *zap.Logger) *HistoryExporter {
	return &HistoryExporter{logger: logger}
}

// ContentType is the MIME type of the produced workbook
func (e *HistoryExporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// FileName suggests a download name for the draft's export
func (e *HistoryExporter) FileName(draftID int64) string {
	return fmt.Sprintf("draft_%d_history.xlsx", draftID)
}

// Export writes the workbook to w
func (e *HistoryExporter) Export(w io.Writer, snap *service.DraftSnapshot, history []service.HistoryView) error {
	f := excelize.NewFile()
	defer f.Close()

	// the default sheet becomes the summary
	if err := f.SetSheetName(f.GetSheetName(0), summarySheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(historySheet); err != nil {
		return fmt.Errorf("failed to create history sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := e.writeSummary(f, header, snap); err != nil {
		return err
	}
	if err := e.writeHistory(f, header, history); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	e.logger.Info("Draft history exported",
		zap.Int64("draft_id", snap.ID),
		zap.Int("history_entries", len(history)))
	return nil
}

func (e *HistoryExporter) writeSummary(f *excelize.File, header int, snap *service.DraftSnapshot) error {
	rows := [][]interface{}{
		{"Draft ID", snap.ID},
		{"Title", snap.Title},
		{"Business feature", snap.BusinessFeature},
		{"Organization", snap.OrganizationCode},
		{"Template", snap.TemplateCode},
		{"Status", snap.Status},
		{"Created by", snap.CreatedBy},
		{"Created at", formatTime(&snap.CreatedAt)},
		{"Submitted at", formatTime(snap.SubmittedAt)},
		{"Completed at", formatTime(snap.CompletedAt)},
		{"Cancelled at", formatTime(snap.CancelledAt)},
		{},
		{"Step", "Approver group", "State", "Acted by", "Acted at", "Delegated to", "Comment"},
	}
	stepHeaderRow := len(rows)

	for _, s := range snap.Steps {
		rows = append(rows, []interface{}{
			s.StepOrder, s.ApproverGroupCode, s.State, s.ActedBy, formatTime(s.ActedAt), s.DelegatedTo, s.Comment,
		})
	}

	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write summary row %d: %w", i+1, err)
		}
	}

	if err := f.SetCellStyle(summarySheet, "A1", "A"+strconv.Itoa(stepHeaderRow-2), header); err != nil {
		return fmt.Errorf("failed to style summary: %w", err)
	}
	if err := f.SetCellStyle(summarySheet, "A"+strconv.Itoa(stepHeaderRow), "G"+strconv.Itoa(stepHeaderRow), header); err != nil {
		return fmt.Errorf("failed to style step header: %w", err)
	}
	if err := f.SetColWidth(summarySheet, "A", "G", 20); err != nil {
		e.logger.Warn("Failed to set column width", zap.String("sheet", summarySheet), zap.Error(err))
	}
	return nil
}

func (e *HistoryExporter) writeHistory(f *excelize.File, header int, history []service.HistoryView) error {
	titles := []interface{}{"#", "Time", "Event", "Actor", "Step ID", "Detail"}
	if err := f.SetSheetRow(historySheet, "A1", &titles); err != nil {
		return fmt.Errorf("failed to write history header: %w", err)
	}
	if err := f.SetCellStyle(historySheet, "A1", "F1", header); err != nil {
		return fmt.Errorf("failed to style history header: %w", err)
	}

	for i, h := range history {
		var stepID interface{} = ""
		if h.StepID != nil {
			stepID = *h.StepID
		}
		row := []interface{}{h.ID, formatTime(&h.CreatedAt), h.EventType, h.Actor, stepID, h.Detail}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(historySheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write history row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(historySheet, "B", "F", 22); err != nil {
		e.logger.Warn("Failed to set column width", zap.String("sheet", historySheet), zap.Error(err))
	}
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}
