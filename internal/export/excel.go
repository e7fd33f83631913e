// Package export writes xlsx artifacts: guest receipts and the admin
// bookings report.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"stayd/internal/config"
	"stayd/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

type ExcelService struct {
	config config.ExportConfig
	logger *zerolog.Logger
}

func NewExcelService(cfg config.ExportConfig, logger *zerolog.Logger) *ExcelService {
	return &ExcelService{config: cfg, logger: logger}
}

// WriteReceipt создает файл квитанции для бронирования
func (s *ExcelService) WriteReceipt(ctx context.Context, booking *models.Booking) (string, error) {
	if err := os.MkdirAll(s.config.Path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Receipt"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Booking Receipt #%d", booking.ID))
	_ = f.MergeCell(sheetName, "A1", "B1")

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	rows := [][2]interface{}{
		{"Guest", booking.FullName},
		{"Email", booking.Email},
		{"Contact", booking.ContactNumber},
		{"Room", booking.RoomName},
		{"Check-in", booking.CheckIn.Format("2006-01-02")},
		{"Check-out", booking.CheckOut.Format("2006-01-02")},
		{"Status", booking.Status},
		{"Payment", booking.PaymentStatus},
		{"Payment ID", booking.PaymentID},
		{"Total", fmt.Sprintf("%.2f", booking.TotalAmount)},
		{"Issued", time.Now().Format("2006-01-02 15:04")},
	}

	labelStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})

	for i, row := range rows {
		labelCell, _ := excelize.CoordinatesToCellName(1, i+3)
		valueCell, _ := excelize.CoordinatesToCellName(2, i+3)
		_ = f.SetCellValue(sheetName, labelCell, row[0])
		_ = f.SetCellValue(sheetName, valueCell, row[1])
		_ = f.SetCellStyle(sheetName, labelCell, labelCell, labelStyle)
	}

	_ = f.SetColWidth(sheetName, "A", "A", 18)
	_ = f.SetColWidth(sheetName, "B", "B", 30)
	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("receipt_%d.xlsx", booking.ID)
	filePath := filepath.Join(s.config.Path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	s.logger.Info().Str("file_path", filePath).Int64("booking_id", booking.ID).Msg("Receipt file created")
	return filePath, nil
}

// ExportBookings создает Excel файл с данными о бронированиях
func (s *ExcelService) ExportBookings(ctx context.Context, bookings []models.Booking) (string, error) {
	if err := os.MkdirAll(s.config.Path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Bookings"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	headers := []string{
		"ID", "Guest", "Email", "Room", "Check-in", "Check-out",
		"Status", "Payment", "Amount", "Created At",
	}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, header)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for i := range bookings {
		b := &bookings[i]
		row := i + 2
		_ = f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), b.ID)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), b.FullName)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), b.Email)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), b.RoomName)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), b.CheckIn.Format("2006-01-02"))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), b.CheckOut.Format("2006-01-02"))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), b.Status)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), b.PaymentStatus)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("I%d", row), b.TotalAmount)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("J%d", row), b.CreatedAt.Format("02.01.2006 15:04"))

		if styleID, err := s.statusRowStyle(f, b.Status); err == nil {
			start, _ := excelize.CoordinatesToCellName(1, row)
			end, _ := excelize.CoordinatesToCellName(len(headers), row)
			_ = f.SetCellStyle(sheetName, start, end, styleID)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 8)
	_ = f.SetColWidth(sheetName, "B", "D", 22)
	_ = f.SetColWidth(sheetName, "E", "F", 12)
	_ = f.SetColWidth(sheetName, "G", "H", 16)
	_ = f.SetColWidth(sheetName, "I", "J", 16)
	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("bookings_export_%s.xlsx", time.Now().Format("2006-01-02_15-04-05"))
	filePath := filepath.Join(s.config.Path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	s.logger.Info().Str("file_path", filePath).Int("bookings", len(bookings)).Msg("Bookings export created")
	return filePath, nil
}

func (s *ExcelService) statusRowStyle(f *excelize.File, status string) (int, error) {
	var color string
	switch status {
	case models.BookingStatusApproved, models.BookingStatusCompleted:
		color = "#C6EFCE"
	case models.BookingStatusPending:
		color = "#FFEB9C"
	case models.BookingStatusCancelled:
		color = "#FFC7CE"
	default:
		color = "#FFFFFF"
	}
	return f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		Alignment: &excelize.Alignment{Vertical: "top"},
	})
}
