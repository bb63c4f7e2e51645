package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"carrental/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	bookingsSheet = "Bookings"
	statsSheet    = "Stats"
)

var bookingHeaders = []string{
	"ID", "Car", "Customer", "Email", "Start", "End", "Days", "Amount", "Status", "Created",
}

var statusFill = map[models.BookingStatus]string{
	models.StatusPending:   "#FFEB9C",
	models.StatusApproved:  "#C6EFCE",
	models.StatusCompleted: "#DDEBF7",
	models.StatusRejected:  "#FFC7CE",
	models.StatusCancelled: "#EDEDED",
}

// Workbook builds the owner report: one row per booking plus a stats sheet.
func Workbook(bookings []*models.BookingDetails, stats *models.BookingStats) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(bookingsSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	if err := writeBookings(f, bookings); err != nil {
		f.Close()
		return nil, err
	}

	if stats != nil {
		if _, err := f.NewSheet(statsSheet); err != nil {
			f.Close()
			return nil, fmt.Errorf("error creating sheet: %w", err)
		}
		if err := writeStats(f, stats); err != nil {
			f.Close()
			return nil, err
		}
	}

	// Удаляем стандартный лист
	_ = f.DeleteSheet("Sheet1")
	return f, nil
}

// Write streams the workbook as xlsx.
func Write(w io.Writer, bookings []*models.BookingDetails, stats *models.BookingStats) error {
	f, err := Workbook(bookings, stats)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}

// SaveToDir writes a timestamped report into dir and returns its path.
func SaveToDir(dir string, now time.Time, bookings []*models.BookingDetails, stats *models.BookingStats) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	f, err := Workbook(bookings, stats)
	if err != nil {
		return "", err
	}
	defer f.Close()

	path := filepath.Join(dir, fmt.Sprintf("bookings_%s.xlsx", now.UTC().Format("2006-01-02_150405")))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}
	return path, nil
}

func writeBookings(f *excelize.File, bookings []*models.BookingDetails) error {
	for i, h := range bookingHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(bookingsSheet, cell, h); err != nil {
			return err
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(bookingHeaders), 1)
	_ = f.SetCellStyle(bookingsSheet, "A1", lastHeader, headerStyle)

	styles := make(map[models.BookingStatus]int, len(statusFill))
	for status, color := range statusFill {
		id, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		})
		if err != nil {
			return err
		}
		styles[status] = id
	}

	for i, b := range bookings {
		row := i + 2
		var car, customer, email string
		if b.Car != nil {
			car = b.Car.Brand + " " + b.Car.Name
		}
		if b.Customer != nil {
			customer = b.Customer.Name
			email = b.Customer.Email
		}

		values := []interface{}{
			b.ID, car, customer, email,
			b.StartDate.Format(models.DateLayout),
			b.EndDate.Format(models.DateLayout),
			b.TotalDays, b.TotalAmount, string(b.Status),
			b.CreatedAt.UTC().Format("2006-01-02 15:04"),
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(bookingsSheet, cell, &values); err != nil {
			return err
		}

		if style, ok := styles[b.Status]; ok {
			statusCell, _ := excelize.CoordinatesToCellName(9, row)
			_ = f.SetCellStyle(bookingsSheet, statusCell, statusCell, style)
		}
	}

	_ = f.SetColWidth(bookingsSheet, "A", "A", 38)
	_ = f.SetColWidth(bookingsSheet, "B", "D", 24)
	_ = f.SetColWidth(bookingsSheet, "E", "J", 14)
	return nil
}

func writeStats(f *excelize.File, stats *models.BookingStats) error {
	rows := [][]interface{}{
		{"Total bookings", stats.TotalBookings},
		{"Pending", stats.PendingBookings},
		{"Approved", stats.ApprovedBookings},
		{"Completed", stats.CompletedBookings},
		{"Revenue", stats.TotalRevenue},
		{},
		{"Month", "Revenue", "Bookings"},
	}
	for _, m := range stats.MonthlyRevenue {
		rows = append(rows, []interface{}{fmt.Sprintf("%04d-%02d", m.Year, m.Month), m.Revenue, m.Count})
	}

	for i := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(statsSheet, cell, &rows[i]); err != nil {
			return err
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	_ = f.SetCellStyle(statsSheet, "A1", "A5", bold)
	_ = f.SetCellStyle(statsSheet, "A7", "C7", bold)
	_ = f.SetColWidth(statsSheet, "A", "A", 18)
	return nil
}
