package bot

import (
	"fmt"
	"strings"
	"time"

	"carrental/internal/models"
)

var statusLabels = map[models.BookingStatus]string{
	models.StatusPending:   "⏳ ожидает",
	models.StatusApproved:  "✅ подтверждена",
	models.StatusRejected:  "🚫 отклонена",
	models.StatusCompleted: "🏁 завершена",
	models.StatusCancelled: "❌ отменена",
}

func statusLabel(s models.BookingStatus) string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

func formatStats(stats *models.BookingStats) string {
	var b strings.Builder
	b.WriteString("📊 Статистика\n\n")
	fmt.Fprintf(&b, "Всего заявок: %d\n", stats.TotalBookings)
	fmt.Fprintf(&b, "Ожидают: %d\n", stats.PendingBookings)
	fmt.Fprintf(&b, "Подтверждены: %d\n", stats.ApprovedBookings)
	fmt.Fprintf(&b, "Завершены: %d\n", stats.CompletedBookings)
	fmt.Fprintf(&b, "Выручка: %.2f\n", stats.TotalRevenue)

	if len(stats.MonthlyRevenue) > 0 {
		b.WriteString("\nПо месяцам:\n")
		for _, m := range stats.MonthlyRevenue {
			month := time.Date(m.Year, time.Month(m.Month), 1, 0, 0, 0, 0, time.UTC)
			fmt.Fprintf(&b, "%s: %.2f (%d)\n", month.Format("01.2006"), m.Revenue, m.Count)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatBooking(d *models.BookingDetails) string {
	car := d.CarID
	if d.Car != nil {
		car = strings.TrimSpace(d.Car.Brand + " " + d.Car.Name)
	}
	customer := d.CustomerID
	if d.Customer != nil {
		customer = d.Customer.Name
		if d.Customer.Phone != "" {
			customer += ", " + d.Customer.Phone
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🚗 %s\n", car)
	fmt.Fprintf(&b, "👤 %s\n", customer)
	fmt.Fprintf(&b, "📅 %s → %s (%d дн.)\n",
		d.StartDate.Format(models.DateLayout), d.EndDate.Format(models.DateLayout), d.TotalDays)
	fmt.Fprintf(&b, "💰 %.2f\n", d.TotalAmount)
	fmt.Fprintf(&b, "Статус: %s\n", statusLabel(d.Status))
	fmt.Fprintf(&b, "ID: %s", d.ID)
	return b.String()
}
