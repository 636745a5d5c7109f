package export

import (
	"fmt"
	"io"
	"time"

	"stayease/internal/checkout"
	"stayease/internal/model"
)

const BookingsSheet = "Bookings"

var bookingColumns = []string{
	"Booking ID", "Booked On", "Guest", "Email", "Room", "Room Type",
	"Check-in", "Check-out", "Nights", "Total",
}

// ContentType is the xlsx MIME type.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Filename names an export generated at t.
func Filename(t time.Time) string {
	return fmt.Sprintf("bookings_%s.xlsx", t.Format("20060102_150405"))
}

// BookingsWorkbook writes bookings as a single-sheet workbook to out.
func BookingsWorkbook(out io.Writer, bookings []model.Booking) error {
	w := newSheetWriter()
	defer w.close()

	if err := w.addSheet(BookingsSheet); err != nil {
		return err
	}
	if err := w.writeHeader(bookingColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, b := range bookings {
		row := []any{
			b.ID,
			b.BookingDate.String(),
			b.User.Name,
			b.User.Email,
			b.Room.Number,
			b.Room.Type,
			b.CheckInDate.String(),
			b.CheckOutDate.String(),
			checkout.Nights(b.CheckInDate, b.CheckOutDate),
			b.TotalAmount,
		}
		if err := w.writeRow(row); err != nil {
			return fmt.Errorf("write booking %d: %w", b.ID, err)
		}
	}
	return w.save(out)
}
