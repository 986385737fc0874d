package formatting

import "github.com/Freeeeeet/tutor_market/internal/model"

// StatusDisplay представляет отображение статуса
type StatusDisplay struct {
	Emoji string
	Text  string
}

// String склеивает emoji и текст
func (d StatusDisplay) String() string {
	return d.Emoji + " " + d.Text
}

// GetMatchingStatusDisplay возвращает emoji и текст для статуса заявки
func GetMatchingStatusDisplay(status model.MatchingStatus) StatusDisplay {
	displays := map[model.MatchingStatus]StatusDisplay{
		model.MatchingStatusRequested: {"📩", "Waiting for the tutor"},
		model.MatchingStatusOpen:      {"💬", "Open"},
		model.MatchingStatusContinued: {"🔎", "Still searching"},
		model.MatchingStatusConfirmed: {"✅", "Confirmed"},
		model.MatchingStatusRefused:   {"🚫", "Refused"},
	}

	if display, ok := displays[status]; ok {
		return display
	}

	return StatusDisplay{"❓", "Unknown"}
}

// GetBookingStatusDisplay возвращает emoji и текст для статуса бронирования
func GetBookingStatusDisplay(status model.BookingStatus) StatusDisplay {
	displays := map[model.BookingStatus]StatusDisplay{
		model.BookingStatusPending:   {"⏳", "Awaiting approval"},
		model.BookingStatusConfirmed: {"✅", "Confirmed"},
		model.BookingStatusCompleted: {"✔️", "Completed"},
		model.BookingStatusCancelled: {"❌", "Cancelled"},
	}

	if display, ok := displays[status]; ok {
		return display
	}

	return StatusDisplay{"❓", "Unknown"}
}
