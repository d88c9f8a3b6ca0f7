package marketdata

import (
	"time"

	"equity-tracker/internal/models"
)

// MarketHoursFor returns the trading schedule for a calendar date. It is a
// pure function of the date plus a fixed US-holiday table and never touches
// the network. Weekends and holidays yield a closed schedule with
// open == close == midnight of that date; business days yield 09:30-16:00.
func MarketHoursFor(date time.Time) models.MarketHours {
	midnight := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())

	if date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
		return models.MarketHours{Open: midnight, Close: midnight, IsOpen: false}
	}
	if isMarketHoliday(date) {
		return models.MarketHours{Open: midnight, Close: midnight, IsOpen: false}
	}

	return models.MarketHours{
		Open:   midnight.Add(9*time.Hour + 30*time.Minute),
		Close:  midnight.Add(16 * time.Hour),
		IsOpen: true,
	}
}

// isMarketHoliday checks the major US market holidays. The floating
// holidays use day-of-week windows (3rd Monday of January and so on),
// which is deliberately coarse.
func isMarketHoliday(date time.Time) bool {
	month, day, weekday := date.Month(), date.Day(), date.Weekday()

	// New Year's Day
	if month == time.January && day == 1 {
		return true
	}
	// Martin Luther King Jr. Day (3rd Monday of January)
	if month == time.January && weekday == time.Monday && day >= 15 && day <= 21 {
		return true
	}
	// Presidents Day (3rd Monday of February)
	if month == time.February && weekday == time.Monday && day >= 15 && day <= 21 {
		return true
	}
	// Memorial Day (last Monday of May)
	if month == time.May && weekday == time.Monday && day >= 25 {
		return true
	}
	// Independence Day
	if month == time.July && day == 4 {
		return true
	}
	// Labor Day (1st Monday of September)
	if month == time.September && weekday == time.Monday && day <= 7 {
		return true
	}
	// Thanksgiving (4th Thursday of November)
	if month == time.November && weekday == time.Thursday && day >= 22 && day <= 28 {
		return true
	}
	// Christmas Day
	if month == time.December && day == 25 {
		return true
	}

	return false
}
