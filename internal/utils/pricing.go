package utils

import (
	"fmt"
	"time"

	"peerrent-backend/internal/domain"
)

// LineItemQuote is the cost breakdown of one cart item over a rental
// period. All amounts are integer VND.
type LineItemQuote struct {
	Days          int64
	RentalAmount  int64
	DepositAmount int64
	Total         int64
}

// RentalDays counts chargeable days in a period, inclusive of both the
// start and end date.
func RentalDays(start, end time.Time) (int64, error) {
	if end.Before(start) {
		return 0, fmt.Errorf("end date must be >= start date")
	}
	return int64(end.Sub(start).Hours()/24) + 1, nil
}

// QuoteLineItem prices a single cart item for the period: rental is daily
// rate times quantity times days; deposit is a flat per-unit amount held
// for the whole rental regardless of duration.
func QuoteLineItem(item domain.CartItem, period domain.RentalPeriod) (LineItemQuote, error) {
	if item.Quantity <= 0 {
		return LineItemQuote{}, fmt.Errorf("quantity must be positive")
	}
	if item.DailyRate < 0 || item.DepositRate < 0 {
		return LineItemQuote{}, fmt.Errorf("rates cannot be negative")
	}

	days, err := RentalDays(period.StartDate, period.EndDate)
	if err != nil {
		return LineItemQuote{}, err
	}

	q := LineItemQuote{
		Days:          days,
		RentalAmount:  item.DailyRate * item.Quantity * days,
		DepositAmount: item.DepositRate * item.Quantity,
	}
	q.Total = q.RentalAmount + q.DepositAmount + item.ShippingFee
	return q, nil
}

// ExtensionFee prices extending an active rental to a later end date at
// the same daily rate. The current end date is already paid for, so only
// the additional days are charged.
func ExtensionFee(currentEnd, newEnd time.Time, dailyRate, quantity int64) (int64, error) {
	if !newEnd.After(currentEnd) {
		return 0, fmt.Errorf("new end date must be after the current end date")
	}
	extraDays := int64(newEnd.Sub(currentEnd).Hours() / 24)
	if extraDays < 1 {
		extraDays = 1
	}
	return dailyRate * quantity * extraDays, nil
}
