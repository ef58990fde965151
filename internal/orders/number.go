package orders

import (
	"fmt"
	"time"
)

const orderNumberLayout = "20060102150405"

// OrderNumber formats the time-based order number, e.g. ORD20250101093000.
func OrderNumber(t time.Time) string {
	return "ORD" + t.Format(orderNumberLayout)
}

// OrderNumberAttempt returns the n-th candidate for t. The first attempt is the
// bare number; later attempts append -2, -3 and so on.
func OrderNumberAttempt(t time.Time, n int) string {
	if n <= 1 {
		return OrderNumber(t)
	}
	return fmt.Sprintf("%s-%d", OrderNumber(t), n)
}
