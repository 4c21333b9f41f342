package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatPrice groups digits by thousands: 129900 -> "129 900 PLN".
func FormatPrice(price int) string {
	return GroupThousands(price) + " PLN"
}

func GroupThousands(n int) string {
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}

	digits := strconv.Itoa(n)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return sign + b.String()
}

// FormatSignedPercent renders a change with its sign: "-5.0%", "+12.5%".
func FormatSignedPercent(delta int, percent float64) string {
	sign := "+"
	if delta < 0 {
		sign = "-"
	}
	return fmt.Sprintf("%s%.1f%%", sign, percent)
}
