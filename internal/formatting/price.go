package formatting

import "fmt"

// FormatPrice форматирует цену из минимальных единиц валюты
func FormatPrice(amount int64, currency string) string {
	return fmt.Sprintf("%.2f %s", float64(amount)/100, currency)
}

// FormatPriceShort форматирует цену без дробной части, если она равна 0
func FormatPriceShort(amount int64, currency string) string {
	if amount%100 == 0 {
		return fmt.Sprintf("%d %s", amount/100, currency)
	}
	return FormatPrice(amount, currency)
}
