// Package money formats integer VND amounts for people.
package money

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.Vietnamese)

// VND renders an amount with Vietnamese digit grouping, e.g. 1.250.000 ₫.
func VND(amount int64) string {
	return printer.Sprintf("%d ₫", amount)
}
