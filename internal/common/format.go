package common

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// Report width used by every CLI
	DefaultWidth = 80
	// Inner width of a boxed section
	BoxWidth     = DefaultWidth - 2

	TimestampLayout = "2006-01-02 15:04"
)

// FormatAmount renders a fiat amount or token price in whole cents
func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

// FormatPercent renders a signed percentage, e.g. "+12.50%" or "-3.00%"
func FormatPercent(percent decimal.Decimal) string {
	if percent.IsPositive() {
		return "+" + percent.StringFixed(2) + "%"
	}
	return percent.StringFixed(2) + "%"
}

// FormatTimestamp renders t in UTC to the minute
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// PrintField prints one aligned "Label: value" line
func PrintField(label string, value any) {
	fmt.Printf("%-13s %v\n", label+":", value)
}

// PrintSeparator prints a separator line with the specified character and width
func PrintSeparator(char string, width int) {
	fmt.Println(strings.Repeat(char, width))
}

// PrintSeparatorNewline prints a separator with a newline before it
func PrintSeparatorNewline(char string, width int) {
	fmt.Println("\n" + strings.Repeat(char, width))
}

func PrintHeader(title string, width int) {
	PrintSeparatorNewline("=", width)
	fmt.Println(title)
	PrintSeparator("=", width)
}

func PrintFooter(message string, width int) {
	PrintSeparatorNewline("=", width)
	fmt.Println(message)
	fmt.Println(strings.Repeat("=", width) + "\n")
}

// PrintBoxSeparator opens a boxed sub-section
func PrintBoxSeparator() {
	fmt.Println("├" + strings.Repeat("─", BoxWidth))
}

// BoxPrefix returns the box-drawing prefix for list items
func BoxPrefix(isLast bool) string {
	if isLast {
		return "└  "
	}
	return "│  "
}

// BoxDetailPrefix returns the prefix for detail lines under list items
func BoxDetailPrefix(isLast bool) string {
	if isLast {
		return "   "
	}
	return "│  "
}
