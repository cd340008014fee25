package orders

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

const currencyPrefix = "KES"

// ComposeMessage renders the order as plain text for the farmer.
func ComposeMessage(p Payload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New order %s\n", p.OrderID)
	fmt.Fprintf(&b, "Name: %s\n", p.Customer.FullName)
	fmt.Fprintf(&b, "Phone: %s\n", p.Customer.Phone)
	fmt.Fprintf(&b, "Address: %s\n", p.Customer.Address)
	b.WriteString("\nItems:\n")
	for _, item := range p.Items {
		fmt.Fprintf(&b, "- %s: %d %s x %s = %s\n",
			item.Name, item.Quantity, item.Unit, FormatAmount(item.UnitPrice), FormatAmount(item.LineTotal))
	}
	fmt.Fprintf(&b, "\nSubtotal: %s\n", FormatAmount(p.Subtotal))
	fmt.Fprintf(&b, "Delivery (%s km): %s\n", p.DistanceKm.StringFixed(1), FormatAmount(p.DeliveryFee))
	fmt.Fprintf(&b, "Total: %s\n", FormatAmount(p.Total))
	fmt.Fprintf(&b, "Payment: %s", p.PaymentMethod.Label())
	if notes := strings.TrimSpace(p.Notes); notes != "" {
		fmt.Fprintf(&b, "\nNotes: %s", notes)
	}
	return b.String()
}

// FormatAmount rounds to whole shillings and groups thousands, e.g. "KES 10,150".
func FormatAmount(amount decimal.Decimal) string {
	whole := amount.Round(0).StringFixed(0)
	sign := ""
	if strings.HasPrefix(whole, "-") {
		sign, whole = "-", whole[1:]
	}
	var grouped strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(r)
	}
	return currencyPrefix + " " + sign + grouped.String()
}

// WhatsAppLink builds a click-to-chat link carrying message. Kenyan numbers
// in local 07xx/01xx form are rewritten to the 254 country code.
func WhatsAppLink(phone, message string) string {
	digits := make([]rune, 0, len(phone))
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}
	number := string(digits)
	if len(number) == 10 && strings.HasPrefix(number, "0") {
		number = "254" + number[1:]
	}
	return "https://wa.me/" + number + "?text=" + url.QueryEscape(message)
}
