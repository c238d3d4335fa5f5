// Package flow holds the pieces shared by every checkout page: the
// navigation capability and the failure-redirect contract. The pages
// themselves live in the subpackages intake, bridge, confirm and failview,
// and data moves strictly forward between them through URL query
// parameters and the server-held order record.
package flow

import "fmt"

// Navigator abstracts page navigation so the flow can be driven headless
// in tests. Assign pushes a new history entry, Replace swaps the current
// one, Reload forces a full page reload.
type Navigator interface {
	Assign(url string)
	Replace(url string)
	Reload()
}

// FailURL builds the failure-page redirect. The message rides in the query
// verbatim, unencoded. An empty message is omitted entirely.
func FailURL(message, code string) string {
	if message == "" {
		return fmt.Sprintf("/fail?code=%s", code)
	}

	return fmt.Sprintf("/fail?message=%s&code=%s", message, code)
}

// PaymentURL builds the payment-page location for a created order.
func PaymentURL(orderID string) string {
	return fmt.Sprintf("/payment?orderId=%s", orderID)
}
