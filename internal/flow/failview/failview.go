// Package failview implements the terminal failure page: it resolves the
// code and message from the redirect URL into what the customer sees, and
// offers the single way back to the order form.
package failview

import (
	"net/url"

	"github.com/jejumarket/checkout-service/internal/flow"
	resp "github.com/jejumarket/checkout-service/lib/api/response"
)

// messages maps the provider codes we recognize to fixed sentences. Codes
// outside this table fall back to the message from the URL.
var messages = map[string]string{
	"PAY_PROCESS_CANCELED": "결제가 취소되었습니다",
	"PAY_PROCESS_ABORTED":  "결제가 실패했습니다",
	"INVALID_CARD_COMPANY": "유효하지 않은 결제 수단입니다",
	"NOT_ENOUGH_BALANCE":   "잔액이 부족하여 결제에 실패했습니다",
	"REQUEST_TIMEOUT":      "결제 시간이 초과되었습니다",
}

// Page is the resolved failure view. Code is always shown raw for support.
type Page struct {
	Code    string
	Message string
}

// Load resolves the failure page from the redirect query: a known code
// wins over the carried message, the carried message over the generic
// fallback.
func Load(query url.Values) Page {
	code := query.Get("code")
	message := query.Get("message")

	if fixed, ok := messages[code]; ok {
		message = fixed
	} else if message == "" {
		message = resp.MsgUnknown
	}

	if code == "" {
		code = resp.CodeUnknown
	}

	return Page{
		Code:    code,
		Message: message,
	}
}

// Retry returns to the order form with a full navigation, guaranteeing a
// fresh intake state.
func (p Page) Retry(nav flow.Navigator) {
	nav.Assign("/")
}
