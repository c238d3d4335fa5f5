// Package response provides the JSON error shape shared by every endpoint
// and the error codes the checkout flow navigates on. All failures leave
// the API as a {message, code} pair; the code is machine-matched by the
// failure page, the message is shown to the customer as-is.
package response

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Err is the error payload of every non-2xx response.
type Err struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error codes carried in the code field. The flow engine and the failure
// page match on these, so they are part of the wire contract.
const (
	CodeValidation     = "VALIDATION_ERROR"
	CodeOutOfStock     = "OUT_OF_STOCK"
	CodeOrderNotFound  = "ORDER_NOT_FOUND"
	CodeAmountMismatch = "AMOUNT_MISMATCH"
	CodeInvalidParams  = "INVALID_PARAMS"
	CodeInvalidOrder   = "INVALID_ORDER"
	CodePaymentFailed  = "PAY_PROCESS_ABORTED"
	CodeUnknown        = "UNKNOWN_ERROR"
	CodeInternal       = "INTERNAL_ERROR"
)

// Fixed user-facing messages paired with the codes above.
const (
	MsgOutOfStock     = "재고 부족"
	MsgOrderNotFound  = "주문을 찾을 수 없습니다"
	MsgAmountMismatch = "결제 금액이 주문 금액과 일치하지 않습니다"
	MsgInvalidOrder   = "유효하지 않은 주문입니다"
	MsgUnknown        = "알 수 없는 오류가 발생했습니다"
)

// Error builds an error payload from a message/code pair.
func Error(msg, code string) Err {
	return Err{
		Message: msg,
		Code:    code,
	}
}

// Unknown is the generic fallback payload.
func Unknown() Err {
	return Error(MsgUnknown, CodeUnknown)
}

// ValidationError formats go-playground/validator errors into one payload
// with the VALIDATION_ERROR code.
func ValidationError(errs validator.ValidationErrors) Err {
	var errMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errMsgs = append(errMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "min", "max":
			errMsgs = append(errMsgs, fmt.Sprintf("field %s is out of bounds", err.Field()))
		default:
			errMsgs = append(errMsgs, fmt.Sprintf("field %s is not valid", err.Field()))
		}
	}

	return Err{
		Message: strings.Join(errMsgs, ", "),
		Code:    CodeValidation,
	}
}
