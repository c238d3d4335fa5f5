// Package intake implements the order form: the product selection, the
// customer fields with their formatting and caps, and the submit pipeline
// that turns the selection into an order and hands off to the payment page.
package intake

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/jejumarket/checkout-service/internal/flow"
	"github.com/jejumarket/checkout-service/internal/models"
	"github.com/jejumarket/checkout-service/lib/api/client"
	resp "github.com/jejumarket/checkout-service/lib/api/response"
)

// MaxFieldLen caps every free-text field. The 80th rune is accepted and
// surfaces a length warning; the 81st is rejected outright.
const MaxFieldLen = 80

// phoneRe is the submit-time phone shape. Input is reformatted towards it
// on every write, but validation checks the exact pattern.
var phoneRe = regexp.MustCompile(`^010-\d{4}-\d{4}$`)

// Field names the customer form inputs.
type Field string

const (
	FieldName          Field = "name"
	FieldRecipient     Field = "recipient"
	FieldPhone         Field = "phone"
	FieldPostalCode    Field = "postalCode"
	FieldAddress       Field = "address"
	FieldDetailAddress Field = "detailAddress"
)

var (
	// ErrNotNumeric rejects non-numeric quantity input; state is untouched.
	ErrNotNumeric = errors.New("quantity is not a number")
	// ErrExceedsStock rejects a quantity above the product's stock; the
	// prior value is retained.
	ErrExceedsStock = errors.New("quantity exceeds stock")
	// ErrNoProduct rejects a quantity for an unknown product id.
	ErrNoProduct = errors.New("no such product")
	// ErrFieldTooLong rejects input past the field cap.
	ErrFieldTooLong = errors.New("field exceeds maximum length")
	// ErrRecipientLocked rejects recipient edits while "same as orderer"
	// is set; the recipient is derived from the name then.
	ErrRecipientLocked = errors.New("recipient mirrors orderer")
	// ErrAddressReadOnly rejects direct writes to the address fields; they
	// are populated through the lookup widget callback only.
	ErrAddressReadOnly = errors.New("address fields are set via lookup")
	// ErrConsentRequired blocks submission before validation even runs.
	ErrConsentRequired = errors.New("consent is required")
	// ErrValidation blocks submission; per-field messages are in Errors().
	ErrValidation = errors.New("form is not valid")
	// ErrNoItems blocks submission when nothing is selected.
	ErrNoItems = errors.New("no items selected")
)

// Validation messages shown next to the fields.
const (
	msgNameRequired      = "주문자 이름을 입력해주세요"
	msgRecipientRequired = "받는 사람 이름을 입력해주세요"
	msgPhoneFormat       = "연락처를 010-XXXX-XXXX 형식으로 입력해주세요"
	msgPostalRequired    = "우편번호를 입력해주세요"
	msgAddressRequired   = "주소를 입력해주세요"
	msgFieldTooLong      = "입력은 80자 이내여야 합니다"
	msgSelectItems       = "주문할 상품을 선택해주세요"
	msgStockExceeded     = "재고 수량을 초과할 수 없습니다"
)

// Client is the slice of the API the form needs.
type Client interface {
	ListItems(ctx context.Context) ([]models.Product, error)
	CreateOrder(ctx context.Context, req client.CreateOrderRequest) (string, error)
	ActivateSession(ctx context.Context)
}

// Form is the order-intake page state. Not safe for concurrent use; it
// models a single user's form.
type Form struct {
	client Client
	nav    flow.Navigator

	products   []models.Product
	quantities map[int]int

	fields        map[Field]string
	fieldErrs     map[Field]string
	sameAsOrderer bool
	consent       bool

	warning string
}

func New(c Client, nav flow.Navigator) *Form {
	return &Form{
		client:     c,
		nav:        nav,
		quantities: make(map[int]int),
		fields:     make(map[Field]string),
		fieldErrs:  make(map[Field]string),
	}
}

// Load activates the server session (fire-and-forget) and fetches the
// catalog, initializing every quantity to zero.
func (f *Form) Load(ctx context.Context) error {
	f.client.ActivateSession(ctx)

	products, err := f.client.ListItems(ctx)
	if err != nil {
		return fmt.Errorf("can't load catalog: %w", err)
	}

	f.products = products
	for _, p := range products {
		f.quantities[p.ID] = 0
	}

	return nil
}

// Products returns the loaded catalog.
func (f *Form) Products() []models.Product {
	return f.products
}

// Quantity returns the selected quantity for a product.
func (f *Form) Quantity(productID int) int {
	return f.quantities[productID]
}

// SetQuantity stores a quantity for a product, clamped to [0, stock].
// Negative values clamp to zero; values above stock are rejected keeping
// the prior value and raising the stock warning.
func (f *Form) SetQuantity(productID, quantity int) error {
	product, ok := f.product(productID)
	if !ok {
		return ErrNoProduct
	}

	if quantity < 0 {
		quantity = 0
	}

	if quantity > product.Stock {
		f.warning = msgStockExceeded

		return ErrExceedsStock
	}

	f.warning = ""
	f.quantities[productID] = quantity

	return nil
}

// SetQuantityInput parses raw quantity input. Non-numeric input is
// rejected without touching state.
func (f *Form) SetQuantityInput(productID int, raw string) error {
	quantity, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return ErrNotNumeric
	}

	return f.SetQuantity(productID, quantity)
}

// Warning returns the current user-facing selection warning, if any.
func (f *Form) Warning() string {
	return f.warning
}

// SetField writes one form field, applying the phone reformatting and the
// length cap. Recipient is locked while "same as orderer" is set, and the
// address fields only accept values through ApplyAddress.
func (f *Form) SetField(field Field, value string) error {
	switch field {
	case FieldRecipient:
		if f.sameAsOrderer {
			return ErrRecipientLocked
		}
	case FieldPostalCode, FieldAddress:
		return ErrAddressReadOnly
	case FieldPhone:
		value = FormatPhone(value)
	}

	return f.setCapped(field, value)
}

func (f *Form) setCapped(field Field, value string) error {
	length := utf8.RuneCountInString(value)

	if length > MaxFieldLen {
		f.fieldErrs[field] = msgFieldTooLong

		return ErrFieldTooLong
	}

	f.fields[field] = value

	if length == MaxFieldLen {
		f.fieldErrs[field] = msgFieldTooLong
	} else {
		delete(f.fieldErrs, field)
	}

	return nil
}

// ApplyAddress stores the postal code and address delivered by the
// address-lookup widget callback.
func (f *Form) ApplyAddress(postalCode, address string) error {
	if err := f.setCapped(FieldPostalCode, postalCode); err != nil {
		return err
	}

	return f.setCapped(FieldAddress, address)
}

// Field reads a form field. Recipient is derived from the name while
// "same as orderer" is set, never copied.
func (f *Form) Field(field Field) string {
	if field == FieldRecipient && f.sameAsOrderer {
		return f.fields[FieldName]
	}

	return f.fields[field]
}

// FieldError returns the visible error for a field, if any.
func (f *Form) FieldError(field Field) string {
	return f.fieldErrs[field]
}

// SetSameAsOrderer toggles the recipient mirroring. Turning it off resets
// the recipient to empty for explicit re-entry.
func (f *Form) SetSameAsOrderer(same bool) {
	f.sameAsOrderer = same

	if !same {
		f.fields[FieldRecipient] = ""
	}
}

// SetConsent records the required consent flag.
func (f *Form) SetConsent(consent bool) {
	f.consent = consent
}

// FormatPhone strips non-digits and re-inserts the dashes of the
// NNN-NNNN-NNNN pattern. Formatting an already-formatted number returns it
// unchanged; input too short for the pattern stays digits-only.
func FormatPhone(value string) string {
	var digits strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	d := digits.String()
	switch {
	case len(d) > 7:
		return d[:3] + "-" + d[3:7] + "-" + d[7:]
	case len(d) == 7:
		return d[:3] + "-" + d[3:]
	default:
		return d
	}
}

// Validate runs the field checks and returns the per-field messages.
// It never touches the network.
func (f *Form) Validate() map[Field]string {
	errs := make(map[Field]string)

	if strings.TrimSpace(f.Field(FieldName)) == "" {
		errs[FieldName] = msgNameRequired
	}

	if strings.TrimSpace(f.Field(FieldRecipient)) == "" {
		errs[FieldRecipient] = msgRecipientRequired
	}

	if !phoneRe.MatchString(f.Field(FieldPhone)) {
		errs[FieldPhone] = msgPhoneFormat
	}

	if strings.TrimSpace(f.Field(FieldPostalCode)) == "" {
		errs[FieldPostalCode] = msgPostalRequired
	}

	if strings.TrimSpace(f.Field(FieldAddress)) == "" {
		errs[FieldAddress] = msgAddressRequired
	}

	// Stored values never exceed the cap (setCapped enforces it), so no
	// separate length check is needed here.

	return errs
}

// SelectedItems returns the order lines for every product with a positive
// quantity; zero-quantity rows never reach the order.
func (f *Form) SelectedItems() []client.CreateOrderItem {
	items := make([]client.CreateOrderItem, 0)
	for _, p := range f.products {
		if q := f.quantities[p.ID]; q > 0 {
			items = append(items, client.CreateOrderItem{
				ID:       p.ID,
				Name:     p.Name,
				Quantity: q,
				Price:    p.Price,
			})
		}
	}

	return items
}

// Total computes the current order total over the selected items.
func (f *Form) Total() int {
	var total int
	for _, p := range f.products {
		total += p.Price * f.quantities[p.ID]
	}

	return total
}

// Submit runs the gate checks in their fixed priority order — consent,
// then validation, then the item check — and only then creates the order.
// Success navigates to the payment page; a request failure navigates to
// the failure page with the server's message/code pair. A canceled context
// returns quietly without navigating anywhere.
func (f *Form) Submit(ctx context.Context) error {
	if !f.consent {
		return ErrConsentRequired
	}

	if errs := f.Validate(); len(errs) > 0 {
		for field, msg := range errs {
			f.fieldErrs[field] = msg
		}

		return ErrValidation
	}

	items := f.SelectedItems()
	if len(items) == 0 {
		f.warning = msgSelectItems

		return ErrNoItems
	}

	var total int
	modelItems := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		total += item.Price * item.Quantity
		modelItems = append(modelItems, models.OrderItem{
			ProductID: item.ID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}

	req := client.CreateOrderRequest{
		Customer: models.Customer{
			Name:          f.Field(FieldName),
			Recipient:     f.Field(FieldRecipient),
			Phone:         f.Field(FieldPhone),
			PostalCode:    f.Field(FieldPostalCode),
			Address:       f.Field(FieldAddress),
			DetailAddress: f.Field(FieldDetailAddress),
		},
		Items:       items,
		TotalAmount: total,
		OrderName:   models.OrderName(modelItems),
	}

	orderID, err := f.client.CreateOrder(ctx, req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}

		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			f.nav.Assign(flow.FailURL(apiErr.Message, apiErr.Code))
		} else {
			f.nav.Assign(flow.FailURL(resp.MsgUnknown, resp.CodeUnknown))
		}

		return err
	}

	f.nav.Assign(flow.PaymentURL(orderID))

	return nil
}

func (f *Form) product(productID int) (models.Product, bool) {
	for _, p := range f.products {
		if p.ID == productID {
			return p, true
		}
	}

	return models.Product{}, false
}
