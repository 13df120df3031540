package enum

// PaymentMethod represents how a payment was tendered
type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodMobile PaymentMethod = "mobile"
	PaymentMethodBank   PaymentMethod = "bank"
)

// IsValid reports whether the value is a known payment method
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodMobile, PaymentMethodBank:
		return true
	}
	return false
}
