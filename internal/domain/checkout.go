package domain

var ErrMissingShipping = &Error{Code: EINVALID, Message: "Please complete your shipping information"}

// PaymentMethod is the closed set of checkout payment methods.
type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCard   PaymentMethod = "card"
	PaymentNets   PaymentMethod = "nets"
	PaymentPayPal PaymentMethod = "paypal"
	PaymentWallet PaymentMethod = "wallet"
)

// ParsePaymentMethod resolves user input to a member of the enumeration.
// Unrecognized input defaults to card.
func ParsePaymentMethod(s string) PaymentMethod {
	switch PaymentMethod(s) {
	case PaymentCash, PaymentNets, PaymentPayPal, PaymentWallet:
		return PaymentMethod(s)
	}
	return PaymentCard
}

// StatusForMethod resolves the order status recorded at settlement:
// cash orders await collection, every other successful method is PAID.
func StatusForMethod(m PaymentMethod) OrderStatus {
	if m == PaymentCash {
		return OrderStatusCashOnDelivery
	}
	return OrderStatusPaid
}

// PendingCheckout is the transient per-session record staged when checkout
// needs a second step (card details, QR generation, provider redirect).
// A session holds at most one: starting a new attempt overwrites it.
type PendingCheckout struct {
	ShippingAddress string
	PaymentMethod   PaymentMethod
}

// NetsPaymentSession identifies one in-flight QR payment attempt. Its
// lifetime is bounded to a single checkout attempt.
type NetsPaymentSession struct {
	RetrievalRef string
	TxnID        string
	QRID         string
}

// NetsOrderCompleted marks a QR checkout attempt as finalized. Its presence
// is the idempotency guard that keeps success-page reloads from creating a
// second order.
type NetsOrderCompleted struct {
	OrderID     int64
	OrderNumber int64
}
