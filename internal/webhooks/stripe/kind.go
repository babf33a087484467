package stripewebhook

// EventKind is the closed set of payment-platform events the storefront
// reacts to.
type EventKind string

const (
	KindPaymentSucceeded    EventKind = "payment_succeeded"
	KindPaymentFailed       EventKind = "payment_failed"
	KindCheckoutCompleted   EventKind = "checkout_completed"
	KindAccountUpdated      EventKind = "account_updated"
	KindAccountDeauthorized EventKind = "account_deauthorized"
	KindTransferCreated     EventKind = "transfer_created"
	KindPayoutCreated       EventKind = "payout_created"
	KindPayoutPaid          EventKind = "payout_paid"
	KindPayoutFailed        EventKind = "payout_failed"
	KindUnknown             EventKind = "unknown"
)

// ParseEventKind maps a raw event type such as "payment_intent.succeeded".
// Anything unrecognized is KindUnknown.
func ParseEventKind(eventType string) EventKind {
	switch eventType {
	case "payment_intent.succeeded":
		return KindPaymentSucceeded
	case "payment_intent.payment_failed":
		return KindPaymentFailed
	case "checkout.session.completed":
		return KindCheckoutCompleted
	case "account.updated":
		return KindAccountUpdated
	case "account.application.deauthorized":
		return KindAccountDeauthorized
	case "transfer.created":
		return KindTransferCreated
	case "payout.created":
		return KindPayoutCreated
	case "payout.paid":
		return KindPayoutPaid
	case "payout.failed":
		return KindPayoutFailed
	default:
		return KindUnknown
	}
}

func (k EventKind) String() string {
	return string(k)
}
