package stripewebhook

import (
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/internal/orders"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/mailer"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/money"
)

func shortID(id string) string {
	s := strings.ReplaceAll(id, "-", "")
	if len(s) > 8 {
		s = s[:8]
	}
	return strings.ToUpper(s)
}

func writeOrderLines(b *strings.Builder, order *orders.OrderDTO) {
	for _, item := range order.Items {
		fmt.Fprintf(b, "  %d x %s  $%s\n", item.Quantity, item.Name, item.UnitPrice.Mul(item.Quantity))
	}
	fmt.Fprintf(b, "\nSubtotal: $%s\n", order.Subtotal)
	if order.Shipping == 0 {
		b.WriteString("Shipping: Free\n")
	} else {
		fmt.Fprintf(b, "Shipping: $%s\n", order.Shipping)
	}
	fmt.Fprintf(b, "Total:    $%s %s\n", order.Total, strings.ToUpper(order.Currency))
	if addr := order.ShippingAddress; !addr.IsEmpty() {
		b.WriteString("\nShipping to:\n")
		if addr.Name != "" {
			fmt.Fprintf(b, "  %s\n", addr.Name)
		}
		fmt.Fprintf(b, "  %s\n", addr.Line1)
		if addr.Line2 != "" {
			fmt.Fprintf(b, "  %s\n", addr.Line2)
		}
		fmt.Fprintf(b, "  %s, %s %s\n  %s\n", addr.City, addr.State, addr.PostalCode, addr.Country)
	}
}

func customerConfirmationEmail(order *orders.OrderDTO) mailer.Message {
	var b strings.Builder
	b.WriteString("Thank you for your order!\n\n")
	fmt.Fprintf(&b, "Order #%s\n\n", shortID(order.ID.String()))
	writeOrderLines(&b, order)
	b.WriteString("\nEach painting is packed by hand. You will hear from us again when it ships.\n")
	return mailer.Message{
		To:      order.CustomerEmail,
		Subject: fmt.Sprintf("Order confirmation #%s", shortID(order.ID.String())),
		Text:    b.String(),
	}
}

func sellerOrderEmail(to string, order *orders.OrderDTO) mailer.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "New order #%s from %s\n\n", shortID(order.ID.String()), order.CustomerEmail)
	writeOrderLines(&b, order)
	fmt.Fprintf(&b, "\nCheckout session: %s\n", order.PaymentSessionID)
	return mailer.Message{
		To:      to,
		Subject: fmt.Sprintf("New order #%s ($%s)", shortID(order.ID.String()), order.Total),
		Text:    b.String(),
	}
}

func paymentFailedEmail(to string, pi *stripe.PaymentIntent) mailer.Message {
	reason := failureReason(pi)
	var b strings.Builder
	fmt.Fprintf(&b, "We were unable to process your payment of $%s.\n\n", money.FromCents(pi.Amount))
	fmt.Fprintf(&b, "Reason: %s\n\n", reason)
	b.WriteString("No charge was made. You can return to your cart and try again with another card.\n")
	return mailer.Message{
		To:      to,
		Subject: "Your payment could not be processed",
		Text:    b.String(),
	}
}

func accountStatusEmail(to string, accountID string, onboarded bool, requirements []string) mailer.Message {
	var b strings.Builder
	if onboarded {
		fmt.Fprintf(&b, "Your payout account %s is fully set up. Card payments and payouts are enabled.\n", accountID)
		return mailer.Message{To: to, Subject: "Your payout account is ready", Text: b.String()}
	}
	fmt.Fprintf(&b, "Your payout account %s needs more information:\n\n", accountID)
	for _, r := range requirements {
		fmt.Fprintf(&b, "  - %s\n", r)
	}
	b.WriteString("\nOpen the dashboard to finish onboarding.\n")
	return mailer.Message{To: to, Subject: "Action needed on your payout account", Text: b.String()}
}

func failureReason(pi *stripe.PaymentIntent) string {
	if pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "" {
		return pi.LastPaymentError.Msg
	}
	return "the payment was declined"
}
