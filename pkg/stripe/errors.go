package stripe

import (
	"errors"
	"net/http"

	"github.com/stripe/stripe-go/v84"
	pkgerrors "github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/errors"
)

// MapError converts a Stripe API failure into a typed error carrying the
// platform's message and error type. Missing resources become not-found;
// everything else is an upstream payment error.
func MapError(err error, fallback string) error {
	if err == nil {
		return nil
	}
	if typed := pkgerrors.As(err); typed != nil {
		return err
	}

	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return pkgerrors.Wrap(pkgerrors.CodePayment, err, fallback).WithType("api_connection_error")
	}

	msg := stripeErr.Msg
	if msg == "" {
		msg = fallback
	}
	kind := string(stripeErr.Type)

	if stripeErr.Code == stripe.ErrorCodeResourceMissing || stripeErr.HTTPStatusCode == http.StatusNotFound {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, msg).WithType(kind)
	}
	return pkgerrors.Wrap(pkgerrors.CodePayment, err, msg).WithType(kind)
}
