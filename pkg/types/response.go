package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public error body. Type mirrors the payment platform's
// error category when the failure came from upstream.
type APIError struct {
	Code    string `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
