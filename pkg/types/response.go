package types

// SuccessEnvelope wraps operational responses such as health checks. Relay
// bodies read by terminals are written without it.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public part of a typed error. Details are present only for
// codes that allow them.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope is the body of every non-2xx response.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
