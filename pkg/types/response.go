package types

// SuccessEnvelope wraps every successful response. Notice carries
// non-fatal feedback such as a stock limit being reached.
type SuccessEnvelope struct {
	Data   any `json:"data"`
	Notice any `json:"notice,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
