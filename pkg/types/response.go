package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// RemoteError is the error body returned by the remote backend, including
// per-field validation messages.
type RemoteError struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
}
