package transport

// Envelope is the storefront's uniform response body:
// {"success": ..., "message": ..., "data": {...}}.
type Envelope struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

func OK(message string, data map[string]any) Envelope {
	return Envelope{Success: true, Message: message, Data: data}
}

func Fail(message string) Envelope {
	return Envelope{Success: false, Message: message}
}
