package response

// Response is the JSON envelope used by every API handler.
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

const (
	statusOK    = "ok"
	statusError = "error"
)

// Ok wraps a successful payload.
func Ok(data any) Response {
	return Response{Status: statusOK, Data: data}
}

// Error wraps a failure message.
func Error(msg string) Response {
	return Response{Status: statusError, Error: msg}
}
