package models

// Envelopes written by utils.Handle*Response.

type MessageResponse struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
}

type ValidationResponse struct {
	StatusCode int               `json:"status_code"`
	Errors     map[string]string `json:"errors"`
}

type DataResponse struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Data       any    `json:"data"`
	Count      *int   `json:"count,omitempty"`
}

func NewMessageResponse(statusCode int, message string) MessageResponse {
	return MessageResponse{StatusCode: statusCode, Message: message}
}

func NewValidationResponse(statusCode int, errors map[string]string) ValidationResponse {
	return ValidationResponse{StatusCode: statusCode, Errors: errors}
}

func NewDataResponse(statusCode int, message string, data any) DataResponse {
	return DataResponse{StatusCode: statusCode, Message: message, Data: data}
}

// NewListResponse attaches the item count so clients can render totals
// without counting.
func NewListResponse(statusCode int, message string, data any, count int) DataResponse {
	return DataResponse{StatusCode: statusCode, Message: message, Data: data, Count: &count}
}
