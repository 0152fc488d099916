package boarddto

// DomainError is the JSON body of every non-2xx API response.
type DomainError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "board service error"
}

const (
	CodeNotFound       = "session_not_found"
	CodeBadRequest     = "bad_request"
	CodeUnknownVariant = "unknown_variant"
	CodeInvalidSquare  = "invalid_square"
	CodeGameOver       = "game_over"
	CodeConflict       = "conflict"
	CodeEngine         = "engine_unavailable"
	CodeInternal       = "internal"
)
