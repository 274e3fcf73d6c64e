package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidFormat:   "Invalid data format",
	CodeInvalidState:    "Invalid state for this operation",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	CodeConfigurationError: "Configuration error",

	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeServiceUnavailable:   "Service temporarily unavailable",
	CodeRateLimitExceeded:    "Rate limit exceeded",

	CodeInternalError: "Internal server error",
	CodeUnknownError:  "An unknown error occurred",

	// Market data
	CodeFetchFailed:          "Failed to fetch venue quote",
	CodeVenueConnectionError: "Failed to reach venue API",
	CodeVenueAPIError:        "Venue API returned an error",
	CodeInvalidOrderbook:     "Invalid orderbook data",
	CodeUnknownVenue:         "Unknown venue",
	CodeInvalidSymbol:        "Invalid trading symbol",

	CodeWebSocketConnectionError: "WebSocket connection error",
	CodeWebSocketClosed:          "WebSocket connection closed",
	CodeWebSocketSendError:       "Failed to send WebSocket message",

	CodeCircuitOpen: "Circuit breaker is open",

	// Detection and execution
	CodeInvalidFee:             "Fee percent out of range",
	CodeInsufficientBalance:    "Insufficient balance for trade leg",
	CodeLegApplicationFailed:   "Ledger rejected trade leg",
	CodePartialExecution:       "Sell leg failed after buy leg committed",
	CodePairStuck:              "Position stuck, automated trading halted for pair",
	CodeIllegalStateTransition: "Illegal trade state transition",

	CodeAlertDeliveryFailed: "Failed to deliver operator alert",
	CodeEventPublishFailed:  "Failed to publish trade event",
}
