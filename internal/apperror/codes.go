package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidFormat   Code = "INVALID_FORMAT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable   Code = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"

	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Market data codes
const (
	// CodeFetchFailed covers every way a venue quote can fail: transport,
	// non-2xx, undecodable payload or an unusable book.
	CodeFetchFailed          Code = "FETCH_FAILED"
	CodeVenueConnectionError Code = "VENUE_CONNECTION_ERROR"
	CodeVenueAPIError        Code = "VENUE_API_ERROR"
	CodeInvalidOrderbook     Code = "INVALID_ORDERBOOK"
	CodeUnknownVenue         Code = "UNKNOWN_VENUE"
	CodeInvalidSymbol        Code = "INVALID_SYMBOL"

	CodeWebSocketConnectionError Code = "WEBSOCKET_CONNECTION_ERROR"
	CodeWebSocketClosed          Code = "WEBSOCKET_CLOSED"
	CodeWebSocketSendError       Code = "WEBSOCKET_SEND_ERROR"

	CodeCircuitOpen Code = "CIRCUIT_OPEN"
)

// Detection and execution codes
const (
	CodeInvalidFee             Code = "INVALID_FEE"
	CodeInsufficientBalance    Code = "INSUFFICIENT_BALANCE"
	CodeLegApplicationFailed   Code = "LEG_APPLICATION_FAILED"
	CodePartialExecution       Code = "PARTIAL_EXECUTION"
	CodePairStuck              Code = "PAIR_STUCK"
	CodeIllegalStateTransition Code = "ILLEGAL_STATE_TRANSITION"

	CodeAlertDeliveryFailed Code = "ALERT_DELIVERY_FAILED"
	CodeEventPublishFailed  Code = "EVENT_PUBLISH_FAILED"
)
