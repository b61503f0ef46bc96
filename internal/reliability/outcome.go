package reliability

import "github.com/drblury/whatsapp-eventspine/internal/envelope"

// Outcome is the tri-state result a handler reports for one envelope
// observation (spec §4.2, §4.3).
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeRetry
	OutcomeDead
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetry:
		return "retry"
	case OutcomeDead:
		return "dead"
	default:
		return "unknown"
	}
}

// Reason classifies why a handler did not return Success; it maps
// one-to-one onto envelope.FailureType (spec §4.3, §7).
type Reason string

const (
	ReasonDecodeError     Reason = "decode_error"
	ReasonHandlerTimeout  Reason = "handler_timeout"
	ReasonValidation      Reason = "validation"
	ReasonExternalService Reason = "external_service"
	ReasonUnknown         Reason = "unknown"
)

// FailureType maps a routing reason onto the failure taxonomy carried by a
// MessageFailed payload.
func (r Reason) FailureType() envelope.FailureType {
	switch r {
	case ReasonDecodeError:
		return envelope.FailureTypeSerializationError
	case ReasonHandlerTimeout:
		return envelope.FailureTypeProcessingTimeout
	case ReasonValidation:
		return envelope.FailureTypeValidationError
	case ReasonExternalService:
		return envelope.FailureTypeExternalServiceError
	default:
		return envelope.FailureTypeUnknownError
	}
}

// ProcessingResult is what a handler returns for one envelope (spec §4.2).
type ProcessingResult struct {
	Outcome Outcome
	Reason  Reason
}

// Success reports a terminal, successful observation.
func Success() ProcessingResult {
	return ProcessingResult{Outcome: OutcomeSuccess}
}

// Retry reports a transient failure eligible for another attempt.
func Retry(reason Reason) ProcessingResult {
	return ProcessingResult{Outcome: OutcomeRetry, Reason: reason}
}

// Dead reports a terminal failure that should go straight to the DLQ.
func Dead(reason Reason) ProcessingResult {
	return ProcessingResult{Outcome: OutcomeDead, Reason: reason}
}
