// Package apperr defines the error categories shared by the store, the
// contact adapter and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeValidation    = "validation_error"
	CodeNotConfigured = "not_configured"
	CodeTransport     = "transport_error"
	CodeDecode        = "decode_error"
	CodeNotFound      = "not_found"
	CodeDelivery      = "delivery_error"
	CodeInternal      = "internal_error"
)

// ValidationError reports a caller-supplied value that failed a required-field check.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Invalid is shorthand for a ValidationError on a single field.
func Invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// NotConfiguredError means a credential or endpoint the operation needs is unset.
type NotConfiguredError struct {
	What string
}

func (e *NotConfiguredError) Error() string {
	return e.What + " not configured"
}

// TransportError is a failed call against the remote key-value store.
// Status is zero when the request never got a response.
type TransportError struct {
	Op     string
	Key    string
	Status int
	Body   string
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("kv %s %q failed: status %d: %s", e.Op, e.Key, e.Status, e.Body)
	}
	return fmt.Sprintf("kv %s %q failed: %v", e.Op, e.Key, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError is a stored value that could not be turned back into a document.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "decode stored document: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error { return e.Err }

// NotFoundError is a mutate-by-id target that does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// DeliveryKind sub-classifies email provider failures.
type DeliveryKind int

const (
	DeliveryService DeliveryKind = iota
	DeliveryCredentialInvalid
	DeliverySenderUnverified
	DeliveryMalformedAddress
)

func (k DeliveryKind) String() string {
	switch k {
	case DeliveryCredentialInvalid:
		return "credential_invalid"
	case DeliverySenderUnverified:
		return "sender_unverified"
	case DeliveryMalformedAddress:
		return "malformed_address"
	default:
		return "service_error"
	}
}

// DeliveryError is a non-success answer from the email provider. Status and
// Body are for logs only.
type DeliveryError struct {
	Kind   DeliveryKind
	Status int
	Body   string
	Err    error
}

func (e *DeliveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("email delivery failed (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("email delivery failed (%s): status %d: %s", e.Kind, e.Status, e.Body)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Code returns the stable category code for err.
func Code(err error) string {
	var (
		ve *ValidationError
		nc *NotConfiguredError
		te *TransportError
		de *DecodeError
		nf *NotFoundError
		dl *DeliveryError
	)
	switch {
	case errors.As(err, &ve):
		return CodeValidation
	case errors.As(err, &nf):
		return CodeNotFound
	case errors.As(err, &nc):
		return CodeNotConfigured
	case errors.As(err, &dl):
		return CodeDelivery
	case errors.As(err, &te):
		return CodeTransport
	case errors.As(err, &de):
		return CodeDecode
	default:
		return CodeInternal
	}
}

// Status maps err onto an HTTP status code.
func Status(err error) int {
	switch Code(err) {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Public returns the message that may be shown to an end user.
func Public(err error) string {
	var (
		ve *ValidationError
		nf *NotFoundError
		dl *DeliveryError
	)
	switch {
	case errors.As(err, &ve):
		return ve.Error()
	case errors.As(err, &nf):
		return nf.Error()
	case errors.As(err, &dl):
		switch dl.Kind {
		case DeliveryCredentialInvalid:
			return "Email service credentials are invalid. Please contact the site administrator."
		case DeliverySenderUnverified:
			return "Email sender domain is not verified. Please contact the site administrator."
		case DeliveryMalformedAddress:
			return "The email address could not be used. Please check it and try again."
		default:
			return "Failed to send your message. Please try again later."
		}
	}
	switch Code(err) {
	case CodeNotConfigured:
		return "Service not configured"
	case CodeTransport, CodeDecode:
		return "Storage is temporarily unavailable"
	default:
		return "Internal server error"
	}
}
