package models

import (
	"time"

	"classmaster/internal/docstore"
	"classmaster/internal/saga"
)

const (
	PaymentsCollection    = "payments"
	EnrollmentsCollection = "enrollments"
)

// Payment records a confirmed external charge. It is never updated after creation.
type Payment struct {
	ID            string    `json:"id" mapstructure:"id"`
	TransactionID string    `json:"transactionId" mapstructure:"transactionId"`
	Email         string    `json:"email" mapstructure:"email"`
	ClassID       string    `json:"classId" mapstructure:"classId"`
	ClassName     string    `json:"className" mapstructure:"className"`
	Price         float64   `json:"price" mapstructure:"price"`
	Date          time.Time `json:"date" mapstructure:"date"`
}

// Enrollment links a student to a class. TransactionID ties it to the payment that produced it.
type Enrollment struct {
	ID            string    `json:"id" mapstructure:"id"`
	TransactionID string    `json:"transactionId" mapstructure:"transactionId"`
	Email         string    `json:"email" mapstructure:"email"`
	ClassID       string    `json:"classId" mapstructure:"classId"`
	ClassName     string    `json:"className" mapstructure:"className"`
	Date          time.Time `json:"date" mapstructure:"date"`
	// Counted is set once the enrollment has been added to the class's enrollment count.
	Counted bool `json:"-" mapstructure:"counted"`
}

// SavePaymentRequest is the parameter struct for the SavePayment function.
type SavePaymentRequest struct {
	TransactionID string  `json:"transactionId" validate:"required"`
	Email         string  `json:"email" validate:"required,email"`
	ClassID       string  `json:"classId" validate:"required"`
	ClassName     string  `json:"className"`
	Price         float64 `json:"price" validate:"gt=0"`
}

// SavePaymentResult lists the artifacts written by the enrollment-payment workflow.
type SavePaymentResult struct {
	PaymentID    string                 `json:"paymentId,omitempty"`
	EnrollmentID string                 `json:"enrollmentId,omitempty"`
	UpdateResult *docstore.UpdateResult `json:"updateResult,omitempty"`
	Report       saga.Report            `json:"report"`
}

// PaymentIntentRequest is the body of POST /create-payment-intent. Price is left untyped so that
// strings and numbers can be validated the same way.
type PaymentIntentRequest struct {
	Price   interface{} `json:"price"`
	Email   string      `json:"email"`
	ClassID string      `json:"classId"`
}

type PaymentIntentResponse struct {
	ClientSecret string `json:"clientSecret"`
}
