package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionSuccess   TransactionStatus = "success"
	TransactionFailed    TransactionStatus = "failed"
	TransactionCancelled TransactionStatus = "cancelled"
	TransactionCompleted TransactionStatus = "completed"
)

// ParseTransactionStatus normalizes the remote spelling; "paid" is an alias of
// success.
func ParseTransactionStatus(s string) TransactionStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "paid", "success":
		return TransactionSuccess
	case "failed":
		return TransactionFailed
	case "cancelled", "canceled":
		return TransactionCancelled
	case "completed":
		return TransactionCompleted
	default:
		return TransactionPending
	}
}

func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionFailed || s == TransactionCancelled || s == TransactionCompleted
}

func (s TransactionStatus) String() string {
	return string(s)
}

var validTransitions = map[TransactionStatus][]TransactionStatus{
	TransactionPending: {TransactionSuccess, TransactionFailed, TransactionCancelled},
	TransactionSuccess: {TransactionCompleted},
}

// CanTransitionTo mirrors the remote lifecycle. It is advisory only: the remote
// record is the source of truth.
func CanTransitionTo(from, to TransactionStatus) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type TransactionItem struct {
	ID          string          `json:"id"`
	ActivityID  string          `json:"activityId"`
	Title       string          `json:"title"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	ImageURLs   []string        `json:"imageUrls"`
	BookingDate *time.Time      `json:"bookingDate,omitempty"`
}

// Transaction is the remote transaction record.
type Transaction struct {
	ID              string            `json:"id"`
	UserID          string            `json:"userId"`
	InvoiceID       string            `json:"invoiceId"`
	Status          TransactionStatus `json:"status"`
	PaymentMethodID string            `json:"paymentMethodId"`
	PaymentMethod   *PaymentMethod    `json:"payment_method,omitempty"`
	ProofPaymentURL string            `json:"proofPaymentUrl"`
	TotalAmount     decimal.Decimal   `json:"totalAmount"`
	OrderDate       time.Time         `json:"orderDate"`
	ExpiredDate     time.Time         `json:"expiredDate"`
	Items           []TransactionItem `json:"transaction_items"`
}

// TransactionRef is what the checkout keeps of a freshly created transaction.
type TransactionRef struct {
	ID              string    `json:"id"`
	PaymentMethodID string    `json:"paymentMethodId"`
	CreatedAt       time.Time `json:"createdAt"`
}

type PaymentMethod struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	LogoURL        string `json:"logoUrl"`
	VirtualAccount string `json:"virtual_account_number,omitempty"`
	AccountName    string `json:"virtual_account_name,omitempty"`
}
