package commerce

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/fjod/go_travel/internal/domain"
	"github.com/tidwall/gjson"
)

type createTransactionRequest struct {
	PaymentMethodID string   `json:"paymentMethodId"`
	CartIDs         []string `json:"cartIds"`
}

type proofPaymentRequest struct {
	ProofPaymentURL string `json:"proofPaymentUrl"`
}

type statusRequest struct {
	Status domain.TransactionStatus `json:"status"`
}

// CreateTransaction turns the given cart lines into a pending transaction paid
// with paymentMethodID. It is never retried.
func (c *Client) CreateTransaction(ctx context.Context, paymentMethodID string, cartIDs []string) (domain.TransactionRef, error) {
	raw, err := c.doJSON(ctx, http.MethodPost, "/create-transaction", createTransactionRequest{
		PaymentMethodID: paymentMethodID,
		CartIDs:         cartIDs,
	})
	if err != nil {
		return domain.TransactionRef{}, err
	}

	id := gjson.GetBytes(raw, "data.id").String()
	if id == "" {
		return domain.TransactionRef{}, ErrMissingTransactionID
	}

	return domain.TransactionRef{
		ID:              id,
		PaymentMethodID: paymentMethodID,
		CreatedAt:       time.Now(),
	}, nil
}

// AttachProof sets the transaction's proof-of-payment image.
func (c *Client) AttachProof(ctx context.Context, transactionID, proofURL string) error {
	path := "/update-transaction-proof-payment/" + url.PathEscape(transactionID)
	_, err := c.doJSON(ctx, http.MethodPost, path, proofPaymentRequest{ProofPaymentURL: proofURL})
	return err
}

// UpdateTransactionStatus asks the API to flip the transaction status.
func (c *Client) UpdateTransactionStatus(ctx context.Context, transactionID string, status domain.TransactionStatus) error {
	path := "/update-transaction-status/" + url.PathEscape(transactionID)
	_, err := c.doJSON(ctx, http.MethodPost, path, statusRequest{Status: status})
	return err
}

func (c *Client) CancelTransaction(ctx context.Context, transactionID string) error {
	_, err := c.doJSON(ctx, http.MethodPost, "/cancel-transaction/"+url.PathEscape(transactionID), nil)
	return err
}

func (c *Client) MyTransactions(ctx context.Context) ([]domain.Transaction, error) {
	txs, err := getData[[]domain.Transaction](ctx, c, "/my-transactions")
	if err != nil {
		return nil, err
	}
	for i := range txs {
		txs[i].Status = domain.ParseTransactionStatus(string(txs[i].Status))
	}
	return txs, nil
}

func (c *Client) Transaction(ctx context.Context, id string) (domain.Transaction, error) {
	tx, err := getData[domain.Transaction](ctx, c, "/transaction/"+url.PathEscape(id))
	if err != nil {
		return domain.Transaction{}, err
	}
	tx.Status = domain.ParseTransactionStatus(string(tx.Status))
	return tx, nil
}
