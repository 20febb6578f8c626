package http

import (
	"context"
	"sync"

	"github.com/fjod/go_travel/internal/domain"
)

// MockRemote implements Remote. Tokens records the token each client was
// built with.
type MockRemote struct {
	mu sync.Mutex

	LoginToken string
	LoginUser  domain.User
	LoginErr   error

	Cart         []domain.CartItem
	CartErr      error
	Transactions []domain.Transaction
	TxErr        error

	TxID      string
	CreateErr error
	ImageURL  string
	StatusErr error

	Tokens    []string
	Logouts   int
	Added     []string
	Cancelled []string
	Creates   [][]string
	Attaches  []string
	Statuses  []domain.TransactionStatus
}

func (m *MockRemote) Factory() RemoteFactory {
	return func(token string) Remote {
		m.mu.Lock()
		m.Tokens = append(m.Tokens, token)
		m.mu.Unlock()
		return m
	}
}

func (m *MockRemote) Login(_ context.Context, _, _ string) (string, domain.User, error) {
	return m.LoginToken, m.LoginUser, m.LoginErr
}

func (m *MockRemote) Logout(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logouts++
	return nil
}

func (m *MockRemote) CurrentUser(context.Context) (domain.User, error) {
	return m.LoginUser, nil
}

func (m *MockRemote) Carts(context.Context) ([]domain.CartItem, error) {
	return m.Cart, m.CartErr
}

func (m *MockRemote) AddCart(_ context.Context, activityID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Added = append(m.Added, activityID)
	return m.CartErr
}

func (m *MockRemote) UpdateCart(_ context.Context, cartID string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.Cart {
		if m.Cart[i].ID == cartID {
			m.Cart[i].Quantity = quantity
		}
	}
	return m.CartErr
}

func (m *MockRemote) DeleteCart(context.Context, string) error {
	return m.CartErr
}

func (m *MockRemote) MyTransactions(context.Context) ([]domain.Transaction, error) {
	return m.Transactions, m.TxErr
}

func (m *MockRemote) Transaction(_ context.Context, id string) (domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.TxErr != nil {
		return domain.Transaction{}, m.TxErr
	}
	for _, tx := range m.Transactions {
		if tx.ID == id {
			return tx, nil
		}
	}
	return domain.Transaction{ID: id}, nil
}

func (m *MockRemote) CancelTransaction(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Cancelled = append(m.Cancelled, id)
	for i := range m.Transactions {
		if m.Transactions[i].ID == id {
			m.Transactions[i].Status = domain.TransactionCancelled
		}
	}
	return m.TxErr
}

func (m *MockRemote) CreateTransaction(_ context.Context, paymentMethodID string, cartIDs []string) (domain.TransactionRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Creates = append(m.Creates, cartIDs)
	if m.CreateErr != nil {
		return domain.TransactionRef{}, m.CreateErr
	}
	return domain.TransactionRef{ID: m.TxID, PaymentMethodID: paymentMethodID}, nil
}

func (m *MockRemote) UploadImage(context.Context, domain.Image) (string, error) {
	return m.ImageURL, nil
}

func (m *MockRemote) AttachProof(_ context.Context, _, proofURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Attaches = append(m.Attaches, proofURL)
	return nil
}

func (m *MockRemote) UpdateTransactionStatus(_ context.Context, _ string, status domain.TransactionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Statuses = append(m.Statuses, status)
	return m.StatusErr
}

func (m *MockRemote) createCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Creates)
}

// MockCatalog implements Catalog from fixed lists.
type MockCatalog struct {
	Cats    []domain.Category
	Items   []domain.Activity
	PromoL  []domain.Promo
	Methods []domain.PaymentMethod
	Err     error
}

func (m *MockCatalog) Categories(context.Context) ([]domain.Category, error) {
	return m.Cats, m.Err
}

func (m *MockCatalog) Activities(context.Context) ([]domain.Activity, error) {
	return m.Items, m.Err
}

func (m *MockCatalog) Activity(_ context.Context, id string) (domain.Activity, error) {
	for _, a := range m.Items {
		if a.ID == id {
			return a, nil
		}
	}
	return domain.Activity{}, m.Err
}

func (m *MockCatalog) Promos(context.Context) ([]domain.Promo, error) {
	return m.PromoL, m.Err
}

func (m *MockCatalog) PaymentMethods(context.Context) ([]domain.PaymentMethod, error) {
	return m.Methods, m.Err
}

func (m *MockCatalog) PaymentMethod(_ context.Context, id string) (domain.PaymentMethod, bool, error) {
	if m.Err != nil {
		return domain.PaymentMethod{}, false, m.Err
	}
	for _, pm := range m.Methods {
		if pm.ID == id {
			return pm, true, nil
		}
	}
	return domain.PaymentMethod{}, false, nil
}
