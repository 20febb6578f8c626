package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/go_travel/internal/cache"
	"github.com/fjod/go_travel/internal/cart"
	"github.com/fjod/go_travel/internal/checkout"
	"github.com/fjod/go_travel/internal/commerce"
	"github.com/fjod/go_travel/internal/domain"
	"github.com/fjod/go_travel/pkg/logger"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const anonSID = "3f2b6c1e-8a4d-4c5b-9e7f-0a1b2c3d4e5f"

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

type testServer struct {
	sid       string
	handler   http.Handler
	remote    *MockRemote
	catalog   *MockCatalog
	sessions  *cache.SessionCache
	drafts    *cache.DraftCache
	checkouts *checkout.Registry
}

type viewDTO struct {
	Cursor          int                 `json:"cursor"`
	Busy            bool                `json:"busy"`
	Finished        bool                `json:"finished"`
	PaymentMethodID string              `json:"paymentMethodId"`
	TransactionID   string              `json:"transactionId"`
	ProofImageURL   string              `json:"proofImageUrl"`
	Error           *checkout.ErrorView `json:"error"`
}

func testCart() []domain.CartItem {
	return []domain.CartItem{
		{ID: "c1", ActivityID: "a1", Quantity: 2, Activity: domain.Activity{ID: "a1", Title: "Snorkeling", Price: decimal.NewFromInt(100000)}},
		{ID: "c2", ActivityID: "a2", Quantity: 1, Activity: domain.Activity{ID: "a2", Title: "Rafting", Price: decimal.NewFromInt(50000)}},
	}
}

func setupServer(t *testing.T) *testServer {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	ts := &testServer{
		sid:    anonSID,
		remote: &MockRemote{
			LoginToken: "token-1",
			LoginUser:  domain.User{ID: "u1", Email: "jane@example.com"},
			Cart:       testCart(),
			TxID:       "tx_9",
			ImageURL:   "https://cdn/p.png",
		},
		catalog: &MockCatalog{
			Methods: []domain.PaymentMethod{{ID: "pm_bca", Name: "BCA"}},
		},
		sessions:  cache.NewSessionCache(client),
		drafts:    cache.NewDraftCache(client, time.Hour),
		checkouts: checkout.NewRegistry(time.Hour, logger.Discard()),
	}

	ts.handler = NewRouter(Deps{
		Remote:         ts.remote.Factory(),
		Sessions:       ts.sessions,
		Drafts:         ts.drafts,
		Catalog:        ts.catalog,
		Aggregator:     cart.NewAggregator(),
		Checkouts:      ts.checkouts,
		Log:            logger.Discard(),
		RequestTimeout: 5 * time.Second,
		RemoteTimeout:  5 * time.Second,
		SessionTTL:     time.Hour,
		MaxBodySize:    1 << 20,
	})
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set(sessionHeader, ts.sid)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) uploadProof(t *testing.T, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(proofFormField, "proof.png")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/proof", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(sessionHeader, ts.sid)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) login(t *testing.T) {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/v1/session", LoginRequestDTO{Email: "jane@example.com", Password: "secret"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ts.sid = rec.Header().Get(sessionHeader)
	require.NotEmpty(t, ts.sid)
}

func (ts *testServer) startCheckout(t *testing.T) {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/v1/cart/checkout", CheckoutRequestDTO{
		CartIDs:     []string{"c1", "c2"},
		PromoCode:   "HOLIDAY",
		BookingDate: "2026-11-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/api/v1/checkout", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) viewDTO {
	t.Helper()
	var v viewDTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&e))
	return e
}

func TestHealth(t *testing.T) {
	ts := setupServer(t)
	rec := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCart_RequiresLogin(t *testing.T) {
	ts := setupServer(t)
	rec := ts.do(t, http.MethodGet, "/api/v1/cart", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCheckout_EndToEnd(t *testing.T) {
	ts := setupServer(t)
	ts.login(t)
	ts.startCheckout(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/checkout/next", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, decodeView(t, rec).Cursor)

	rec = ts.do(t, http.MethodPut, "/api/v1/checkout/payment-method", SelectPaymentMethodRequestDTO{PaymentMethodID: "pm_bca"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/api/v1/checkout/next", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	v := decodeView(t, rec)
	assert.Equal(t, 2, v.Cursor)
	assert.Equal(t, "tx_9", v.TransactionID)

	rec = ts.uploadProof(t, pngHeader)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	v = decodeView(t, rec)
	assert.Equal(t, 3, v.Cursor)
	assert.Equal(t, "https://cdn/p.png", v.ProofImageURL)
	assert.Equal(t, []string{"https://cdn/p.png"}, ts.remote.Attaches)
	assert.Equal(t, []domain.TransactionStatus{domain.TransactionSuccess}, ts.remote.Statuses)

	rec = ts.do(t, http.MethodPost, "/api/v1/checkout/finish", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var fin FinishResponseDTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&fin))
	assert.Equal(t, "tx_9", fin.TransactionID)
	assert.Equal(t, ordersPath, fin.Redirect)

	_, ok := ts.checkouts.Get(ts.sid)
	assert.False(t, ok)
	assert.Contains(t, ts.remote.Tokens, "token-1")
}

func TestCartCheckout_StoresDraftWithPromo(t *testing.T) {
	ts := setupServer(t)
	ts.login(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/cart/checkout", CheckoutRequestDTO{
		CartIDs:   []string{"c1", "c2"},
		PromoCode: "HOLIDAY",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	draft, err := ts.drafts.Peek(context.Background(), ts.sid)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(250000).Equal(draft.Subtotal))
	assert.True(t, decimal.NewFromInt(50000).Equal(draft.Discount))
	assert.True(t, decimal.NewFromInt(200000).Equal(draft.Total))
	assert.Equal(t, []string{"c1", "c2"}, draft.CartIDs())
}

func TestCartDraft_PeekDoesNotConsume(t *testing.T) {
	ts := setupServer(t)
	ts.login(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/cart/checkout", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "draft_missing", decodeError(t, rec).Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/cart/checkout", CheckoutRequestDTO{CartIDs: []string{"c1"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	for range 2 {
		rec = ts.do(t, http.MethodGet, "/api/v1/cart/checkout", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var draft domain.Draft
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&draft))
		assert.Equal(t, []string{"c1"}, draft.CartIDs())
	}

	rec = ts.do(t, http.MethodPost, "/api/v1/checkout", nil)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestCategories_Public(t *testing.T) {
	ts := setupServer(t)
	ts.catalog.Cats = []domain.Category{{ID: "c_sea", Name: "Sea"}}

	rec := ts.do(t, http.MethodGet, "/api/v1/categories", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got []domain.Category
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, ts.catalog.Cats, got)
}

func TestCartCheckout_EmptySelection(t *testing.T) {
	ts := setupServer(t)
	ts.login(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/cart/checkout", CheckoutRequestDTO{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_selection", decodeError(t, rec).Code)
}

func TestCartCheckout_BadBookingDate(t *testing.T) {
	ts := setupServer(t)
	ts.login(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/cart/checkout", CheckoutRequestDTO{CartIDs: []string{"c1"}, BookingDate: "01/11/2026"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_booking_date", decodeError(t, rec).Code)
}

func TestStartCheckout_NoDraft(t *testing.T) {
	ts := setupServer(t)
	ts.login(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/checkout", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	e := decodeError(t, rec)
	assert.Equal(t, "draft_missing", e.Code)
	assert.Equal(t, cartPath, e.Details)
}

func TestStartCheckout_DraftIsMovedNotCopied(t *testing.T) {
	ts := setupServer(t)
	ts.login(t)
	ts.startCheckout(t)

	_, err := ts.drafts.Peek(context.Background(), ts.sid)
	assert.ErrorIs(t, err, cache.ErrDraftMissing)

	// A second start returns the running checkout.
	rec := ts.do(t, http.MethodPost, "/api/v1/checkout", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNext_NoPaymentMethodMakesNoCall(t *testing.T) {
	ts := setupServer(t)
	ts.login(t)
	ts.startCheckout(t)
	ts.do(t, http.MethodPost, "/api/v1/checkout/next", nil)

	rec := ts.do(t, http.MethodPost, "/api/v1/checkout/next", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", decodeError(t, rec).Code)
	assert.Equal(t, 0, ts.remote.createCount())
}

func TestNext_RemoteMessageIsShown(t *testing.T) {
	ts := setupServer(t)
	ts.remote.CreateErr = &commerce.APIError{StatusCode: http.StatusBadRequest, Message: "insufficient stock"}
	ts.login(t)
	ts.startCheckout(t)
	ts.do(t, http.MethodPost, "/api/v1/checkout/next", nil)
	ts.do(t, http.MethodPut, "/api/v1/checkout/payment-method", SelectPaymentMethodRequestDTO{PaymentMethodID: "pm_bca"})

	rec := ts.do(t, http.MethodPost, "/api/v1/checkout/next", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	e := decodeError(t, rec)
	assert.Equal(t, "remote_call_failed", e.Code)
	assert.Equal(t, "insufficient stock", e.Error)

	rec = ts.do(t, http.MethodGet, "/api/v1/checkout", nil)
	v := decodeView(t, rec)
	assert.Equal(t, 1, v.Cursor)
	require.NotNil(t, v.Error)
	assert.Equal(t, "insufficient stock", v.Error.Message)
}

func TestSelectPaymentMethod_Unknown(t *testing.T) {
	ts := setupServer(t)
	ts.login(t)
	ts.startCheckout(t)
	ts.do(t, http.MethodPost, "/api/v1/checkout/next", nil)

	rec := ts.do(t, http.MethodPut, "/api/v1/checkout/payment-method", SelectPaymentMethodRequestDTO{PaymentMethodID: "pm_nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_payment_method", decodeError(t, rec).Code)
}

func TestBack_FromReviewIsIllegal(t *testing.T) {
	ts := setupServer(t)
	ts.login(t)
	ts.startCheckout(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/checkout/back", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "illegal_transition", decodeError(t, rec).Code)
}

func TestUploadProof_RejectsNonImage(t *testing.T) {
	ts := setupServer(t)
	ts.login(t)
	ts.startCheckout(t)

	rec := ts.uploadProof(t, []byte("just some text"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_image", decodeError(t, rec).Code)
}

func TestCheckout_NotStarted(t *testing.T) {
	ts := setupServer(t)
	ts.login(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/checkout", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "checkout_not_found", decodeError(t, rec).Code)
}

func TestAbandon_RemovesCheckout(t *testing.T) {
	ts := setupServer(t)
	ts.login(t)
	ts.startCheckout(t)

	rec := ts.do(t, http.MethodDelete, "/api/v1/checkout", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	_, ok := ts.checkouts.Get(ts.sid)
	assert.False(t, ok)
}

func TestLogout_ClearsSessionAndCheckout(t *testing.T) {
	ts := setupServer(t)
	ts.login(t)
	ts.startCheckout(t)

	rec := ts.do(t, http.MethodDelete, "/api/v1/session", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, ts.remote.Logouts)

	_, err := ts.sessions.Get(context.Background(), ts.sid)
	assert.ErrorIs(t, err, cache.ErrSessionNotFound)
	assert.Equal(t, 0, ts.checkouts.Len())

	rec = ts.do(t, http.MethodGet, "/api/v1/session", nil)
	var s SessionResponseDTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&s))
	assert.False(t, s.IsLoggedIn)
}

func TestGetCart_Summary(t *testing.T) {
	ts := setupServer(t)
	ts.login(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/cart?promo_code=HOLIDAY", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Items   []domain.CartItem `json:"items"`
		Summary struct {
			PromoCode string `json:"promoCode"`
			ItemCount int    `json:"itemCount"`
		} `json:"summary"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Len(t, resp.Items, 2)
	assert.Equal(t, "HOLIDAY", resp.Summary.PromoCode)
	assert.Equal(t, 3, resp.Summary.ItemCount)
}

func TestUpdateItem_InvalidQuantity(t *testing.T) {
	ts := setupServer(t)
	ts.login(t)

	rec := ts.do(t, http.MethodPut, "/api/v1/cart/items/c1", UpdateItemRequestDTO{Quantity: 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_quantity", decodeError(t, rec).Code)
}

func TestLogin_RotatesSessionID(t *testing.T) {
	ts := setupServer(t)
	ctx := context.Background()
	require.NoError(t, ts.sessions.Save(ctx, &domain.Session{ID: anonSID}, time.Hour))

	ts.login(t)

	assert.NotEqual(t, anonSID, ts.sid)
	_, err := ts.sessions.Get(ctx, anonSID)
	assert.ErrorIs(t, err, cache.ErrSessionNotFound)

	sess, err := ts.sessions.Get(ctx, ts.sid)
	require.NoError(t, err)
	assert.True(t, sess.IsLoggedIn)
	assert.Equal(t, "token-1", sess.Token)
}

func TestLogin_SetsSessionCookie(t *testing.T) {
	ts := setupServer(t)
	rec := ts.do(t, http.MethodPost, "/api/v1/session", LoginRequestDTO{Email: "jane@example.com", Password: "secret"})
	require.Equal(t, http.StatusOK, rec.Code)

	sid := rec.Header().Get(sessionHeader)
	var found bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie && c.Value == sid {
			found = true
		}
	}
	assert.True(t, found, "session cookie carries the new id")
}

func TestSession_MalformedIDReplaced(t *testing.T) {
	ts := setupServer(t)
	ts.sid = "attacker-chosen"

	rec := ts.do(t, http.MethodGet, "/api/v1/session", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEqual(t, "attacker-chosen", rec.Header().Get(sessionHeader))
}

func TestLogin_ExpiredToken(t *testing.T) {
	ts := setupServer(t)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": time.Now().Add(-time.Minute).Unix()})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	ts.remote.LoginToken = signed

	rec := ts.do(t, http.MethodPost, "/api/v1/session", LoginRequestDTO{Email: "jane@example.com", Password: "secret"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "token_expired", decodeError(t, rec).Code)
}
