package handler

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodworks-dev/counter-pos/internal/domain/auth"
	"github.com/foodworks-dev/counter-pos/internal/domain/catalog"
	"github.com/foodworks-dev/counter-pos/internal/domain/order"
	"github.com/foodworks-dev/counter-pos/internal/domain/promotion"
)

type fakeItemRepo struct {
	items map[string]catalog.Item
}

func (r *fakeItemRepo) List(context.Context) ([]catalog.Item, error) {
	out := make([]catalog.Item, 0, len(r.items))
	for _, it := range r.items {
		out = append(out, it)
	}
	return out, nil
}

func (r *fakeItemRepo) GetByID(_ context.Context, id string) (*catalog.Item, error) {
	it, ok := r.items[id]
	if !ok {
		return nil, catalog.ErrItemNotFound
	}
	return &it, nil
}

func (r *fakeItemRepo) GetByIDs(_ context.Context, ids []string) ([]catalog.Item, error) {
	var out []catalog.Item
	for _, id := range ids {
		if it, ok := r.items[id]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r *fakeItemRepo) Upsert(_ context.Context, it catalog.Item) error {
	r.items[it.ID] = it
	return nil
}

type fakeCustomerRepo struct {
	customers map[string]catalog.Customer
}

func (r *fakeCustomerRepo) GetByID(_ context.Context, id string) (*catalog.Customer, error) {
	c, ok := r.customers[id]
	if !ok {
		return nil, catalog.ErrCustomerNotFound
	}
	return &c, nil
}

func (r *fakeCustomerRepo) Upsert(_ context.Context, c catalog.Customer) error {
	r.customers[c.ID] = c
	return nil
}

type fakePromotionRepo struct {
	promos []promotion.Promotion
}

func (r *fakePromotionRepo) List(context.Context) ([]promotion.Promotion, error) {
	return r.promos, nil
}

func (r *fakePromotionRepo) ListActive(context.Context) ([]promotion.Promotion, error) {
	var out []promotion.Promotion
	for _, p := range r.promos {
		if p.Active {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePromotionRepo) GetByID(_ context.Context, id string) (*promotion.Promotion, error) {
	for _, p := range r.promos {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, promotion.ErrNotFound
}

func (r *fakePromotionRepo) Upsert(_ context.Context, p promotion.Promotion) error {
	r.promos = append(r.promos, p)
	return nil
}

type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*order.Order
}

func (r *fakeOrderRepo) Create(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r *fakeOrderRepo) GetByID(_ context.Context, id string) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *fakeOrderRepo) List(context.Context) ([]order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]order.Order, 0, len(r.orders))
	for _, o := range r.orders {
		out = append(out, *o)
	}
	return out, nil
}

func (r *fakeOrderRepo) Replace(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.orders[o.ID]
	if !ok {
		return order.ErrNotFound
	}
	if existing.PaymentStatus != order.PaymentAwaiting {
		return order.ErrConflict
	}
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r *fakeOrderRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.orders[id]
	if !ok {
		return order.ErrNotFound
	}
	if existing.PaymentStatus != order.PaymentAwaiting {
		return order.ErrConflict
	}
	delete(r.orders, id)
	return nil
}

func (r *fakeOrderRepo) MarkPaid(_ context.Context, id string, paidAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return order.ErrNotFound
	}
	if o.PaymentStatus != order.PaymentAwaiting {
		return order.ErrConflict
	}
	o.PaymentStatus = order.PaymentPaid
	o.PreparationStatus = order.PreparationPreparing
	o.PaymentTimestamp = &paidAt
	return nil
}

func (r *fakeOrderRepo) MarkDone(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return order.ErrNotFound
	}
	if o.PreparationStatus == order.PreparationPreparing {
		o.PreparationStatus = order.PreparationDone
	}
	return nil
}

type fakeAPIKeyRepo struct {
	keys map[string]auth.APIKeyInfo
}

func (r *fakeAPIKeyRepo) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	info, ok := r.keys[hash]
	if !ok {
		return nil, errors.New("api key not found")
	}
	return &info, nil
}

func (r *fakeAPIKeyRepo) Upsert(_ context.Context, key auth.APIKeyInfo) error {
	r.keys[key.KeyHash] = key
	return nil
}

func d(t *testing.T, v string) decimal.Decimal {
	t.Helper()
	dec, err := decimal.NewFromString(v)
	require.NoError(t, err)
	return dec
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	items := &fakeItemRepo{items: map[string]catalog.Item{
		"donut": {
			ID: "donut", Name: "Donut",
			Price: d(t, "2"), PrepTime: 30, TaxRate: d(t, "0.15"),
		},
		"small-espresso": {
			ID: "small-espresso", Name: "Small Espresso",
			Price: d(t, "2"), PrepTime: 30, TaxRate: d(t, "0.2"),
		},
	}}
	customers := &fakeCustomerRepo{customers: map[string]catalog.Customer{
		"alice": {ID: "alice", Name: "Alice", Email: "alice@example.com"},
	}}
	promos := &fakePromotionRepo{promos: []promotion.Promotion{
		{
			ID:              "breakfast-bundle",
			Active:          true,
			ItemsRequired:   []string{"donut", "small-espresso"},
			ItemsDiscounted: []string{"donut"},
			Amount:          d(t, "1"),
		},
	}}
	orders := &fakeOrderRepo{orders: map[string]*order.Order{}}

	h := New(items, promos, order.NewService(items, customers, promos, orders))
	mux := http.NewServeMux()
	h.Register(mux, nil)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestCreateOrder(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/orders", orderRequest{
		CustomerID: "alice",
		Items:      []string{"donut", "small-espresso"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	got := decodeBody[orderResponse](t, resp)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "alice", got.CustomerID)
	assert.Equal(t, []string{"donut", "small-espresso"}, got.Items)
	assert.Equal(t, []string{"breakfast-bundle"}, got.Promotions)
	// Discounted donut at 1 plus espresso at 2, tax 0.15 + 0.4.
	assert.InDelta(t, 3.0, got.Total, 1e-9)
	assert.InDelta(t, 0.55, got.TaxTotal, 1e-9)
	assert.Equal(t, 60, got.PreparationTime)
	assert.Equal(t, "AWAITING_PAYMENT", got.PaymentStatus)
	assert.Equal(t, "AWAITING_PAYMENT", got.PreparationStatus)
}

func TestCreateOrder_UnknownItem(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/orders", orderRequest{
		CustomerID: "alice",
		Items:      []string{"pizza"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	got := decodeBody[errorResponse](t, resp)
	assert.Equal(t, http.StatusUnprocessableEntity, got.Code)
	assert.Contains(t, got.Message, "pizza")
}

func TestCreateOrder_UnknownCustomer(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/orders", orderRequest{
		CustomerID: "mallory",
		Items:      []string{"donut"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestCreateOrder_EmptyItems(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/orders", orderRequest{CustomerID: "alice"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateOrder_MalformedBody(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/orders", "application/json", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetOrder_NotFound(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/orders/nope")
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	got := decodeBody[errorResponse](t, resp)
	assert.Equal(t, http.StatusNotFound, got.Code)
}

func TestPayAndPollProgress(t *testing.T) {
	srv := newTestServer(t)

	created := decodeBody[orderResponse](t, postJSON(t, srv.URL+"/orders", orderRequest{
		CustomerID: "alice",
		Items:      []string{"donut"},
	}))

	resp, err := http.Post(srv.URL+"/orders/pay/"+created.ID, "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	paid := decodeBody[progressResponse](t, resp)
	assert.Equal(t, "PAID", paid.PaymentStatus)
	assert.Equal(t, "PREPARING", paid.PreparationStatus)
	assert.InDelta(t, 30.0, paid.NextPollSecs, 1e-9)

	resp, err = http.Get(srv.URL + "/orders/progress/" + created.ID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	progress := decodeBody[progressResponse](t, resp)
	assert.Equal(t, "PAID", progress.PaymentStatus)
	assert.Equal(t, "PREPARING", progress.PreparationStatus)
	assert.LessOrEqual(t, progress.NextPollSecs, 30.0)
}

func TestPayTwiceConflicts(t *testing.T) {
	srv := newTestServer(t)

	created := decodeBody[orderResponse](t, postJSON(t, srv.URL+"/orders", orderRequest{
		CustomerID: "alice",
		Items:      []string{"donut"},
	}))

	resp, err := http.Post(srv.URL+"/orders/pay/"+created.ID, "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Post(srv.URL+"/orders/pay/"+created.ID, "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestProgress_BeforePay(t *testing.T) {
	srv := newTestServer(t)

	created := decodeBody[orderResponse](t, postJSON(t, srv.URL+"/orders", orderRequest{
		CustomerID: "alice",
		Items:      []string{"donut"},
	}))

	resp, err := http.Get(srv.URL + "/orders/progress/" + created.ID)
	require.NoError(t, err)
	require.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
}

func TestDeletePaidOrderConflicts(t *testing.T) {
	srv := newTestServer(t)

	created := decodeBody[orderResponse](t, postJSON(t, srv.URL+"/orders", orderRequest{
		CustomerID: "alice",
		Items:      []string{"donut"},
	}))

	resp, err := http.Post(srv.URL+"/orders/pay/"+created.ID, "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/orders/"+created.ID, nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestDeleteUnpaidOrder(t *testing.T) {
	srv := newTestServer(t)

	created := decodeBody[orderResponse](t, postJSON(t, srv.URL+"/orders", orderRequest{
		CustomerID: "alice",
		Items:      []string{"donut"},
	}))

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/orders/"+created.ID, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/orders/" + created.ID)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestReplaceOrder(t *testing.T) {
	srv := newTestServer(t)

	created := decodeBody[orderResponse](t, postJSON(t, srv.URL+"/orders", orderRequest{
		CustomerID: "alice",
		Items:      []string{"donut"},
	}))

	raw, err := json.Marshal(orderRequest{
		CustomerID: "alice",
		Items:      []string{"donut", "small-espresso"},
	})
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPut, srv.URL+"/orders/"+created.ID, bytes.NewReader(raw))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decodeBody[orderResponse](t, resp)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, []string{"donut", "small-espresso"}, got.Items)
	assert.InDelta(t, 3.0, got.Total, 1e-9)
}

func TestListItems(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/items")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decodeBody[[]itemResponse](t, resp)
	assert.Len(t, got, 2)
}

func TestGetItem(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/items/donut")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decodeBody[itemResponse](t, resp)
	assert.Equal(t, "Donut", got.Name)
	assert.InDelta(t, 2.0, got.Price, 1e-9)
	assert.Equal(t, 30, got.PrepTime)
}

func TestGetItem_NotFound(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/items/pizza")
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetPromotion(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/promotions/breakfast-bundle")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decodeBody[promotionResponse](t, resp)
	assert.Equal(t, []string{"donut", "small-espresso"}, got.ItemsRequired)
	assert.Equal(t, []string{"donut"}, got.ItemsDiscounted)
	assert.InDelta(t, 1.0, got.Amount, 1e-9)
}

func TestAPIKeyAuth(t *testing.T) {
	pepper := []byte("test-pepper")
	key := "super-secret"

	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	hash := hex.EncodeToString(mac.Sum(nil))

	keys := &fakeAPIKeyRepo{keys: map[string]auth.APIKeyInfo{
		hash: {ID: "k1", KeyHash: hash, Name: "test"},
	}}

	protect := APIKeyAuth(keys, pepper)
	protected := protect(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("MissingKey", func(t *testing.T) {
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orders", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("WrongKey", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/orders", nil)
		req.Header.Set("api_key", "guess")
		protected.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("ValidKey", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/orders", nil)
		req.Header.Set("api_key", key)
		protected.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
