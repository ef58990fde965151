package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ariefcatur/go-warehouse-orders/internal/auth"
	"github.com/ariefcatur/go-warehouse-orders/internal/catalog"
	"github.com/ariefcatur/go-warehouse-orders/internal/inventory"
	"github.com/ariefcatur/go-warehouse-orders/internal/orders"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reply struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Code    string           `json:"code"`
	Data    json.RawMessage  `json:"data"`
	Meta    *orders.PageMeta `json:"meta"`
}

type apiFixture struct {
	srv     *httptest.Server
	store   *orders.MemoryStore
	wh      orders.Warehouse
	laptop  orders.Product
	admin   string
	staff   string
	refresh string
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	ctx := context.Background()
	store := orders.NewMemoryStore()
	authSvc := &auth.Service{Users: store, Secret: "test-secret", Revoked: auth.NewMemoryRevocations()}
	engine := &inventory.Service{Store: store}
	cat := &catalog.Service{Store: store, Expire: engine}

	_, _, err := auth.EnsureUser(ctx, store, orders.User{Name: "Admin", Email: "admin@wms.local", Role: orders.RoleAdmin}, "admin123")
	require.NoError(t, err)
	_, _, err = auth.EnsureUser(ctx, store, orders.User{Name: "Staff", Email: "staff@wms.local", Role: orders.RoleStaff}, "staff123")
	require.NoError(t, err)

	f := &apiFixture{store: store}
	f.wh, err = cat.CreateWarehouse(ctx, catalog.WarehouseInput{Name: "Jakarta", Capacity: 1000})
	require.NoError(t, err)
	stock := 100
	f.laptop, err = cat.CreateProduct(ctx, catalog.ProductInput{Name: "Laptop", SKU: "LPT-1", Price: 10000, Stock: &stock, WarehouseID: f.wh.ID})
	require.NoError(t, err)

	f.srv = httptest.NewServer(NewServer(Deps{Auth: authSvc, Catalog: cat, Engine: engine, Store: store}))
	t.Cleanup(f.srv.Close)

	f.admin, f.refresh = f.login(t, "admin@wms.local", "admin123")
	f.staff, _ = f.login(t, "staff@wms.local", "staff123")
	return f
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) (int, reply) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out reply
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func (f *apiFixture) login(t *testing.T, email, password string) (access, refresh string) {
	t.Helper()
	code, r := f.do(t, http.MethodPost, "/auth/login", "", loginReq{Email: email, Password: password})
	require.Equal(t, http.StatusOK, code, r.Message)
	var sess auth.Session
	require.NoError(t, json.Unmarshal(r.Data, &sess))
	return sess.Token.AccessToken, sess.Token.RefreshToken
}

func (f *apiFixture) product(t *testing.T) orders.Product {
	t.Helper()
	p, err := f.store.GetProduct(context.Background(), f.laptop.ID)
	require.NoError(t, err)
	return p
}

func TestHealthz(t *testing.T) {
	f := newAPI(t)
	resp, err := f.srv.Client().Get(f.srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthFlow(t *testing.T) {
	f := newAPI(t)

	code, r := f.do(t, http.MethodGet, "/products", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, orders.CodeUnauthorized, r.Code)
	assert.False(t, r.Success)

	code, r = f.do(t, http.MethodPost, "/auth/login", "", loginReq{Email: "admin@wms.local", Password: "salah"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, r = f.do(t, http.MethodGet, "/auth/me", f.admin, nil)
	require.Equal(t, http.StatusOK, code)
	var me orders.User
	require.NoError(t, json.Unmarshal(r.Data, &me))
	assert.Equal(t, "admin@wms.local", me.Email)

	code, r = f.do(t, http.MethodPost, "/auth/refresh_token", "", refreshReq{RefreshToken: f.refresh})
	require.Equal(t, http.StatusOK, code)
	var rotated auth.Session
	require.NoError(t, json.Unmarshal(r.Data, &rotated))

	code, _ = f.do(t, http.MethodPost, "/auth/refresh_token", "", refreshReq{RefreshToken: f.refresh})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = f.do(t, http.MethodPost, "/auth/logout", "", refreshReq{RefreshToken: rotated.Token.RefreshToken})
	assert.Equal(t, http.StatusOK, code)
}

func TestCreateOrder(t *testing.T) {
	f := newAPI(t)
	body := map[string]any{
		"order_number":  "ORD-WEB-1",
		"customer_name": "Andi",
		"warehouse_id":  f.wh.ID,
		"items":         []map[string]any{{"product_id": f.laptop.ID, "quantity": 30}},
	}

	code, r := f.do(t, http.MethodPost, "/orders", f.staff, body)
	require.Equal(t, http.StatusCreated, code, r.Message)
	var o orders.Order
	require.NoError(t, json.Unmarshal(r.Data, &o))
	assert.Equal(t, orders.StatusPendingPayment, o.Status)
	assert.EqualValues(t, 300000, o.TotalAmount)
	assert.Equal(t, "staff@wms.local", o.CreatedBy)

	code, r = f.do(t, http.MethodPost, "/orders", f.staff, body)
	assert.Equal(t, http.StatusOK, code)
	var again orders.Order
	require.NoError(t, json.Unmarshal(r.Data, &again))
	assert.Equal(t, o.ID, again.ID)
	assert.Equal(t, 30, f.product(t).ReservedStock)

	code, r = f.do(t, http.MethodGet, "/orders/"+o.ID+"/status", f.staff, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(r.Data), `"status":"pending_payment"`)
}

func TestCreateOrder_Errors(t *testing.T) {
	f := newAPI(t)

	code, r := f.do(t, http.MethodPost, "/orders", f.staff, map[string]any{
		"customer_name": "Andi", "warehouse_id": f.wh.ID,
		"items": []map[string]any{{"product_id": f.laptop.ID, "quantity": 150}},
	})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, orders.CodeInsufficientStock, r.Code)
	var details []orders.StockRejectedDetail
	require.NoError(t, json.Unmarshal(r.Data, &details))
	assert.Equal(t, []orders.StockRejectedDetail{{ProductID: f.laptop.ID, Required: 150, Available: 100}}, details)

	code, r = f.do(t, http.MethodPost, "/orders", f.staff, map[string]any{"warehouse_id": f.wh.ID})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, orders.CodeValidation, r.Code)
	assert.JSONEq(t, `{"field":"customer_name"}`, string(r.Data))

	code, r = f.do(t, http.MethodGet, "/orders/missing", f.staff, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, orders.CodeNotFound, r.Code)

	assert.Equal(t, [3]int{100, 0, 100}, func() [3]int {
		p := f.product(t)
		return [3]int{p.Stock, p.ReservedStock, p.AvailableStock}
	}())
}

func TestUpdateOrderStatus(t *testing.T) {
	f := newAPI(t)
	code, r := f.do(t, http.MethodPost, "/orders", f.staff, map[string]any{
		"customer_name": "Andi", "warehouse_id": f.wh.ID,
		"items": []map[string]any{{"product_id": f.laptop.ID, "quantity": 30}},
	})
	require.Equal(t, http.StatusCreated, code)
	var o orders.Order
	require.NoError(t, json.Unmarshal(r.Data, &o))

	code, r = f.do(t, http.MethodPut, "/orders/"+o.ID+"/status", f.staff, statusReq{Status: orders.StatusShipped})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, orders.CodeInvalidTransition, r.Code)

	for _, st := range []orders.Status{orders.StatusConfirmed, orders.StatusProcessing, orders.StatusShipped} {
		code, r = f.do(t, http.MethodPut, "/orders/"+o.ID+"/status", f.staff, statusReq{Status: st})
		require.Equal(t, http.StatusOK, code, r.Message)
	}
	p := f.product(t)
	assert.Equal(t, [3]int{70, 0, 70}, [3]int{p.Stock, p.ReservedStock, p.AvailableStock})

	code, r = f.do(t, http.MethodGet, "/orders?status=shipped", f.staff, nil)
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, r.Meta)
	assert.Equal(t, 1, r.Meta.Total)

	code, r = f.do(t, http.MethodGet, "/orders?status=paid", f.staff, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAdminOnlyRoutes(t *testing.T) {
	f := newAPI(t)

	code, r := f.do(t, http.MethodDelete, "/products/"+f.laptop.ID, f.staff, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, orders.CodeForbidden, r.Code)

	code, _ = f.do(t, http.MethodPost, "/warehouses", f.staff, catalog.WarehouseInput{Name: "Bandung"})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = f.do(t, http.MethodPost, "/warehouses", f.admin, catalog.WarehouseInput{Name: "Bandung"})
	assert.Equal(t, http.StatusCreated, code)

	code, r = f.do(t, http.MethodDelete, "/warehouses/"+f.wh.ID, f.admin, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, orders.CodeConflict, r.Code)

	code, _ = f.do(t, http.MethodDelete, "/products/"+f.laptop.ID, f.admin, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestTransactions(t *testing.T) {
	f := newAPI(t)

	code, r := f.do(t, http.MethodPost, "/inbounds", f.staff, InboundReq{
		ProductID: f.laptop.ID, WarehouseID: f.wh.ID, Quantity: 20, SupplierName: "PT Sumber", ReferenceNumber: "PO-1",
	})
	require.Equal(t, http.StatusCreated, code, r.Message)
	var in InboundRecord
	require.NoError(t, json.Unmarshal(r.Data, &in))
	assert.Equal(t, "PT Sumber", in.SupplierName)

	code, r = f.do(t, http.MethodPost, "/outbounds", f.staff, OutboundReq{
		ProductID: f.laptop.ID, Quantity: 500, DestinationType: orders.DestinationCustomer,
	})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, orders.CodeInsufficientStock, r.Code)

	code, r = f.do(t, http.MethodPost, "/transactions", f.staff, map[string]any{
		"type": "checkout", "product_id": f.laptop.ID, "quantity": 1,
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.JSONEq(t, `{"field":"type"}`, string(r.Data))

	code, r = f.do(t, http.MethodGet, "/transactions?type=inbound&limit=1", f.staff, nil)
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, r.Meta)
	assert.Equal(t, 2, r.Meta.Total)
	assert.Equal(t, 2, r.Meta.TotalPages)

	code, r = f.do(t, http.MethodGet, "/inbounds", f.staff, nil)
	require.Equal(t, http.StatusOK, code)
	var records []InboundRecord
	require.NoError(t, json.Unmarshal(r.Data, &records))
	require.Len(t, records, 2)
	assert.Equal(t, "PO-1", records[0].ReferenceNumber, "newest first")

	code, _ = f.do(t, http.MethodGet, "/transactions?type=adjust", f.staff, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = f.do(t, http.MethodGet, "/transactions?dateFrom=yesterday", f.staff, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, r = f.do(t, http.MethodGet, "/transactions?dateTo=2000-01-01", f.staff, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0, r.Meta.Total)
}

func TestDashboardStats(t *testing.T) {
	f := newAPI(t)
	code, r := f.do(t, http.MethodGet, "/dashboard/stats", f.staff, nil)
	require.Equal(t, http.StatusOK, code)
	var st catalog.Stats
	require.NoError(t, json.Unmarshal(r.Data, &st))
	assert.Equal(t, 1, st.TotalProducts)
	assert.Equal(t, 1, st.ActiveWarehouses)
	assert.Len(t, st.TransactionHistories, 1)
}
