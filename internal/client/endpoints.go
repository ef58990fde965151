package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ariefcatur/go-warehouse-orders/internal/catalog"
	"github.com/ariefcatur/go-warehouse-orders/internal/httpx"
	"github.com/ariefcatur/go-warehouse-orders/internal/inventory"
	"github.com/ariefcatur/go-warehouse-orders/internal/orders"
	"github.com/ariefcatur/go-warehouse-orders/internal/redisx"
	"go.uber.org/zap"
)

// Page is one page of a list endpoint.
type Page[T any] struct {
	Items []T
	Meta  orders.PageMeta
}

func paged[T any](items []T, meta *orders.PageMeta) Page[T] {
	p := Page[T]{Items: items}
	if meta != nil {
		p.Meta = *meta
	}
	return p
}

func setPage(v url.Values, page, limit int) {
	if page > 0 {
		v.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
}

func setIf(v url.Values, k, val string) {
	if val != "" {
		v.Set(k, val)
	}
}

// ---- auth ----

// Login authenticates and starts the session.
func (c *Client) Login(ctx context.Context, email, password string) (orders.User, error) {
	var res authResult
	if _, err := c.do(ctx, http.MethodPost, "/auth/login", nil, map[string]string{"email": email, "password": password}, &res); err != nil {
		return orders.User{}, err
	}
	if c.Session != nil {
		if err := c.Session.Begin(res.Token, res.User); err != nil {
			return res.User, err
		}
	}
	c.log().Info("logged in", zap.String("email", res.User.Email))
	return res.User, nil
}

// Logout ends the session locally before telling the server, so no refresh
// can start once it is called. Every refresh token the session may still hold
// on the server is revoked; the local session is cleared even when the server
// call fails.
func (c *Client) Logout(ctx context.Context) error {
	if c.Session == nil {
		return nil
	}
	tokens, err := c.Session.End(ctx)
	var callErr error
	for _, rt := range tokens {
		_, lerr := c.do(ctx, http.MethodPost, "/auth/logout", nil, map[string]string{"refresh_token": rt}, nil)
		if lerr != nil && !errors.Is(lerr, ErrAuth) { // ErrAuth: sudah tidak berlaku di server
			callErr = lerr
		}
	}
	if err != nil {
		return err
	}
	return callErr
}

func (c *Client) Me(ctx context.Context) (orders.User, error) {
	var u orders.User
	_, err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &u)
	return u, err
}

// ---- products ----

type ProductQuery struct {
	Search      string
	WarehouseID string
	Category    string
	Page, Limit int
}

func (c *Client) ListProducts(ctx context.Context, q ProductQuery) (Page[orders.Product], error) {
	v := url.Values{}
	setIf(v, "search", q.Search)
	setIf(v, "warehouse_id", q.WarehouseID)
	setIf(v, "category", q.Category)
	setPage(v, q.Page, q.Limit)
	var items []orders.Product
	meta, err := c.do(ctx, http.MethodGet, "/products", v, nil, &items)
	return paged(items, meta), err
}

func (c *Client) GetProduct(ctx context.Context, id string) (orders.Product, error) {
	var p orders.Product
	_, err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(id), nil, nil, &p)
	return p, err
}

func (c *Client) CreateProduct(ctx context.Context, in catalog.ProductInput) (orders.Product, error) {
	var p orders.Product
	_, err := c.do(ctx, http.MethodPost, "/products", nil, in, &p)
	return p, err
}

func (c *Client) UpdateProduct(ctx context.Context, id string, in catalog.ProductInput) (orders.Product, error) {
	var p orders.Product
	_, err := c.do(ctx, http.MethodPut, "/products/"+url.PathEscape(id), nil, in, &p)
	return p, err
}

func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/products/"+url.PathEscape(id), nil, nil, nil)
	return err
}

// ---- warehouses ----

func (c *Client) ListWarehouses(ctx context.Context) ([]orders.Warehouse, error) {
	var ws []orders.Warehouse
	_, err := c.do(ctx, http.MethodGet, "/warehouses", nil, nil, &ws)
	return ws, err
}

// ActiveWarehouses lists the warehouses selectable for new operations.
func (c *Client) ActiveWarehouses(ctx context.Context) ([]orders.Warehouse, error) {
	ws, err := c.ListWarehouses(ctx)
	if err != nil {
		return nil, err
	}
	active := ws[:0]
	for _, w := range ws {
		if w.IsActive {
			active = append(active, w)
		}
	}
	return active, nil
}

func (c *Client) GetWarehouse(ctx context.Context, id string) (orders.Warehouse, error) {
	var w orders.Warehouse
	_, err := c.do(ctx, http.MethodGet, "/warehouses/"+url.PathEscape(id), nil, nil, &w)
	return w, err
}

func (c *Client) CreateWarehouse(ctx context.Context, in catalog.WarehouseInput) (orders.Warehouse, error) {
	var w orders.Warehouse
	_, err := c.do(ctx, http.MethodPost, "/warehouses", nil, in, &w)
	return w, err
}

func (c *Client) UpdateWarehouse(ctx context.Context, id string, in catalog.WarehouseInput) (orders.Warehouse, error) {
	var w orders.Warehouse
	_, err := c.do(ctx, http.MethodPut, "/warehouses/"+url.PathEscape(id), nil, in, &w)
	return w, err
}

func (c *Client) DeleteWarehouse(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/warehouses/"+url.PathEscape(id), nil, nil, nil)
	return err
}

// ---- orders ----

type OrderQuery struct {
	WarehouseID string
	Status      orders.Status
	Page, Limit int
}

func (c *Client) ListOrders(ctx context.Context, q OrderQuery) (Page[orders.Order], error) {
	v := url.Values{}
	setIf(v, "warehouse_id", q.WarehouseID)
	setIf(v, "status", string(q.Status))
	setPage(v, q.Page, q.Limit)
	var items []orders.Order
	meta, err := c.do(ctx, http.MethodGet, "/orders", v, nil, &items)
	return paged(items, meta), err
}

func (c *Client) GetOrder(ctx context.Context, id string) (orders.Order, error) {
	var o orders.Order
	_, err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(id), nil, nil, &o)
	return o, err
}

// CreateOrder submits an order. Resubmitting with the same order_number
// returns the existing order.
//
// A new order without an order_number is checked against current stock
// first; when a line asks for more than is available the order is not sent
// and an insufficient-stock APIError with Local set is returned. The server
// still decides: stock can change between the check and the submit.
func (c *Client) CreateOrder(ctx context.Context, in inventory.CreateOrderInput) (orders.Order, error) {
	if in.OrderNumber == "" {
		if err := c.checkStock(ctx, in.Items); err != nil {
			return orders.Order{}, err
		}
	}
	var o orders.Order
	_, err := c.do(ctx, http.MethodPost, "/orders", nil, httpx.CreateOrderReq{CreateOrderInput: in}, &o)
	return o, err
}

// checkStock collects every line that cannot be served from available stock.
// Lines the server will reject for other reasons are left to the server.
func (c *Client) checkStock(ctx context.Context, lines []inventory.OrderLine) error {
	var short []orders.StockRejectedDetail
	seen := make(map[string]bool, len(lines))
	for _, l := range lines {
		if l.ProductID == "" || l.Quantity <= 0 || seen[l.ProductID] {
			continue
		}
		seen[l.ProductID] = true
		p, err := c.GetProduct(ctx, l.ProductID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if l.Quantity > p.AvailableStock {
			short = append(short, orders.StockRejectedDetail{ProductID: p.ID, Required: l.Quantity, Available: p.AvailableStock})
		}
	}
	if len(short) == 0 {
		return nil
	}
	data, err := json.Marshal(short)
	if err != nil {
		return err
	}
	return &APIError{
		Status:  http.StatusConflict,
		Code:    orders.CodeInsufficientStock,
		Message: "insufficient stock",
		Data:    data,
		Local:   true,
	}
}

func (c *Client) UpdateOrderStatus(ctx context.Context, id string, to orders.Status) (orders.Order, error) {
	var o orders.Order
	_, err := c.do(ctx, http.MethodPut, "/orders/"+url.PathEscape(id)+"/status", nil, map[string]orders.Status{"status": to}, &o)
	return o, err
}

func (c *Client) OrderStatus(ctx context.Context, id string) (redisx.StatusEntry, error) {
	var e redisx.StatusEntry
	_, err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(id)+"/status", nil, nil, &e)
	return e, err
}

// ---- transactions ----

type TransactionQuery struct {
	Type        orders.TransactionType
	WarehouseID string
	DateFrom    string // YYYY-MM-DD or RFC3339
	DateTo      string
	Page, Limit int
}

func (q TransactionQuery) values() url.Values {
	v := url.Values{}
	setIf(v, "type", string(q.Type))
	setIf(v, "warehouseId", q.WarehouseID)
	setIf(v, "dateFrom", q.DateFrom)
	setIf(v, "dateTo", q.DateTo)
	setPage(v, q.Page, q.Limit)
	return v
}

func (c *Client) ListTransactions(ctx context.Context, q TransactionQuery) (Page[orders.Transaction], error) {
	var items []orders.Transaction
	meta, err := c.do(ctx, http.MethodGet, "/transactions", q.values(), nil, &items)
	return paged(items, meta), err
}

func (c *Client) CreateTransaction(ctx context.Context, m inventory.Movement) (orders.Transaction, error) {
	var t orders.Transaction
	_, err := c.do(ctx, http.MethodPost, "/transactions", nil, m, &t)
	return t, err
}

func (c *Client) ListInbounds(ctx context.Context, q TransactionQuery) (Page[httpx.InboundRecord], error) {
	q.Type = ""
	var items []httpx.InboundRecord
	meta, err := c.do(ctx, http.MethodGet, "/inbounds", q.values(), nil, &items)
	return paged(items, meta), err
}

func (c *Client) CreateInbound(ctx context.Context, in httpx.InboundReq) (httpx.InboundRecord, error) {
	var rec httpx.InboundRecord
	_, err := c.do(ctx, http.MethodPost, "/inbounds", nil, in, &rec)
	return rec, err
}

func (c *Client) ListOutbounds(ctx context.Context, q TransactionQuery) (Page[httpx.OutboundRecord], error) {
	q.Type = ""
	var items []httpx.OutboundRecord
	meta, err := c.do(ctx, http.MethodGet, "/outbounds", q.values(), nil, &items)
	return paged(items, meta), err
}

func (c *Client) CreateOutbound(ctx context.Context, in httpx.OutboundReq) (httpx.OutboundRecord, error) {
	var rec httpx.OutboundRecord
	_, err := c.do(ctx, http.MethodPost, "/outbounds", nil, in, &rec)
	return rec, err
}

// ---- dashboard ----

func (c *Client) DashboardStats(ctx context.Context) (catalog.Stats, error) {
	var st catalog.Stats
	_, err := c.do(ctx, http.MethodGet, "/dashboard/stats", nil, nil, &st)
	return st, err
}
