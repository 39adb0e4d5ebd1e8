package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"pos_umkm/internal/config"
	"pos_umkm/internal/pos"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const restPrefix = "/rest/v1"

// Client talks to a PostgREST-style backend (Supabase).
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

func NewClient(cfg config.Config, logger *zap.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.RemoteURL, "/")+restPrefix).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetTimeout(cfg.Timeout).
		SetRetryCount(1).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if err != nil {
				return safeToResend(resp)
			}
			return resp != nil && resp.StatusCode() == http.StatusTooManyRequests
		})

	if cfg.RemoteAPIKey != "" {
		httpClient.SetHeader("apikey", cfg.RemoteAPIKey)
		httpClient.SetAuthScheme("Bearer")
		httpClient.SetAuthToken(cfg.RemoteAPIKey)
	}

	return &Client{
		http:   httpClient,
		logger: logger.Named("remote"),
	}
}

// safeToResend reports whether a request with an unknown outcome can be sent
// again without creating a second row. Plain inserts are left to the drain
// pass, which replays by client_ref.
func safeToResend(resp *resty.Response) bool {
	if resp == nil || resp.Request == nil {
		return false
	}
	switch resp.Request.Method {
	case http.MethodGet, http.MethodHead, http.MethodPatch, http.MethodDelete:
		return true
	case http.MethodPost:
		return resp.Request.QueryParam.Get("on_conflict") != ""
	default:
		return false
	}
}

func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Head("/")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if resp.StatusCode() >= http.StatusInternalServerError {
		return apiErrorFromResponse(resp)
	}
	return nil
}

func (c *Client) FindOpenShift(ctx context.Context, storeID string) (*pos.Shift, error) {
	if storeID == "" {
		return nil, ErrMissingStore
	}
	var rows []pos.Shift
	err := c.doGet(ctx, "/shifts", map[string]string{
		"store_id": "eq." + storeID,
		"status":   "eq." + string(pos.ShiftOpen),
		"order":    "start_time.desc",
		"limit":    "1",
	}, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (c *Client) GetShift(ctx context.Context, id string) (pos.Shift, error) {
	var rows []pos.Shift
	if err := c.doGet(ctx, "/shifts", map[string]string{"id": "eq." + id}, &rows); err != nil {
		return pos.Shift{}, err
	}
	if len(rows) == 0 {
		return pos.Shift{}, fmt.Errorf("%w: shift %s", ErrNotFound, id)
	}
	return rows[0], nil
}

func (c *Client) CreateShift(ctx context.Context, shift pos.Shift) (pos.Shift, error) {
	shift.ID = ""
	var rows []pos.Shift
	if err := c.doPost(ctx, "/shifts", nil, "return=representation", shift, &rows); err != nil {
		return pos.Shift{}, err
	}
	if len(rows) == 0 {
		return pos.Shift{}, errors.New("create shift: empty response")
	}
	c.logger.Info("shift created", zap.String("shift_id", rows[0].ID))
	return rows[0], nil
}

func (c *Client) CloseShift(ctx context.Context, id string, closing ShiftClose) error {
	body := map[string]any{
		"end_time":    closing.ClosedAt,
		"status":      pos.ShiftClosed,
		"total_sales": closing.TotalSales,
		"end_cash":    closing.EndingCash,
	}
	return c.doPatch(ctx, "/shifts", map[string]string{"id": "eq." + id}, body)
}

func (c *Client) CreateOrder(ctx context.Context, order pos.Order, clientRef string) (pos.Order, bool, error) {
	if clientRef != "" {
		existing, err := c.findOrderByRef(ctx, clientRef)
		if err != nil {
			return pos.Order{}, false, err
		}
		if existing != nil {
			return *existing, false, nil
		}
	}

	order.ID = ""
	order.ClientRef = clientRef
	var rows []pos.Order
	err := c.doPost(ctx, "/orders", nil, "return=representation", order, &rows)
	if err != nil && clientRef != "" && IsRejected(err) {
		// unique violation on client_ref: another attempt won the race
		if existing, findErr := c.findOrderByRef(ctx, clientRef); findErr == nil && existing != nil {
			return *existing, false, nil
		}
	}
	if err != nil {
		return pos.Order{}, false, err
	}
	if len(rows) == 0 {
		return pos.Order{}, false, errors.New("create order: empty response")
	}
	return rows[0], true, nil
}

func (c *Client) findOrderByRef(ctx context.Context, clientRef string) (*pos.Order, error) {
	var rows []pos.Order
	err := c.doGet(ctx, "/orders", map[string]string{
		"client_ref": "eq." + clientRef,
		"limit":      "1",
	}, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (c *Client) GetOrder(ctx context.Context, id string) (pos.Order, error) {
	var rows []pos.Order
	if err := c.doGet(ctx, "/orders", map[string]string{"id": "eq." + id}, &rows); err != nil {
		return pos.Order{}, err
	}
	if len(rows) == 0 {
		return pos.Order{}, fmt.Errorf("%w: order %s", ErrNotFound, id)
	}
	return rows[0], nil
}

func (c *Client) UpdateOrder(ctx context.Context, id string, patch OrderPatch) error {
	return c.doPatch(ctx, "/orders", map[string]string{"id": "eq." + id}, patch)
}

func (c *Client) DeleteOrder(ctx context.Context, id string) error {
	return c.doDelete(ctx, "/orders", map[string]string{"id": "eq." + id})
}

func (c *Client) ListOrders(ctx context.Context, storeID, shiftID string) ([]pos.Order, error) {
	if storeID == "" {
		return nil, ErrMissingStore
	}
	query := map[string]string{
		"store_id": "eq." + storeID,
		"order":    "created_at.desc",
	}
	if shiftID != "" {
		query["shift_id"] = "eq." + shiftID
	}
	var rows []pos.Order
	if err := c.doGet(ctx, "/orders", query, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) CreateItems(ctx context.Context, items []pos.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	rows := make([]pos.OrderItem, len(items))
	for i, item := range items {
		item.ID = ""
		rows[i] = item
	}
	return c.doPost(ctx, "/order_items", nil, "return=minimal", rows, nil)
}

func (c *Client) ListItems(ctx context.Context, orderID string) ([]pos.OrderItem, error) {
	var rows []pos.OrderItem
	if err := c.doGet(ctx, "/order_items", map[string]string{"order_id": "eq." + orderID}, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) DeleteItemsByOrder(ctx context.Context, orderID string) error {
	return c.doDelete(ctx, "/order_items", map[string]string{"order_id": "eq." + orderID})
}

func (c *Client) ReassignItems(ctx context.Context, itemIDs []string, orderID string) error {
	if len(itemIDs) == 0 {
		return nil
	}
	query := map[string]string{"id": "in.(" + strings.Join(itemIDs, ",") + ")"}
	return c.doPatch(ctx, "/order_items", query, map[string]string{"order_id": orderID})
}

func (c *Client) CreateTransaction(ctx context.Context, txn pos.Transaction, clientRef string) error {
	txn.ID = ""
	txn.ClientRef = clientRef
	query := map[string]string{}
	prefer := "return=minimal"
	if clientRef != "" {
		query["on_conflict"] = "client_ref"
		prefer = "resolution=ignore-duplicates,return=minimal"
	}
	return c.doPost(ctx, "/transactions", query, prefer, txn, nil)
}

func (c *Client) ListTransactionsByShift(ctx context.Context, shiftID string) ([]pos.Transaction, error) {
	var rows []pos.Transaction
	if err := c.doGet(ctx, "/transactions", map[string]string{"shift_id": "eq." + shiftID}, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) ListExpensesByShift(ctx context.Context, shiftID string) ([]pos.Expense, error) {
	var rows []pos.Expense
	if err := c.doGet(ctx, "/expenses", map[string]string{"shift_id": "eq." + shiftID}, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) ListShoppingLists(ctx context.Context, storeID, date string) ([]pos.ShoppingList, error) {
	var rows []pos.ShoppingList
	err := c.doGet(ctx, "/shopping_lists", map[string]string{
		"store_id": "eq." + storeID,
		"date":     "eq." + date,
	}, &rows)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) CloseShoppingLists(ctx context.Context, storeID, date string) error {
	query := map[string]string{
		"store_id": "eq." + storeID,
		"date":     "eq." + date,
		"status":   "eq." + string(pos.ShoppingActive),
	}
	return c.doPatch(ctx, "/shopping_lists", query, map[string]string{"status": string(pos.ShoppingClosed)})
}

func (c *Client) DecrementStock(ctx context.Context, productID string, quantity int) error {
	var rows []struct {
		Stock int `json:"stock"`
	}
	err := c.doGet(ctx, "/products", map[string]string{
		"id":     "eq." + productID,
		"select": "stock",
	}, &rows)
	if err != nil {
		return err
	}
	if len(rows) == 0 || rows[0].Stock == pos.UnlimitedStock {
		return nil
	}
	next := max(rows[0].Stock-quantity, 0)
	return c.doPatch(ctx, "/products", map[string]string{"id": "eq." + productID}, map[string]int{"stock": next})
}

func (c *Client) ListProducts(ctx context.Context, storeID string) ([]pos.Product, error) {
	var rows []pos.Product
	err := c.doGet(ctx, "/products", map[string]string{
		"store_id": "eq." + storeID,
		"order":    "name.asc",
	}, &rows)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) ListCategories(ctx context.Context, storeID string) ([]pos.Category, error) {
	var rows []pos.Category
	err := c.doGet(ctx, "/categories", map[string]string{
		"store_id": "eq." + storeID,
		"order":    "name.asc",
	}, &rows)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) doGet(ctx context.Context, path string, query map[string]string, result any) error {
	req := c.http.R().SetContext(ctx).SetResult(result)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	resp, err := req.Get(path)
	return c.check(http.MethodGet, path, resp, err)
}

func (c *Client) doPost(ctx context.Context, path string, query map[string]string, prefer string, body, result any) error {
	req := c.http.R().SetContext(ctx).SetBody(body)
	if prefer != "" {
		req.SetHeader("Prefer", prefer)
	}
	if result != nil {
		req.SetResult(result)
	}
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	resp, err := req.Post(path)
	return c.check(http.MethodPost, path, resp, err)
}

func (c *Client) doPatch(ctx context.Context, path string, query map[string]string, body any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Prefer", "return=minimal").
		SetQueryParams(query).
		SetBody(body).
		Patch(path)
	return c.check(http.MethodPatch, path, resp, err)
}

func (c *Client) doDelete(ctx context.Context, path string, query map[string]string) error {
	resp, err := c.http.R().SetContext(ctx).SetQueryParams(query).Delete(path)
	return c.check(http.MethodDelete, path, resp, err)
}

func (c *Client) check(method, path string, resp *resty.Response, err error) error {
	if err != nil {
		c.logger.Debug("remote request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%w: %s %s: %w", ErrUnavailable, method, path, err)
	}
	if resp.IsError() {
		return apiErrorFromResponse(resp)
	}
	return nil
}
