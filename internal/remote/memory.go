package remote

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"pos_umkm/internal/pos"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Memory is an in-process backend. It enforces the same single-open-shift
// and client_ref uniqueness rules as the database schema and supports fault
// injection per method.
type Memory struct {
	mu           sync.Mutex
	shifts       map[string]pos.Shift
	orders       map[string]pos.Order
	items        map[string]pos.OrderItem
	transactions []pos.Transaction
	expenses     []pos.Expense
	shopping     map[string]pos.ShoppingList
	products     map[string]pos.Product
	categories   []pos.Category

	unreachable bool
	faults      map[string][]error
	calls       map[string]int
}

func NewMemory() *Memory {
	return &Memory{
		shifts:   make(map[string]pos.Shift),
		orders:   make(map[string]pos.Order),
		items:    make(map[string]pos.OrderItem),
		shopping: make(map[string]pos.ShoppingList),
		products: make(map[string]pos.Product),
		faults:   make(map[string][]error),
		calls:    make(map[string]int),
	}
}

// SetUnreachable makes every call fail as a network outage would.
func (m *Memory) SetUnreachable(down bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unreachable = down
}

// FailNext queues err as the result of the next call to method.
func (m *Memory) FailNext(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults[method] = append(m.faults[method], err)
}

func (m *Memory) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

func (m *Memory) enter(method string) error {
	m.calls[method]++
	if m.unreachable {
		return fmt.Errorf("%w: %s: connection refused", ErrUnavailable, method)
	}
	if queued := m.faults[method]; len(queued) > 0 {
		m.faults[method] = queued[1:]
		return queued[0]
	}
	return nil
}

func (m *Memory) AddProduct(p pos.Product) pos.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	m.products[p.ID] = p
	return p
}

func (m *Memory) Product(id string) (pos.Product, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	return p, ok
}

func (m *Memory) AddCategory(c pos.Category) pos.Category {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	m.categories = append(m.categories, c)
	return c
}

func (m *Memory) AddExpense(e pos.Expense) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	m.expenses = append(m.expenses, e)
}

func (m *Memory) AddShoppingList(l pos.ShoppingList) pos.ShoppingList {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.Status == "" {
		l.Status = pos.ShoppingActive
	}
	m.shopping[l.ID] = l
	return l
}

func (m *Memory) Orders() []pos.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]pos.Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, o)
	}
	sortOrders(out)
	return out
}

func (m *Memory) Transactions() []pos.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.transactions)
}

func (m *Memory) Ping(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enter("Ping")
}

func (m *Memory) FindOpenShift(_ context.Context, storeID string) (*pos.Shift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("FindOpenShift"); err != nil {
		return nil, err
	}
	for _, s := range m.shifts {
		if s.StoreID == storeID && s.Status == pos.ShiftOpen {
			found := s
			return &found, nil
		}
	}
	return nil, nil
}

func (m *Memory) GetShift(_ context.Context, id string) (pos.Shift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetShift"); err != nil {
		return pos.Shift{}, err
	}
	s, ok := m.shifts[id]
	if !ok {
		return pos.Shift{}, fmt.Errorf("%w: shift %s", ErrNotFound, id)
	}
	return s, nil
}

func (m *Memory) CreateShift(_ context.Context, shift pos.Shift) (pos.Shift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateShift"); err != nil {
		return pos.Shift{}, err
	}
	for _, s := range m.shifts {
		if s.StoreID == shift.StoreID && s.Status == pos.ShiftOpen {
			return pos.Shift{}, fmt.Errorf("%w: store %s already has an open shift", ErrRejected, shift.StoreID)
		}
	}
	shift.ID = uuid.NewString()
	shift.Status = pos.ShiftOpen
	m.shifts[shift.ID] = shift
	return shift, nil
}

func (m *Memory) CloseShift(_ context.Context, id string, closing ShiftClose) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CloseShift"); err != nil {
		return err
	}
	s, ok := m.shifts[id]
	if !ok {
		return fmt.Errorf("%w: shift %s", ErrNotFound, id)
	}
	closedAt := closing.ClosedAt
	sales := closing.TotalSales
	cash := closing.EndingCash
	s.ClosedAt = &closedAt
	s.TotalSales = &sales
	s.EndingCash = &cash
	s.Status = pos.ShiftClosed
	m.shifts[id] = s
	return nil
}

func (m *Memory) CreateOrder(_ context.Context, order pos.Order, clientRef string) (pos.Order, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateOrder"); err != nil {
		return pos.Order{}, false, err
	}
	if clientRef != "" {
		for _, o := range m.orders {
			if o.ClientRef == clientRef {
				return o, false, nil
			}
		}
	}
	if order.ShiftID != "" {
		if _, ok := m.shifts[order.ShiftID]; !ok {
			return pos.Order{}, false, fmt.Errorf("%w: unknown shift %s", ErrRejected, order.ShiftID)
		}
	}
	order.ID = uuid.NewString()
	order.ClientRef = clientRef
	m.orders[order.ID] = order
	return order, true, nil
}

func (m *Memory) GetOrder(_ context.Context, id string) (pos.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetOrder"); err != nil {
		return pos.Order{}, err
	}
	o, ok := m.orders[id]
	if !ok {
		return pos.Order{}, fmt.Errorf("%w: order %s", ErrNotFound, id)
	}
	return o, nil
}

func (m *Memory) UpdateOrder(_ context.Context, id string, patch OrderPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("UpdateOrder"); err != nil {
		return err
	}
	o, ok := m.orders[id]
	if !ok {
		return fmt.Errorf("%w: order %s", ErrNotFound, id)
	}
	if patch.Status != nil {
		o.Status = *patch.Status
	}
	if patch.Total != nil {
		o.Total = *patch.Total
	}
	if patch.CustomerLabel != nil {
		o.CustomerLabel = *patch.CustomerLabel
	}
	m.orders[id] = o
	return nil
}

func (m *Memory) DeleteOrder(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("DeleteOrder"); err != nil {
		return err
	}
	delete(m.orders, id)
	for itemID, item := range m.items {
		if item.OrderID == id {
			delete(m.items, itemID)
		}
	}
	return nil
}

func (m *Memory) ListOrders(_ context.Context, storeID, shiftID string) ([]pos.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListOrders"); err != nil {
		return nil, err
	}
	var out []pos.Order
	for _, o := range m.orders {
		if o.StoreID != storeID || (shiftID != "" && o.ShiftID != shiftID) {
			continue
		}
		out = append(out, o)
	}
	sortOrders(out)
	return out, nil
}

func (m *Memory) CreateItems(_ context.Context, items []pos.OrderItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateItems"); err != nil {
		return err
	}
	for _, item := range items {
		if _, ok := m.orders[item.OrderID]; !ok {
			return fmt.Errorf("%w: unknown order %s", ErrRejected, item.OrderID)
		}
		if item.Quantity < 1 {
			return fmt.Errorf("%w: quantity must be positive", ErrRejected)
		}
	}
	for _, item := range items {
		item.ID = uuid.NewString()
		m.items[item.ID] = item
	}
	return nil
}

func (m *Memory) ListItems(_ context.Context, orderID string) ([]pos.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListItems"); err != nil {
		return nil, err
	}
	var out []pos.OrderItem
	for _, item := range m.items {
		if item.OrderID == orderID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) DeleteItemsByOrder(_ context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("DeleteItemsByOrder"); err != nil {
		return err
	}
	for id, item := range m.items {
		if item.OrderID == orderID {
			delete(m.items, id)
		}
	}
	return nil
}

func (m *Memory) ReassignItems(_ context.Context, itemIDs []string, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ReassignItems"); err != nil {
		return err
	}
	if _, ok := m.orders[orderID]; !ok {
		return fmt.Errorf("%w: unknown order %s", ErrRejected, orderID)
	}
	for _, id := range itemIDs {
		item, ok := m.items[id]
		if !ok {
			continue
		}
		item.OrderID = orderID
		m.items[id] = item
	}
	return nil
}

func (m *Memory) CreateTransaction(_ context.Context, txn pos.Transaction, clientRef string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateTransaction"); err != nil {
		return err
	}
	if clientRef != "" {
		for _, t := range m.transactions {
			if t.ClientRef == clientRef {
				return nil
			}
		}
	}
	txn.ID = uuid.NewString()
	txn.ClientRef = clientRef
	m.transactions = append(m.transactions, txn)
	return nil
}

func (m *Memory) ListTransactionsByShift(_ context.Context, shiftID string) ([]pos.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListTransactionsByShift"); err != nil {
		return nil, err
	}
	var out []pos.Transaction
	for _, t := range m.transactions {
		if t.ShiftID == shiftID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *Memory) ListExpensesByShift(_ context.Context, shiftID string) ([]pos.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListExpensesByShift"); err != nil {
		return nil, err
	}
	var out []pos.Expense
	for _, e := range m.expenses {
		if e.ShiftID == shiftID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *Memory) ListShoppingLists(_ context.Context, storeID, date string) ([]pos.ShoppingList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListShoppingLists"); err != nil {
		return nil, err
	}
	var out []pos.ShoppingList
	for _, l := range m.shopping {
		if l.StoreID == storeID && l.Date == date {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) CloseShoppingLists(_ context.Context, storeID, date string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CloseShoppingLists"); err != nil {
		return err
	}
	for id, l := range m.shopping {
		if l.StoreID == storeID && l.Date == date && l.Status == pos.ShoppingActive {
			l.Status = pos.ShoppingClosed
			m.shopping[id] = l
		}
	}
	return nil
}

func (m *Memory) DecrementStock(_ context.Context, productID string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("DecrementStock"); err != nil {
		return err
	}
	p, ok := m.products[productID]
	if !ok || p.Stock == pos.UnlimitedStock {
		return nil
	}
	p.Stock = max(p.Stock-quantity, 0)
	m.products[productID] = p
	return nil
}

func (m *Memory) ListProducts(_ context.Context, storeID string) ([]pos.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListProducts"); err != nil {
		return nil, err
	}
	var out []pos.Product
	for _, p := range m.products {
		if p.StoreID == storeID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) ListCategories(_ context.Context, storeID string) ([]pos.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListCategories"); err != nil {
		return nil, err
	}
	var out []pos.Category
	for _, c := range m.categories {
		if c.StoreID == storeID {
			out = append(out, c)
		}
	}
	return out, nil
}

// SumTransactions is a test helper over every recorded transaction amount.
func (m *Memory) SumTransactions() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	sum := decimal.Zero
	for _, t := range m.transactions {
		sum = sum.Add(t.Amount)
	}
	return sum
}

func sortOrders(orders []pos.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID < orders[j].ID
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}
