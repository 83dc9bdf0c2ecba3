package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/festivo/ticketing/internal/domain/message"
	"github.com/festivo/ticketing/internal/domain/order"
	"github.com/festivo/ticketing/internal/domain/outbox"
	"github.com/festivo/ticketing/internal/domain/ticket"
	"github.com/google/uuid"
)

// --- Order Repository Mock ---

// MockOrderRepository is a mock implementation of order.Repository.
type MockOrderRepository struct {
	mu            sync.Mutex
	orders        map[int64]*order.Order
	byUUID        map[uuid.UUID]*order.Order
	payments      map[int64][]*order.Payment
	nextID        int64
	nextPaymentID int64

	CreateFunc              func(ctx context.Context, o *order.Order) error
	GetByUUIDFunc           func(ctx context.Context, id uuid.UUID) (*order.Order, error)
	GetByUUIDForUpdateFunc  func(ctx context.Context, id uuid.UUID) (*order.Order, error)
	GetByIDForUpdateFunc    func(ctx context.Context, id int64) (*order.Order, error)
	UpdateStatusFunc        func(ctx context.Context, o *order.Order) error
	CreatePaymentFunc       func(ctx context.Context, p *order.Payment) error
	GetPaymentByOrderIDFunc func(ctx context.Context, orderID int64) (*order.Payment, error)
	UpdatePaymentStatusFunc func(ctx context.Context, p *order.Payment) error
}

func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders:   make(map[int64]*order.Order),
		byUUID:   make(map[uuid.UUID]*order.Order),
		payments: make(map[int64][]*order.Payment),
	}
}

// Seed stores an order as if it had been created earlier, assigning ids.
func (m *MockOrderRepository) Seed(o *order.Order) *order.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store(o)
	return o
}

func (m *MockOrderRepository) store(o *order.Order) {
	if o.ID == 0 {
		m.nextID++
		o.ID = m.nextID
	}
	for i := range o.LineItems {
		li := &o.LineItems[i]
		if li.ID == 0 {
			li.ID = o.ID*100 + int64(i) + 1
		}
		li.OrderID = o.ID
	}
	m.orders[o.ID] = o
	m.byUUID[o.UUID] = o
}

func (m *MockOrderRepository) Create(ctx context.Context, o *order.Order) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, o)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store(o)
	return nil
}

func (m *MockOrderRepository) GetByUUID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	if m.GetByUUIDFunc != nil {
		return m.GetByUUIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byUUID[id], nil
}

func (m *MockOrderRepository) GetByUUIDForUpdate(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	if m.GetByUUIDForUpdateFunc != nil {
		return m.GetByUUIDForUpdateFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byUUID[id], nil
}

func (m *MockOrderRepository) GetByIDForUpdate(ctx context.Context, id int64) (*order.Order, error) {
	if m.GetByIDForUpdateFunc != nil {
		return m.GetByIDForUpdateFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[id], nil
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, o *order.Order) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, o)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o
	m.byUUID[o.UUID] = o
	return nil
}

func (m *MockOrderRepository) CreatePayment(ctx context.Context, p *order.Payment) error {
	if m.CreatePaymentFunc != nil {
		return m.CreatePaymentFunc(ctx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextPaymentID++
	p.ID = m.nextPaymentID
	m.payments[p.OrderID] = append(m.payments[p.OrderID], p)
	return nil
}

func (m *MockOrderRepository) GetPaymentByOrderID(ctx context.Context, orderID int64) (*order.Payment, error) {
	if m.GetPaymentByOrderIDFunc != nil {
		return m.GetPaymentByOrderIDFunc(ctx, orderID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ps := m.payments[orderID]
	if len(ps) == 0 {
		return nil, nil
	}
	return ps[len(ps)-1], nil
}

func (m *MockOrderRepository) UpdatePaymentStatus(ctx context.Context, p *order.Payment) error {
	if m.UpdatePaymentStatusFunc != nil {
		return m.UpdatePaymentStatusFunc(ctx, p)
	}
	return nil
}

// --- Ticket Repository Mock ---

// MockTicketRepository is a mock implementation of ticket.Repository. Reserved
// counts are fixed per ticket type via SetReservedCount; tests exercising the
// count query itself override ReservedCountFunc.
type MockTicketRepository struct {
	mu           sync.Mutex
	types        map[uuid.UUID]*ticket.Type
	tickets      map[uuid.UUID]*ticket.Ticket
	ticketsByID  map[int64]*ticket.Ticket
	reserved     map[int64]int
	ticketOrders map[int64]int64
	nextID       int64

	LockTypesByUUIDsFunc      func(ctx context.Context, uuids []uuid.UUID) ([]*ticket.Type, error)
	ReservedCountFunc         func(ctx context.Context, ticketTypeID int64, now time.Time) (int, error)
	CreateTicketFunc          func(ctx context.Context, t *ticket.Ticket) error
	GetTicketByUUIDFunc       func(ctx context.Context, id uuid.UUID) (*ticket.Ticket, error)
	UpdateTicketFunc          func(ctx context.Context, t *ticket.Ticket) error
	CountPendingByOrderIDFunc func(ctx context.Context, orderID int64) (int, error)
	OrderIDByTicketFunc       func(ctx context.Context, ticketID int64) (int64, error)
}

func NewMockTicketRepository() *MockTicketRepository {
	return &MockTicketRepository{
		types:        make(map[uuid.UUID]*ticket.Type),
		tickets:      make(map[uuid.UUID]*ticket.Ticket),
		ticketsByID:  make(map[int64]*ticket.Ticket),
		reserved:     make(map[int64]int),
		ticketOrders: make(map[int64]int64),
	}
}

// AddType registers a sellable ticket type.
func (m *MockTicketRepository) AddType(t *ticket.Type) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.types[t.UUID] = t
}

// SetReservedCount fixes the reserved count reported for a ticket type.
func (m *MockTicketRepository) SetReservedCount(ticketTypeID int64, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reserved[ticketTypeID] = count
}

// LinkTicketToOrder records which order a ticket belongs to, mirroring the
// line-item join the real repository performs.
func (m *MockTicketRepository) LinkTicketToOrder(ticketID, orderID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ticketOrders[ticketID] = orderID
}

// SeedTicket stores a ticket as if it had been created earlier.
func (m *MockTicketRepository) SeedTicket(t *ticket.Ticket, orderID int64) *ticket.Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == 0 {
		m.nextID++
		t.ID = m.nextID
	}
	m.tickets[t.UUID] = t
	m.ticketsByID[t.ID] = t
	m.ticketOrders[t.ID] = orderID
	return t
}

func (m *MockTicketRepository) LockTypesByUUIDs(ctx context.Context, uuids []uuid.UUID) ([]*ticket.Type, error) {
	if m.LockTypesByUUIDsFunc != nil {
		return m.LockTypesByUUIDsFunc(ctx, uuids)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*ticket.Type
	for _, id := range uuids {
		if t, ok := m.types[id]; ok {
			result = append(result, t)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *MockTicketRepository) ReservedCount(ctx context.Context, ticketTypeID int64, now time.Time) (int, error) {
	if m.ReservedCountFunc != nil {
		return m.ReservedCountFunc(ctx, ticketTypeID, now)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reserved[ticketTypeID], nil
}

func (m *MockTicketRepository) CreateTicket(ctx context.Context, t *ticket.Ticket) error {
	if m.CreateTicketFunc != nil {
		return m.CreateTicketFunc(ctx, t)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	t.ID = m.nextID
	m.tickets[t.UUID] = t
	m.ticketsByID[t.ID] = t
	return nil
}

func (m *MockTicketRepository) GetTicketByUUID(ctx context.Context, id uuid.UUID) (*ticket.Ticket, error) {
	if m.GetTicketByUUIDFunc != nil {
		return m.GetTicketByUUIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tickets[id], nil
}

func (m *MockTicketRepository) UpdateTicket(ctx context.Context, t *ticket.Ticket) error {
	if m.UpdateTicketFunc != nil {
		return m.UpdateTicketFunc(ctx, t)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickets[t.UUID] = t
	m.ticketsByID[t.ID] = t
	return nil
}

func (m *MockTicketRepository) CountPendingByOrderID(ctx context.Context, orderID int64) (int, error) {
	if m.CountPendingByOrderIDFunc != nil {
		return m.CountPendingByOrderIDFunc(ctx, orderID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for id, oid := range m.ticketOrders {
		if oid != orderID {
			continue
		}
		if t, ok := m.ticketsByID[id]; ok && t.Status != ticket.StatusMinted {
			count++
		}
	}
	return count, nil
}

func (m *MockTicketRepository) OrderIDByTicket(ctx context.Context, ticketID int64) (int64, error) {
	if m.OrderIDByTicketFunc != nil {
		return m.OrderIDByTicketFunc(ctx, ticketID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ticketOrders[ticketID], nil
}

// CreatedTickets returns all tickets in creation order.
func (m *MockTicketRepository) CreatedTickets() []*ticket.Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*ticket.Ticket, 0, len(m.ticketsByID))
	for i := int64(1); i <= m.nextID; i++ {
		if t, ok := m.ticketsByID[i]; ok {
			result = append(result, t)
		}
	}
	return result
}

// --- Message Repository Mock ---

// MockMessageRepository is a mock implementation of message.Repository.
type MockMessageRepository struct {
	mu       sync.Mutex
	messages map[uuid.UUID]*message.Message
	nextID   int64

	CreateFunc    func(ctx context.Context, m *message.Message) error
	GetByUUIDFunc func(ctx context.Context, id uuid.UUID) (*message.Message, error)
	UpdateFunc    func(ctx context.Context, m *message.Message) error
}

func NewMockMessageRepository() *MockMessageRepository {
	return &MockMessageRepository{messages: make(map[uuid.UUID]*message.Message)}
}

func (m *MockMessageRepository) Create(ctx context.Context, msg *message.Message) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, msg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	msg.ID = m.nextID
	m.messages[msg.UUID] = msg
	return nil
}

func (m *MockMessageRepository) GetByUUID(ctx context.Context, id uuid.UUID) (*message.Message, error) {
	if m.GetByUUIDFunc != nil {
		return m.GetByUUIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.messages[id], nil
}

func (m *MockMessageRepository) Update(ctx context.Context, msg *message.Message) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, msg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[msg.UUID] = msg
	return nil
}

// Messages returns all stored messages.
func (m *MockMessageRepository) Messages() []*message.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*message.Message, 0, len(m.messages))
	for _, msg := range m.messages {
		result = append(result, msg)
	}
	return result
}

// --- Outbox Repository Mock ---

// MockOutboxRepository mirrors the postgres repository's state transitions so
// relay tests observe the same created/sent/failed lifecycle.
type MockOutboxRepository struct {
	mu      sync.Mutex
	records []*outbox.Record
	nextID  int64

	AppendFunc     func(ctx context.Context, record *outbox.Record) error
	FetchBatchFunc func(ctx context.Context, limit int, now time.Time) ([]*outbox.Record, error)
	MarkSentFunc   func(ctx context.Context, ids []int64) error
	MarkFailedFunc func(ctx context.Context, id int64) error
}

func NewMockOutboxRepository() *MockOutboxRepository {
	return &MockOutboxRepository{}
}

func (m *MockOutboxRepository) Append(ctx context.Context, record *outbox.Record) error {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, record)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	record.ID = m.nextID
	m.records = append(m.records, record)
	return nil
}

func (m *MockOutboxRepository) FetchBatch(ctx context.Context, limit int, now time.Time) ([]*outbox.Record, error) {
	if m.FetchBatchFunc != nil {
		return m.FetchBatchFunc(ctx, limit, now)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*outbox.Record
	for _, rec := range m.records {
		if len(result) >= limit {
			break
		}
		if rec.Eligible(now) {
			result = append(result, rec)
		}
	}
	return result, nil
}

func (m *MockOutboxRepository) MarkSent(ctx context.Context, ids []int64) error {
	if m.MarkSentFunc != nil {
		return m.MarkSentFunc(ctx, ids)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.records {
		for _, id := range ids {
			if rec.ID == id && rec.Status == outbox.StatusCreated {
				rec.MarkSent(time.Now().UTC())
			}
		}
	}
	return nil
}

func (m *MockOutboxRepository) MarkFailed(ctx context.Context, id int64) error {
	if m.MarkFailedFunc != nil {
		return m.MarkFailedFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.records {
		if rec.ID == id && rec.Status == outbox.StatusCreated {
			rec.Attempts++
			if rec.Attempts >= rec.MaxAttempts {
				rec.MarkFailed()
			}
		}
	}
	return nil
}

// Records returns all appended records in insertion order.
func (m *MockOutboxRepository) Records() []*outbox.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*outbox.Record, len(m.records))
	copy(result, m.records)
	return result
}

// RecordsByTopic filters appended records by topic.
func (m *MockOutboxRepository) RecordsByTopic(topic string) []*outbox.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*outbox.Record
	for _, rec := range m.records {
		if rec.Topic == topic {
			result = append(result, rec)
		}
	}
	return result
}

// --- Transaction Manager Mock ---

// MockTransactionManager runs the callback directly; failures are simulated
// through WithTransactionFunc.
type MockTransactionManager struct {
	mu    sync.Mutex
	calls int

	WithTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.WithTransactionFunc != nil {
		return m.WithTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

// Calls reports how many transactions were started.
func (m *MockTransactionManager) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
