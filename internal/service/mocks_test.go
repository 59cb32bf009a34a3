package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"peerrent-backend/internal/deadline"
	"peerrent-backend/internal/domain"

	"github.com/stretchr/testify/mock"
)

// In-memory repositories backing the engine tests. They keep the same
// contracts as the postgres implementations: idempotent ledger keys,
// balance checks, nil-when-missing lookups, and reads that return copies
// so a failed update never leaks a partial mutation into the store.

func copySub(so *domain.SubOrder) domain.SubOrder {
	cp := *so
	cp.Items = append([]domain.ProductLineItem(nil), so.Items...)
	if so.ConfirmationDeadline != nil {
		t := *so.ConfirmationDeadline
		cp.ConfirmationDeadline = &t
	}
	return cp
}

func copyMaster(m *domain.MasterOrder) *domain.MasterOrder {
	cp := *m
	cp.SubOrders = make([]domain.SubOrder, len(m.SubOrders))
	for i := range m.SubOrders {
		cp.SubOrders[i] = copySub(&m.SubOrders[i])
	}
	return &cp
}

func copyDispute(d *domain.Dispute) *domain.Dispute {
	cp := *d
	cp.Evidence = append([]domain.Evidence(nil), d.Evidence...)
	if d.ExternalPayment != nil {
		ep := *d.ExternalPayment
		cp.ExternalPayment = &ep
	}
	if d.ThirdParty != nil {
		tp := *d.ThirdParty
		cp.ThirdParty = &tp
	}
	if d.Reschedule != nil {
		rs := *d.Reschedule
		cp.Reschedule = &rs
	}
	if d.Decision != nil {
		dec := *d.Decision
		cp.Decision = &dec
	}
	return &cp
}

type memOrderRepo struct {
	mu      sync.Mutex
	masters map[string]*domain.MasterOrder
	// failNextSubUpdate forces the next UpdateSubOrder to fail, for
	// rollback tests.
	failNextSubUpdate bool
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{masters: make(map[string]*domain.MasterOrder)}
}

func (r *memOrderRepo) CreateMaster(_ context.Context, m *domain.MasterOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.masters[m.ID] = copyMaster(m)
	return nil
}

func (r *memOrderRepo) GetMaster(_ context.Context, id string) (*domain.MasterOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.masters[id]
	if !ok {
		return nil, domain.NotFoundError("order %s not found", id)
	}
	return copyMaster(m), nil
}

func (r *memOrderRepo) GetMasterBySubOrder(_ context.Context, subOrderID string) (*domain.MasterOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.masters {
		for i := range m.SubOrders {
			if m.SubOrders[i].ID == subOrderID {
				return copyMaster(m), nil
			}
		}
	}
	return nil, domain.NotFoundError("sub-order %s not found", subOrderID)
}

// UpdateMaster writes master-level fields only; sub-order rows keep
// whatever UpdateSubOrder last stored, mirroring the SQL implementation.
func (r *memOrderRepo) UpdateMaster(_ context.Context, m *domain.MasterOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.masters[m.ID]
	if !ok {
		return domain.NotFoundError("order %s not found", m.ID)
	}
	subs := stored.SubOrders
	version := stored.Version
	*stored = *m
	stored.SubOrders = subs
	stored.Version = version + 1
	return nil
}

func (r *memOrderRepo) GetSubOrder(_ context.Context, id string) (*domain.SubOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.masters {
		for i := range m.SubOrders {
			if m.SubOrders[i].ID == id {
				cp := copySub(&m.SubOrders[i])
				return &cp, nil
			}
		}
	}
	return nil, domain.NotFoundError("sub-order %s not found", id)
}

func (r *memOrderRepo) UpdateSubOrder(_ context.Context, sub *domain.SubOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNextSubUpdate {
		r.failNextSubUpdate = false
		return errors.New("sub-order store unavailable")
	}
	for _, m := range r.masters {
		for i := range m.SubOrders {
			if m.SubOrders[i].ID == sub.ID {
				version := m.SubOrders[i].Version
				m.SubOrders[i] = copySub(sub)
				m.SubOrders[i].Version = version + 1
				return nil
			}
		}
	}
	return domain.NotFoundError("sub-order %s not found", sub.ID)
}

func (r *memOrderRepo) ListByRenter(_ context.Context, renterID, status string, _, _ int32) ([]domain.MasterOrder, int32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.MasterOrder
	for _, m := range r.masters {
		if m.RenterID == renterID && (status == "" || string(m.Status) == status) {
			out = append(out, *copyMaster(m))
		}
	}
	return out, int32(len(out)), nil
}

func (r *memOrderRepo) ListSubOrdersByOwner(_ context.Context, ownerID, status string, _, _ int32) ([]domain.SubOrder, int32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.SubOrder
	for _, m := range r.masters {
		for i := range m.SubOrders {
			so := &m.SubOrders[i]
			if so.OwnerID == ownerID && (status == "" || string(so.Status) == status) {
				out = append(out, copySub(so))
			}
		}
	}
	return out, int32(len(out)), nil
}

type challengeKey struct{ contractID, actorID string }

type memContractRepo struct {
	mu         sync.Mutex
	contracts  map[string]*domain.Contract
	challenges map[challengeKey]*domain.OtpChallenge
}

func newMemContractRepo() *memContractRepo {
	return &memContractRepo{
		contracts:  make(map[string]*domain.Contract),
		challenges: make(map[challengeKey]*domain.OtpChallenge),
	}
}

func (r *memContractRepo) Create(_ context.Context, c *domain.Contract) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.contracts[c.ID] = &cp
	return nil
}

func (r *memContractRepo) GetByID(_ context.Context, id string) (*domain.Contract, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contracts[id]
	if !ok {
		return nil, domain.NotFoundError("contract %s not found", id)
	}
	cp := *c
	return &cp, nil
}

func (r *memContractRepo) GetBySubOrder(_ context.Context, subOrderID string) (*domain.Contract, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.contracts {
		if c.SubOrderID == subOrderID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.NotFoundError("contract for sub-order %s not found", subOrderID)
}

func (r *memContractRepo) Update(_ context.Context, c *domain.Contract) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.contracts[c.ID]
	if !ok {
		return domain.NotFoundError("contract %s not found", c.ID)
	}
	cp := *c
	cp.Version = stored.Version + 1
	r.contracts[c.ID] = &cp
	return nil
}

func (r *memContractRepo) UpsertChallenge(_ context.Context, ch *domain.OtpChallenge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *ch
	r.challenges[challengeKey{ch.ContractID, ch.ActorID}] = &cp
	return nil
}

func (r *memContractRepo) GetChallenge(_ context.Context, contractID, actorID string) (*domain.OtpChallenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.challenges[challengeKey{contractID, actorID}]
	if !ok {
		return nil, nil
	}
	cp := *ch
	return &cp, nil
}

func (r *memContractRepo) DeleteExpiredChallenges(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, ch := range r.challenges {
		if ch.ExpiresAt.Before(before) {
			delete(r.challenges, k)
			n++
		}
	}
	return n, nil
}

type memExtensionRepo struct {
	mu       sync.Mutex
	requests map[string]*domain.ExtensionRequest
}

func newMemExtensionRepo() *memExtensionRepo {
	return &memExtensionRepo{requests: make(map[string]*domain.ExtensionRequest)}
}

func (r *memExtensionRepo) Create(_ context.Context, req *domain.ExtensionRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *req
	r.requests[req.ID] = &cp
	return nil
}

func (r *memExtensionRepo) GetByID(_ context.Context, id string) (*domain.ExtensionRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, domain.NotFoundError("extension request %s not found", id)
	}
	cp := *req
	return &cp, nil
}

func (r *memExtensionRepo) Update(_ context.Context, req *domain.ExtensionRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.requests[req.ID]
	if !ok {
		return domain.NotFoundError("extension request %s not found", req.ID)
	}
	cp := *req
	cp.Version = stored.Version + 1
	r.requests[req.ID] = &cp
	return nil
}

func (r *memExtensionRepo) GetPendingBySubOrder(_ context.Context, subOrderID string) (*domain.ExtensionRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, req := range r.requests {
		if req.SubOrderID == subOrderID && req.Status == domain.ExtensionStatusPending {
			cp := *req
			return &cp, nil
		}
	}
	return nil, nil
}

type memDisputeRepo struct {
	mu       sync.Mutex
	disputes map[string]*domain.Dispute
}

func newMemDisputeRepo() *memDisputeRepo {
	return &memDisputeRepo{disputes: make(map[string]*domain.Dispute)}
}

func (r *memDisputeRepo) Create(_ context.Context, d *domain.Dispute) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disputes[d.ID] = copyDispute(d)
	return nil
}

func (r *memDisputeRepo) GetByID(_ context.Context, id string) (*domain.Dispute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.disputes[id]
	if !ok {
		return nil, domain.NotFoundError("dispute %s not found", id)
	}
	return copyDispute(d), nil
}

func (r *memDisputeRepo) Update(_ context.Context, d *domain.Dispute) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.disputes[d.ID]
	if !ok {
		return domain.NotFoundError("dispute %s not found", d.ID)
	}
	cp := copyDispute(d)
	cp.Version = stored.Version + 1
	r.disputes[d.ID] = cp
	return nil
}

func (r *memDisputeRepo) GetOpenByLineItem(_ context.Context, subOrderID string, productIndex int32) (*domain.Dispute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.disputes {
		if d.SubOrderID == subOrderID && d.ProductIndex == productIndex && d.Status.Open() {
			return copyDispute(d), nil
		}
	}
	return nil, nil
}

func (r *memDisputeRepo) HasOpenBySubOrder(_ context.Context, subOrderID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.disputes {
		if d.SubOrderID == subOrderID && d.Status.Open() {
			return true, nil
		}
	}
	return false, nil
}

func (r *memDisputeRepo) ListBySubOrder(_ context.Context, subOrderID string) ([]domain.Dispute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Dispute
	for _, d := range r.disputes {
		if d.SubOrderID == subOrderID {
			out = append(out, *copyDispute(d))
		}
	}
	return out, nil
}

func (r *memDisputeRepo) ListExpiredResponse(_ context.Context, now time.Time) ([]domain.Dispute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Dispute
	for _, d := range r.disputes {
		if d.Type == domain.DisputeTypeRenterNoReturn &&
			d.Status == domain.DisputeStatusOpen &&
			d.ResponseDeadline != nil && now.After(*d.ResponseDeadline) {
			out = append(out, *copyDispute(d))
		}
	}
	return out, nil
}

func (r *memDisputeRepo) ListExpiredNegotiation(_ context.Context, now time.Time) ([]domain.Dispute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Dispute
	for _, d := range r.disputes {
		if d.Status == domain.DisputeStatusNegotiation &&
			d.NegotiationDeadline != nil && now.After(*d.NegotiationDeadline) {
			out = append(out, *copyDispute(d))
		}
	}
	return out, nil
}

type memLedgerRepo struct {
	mu       sync.Mutex
	balances map[string]int64
	keys     map[string]bool
	txs      []domain.LedgerTransaction
}

func newMemLedgerRepo() *memLedgerRepo {
	return &memLedgerRepo{
		balances: make(map[string]int64),
		keys:     make(map[string]bool),
	}
}

func (r *memLedgerRepo) Debit(_ context.Context, tx *domain.LedgerTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.keys[tx.IdempotencyKey] {
		return nil
	}
	amount := tx.Amount
	if amount < 0 {
		amount = -amount
	}
	if r.balances[tx.AccountID] < amount {
		return domain.InsufficientFundsError("balance %d below %d", r.balances[tx.AccountID], amount)
	}
	r.balances[tx.AccountID] -= amount
	r.keys[tx.IdempotencyKey] = true
	out := *tx
	out.Amount = -amount
	r.txs = append(r.txs, out)
	return nil
}

func (r *memLedgerRepo) Credit(_ context.Context, tx *domain.LedgerTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.keys[tx.IdempotencyKey] {
		return nil
	}
	amount := tx.Amount
	if amount < 0 {
		amount = -amount
	}
	r.balances[tx.AccountID] += amount
	r.keys[tx.IdempotencyKey] = true
	out := *tx
	out.Amount = amount
	r.txs = append(r.txs, out)
	return nil
}

func (r *memLedgerRepo) GetAvailableBalance(_ context.Context, accountID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.balances[accountID], nil
}

func (r *memLedgerRepo) ListTransactions(_ context.Context, accountID string, _, _ int32) ([]domain.LedgerTransaction, int32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.LedgerTransaction
	for _, tx := range r.txs {
		if tx.AccountID == accountID {
			out = append(out, tx)
		}
	}
	return out, int32(len(out)), nil
}

type memEventRepo struct {
	mu     sync.Mutex
	events []domain.LifecycleEvent
}

func newMemEventRepo() *memEventRepo { return &memEventRepo{} }

func (r *memEventRepo) Create(_ context.Context, ev *domain.LifecycleEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *ev)
	return nil
}

func (r *memEventRepo) ListByEntity(_ context.Context, entityType domain.EntityType, entityID string) ([]domain.LifecycleEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.LifecycleEvent
	for _, ev := range r.events {
		if ev.EntityType == entityType && ev.EntityID == entityID {
			out = append(out, ev)
		}
	}
	return out, nil
}

type memNotificationRepo struct {
	mu    sync.Mutex
	notes []domain.Notification
}

func newMemNotificationRepo() *memNotificationRepo { return &memNotificationRepo{} }

func (r *memNotificationRepo) Create(_ context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, *n)
	return nil
}

func (r *memNotificationRepo) List(_ context.Context, userID string, _, _ int32) ([]domain.Notification, int32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Notification
	for _, n := range r.notes {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, int32(len(out)), nil
}

func (r *memNotificationRepo) MarkAsRead(_ context.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.notes {
		if r.notes[i].ID == id && r.notes[i].UserID == userID {
			r.notes[i].IsRead = true
			return nil
		}
	}
	return domain.NotFoundError("notification %s not found", id)
}

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newMemUserRepo(users ...*domain.User) *memUserRepo {
	r := &memUserRepo{users: make(map[string]*domain.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.NotFoundError("user %s not found", id)
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) SetBlacklisted(_ context.Context, id string, blacklisted bool, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.NotFoundError("user %s not found", id)
	}
	u.Blacklisted = blacklisted
	return nil
}

func (r *memUserRepo) AdjustCreditScore(_ context.Context, id string, delta int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.NotFoundError("user %s not found", id)
	}
	u.CreditScore += delta
	if u.CreditScore < 0 {
		u.CreditScore = 0
	}
	return nil
}

// mockEmailService records outgoing mail so tests can read the OTP code.
type mockEmailService struct {
	mock.Mock
	mu       sync.Mutex
	lastCode string
}

func (m *mockEmailService) SendOtpCode(_ context.Context, email, name, code string, expiresAt time.Time) error {
	m.mu.Lock()
	m.lastCode = code
	m.mu.Unlock()
	args := m.Called(email, name, code, expiresAt)
	return args.Error(0)
}

func (m *mockEmailService) SendLifecycleNotification(_ context.Context, email, name, subject, body string) error {
	args := m.Called(email, name, subject, body)
	return args.Error(0)
}

func (m *mockEmailService) LastCode() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastCode
}

// fixture bundles one fully wired engine set over the in-memory repos.
type fixture struct {
	orders     *memOrderRepo
	contracts  *memContractRepo
	extensions *memExtensionRepo
	disputes   *memDisputeRepo
	ledger     *memLedgerRepo
	events     *memEventRepo
	notes      *memNotificationRepo
	users      *memUserRepo
	email      *mockEmailService
	gateway    *mockPaymentGateway
	clock      *deadline.FakeClock
	policy     *deadline.Policy

	orderSvc     OrderService
	contractSvc  ContractService
	disputeSvc   DisputeService
	extensionSvc ExtensionService
}

var (
	renter = domain.Actor{ID: "renter-1", Role: domain.RoleRenter}
	owner1 = domain.Actor{ID: "owner-1", Role: domain.RoleOwner}
	owner2 = domain.Actor{ID: "owner-2", Role: domain.RoleOwner}
	admin  = domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}
)

func newFixture() *fixture {
	f := &fixture{
		orders:     newMemOrderRepo(),
		contracts:  newMemContractRepo(),
		extensions: newMemExtensionRepo(),
		disputes:   newMemDisputeRepo(),
		ledger:     newMemLedgerRepo(),
		events:     newMemEventRepo(),
		notes:      newMemNotificationRepo(),
		users: newMemUserRepo(
			&domain.User{ID: renter.ID, Name: "Renter", Email: "renter@example.com", Role: domain.RoleRenter, CreditScore: 100},
			&domain.User{ID: owner1.ID, Name: "Owner One", Email: "owner1@example.com", Role: domain.RoleOwner, CreditScore: 100},
			&domain.User{ID: owner2.ID, Name: "Owner Two", Email: "owner2@example.com", Role: domain.RoleOwner, CreditScore: 100},
		),
		email:   new(mockEmailService),
		gateway: NewMockPaymentGateway("http://gateway.test"),
		clock:   deadline.NewFakeClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)),
		policy:  deadline.NewPolicy(deadline.Durations{}),
	}
	f.email.On("SendOtpCode", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	f.email.On("SendLifecycleNotification", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	emitter := NewEventEmitter(f.events, f.notes, f.users, f.email)
	f.orderSvc = NewOrderService(f.orders, f.contracts, f.disputes, f.ledger, f.gateway, emitter, f.policy, f.clock)
	f.contractSvc = NewContractService(f.contracts, f.users, f.orderSvc, f.email, f.policy, f.clock)
	f.disputeSvc = NewDisputeService(f.disputes, f.orders, f.ledger, f.users, emitter, f.policy, f.clock)
	f.extensionSvc = NewExtensionService(f.extensions, f.orders, f.ledger, emitter)
	return f
}

func (f *fixture) fund(accountID string, amount int64) {
	f.ledger.mu.Lock()
	f.ledger.balances[accountID] += amount
	f.ledger.mu.Unlock()
}

func (f *fixture) balance(accountID string) int64 {
	b, _ := f.ledger.GetAvailableBalance(context.Background(), accountID)
	return b
}

// twoOwnerCart builds a cart spanning two owners over a five-day period.
func twoOwnerCart() domain.Cart {
	return domain.Cart{
		RenterID: renter.ID,
		Period: domain.RentalPeriod{
			StartDate: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		},
		Items: []domain.CartItem{
			{OwnerID: owner1.ID, ProductID: "drill-1", ProductName: "Hammer Drill", Quantity: 1, DailyRate: 50000, DepositRate: 500000, ProductValue: 2000000, ShippingFee: 30000},
			{OwnerID: owner2.ID, ProductID: "cam-1", ProductName: "Action Camera", Quantity: 2, DailyRate: 80000, DepositRate: 800000, ProductValue: 5000000, ShippingFee: 40000},
		},
	}
}

// activeSubOrder walks a fresh order through payment, confirmation and
// signing so dispute and extension tests can start from ACTIVE.
func (f *fixture) activeSubOrder(ctx context.Context) (*domain.MasterOrder, *domain.SubOrder) {
	order, err := f.orderSvc.CreateDraft(ctx, twoOwnerCart())
	if err != nil {
		panic(err)
	}
	if _, err := f.orderSvc.ConfirmOrder(ctx, renter, order.ID); err != nil {
		panic(err)
	}
	f.fund(renter.ID, order.GrandTotal())
	if _, err := f.orderSvc.ProcessPayment(ctx, renter, order.ID, domain.PaymentMethodWallet, order.GrandTotal(), "txn-fixture"); err != nil {
		panic(err)
	}
	for _, o := range []domain.Actor{owner1, owner2} {
		for i := range order.SubOrders {
			if order.SubOrders[i].OwnerID == o.ID {
				if _, err := f.orderSvc.OwnerConfirm(ctx, o, order.SubOrders[i].ID, domain.ConfirmDecisionConfirmed, ""); err != nil {
					panic(err)
				}
			}
		}
	}
	for i := range order.SubOrders {
		f.signContract(ctx, order.SubOrders[i].ID, order.SubOrders[i].OwnerID)
	}
	m, err := f.orders.GetMaster(ctx, order.ID)
	if err != nil {
		panic(err)
	}
	return m, &m.SubOrders[0]
}

// signContract runs the full OTP + dual signature flow for one sub-order.
func (f *fixture) signContract(ctx context.Context, subOrderID, ownerID string) {
	c, err := f.contracts.GetBySubOrder(ctx, subOrderID)
	if err != nil {
		panic(err)
	}
	for _, actor := range []domain.Actor{{ID: ownerID, Role: domain.RoleOwner}, renter} {
		if _, err := f.contractSvc.RequestOtp(ctx, actor, c.ID); err != nil {
			panic(err)
		}
		if err := f.contractSvc.VerifyOtp(ctx, actor, c.ID, f.email.LastCode()); err != nil {
			panic(err)
		}
		if _, err := f.contractSvc.Sign(ctx, actor, c.ID, "sig-"+actor.ID); err != nil {
			panic(err)
		}
	}
}
