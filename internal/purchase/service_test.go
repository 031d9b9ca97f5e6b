package purchase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vastra-erp/vastra-erp/internal/catalog"
	"github.com/vastra-erp/vastra-erp/internal/inventory"
	"github.com/vastra-erp/vastra-erp/internal/shared"
)

type memoryStock struct {
	records   map[int64]inventory.Record
	movements []inventory.Movement
}

func newMemoryStock() *memoryStock {
	return &memoryStock{records: map[int64]inventory.Record{}}
}

func (m *memoryStock) EnsureRecordForUpdate(_ context.Context, productID int64) (inventory.Record, error) {
	rec, ok := m.records[productID]
	if !ok {
		rec = inventory.Record{ProductID: productID}
		m.records[productID] = rec
	}
	return rec, nil
}

func (m *memoryStock) GetRecordForUpdate(_ context.Context, productID int64) (inventory.Record, error) {
	rec, ok := m.records[productID]
	if !ok {
		return inventory.Record{}, inventory.ErrRecordNotFound
	}
	return rec, nil
}

func (m *memoryStock) GetRecord(ctx context.Context, productID int64) (inventory.Record, error) {
	return m.GetRecordForUpdate(ctx, productID)
}

func (m *memoryStock) SaveRecord(_ context.Context, rec inventory.Record) error {
	m.records[rec.ProductID] = rec
	return nil
}

func (m *memoryStock) AppendMovement(_ context.Context, mv inventory.Movement) (int64, error) {
	mv.ID = int64(len(m.movements) + 1)
	m.movements = append(m.movements, mv)
	return mv.ID, nil
}

type memoryCatalog struct {
	active map[int64]catalog.Product
}

func (m *memoryCatalog) GetActiveProduct(_ context.Context, id int64) (catalog.Product, error) {
	p, ok := m.active[id]
	if !ok {
		return catalog.Product{}, catalog.ErrProductNotFound
	}
	return p, nil
}

func (m *memoryCatalog) FindActiveProductByName(_ context.Context, _ string) (catalog.Product, error) {
	return catalog.Product{}, catalog.ErrProductNotFound
}

func (m *memoryCatalog) FindActiveProductByNameContains(_ context.Context, _ string) (catalog.Product, error) {
	return catalog.Product{}, catalog.ErrProductNotFound
}

func (m *memoryCatalog) InsertProduct(_ context.Context, _ catalog.ProductInput) (catalog.Product, error) {
	return catalog.Product{}, nil
}

func (m *memoryCatalog) UpsertParticulars(_ context.Context, _ []catalog.ParticularInput) (int, error) {
	return 0, nil
}

type memoryRepo struct {
	stock     *memoryStock
	catalog   *memoryCatalog
	purchases []PurchaseInput
	lines     map[int64][]LineAllocation
	payments  []SupplierPayment
	nextID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		stock:   newMemoryStock(),
		catalog: &memoryCatalog{active: map[int64]catalog.Product{}},
		lines:   map[int64][]LineAllocation{},
	}
}

type memoryTx struct {
	repo *memoryRepo
}

func (t *memoryTx) Catalog() catalog.TxCatalog   { return t.repo.catalog }
func (t *memoryTx) Inventory() inventory.TxStore { return t.repo.stock }

func (t *memoryTx) InsertPurchase(_ context.Context, input PurchaseInput, _ float64) (int64, error) {
	t.repo.nextID++
	t.repo.purchases = append(t.repo.purchases, input)
	return t.repo.nextID, nil
}

func (t *memoryTx) InsertLineAllocations(_ context.Context, purchaseID int64, lines []LineAllocation) error {
	t.repo.lines[purchaseID] = lines
	return nil
}

func (t *memoryTx) InsertSupplierPayment(_ context.Context, payment SupplierPayment) (int64, error) {
	payment.ID = int64(len(t.repo.payments) + 1)
	t.repo.payments = append(t.repo.payments, payment)
	return payment.ID, nil
}

// WithTx snapshots state and restores it when fn fails, mimicking rollback.
func (m *memoryRepo) WithTx(_ context.Context, fn func(context.Context, TxRepository) error) error {
	savedRecords := map[int64]inventory.Record{}
	for k, v := range m.stock.records {
		savedRecords[k] = v
	}
	savedMovements := append([]inventory.Movement(nil), m.stock.movements...)
	savedPurchases := append([]PurchaseInput(nil), m.purchases...)
	savedPayments := append([]SupplierPayment(nil), m.payments...)
	savedID := m.nextID

	if err := fn(context.Background(), &memoryTx{repo: m}); err != nil {
		m.stock.records = savedRecords
		m.stock.movements = savedMovements
		m.purchases = savedPurchases
		m.payments = savedPayments
		m.nextID = savedID
		return err
	}
	return nil
}

func (m *memoryRepo) GetPurchase(_ context.Context, id int64) (PurchaseWithLines, error) {
	if id <= 0 || id > m.nextID {
		return PurchaseWithLines{}, ErrPurchaseNotFound
	}
	return PurchaseWithLines{Purchase: Purchase{ID: id}, Lines: m.lines[id]}, nil
}

func (m *memoryRepo) ListPurchases(_ context.Context, _, _ *int64, _ int) ([]Purchase, error) {
	return nil, nil
}

func newTestService(repo *memoryRepo) *Service {
	ledger := inventory.NewLedger(inventory.LedgerConfig{})
	return NewService(repo, ledger, nil, nil, nil, nil)
}

func TestCreatePurchaseReceivesStockAtLandedCost(t *testing.T) {
	repo := newMemoryRepo()
	repo.catalog.active[1] = catalog.Product{ID: 1, Name: "Saree", IsActive: true}
	repo.catalog.active[2] = catalog.Product{ID: 2, Name: "Towel", IsActive: true}
	svc := newTestService(repo)

	result, err := svc.CreatePurchase(context.Background(), PurchaseInput{
		PartyName:    "Loom Works",
		PurchaseDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Lines: []LineInput{
			{ProductID: 1, Quantity: 70, RatePerUnit: 10, TotalAmount: 700},
			{ProductID: 2, Quantity: 10, RatePerUnit: 30, TotalAmount: 300},
		},
		TaxAmount: 100,
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), result.ID)
	require.InDelta(t, 1000.0, result.PurchaseAmount, 1e-9)

	// Stock received at final cost per unit: (700+70)/70 = 11, (300+30)/10 = 33.
	rec1 := repo.stock.records[1]
	require.InDelta(t, 70.0, rec1.AvailableQuantity, 1e-9)
	require.InDelta(t, 11.0, rec1.WeightedAverageCost, 1e-9)
	rec2 := repo.stock.records[2]
	require.InDelta(t, 10.0, rec2.AvailableQuantity, 1e-9)
	require.InDelta(t, 33.0, rec2.WeightedAverageCost, 1e-9)

	require.Len(t, repo.stock.movements, 2)
	require.Equal(t, inventory.MovementPurchaseIn, repo.stock.movements[0].Type)
	require.Equal(t, "PURCHASE", repo.stock.movements[0].RefType)
	require.Equal(t, int64(1), repo.stock.movements[0].RefID)
}

func TestCreatePurchaseRecordsSupplierPayment(t *testing.T) {
	repo := newMemoryRepo()
	repo.catalog.active[1] = catalog.Product{ID: 1, Name: "Saree", IsActive: true}
	svc := newTestService(repo)

	_, err := svc.CreatePurchase(context.Background(), PurchaseInput{
		PartyName:     "Loom Works",
		PurchaseDate:  time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Lines:         []LineInput{{ProductID: 1, Quantity: 10, RatePerUnit: 10, TotalAmount: 100}},
		PaymentAmount: 60,
	})
	require.NoError(t, err)
	require.Len(t, repo.payments, 1)
	require.Equal(t, int64(1), repo.payments[0].PurchaseID)
	require.InDelta(t, 60.0, repo.payments[0].Amount, 1e-9)
	require.Equal(t, "cash", repo.payments[0].Mode)
}

func TestCreatePurchaseUnknownProductRollsBack(t *testing.T) {
	repo := newMemoryRepo()
	repo.catalog.active[1] = catalog.Product{ID: 1, Name: "Saree", IsActive: true}
	svc := newTestService(repo)

	_, err := svc.CreatePurchase(context.Background(), PurchaseInput{
		PartyName: "Loom Works",
		Lines: []LineInput{
			{ProductID: 1, Quantity: 10, RatePerUnit: 10, TotalAmount: 100},
			{ProductID: 99, Quantity: 5, RatePerUnit: 20, TotalAmount: 100},
		},
	})
	require.ErrorIs(t, err, shared.ErrNotFound)

	// Nothing persisted: no purchase, no stock, no movements.
	require.Empty(t, repo.purchases)
	require.Empty(t, repo.stock.records)
	require.Empty(t, repo.stock.movements)
}

func TestCreatePurchaseValidation(t *testing.T) {
	svc := newTestService(newMemoryRepo())

	_, err := svc.CreatePurchase(context.Background(), PurchaseInput{
		PartyName: " ",
		Lines:     []LineInput{{ProductID: 1, Quantity: 1, RatePerUnit: 1, TotalAmount: 1}},
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreatePurchase(context.Background(), PurchaseInput{PartyName: "Loom Works"})
	require.ErrorIs(t, err, shared.ErrValidation)
}

type fakeIdem struct {
	keys    map[string]bool
	deleted []string
}

func (f *fakeIdem) CheckAndInsert(_ context.Context, key, _ string) error {
	if f.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	f.keys[key] = true
	return nil
}

func (f *fakeIdem) Delete(_ context.Context, key string) error {
	delete(f.keys, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func TestCreatePurchaseIdempotency(t *testing.T) {
	repo := newMemoryRepo()
	repo.catalog.active[1] = catalog.Product{ID: 1, Name: "Saree", IsActive: true}
	idem := &fakeIdem{keys: map[string]bool{}}
	ledger := inventory.NewLedger(inventory.LedgerConfig{})
	svc := NewService(repo, ledger, idem, nil, nil, nil)

	input := PurchaseInput{
		PartyName:      "Loom Works",
		Lines:          []LineInput{{ProductID: 1, Quantity: 10, RatePerUnit: 10, TotalAmount: 100}},
		IdempotencyKey: "abc-123",
	}
	_, err := svc.CreatePurchase(context.Background(), input)
	require.NoError(t, err)

	_, err = svc.CreatePurchase(context.Background(), input)
	require.ErrorIs(t, err, shared.ErrConflict)
	require.Len(t, repo.purchases, 1)
}

func TestCreatePurchaseReleasesKeyOnFailure(t *testing.T) {
	repo := newMemoryRepo()
	idem := &fakeIdem{keys: map[string]bool{}}
	ledger := inventory.NewLedger(inventory.LedgerConfig{})
	svc := NewService(repo, ledger, idem, nil, nil, nil)

	input := PurchaseInput{
		PartyName:      "Loom Works",
		Lines:          []LineInput{{ProductID: 7, Quantity: 1, RatePerUnit: 1, TotalAmount: 1}},
		IdempotencyKey: "retry-me",
	}
	_, err := svc.CreatePurchase(context.Background(), input)
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.Contains(t, idem.deleted, "retry-me")
}
