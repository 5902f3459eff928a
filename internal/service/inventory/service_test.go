package inventory

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcmflow/clinic-api/internal/model"
	"github.com/tcmflow/clinic-api/internal/repository/repotest"
	"github.com/tcmflow/clinic-api/internal/service/audit"
	apperrors "github.com/tcmflow/clinic-api/pkg/errors"
	"github.com/tcmflow/clinic-api/pkg/logger"
	"github.com/tcmflow/clinic-api/pkg/metrics"
)

// Collectors register globally, so the package shares one instance.
var testMetrics = metrics.NewMetrics("clinic", "inventorytest")

type invFixture struct {
	svc        *Service
	categories *repotest.Categories
	suppliers  *repotest.Suppliers
	medicines  *repotest.Medicines
	stock      *repotest.Stock
	purchases  *repotest.PurchaseOrders
	compounds  *repotest.CompoundFormulas
	emitter    *repotest.Emitter
}

func newInvFixture(t *testing.T) *invFixture {
	t.Helper()

	f := &invFixture{
		categories: &repotest.Categories{},
		suppliers:  &repotest.Suppliers{},
		medicines:  &repotest.Medicines{},
		stock:      &repotest.Stock{},
		purchases:  &repotest.PurchaseOrders{},
		compounds:  &repotest.CompoundFormulas{},
		emitter:    &repotest.Emitter{},
	}
	l := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	f.svc = NewService(f.categories, f.suppliers, f.medicines, f.stock, f.purchases,
		f.compounds, &repotest.Sequences{}, f.emitter, testMetrics,
		audit.NewService(&repotest.Audits{}, l))
	return f
}

func seedMedicine(f *invFixture, code, name string) *model.Medicine {
	m := &model.Medicine{
		Base:         model.Base{ID: uuid.New()},
		Code:         code,
		Name:         name,
		MedicineType: model.MedicineTypeHerb,
		Unit:         "g",
		SellingPrice: 1.5,
		SafetyStock:  100,
		IsActive:     true,
	}
	f.medicines.Items = append(f.medicines.Items, m)
	return m
}

func seedSupplier(f *invFixture) *model.Supplier {
	s := &model.Supplier{
		Base:     model.Base{ID: uuid.New()},
		Name:     "同仁堂藥業",
		Code:     "TRT",
		IsActive: true,
	}
	f.suppliers.Items = append(f.suppliers.Items, s)
	return s
}

func assertBadRequest(t *testing.T, err error, message string) {
	t.Helper()

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok, "expected an application error, got %v", err)
	assert.Equal(t, apperrors.ErrBadRequest, appErr.Code)
	assert.Equal(t, message, appErr.Message)
}

func TestCreateMedicine_OpensZeroStockLevel(t *testing.T) {
	f := newInvFixture(t)

	m, err := f.svc.CreateMedicine(context.Background(), nil, &model.CreateMedicineRequest{
		Code:         "GC001",
		Name:         "甘草",
		Pinyin:       "gancao",
		MedicineType: "herb",
		Unit:         "g",
		CostPrice:    0.8,
		SellingPrice: 1.5,
		SafetyStock:  100,
	})
	require.NoError(t, err)
	assert.True(t, m.IsActive)

	require.Len(t, f.stock.Levels, 1)
	assert.Equal(t, m.ID, f.stock.Levels[0].MedicineID)
	assert.Zero(t, f.stock.Levels[0].Quantity)
}

func TestCreateMedicine_DuplicateCode(t *testing.T) {
	f := newInvFixture(t)
	seedMedicine(f, "GC001", "甘草")

	_, err := f.svc.CreateMedicine(context.Background(), nil, &model.CreateMedicineRequest{
		Code: "GC001", Name: "甘草片", MedicineType: "herb",
	})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrConflict, appErr.Code)
	assert.Equal(t, "medicine code already exists", appErr.Message)
}

func TestAdjustStock_BooksDifference(t *testing.T) {
	f := newInvFixture(t)
	m := seedMedicine(f, "GC001", "甘草")

	level, err := f.svc.AdjustStock(context.Background(), nil, m.ID, &model.AdjustStockRequest{
		Quantity: 500, Notes: "stocktake",
	})
	require.NoError(t, err)
	assert.Equal(t, 500.0, level.Quantity)

	require.Len(t, f.stock.Transactions, 1)
	txn := f.stock.Transactions[0]
	assert.Equal(t, model.StockTxnAdjustment, txn.TransactionType)
	assert.Equal(t, 500.0, txn.Quantity)
	assert.Zero(t, txn.BeforeQuantity)
	assert.Equal(t, 500.0, txn.AfterQuantity)
	assert.Equal(t, "stocktake", txn.Notes)

	// Writing a lower figure books a negative difference.
	_, err = f.svc.AdjustStock(context.Background(), nil, m.ID, &model.AdjustStockRequest{Quantity: 450})
	require.NoError(t, err)

	require.Len(t, f.stock.Transactions, 2)
	assert.Equal(t, -50.0, f.stock.Transactions[1].Quantity)
	assert.Equal(t, 500.0, f.stock.Transactions[1].BeforeQuantity)
	assert.Equal(t, 450.0, f.stock.Transactions[1].AfterQuantity)

	stored, err := f.stock.GetLevel(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, 450.0, stored.Quantity)
}

func TestAdjustStock_UnknownMedicine(t *testing.T) {
	f := newInvFixture(t)

	_, err := f.svc.AdjustStock(context.Background(), nil, uuid.New(), &model.AdjustStockRequest{Quantity: 10})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestLowStock(t *testing.T) {
	f := newInvFixture(t)
	f.stock.Levels = []*model.StockLevel{
		{ID: uuid.New(), MedicineID: uuid.New(), Quantity: 20, SafetyStock: 100, MedicineName: "甘草"},
		{ID: uuid.New(), MedicineID: uuid.New(), Quantity: 300, SafetyStock: 100, MedicineName: "黃芪"},
	}

	report, err := f.svc.LowStock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Count)
	require.Len(t, report.Items, 1)
	assert.Equal(t, "甘草", report.Items[0].MedicineName)
}

func TestLowStock_EmptyIsNotNil(t *testing.T) {
	f := newInvFixture(t)

	report, err := f.svc.LowStock(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Count)
	assert.NotNil(t, report.Items)
}

func TestSearchMedicines_EmptyQuery(t *testing.T) {
	f := newInvFixture(t)
	seedMedicine(f, "GC001", "甘草")

	found, err := f.svc.SearchMedicines(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, found)

	found, err = f.svc.SearchMedicines(context.Background(), "甘")
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func draftOrder(t *testing.T, f *invFixture, supplier *model.Supplier, items []model.PurchaseOrderItemInput) *model.PurchaseOrder {
	t.Helper()

	order, err := f.svc.CreatePurchaseOrder(context.Background(), nil, &model.CreatePurchaseOrderRequest{
		SupplierID: supplier.ID.String(),
		Items:      items,
	})
	require.NoError(t, err)
	return order
}

func TestCreatePurchaseOrder(t *testing.T) {
	f := newInvFixture(t)
	supplier := seedSupplier(f)
	gancao := seedMedicine(f, "GC001", "甘草")
	huangqi := seedMedicine(f, "HQ001", "黃芪")

	order := draftOrder(t, f, supplier, []model.PurchaseOrderItemInput{
		{MedicineID: gancao.ID.String(), Quantity: 300, UnitPrice: 1.2},
		{MedicineID: huangqi.ID.String(), Quantity: 100, UnitPrice: 0.8},
	})

	assert.Equal(t, model.PurchaseOrderDraft, order.Status)
	assert.Equal(t, 440.0, order.TotalAmount)
	assert.Equal(t, "PO"+time.Now().Format("20060102")+"0001", order.OrderNumber)
	require.Len(t, order.Items, 2)
	assert.Equal(t, "甘草", order.Items[0].MedicineName)
}

func TestCreatePurchaseOrder_UnknownMedicine(t *testing.T) {
	f := newInvFixture(t)
	supplier := seedSupplier(f)
	missing := uuid.New()

	_, err := f.svc.CreatePurchaseOrder(context.Background(), nil, &model.CreatePurchaseOrderRequest{
		SupplierID: supplier.ID.String(),
		Items:      []model.PurchaseOrderItemInput{{MedicineID: missing.String(), Quantity: 10, UnitPrice: 1}},
	})
	assertBadRequest(t, err, fmt.Sprintf("medicine %s not found", missing))
}

func TestSubmitPurchaseOrder_OnlyDraft(t *testing.T) {
	f := newInvFixture(t)
	supplier := seedSupplier(f)
	gancao := seedMedicine(f, "GC001", "甘草")
	order := draftOrder(t, f, supplier, []model.PurchaseOrderItemInput{
		{MedicineID: gancao.ID.String(), Quantity: 10, UnitPrice: 1},
	})

	submitted, err := f.svc.SubmitPurchaseOrder(context.Background(), nil, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PurchaseOrderSubmitted, submitted.Status)

	_, err = f.svc.SubmitPurchaseOrder(context.Background(), nil, order.ID)
	assertBadRequest(t, err, "only draft orders can be submitted")
}

func TestUpdatePurchaseOrder_OnlyDraft(t *testing.T) {
	f := newInvFixture(t)
	supplier := seedSupplier(f)
	gancao := seedMedicine(f, "GC001", "甘草")
	order := draftOrder(t, f, supplier, []model.PurchaseOrderItemInput{
		{MedicineID: gancao.ID.String(), Quantity: 10, UnitPrice: 1},
	})

	_, err := f.svc.SubmitPurchaseOrder(context.Background(), nil, order.ID)
	require.NoError(t, err)

	notes := "rush order"
	_, err = f.svc.UpdatePurchaseOrder(context.Background(), nil, order.ID, &model.UpdatePurchaseOrderRequest{Notes: &notes})
	assertBadRequest(t, err, "only draft orders can be changed")
}

func TestReceivePurchaseOrder(t *testing.T) {
	f := newInvFixture(t)
	supplier := seedSupplier(f)
	gancao := seedMedicine(f, "GC001", "甘草")
	huangqi := seedMedicine(f, "HQ001", "黃芪")

	order := draftOrder(t, f, supplier, []model.PurchaseOrderItemInput{
		{MedicineID: gancao.ID.String(), Quantity: 300, UnitPrice: 1.2},
		{MedicineID: huangqi.ID.String(), Quantity: 100, UnitPrice: 0.8},
	})
	_, err := f.svc.SubmitPurchaseOrder(context.Background(), nil, order.ID)
	require.NoError(t, err)

	received, err := f.svc.ReceivePurchaseOrder(context.Background(), nil, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PurchaseOrderReceived, received.Status)
	require.NotNil(t, received.ReceivedDate)

	gancaoLevel, err := f.stock.GetLevel(context.Background(), gancao.ID)
	require.NoError(t, err)
	assert.Equal(t, 300.0, gancaoLevel.Quantity)

	huangqiLevel, err := f.stock.GetLevel(context.Background(), huangqi.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, huangqiLevel.Quantity)

	require.Len(t, f.stock.Transactions, 2)
	txn := f.stock.Transactions[0]
	assert.Equal(t, model.StockTxnPurchase, txn.TransactionType)
	assert.Equal(t, 300.0, txn.Quantity)
	assert.Zero(t, txn.BeforeQuantity)
	assert.Equal(t, 300.0, txn.AfterQuantity)
	require.NotNil(t, txn.UnitCost)
	assert.Equal(t, 1.2, *txn.UnitCost)
	assert.Equal(t, order.OrderNumber, txn.ReferenceNumber)

	for _, item := range received.Items {
		assert.Equal(t, item.Quantity, item.ReceivedQuantity)
	}

	assert.Contains(t, f.emitter.Events, "purchase_order.received")

	_, err = f.svc.ReceivePurchaseOrder(context.Background(), nil, order.ID)
	assertBadRequest(t, err, "only submitted orders can be received")
}

func TestReceivePurchaseOrder_RequiresSubmitted(t *testing.T) {
	f := newInvFixture(t)
	supplier := seedSupplier(f)
	gancao := seedMedicine(f, "GC001", "甘草")
	order := draftOrder(t, f, supplier, []model.PurchaseOrderItemInput{
		{MedicineID: gancao.ID.String(), Quantity: 10, UnitPrice: 1},
	})

	_, err := f.svc.ReceivePurchaseOrder(context.Background(), nil, order.ID)
	assertBadRequest(t, err, "only submitted orders can be received")
}

func TestCancelPurchaseOrder_ReceivedGuard(t *testing.T) {
	f := newInvFixture(t)
	supplier := seedSupplier(f)
	gancao := seedMedicine(f, "GC001", "甘草")
	order := draftOrder(t, f, supplier, []model.PurchaseOrderItemInput{
		{MedicineID: gancao.ID.String(), Quantity: 10, UnitPrice: 1},
	})

	_, err := f.svc.SubmitPurchaseOrder(context.Background(), nil, order.ID)
	require.NoError(t, err)
	_, err = f.svc.ReceivePurchaseOrder(context.Background(), nil, order.ID)
	require.NoError(t, err)

	_, err = f.svc.CancelPurchaseOrder(context.Background(), nil, order.ID)
	assertBadRequest(t, err, "received orders cannot be cancelled")
}

func TestCreateCompoundFormula_SelfReference(t *testing.T) {
	f := newInvFixture(t)
	m := seedMedicine(f, "GC001", "甘草")

	_, err := f.svc.CreateCompoundFormula(context.Background(), &model.CreateCompoundFormulaRequest{
		CompoundID: m.ID.String(), IngredientID: m.ID.String(), Ratio: 1,
	})
	assertBadRequest(t, err, "compound cannot contain itself")
}

func TestCreateCompoundFormula(t *testing.T) {
	f := newInvFixture(t)
	compound := seedMedicine(f, "XYS01", "逍遙散")
	ingredient := seedMedicine(f, "CH001", "柴胡")

	cf, err := f.svc.CreateCompoundFormula(context.Background(), &model.CreateCompoundFormulaRequest{
		CompoundID: compound.ID.String(), IngredientID: ingredient.ID.String(), Ratio: 0.15,
	})
	require.NoError(t, err)
	assert.Equal(t, 0.15, cf.Ratio)

	_, err = f.svc.CreateCompoundFormula(context.Background(), &model.CreateCompoundFormulaRequest{
		CompoundID: compound.ID.String(), IngredientID: uuid.New().String(), Ratio: 0.1,
	})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestUpdateCategory_OwnParent(t *testing.T) {
	f := newInvFixture(t)

	category, err := f.svc.CreateCategory(context.Background(), &model.CreateCategoryRequest{
		Name: "解表藥", Code: "JB",
	})
	require.NoError(t, err)

	self := category.ID.String()
	_, err = f.svc.UpdateCategory(context.Background(), category.ID, &model.UpdateCategoryRequest{ParentID: &self})
	assertBadRequest(t, err, "category cannot be its own parent")
}
