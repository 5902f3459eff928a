package billing

import (
	"context"
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
)

type billingFixture struct {
	svc           *Service
	bills         *repotest.Bills
	payments      *repotest.Payments
	debts         *repotest.Debts
	charges       *repotest.ChargeItems
	patients      *repotest.Patients
	regs          *repotest.Registrations
	prescriptions *repotest.Prescriptions
	emitter       *repotest.Emitter
}

func newBillingFixture(t *testing.T, patients ...*model.Patient) *billingFixture {
	t.Helper()

	f := &billingFixture{
		bills:         &repotest.Bills{},
		payments:      &repotest.Payments{},
		debts:         &repotest.Debts{},
		charges:       &repotest.ChargeItems{},
		patients:      &repotest.Patients{Items: patients},
		regs:          &repotest.Registrations{},
		prescriptions: &repotest.Prescriptions{},
		emitter:       &repotest.Emitter{},
	}
	l := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	f.svc = NewService(f.bills, f.payments, f.debts, f.charges, f.patients, f.regs,
		f.prescriptions, &repotest.Sequences{}, f.emitter, audit.NewService(&repotest.Audits{}, l))
	return f
}

func testPatient() *model.Patient {
	return &model.Patient{
		Base:        model.Base{ID: uuid.New()},
		ChartNumber: "000001",
		Name:        "王小明",
		IsActive:    true,
	}
}

func seedRegistration(f *billingFixture, patient *model.Patient) *model.Registration {
	reg := &model.Registration{
		Base:      model.Base{ID: uuid.New()},
		PatientID: patient.ID,
		DoctorID:  uuid.New(),
		Status:    model.RegistrationStatusCompleted,
	}
	f.regs.Items = append(f.regs.Items, reg)
	return reg
}

func createBill(t *testing.T, f *billingFixture, reg *model.Registration, total float64) *model.Bill {
	t.Helper()

	bill, err := f.svc.CreateBill(context.Background(), nil, &model.CreateBillRequest{
		RegistrationID: reg.ID.String(),
		Items: []model.BillItemInput{
			{Description: "Consultation fee", Quantity: 1, UnitPrice: total},
		},
	})
	require.NoError(t, err)
	return bill
}

func assertBadRequest(t *testing.T, err error, message string) {
	t.Helper()

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok, "expected an application error, got %v", err)
	assert.Equal(t, apperrors.ErrBadRequest, appErr.Code)
	assert.Equal(t, message, appErr.Message)
}

func TestCreateChargeItem_DuplicateCode(t *testing.T) {
	f := newBillingFixture(t)

	_, err := f.svc.CreateChargeItem(context.Background(), &model.CreateChargeItemRequest{
		Code: "CONSULT", Name: "診金", ItemType: "consultation", DefaultPrice: 300,
	})
	require.NoError(t, err)

	_, err = f.svc.CreateChargeItem(context.Background(), &model.CreateChargeItemRequest{
		Code: "CONSULT", Name: "診金(複診)", ItemType: "consultation", DefaultPrice: 200,
	})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrConflict, appErr.Code)
	assert.Equal(t, "charge item code already exists", appErr.Message)
}

func TestCreateBill(t *testing.T) {
	patient := testPatient()
	f := newBillingFixture(t, patient)
	reg := seedRegistration(f, patient)

	bill, err := f.svc.CreateBill(context.Background(), nil, &model.CreateBillRequest{
		RegistrationID: reg.ID.String(),
		Discount:       30,
		Items: []model.BillItemInput{
			{Description: "Consultation fee", Quantity: 1, UnitPrice: 300},
			{Description: "Herbs", Quantity: 2, UnitPrice: 40},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, model.BillStatusPending, bill.Status)
	assert.Equal(t, 380.0, bill.Subtotal)
	assert.Equal(t, 350.0, bill.TotalAmount)
	assert.Equal(t, 350.0, bill.BalanceDue)
	assert.Equal(t, patient.ID, bill.PatientID)
	assert.Equal(t, "B"+time.Now().Format("20060102")+"0001", bill.BillNumber)

	require.Len(t, bill.Items, 2)
	assert.Equal(t, 80.0, bill.Items[1].Subtotal)

	assert.Equal(t, []string{"bill.created"}, f.emitter.Events)
}

func TestCreateBill_OnePerRegistration(t *testing.T) {
	patient := testPatient()
	f := newBillingFixture(t, patient)
	reg := seedRegistration(f, patient)
	createBill(t, f, reg, 300)

	_, err := f.svc.CreateBill(context.Background(), nil, &model.CreateBillRequest{
		RegistrationID: reg.ID.String(),
		Items:          []model.BillItemInput{{Description: "Again", Quantity: 1, UnitPrice: 10}},
	})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrConflict, appErr.Code)
	assert.Equal(t, "bill already exists for this registration", appErr.Message)
}

func TestCreateBill_DiscountExceedsSubtotal(t *testing.T) {
	patient := testPatient()
	f := newBillingFixture(t, patient)
	reg := seedRegistration(f, patient)

	_, err := f.svc.CreateBill(context.Background(), nil, &model.CreateBillRequest{
		RegistrationID: reg.ID.String(),
		Discount:       500,
		Items:          []model.BillItemInput{{Description: "Consultation fee", Quantity: 1, UnitPrice: 300}},
	})
	assertBadRequest(t, err, "discount exceeds subtotal")
}

func TestUpdateBill_RecomputesTotals(t *testing.T) {
	patient := testPatient()
	f := newBillingFixture(t, patient)
	reg := seedRegistration(f, patient)
	bill := createBill(t, f, reg, 300)

	discount := 50.0
	updated, err := f.svc.UpdateBill(context.Background(), nil, bill.ID, &model.UpdateBillRequest{
		Discount: &discount,
		Items: []model.BillItemInput{
			{Description: "Consultation fee", Quantity: 1, UnitPrice: 300},
			{Description: "Acupuncture", Quantity: 1, UnitPrice: 150},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 450.0, updated.Subtotal)
	assert.Equal(t, 400.0, updated.TotalAmount)
	assert.Equal(t, 400.0, updated.BalanceDue)
	require.Len(t, updated.Items, 2)
}

func TestUpdateBill_OnlyPending(t *testing.T) {
	patient := testPatient()
	f := newBillingFixture(t, patient)
	reg := seedRegistration(f, patient)
	bill := createBill(t, f, reg, 300)

	_, err := f.svc.PayBill(context.Background(), nil, bill.ID, &model.PayBillRequest{
		Amount: 300, PaymentMethod: "cash",
	})
	require.NoError(t, err)

	discount := 10.0
	_, err = f.svc.UpdateBill(context.Background(), nil, bill.ID, &model.UpdateBillRequest{Discount: &discount})
	assertBadRequest(t, err, "only pending bills can be changed")
}

func TestPayBill_FullPayment(t *testing.T) {
	patient := testPatient()
	f := newBillingFixture(t, patient)
	reg := seedRegistration(f, patient)
	bill := createBill(t, f, reg, 350)

	paid, err := f.svc.PayBill(context.Background(), nil, bill.ID, &model.PayBillRequest{
		Amount: 350, PaymentMethod: "cash",
	})
	require.NoError(t, err)

	assert.Equal(t, model.BillStatusPaid, paid.Status)
	assert.Equal(t, 350.0, paid.PaidAmount)
	assert.Zero(t, paid.BalanceDue)
	assert.Equal(t, model.PaymentMethodCash, paid.PaymentMethod)
	require.NotNil(t, paid.PaidAt)

	require.Len(t, f.payments.Items, 1)
	assert.Equal(t, 350.0, f.payments.Items[0].Amount)
	assert.Equal(t, model.PaymentMethodCash, f.payments.Items[0].PaymentMethod)

	assert.Empty(t, f.debts.Items, "a settled bill leaves no debt")
	assert.Contains(t, f.emitter.Events, "bill.paid")
}

func TestPayBill_PartialPaymentTracksDebt(t *testing.T) {
	patient := testPatient()
	f := newBillingFixture(t, patient)
	reg := seedRegistration(f, patient)
	bill := createBill(t, f, reg, 350)

	paid, err := f.svc.PayBill(context.Background(), nil, bill.ID, &model.PayBillRequest{
		Amount: 200, PaymentMethod: "cash",
	})
	require.NoError(t, err)

	assert.Equal(t, model.BillStatusPartial, paid.Status)
	assert.Equal(t, 150.0, paid.BalanceDue)

	require.Len(t, f.debts.Items, 1)
	debt := f.debts.Items[0]
	assert.Equal(t, patient.ID, debt.PatientID)
	assert.Equal(t, bill.ID, debt.BillID)
	assert.Equal(t, 150.0, debt.OriginalAmount)
	assert.Equal(t, 150.0, debt.RemainingAmount)
	assert.Equal(t, model.DebtStatusOutstanding, debt.Status)

	// Another instalment rewrites the same debt instead of adding one.
	_, err = f.svc.PayBill(context.Background(), nil, bill.ID, &model.PayBillRequest{
		Amount: 100, PaymentMethod: "cash",
	})
	require.NoError(t, err)

	require.Len(t, f.debts.Items, 1)
	assert.Equal(t, 50.0, f.debts.Items[0].RemainingAmount)
}

func TestPayBill_GuardsClosedBills(t *testing.T) {
	patient := testPatient()
	f := newBillingFixture(t, patient)
	reg := seedRegistration(f, patient)
	bill := createBill(t, f, reg, 350)

	_, err := f.svc.PayBill(context.Background(), nil, bill.ID, &model.PayBillRequest{
		Amount: 350, PaymentMethod: "cash",
	})
	require.NoError(t, err)

	_, err = f.svc.PayBill(context.Background(), nil, bill.ID, &model.PayBillRequest{
		Amount: 10, PaymentMethod: "cash",
	})
	assertBadRequest(t, err, "bill is already paid")

	other := seedRegistration(f, patient)
	cancelled := createBill(t, f, other, 100)
	_, err = f.svc.CancelBill(context.Background(), nil, cancelled.ID)
	require.NoError(t, err)

	_, err = f.svc.PayBill(context.Background(), nil, cancelled.ID, &model.PayBillRequest{
		Amount: 10, PaymentMethod: "cash",
	})
	assertBadRequest(t, err, "cancelled bills cannot accept payment")
}

func TestRefundBill_FullRefund(t *testing.T) {
	patient := testPatient()
	f := newBillingFixture(t, patient)
	reg := seedRegistration(f, patient)
	bill := createBill(t, f, reg, 350)

	_, err := f.svc.PayBill(context.Background(), nil, bill.ID, &model.PayBillRequest{
		Amount: 350, PaymentMethod: "cash",
	})
	require.NoError(t, err)

	refunded, err := f.svc.RefundBill(context.Background(), nil, bill.ID, &model.RefundBillRequest{
		Amount: 350, Reason: "wrong charge",
	})
	require.NoError(t, err)

	assert.Equal(t, model.BillStatusRefunded, refunded.Status)
	assert.Zero(t, refunded.PaidAmount)

	require.Len(t, f.payments.Items, 2)
	reversal := f.payments.Items[1]
	assert.Equal(t, -350.0, reversal.Amount)
	assert.Equal(t, model.PaymentMethodOther, reversal.PaymentMethod)
	assert.Equal(t, "Refund: wrong charge", reversal.Notes)

	assert.Equal(t, 0.0, patient.Balance)
	assert.Contains(t, f.emitter.Events, "bill.refunded")
}

func TestRefundBill_StoreToAccount(t *testing.T) {
	patient := testPatient()
	f := newBillingFixture(t, patient)
	reg := seedRegistration(f, patient)
	bill := createBill(t, f, reg, 350)

	_, err := f.svc.PayBill(context.Background(), nil, bill.ID, &model.PayBillRequest{
		Amount: 350, PaymentMethod: "cash",
	})
	require.NoError(t, err)

	_, err = f.svc.RefundBill(context.Background(), nil, bill.ID, &model.RefundBillRequest{
		Amount: 350, Reason: "prepaid package", StoreToAccount: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 350.0, patient.Balance)
}

func TestRefundBill_BlockedAfterDispensing(t *testing.T) {
	patient := testPatient()
	f := newBillingFixture(t, patient)
	reg := seedRegistration(f, patient)
	bill := createBill(t, f, reg, 350)
	f.prescriptions.ByRegistration = map[uuid.UUID][]*model.Prescription{
		reg.ID: {{Base: model.Base{ID: uuid.New()}, IsDispensed: true}},
	}

	_, err := f.svc.RefundBill(context.Background(), nil, bill.ID, &model.RefundBillRequest{
		Amount: 350, Reason: "changed mind",
	})
	assertBadRequest(t, err, "bill covers dispensed prescriptions and cannot be refunded")
}

func TestCreditToAccount(t *testing.T) {
	patient := testPatient()
	f := newBillingFixture(t, patient)
	reg := seedRegistration(f, patient)
	bill := createBill(t, f, reg, 350)

	_, err := f.svc.PayBill(context.Background(), nil, bill.ID, &model.PayBillRequest{
		Amount: 350, PaymentMethod: "cash",
	})
	require.NoError(t, err)

	credited, err := f.svc.CreditToAccount(context.Background(), nil, bill.ID, &model.CreditToAccountRequest{
		Amount: 100, Notes: "overcharged",
	})
	require.NoError(t, err)

	assert.Equal(t, 250.0, credited.PaidAmount)
	assert.Equal(t, 100.0, credited.BalanceDue)
	assert.Equal(t, model.BillStatusPartial, credited.Status)
	assert.Equal(t, 100.0, patient.Balance)

	reversal := f.payments.Items[len(f.payments.Items)-1]
	assert.Equal(t, -100.0, reversal.Amount)
	assert.Equal(t, "Credited to patient account: overcharged", reversal.Notes)

	_, err = f.svc.CreditToAccount(context.Background(), nil, bill.ID, &model.CreditToAccountRequest{
		Amount: 1000,
	})
	assertBadRequest(t, err, "amount exceeds paid amount")
}

func TestPayDebt_ClearsDebtAndBill(t *testing.T) {
	patient := testPatient()
	f := newBillingFixture(t, patient)
	reg := seedRegistration(f, patient)
	bill := createBill(t, f, reg, 350)

	_, err := f.svc.PayBill(context.Background(), nil, bill.ID, &model.PayBillRequest{
		Amount: 200, PaymentMethod: "cash",
	})
	require.NoError(t, err)
	require.Len(t, f.debts.Items, 1)
	debtID := f.debts.Items[0].ID

	debt, err := f.svc.PayDebt(context.Background(), nil, debtID, &model.PayDebtRequest{
		Amount: 150, PaymentMethod: "cash", Notes: "final instalment",
	})
	require.NoError(t, err)

	assert.Equal(t, model.DebtStatusCleared, debt.Status)
	assert.Zero(t, debt.RemainingAmount)

	settled, err := f.svc.GetBill(context.Background(), bill.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BillStatusPaid, settled.Status)
	assert.Zero(t, settled.BalanceDue)
	require.NotNil(t, settled.PaidAt)

	repayment := f.payments.Items[len(f.payments.Items)-1]
	assert.Equal(t, 150.0, repayment.Amount)
	assert.Equal(t, "Debt repayment: final instalment", repayment.Notes)

	_, err = f.svc.PayDebt(context.Background(), nil, debtID, &model.PayDebtRequest{
		Amount: 10, PaymentMethod: "cash",
	})
	assertBadRequest(t, err, "debt is already settled")
}

func TestPayDebt_PartialKeepsDebtOpen(t *testing.T) {
	patient := testPatient()
	f := newBillingFixture(t, patient)
	reg := seedRegistration(f, patient)
	bill := createBill(t, f, reg, 350)

	_, err := f.svc.PayBill(context.Background(), nil, bill.ID, &model.PayBillRequest{
		Amount: 200, PaymentMethod: "cash",
	})
	require.NoError(t, err)

	debt, err := f.svc.PayDebt(context.Background(), nil, f.debts.Items[0].ID, &model.PayDebtRequest{
		Amount: 50, PaymentMethod: "cash",
	})
	require.NoError(t, err)

	assert.Equal(t, model.DebtStatusPartial, debt.Status)
	assert.Equal(t, 100.0, debt.RemainingAmount)

	open, err := f.svc.GetBill(context.Background(), bill.ID)
	require.NoError(t, err)
	assert.Equal(t, 250.0, open.PaidAmount)
	assert.Equal(t, 100.0, open.BalanceDue)
}

func TestDebtsByPatient(t *testing.T) {
	patient := testPatient()
	f := newBillingFixture(t, patient)

	f.debts.Items = []*model.Debt{
		{Base: model.Base{ID: uuid.New()}, PatientID: patient.ID, BillID: uuid.New(),
			OriginalAmount: 150, RemainingAmount: 150, Status: model.DebtStatusOutstanding},
		{Base: model.Base{ID: uuid.New()}, PatientID: patient.ID, BillID: uuid.New(),
			OriginalAmount: 200, RemainingAmount: 100, Status: model.DebtStatusPartial},
		{Base: model.Base{ID: uuid.New()}, PatientID: patient.ID, BillID: uuid.New(),
			OriginalAmount: 80, RemainingAmount: 0, Status: model.DebtStatusCleared},
	}

	summary, err := f.svc.DebtsByPatient(context.Background(), patient.ID)
	require.NoError(t, err)

	assert.Len(t, summary.Debts, 2, "cleared debts are excluded")
	assert.Equal(t, 250.0, summary.Total)

	_, err = f.svc.DebtsByPatient(context.Background(), uuid.New())
	assert.True(t, apperrors.IsNotFound(err))
}

func TestCancelBill(t *testing.T) {
	patient := testPatient()
	f := newBillingFixture(t, patient)
	reg := seedRegistration(f, patient)
	bill := createBill(t, f, reg, 350)

	cancelled, err := f.svc.CancelBill(context.Background(), nil, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BillStatusCancelled, cancelled.Status)

	other := seedRegistration(f, patient)
	paid := createBill(t, f, other, 100)
	_, err = f.svc.PayBill(context.Background(), nil, paid.ID, &model.PayBillRequest{
		Amount: 100, PaymentMethod: "cash",
	})
	require.NoError(t, err)

	_, err = f.svc.CancelBill(context.Background(), nil, paid.ID)
	assertBadRequest(t, err, "paid bills cannot be cancelled")
}
