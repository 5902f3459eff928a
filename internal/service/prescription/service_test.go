package prescription

import (
	"context"
	"encoding/json"
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
)

type rxFixture struct {
	svc           *Service
	prescriptions *repotest.Prescriptions
	consultations *repotest.Consultations
	formulas      *repotest.Formulas
	medicines     *repotest.Medicines
	stock         *repotest.Stock
	emitter       *repotest.Emitter

	doctorID uuid.UUID
	gancao   *model.Medicine
	huangqi  *model.Medicine
}

func newRxFixture(t *testing.T) *rxFixture {
	t.Helper()

	f := &rxFixture{
		prescriptions: &repotest.Prescriptions{ByRegistration: map[uuid.UUID][]*model.Prescription{}},
		consultations: &repotest.Consultations{},
		formulas:      &repotest.Formulas{},
		medicines:     &repotest.Medicines{},
		stock:         &repotest.Stock{},
		emitter:       &repotest.Emitter{},
		doctorID:      uuid.New(),
	}
	f.gancao = &model.Medicine{
		Base: model.Base{ID: uuid.New()},
		Code: "GC001", Name: "甘草", Unit: "g", SellingPrice: 1.5, IsActive: true,
	}
	f.huangqi = &model.Medicine{
		Base: model.Base{ID: uuid.New()},
		Code: "HQ001", Name: "黃芪", Unit: "g", SellingPrice: 2.0, IsActive: true,
	}
	f.medicines.Items = append(f.medicines.Items, f.gancao, f.huangqi)

	l := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	f.svc = NewService(f.prescriptions, f.consultations, f.formulas, f.medicines,
		f.stock, &repotest.Sequences{}, f.emitter, audit.NewService(&repotest.Audits{}, l))
	return f
}

func seedConsultation(f *rxFixture) *model.Consultation {
	c := &model.Consultation{
		Base:           model.Base{ID: uuid.New(), CreatedAt: time.Now()},
		RegistrationID: uuid.New(),
		DoctorID:       f.doctorID,
	}
	f.consultations.Items = append(f.consultations.Items, c)
	return c
}

func createPrescription(t *testing.T, f *rxFixture, consultation *model.Consultation) *model.Prescription {
	t.Helper()

	p, err := f.svc.CreatePrescription(context.Background(), nil, &model.CreatePrescriptionRequest{
		ConsultationID: consultation.ID.String(),
		TotalDoses:     5,
		DosesPerDay:    1,
		Days:           5,
		Items: []model.PrescriptionItemInput{
			{MedicineID: f.gancao.ID.String(), Dosage: 6},
			{MedicineID: f.huangqi.ID.String(), Dosage: 10, Unit: "片"},
		},
	})
	require.NoError(t, err)
	return p
}

func TestCreatePrescription(t *testing.T) {
	f := newRxFixture(t)
	consultation := seedConsultation(f)

	p := createPrescription(t, f, consultation)

	assert.Equal(t, "RX"+time.Now().Format("20060102")+"0001", p.PrescriptionNumber)
	assert.Equal(t, model.DispensingInternal, p.DispensingMethod)
	assert.Equal(t, 29.0, p.MedicineFee)

	require.Len(t, p.Items, 2)
	assert.Equal(t, "g", p.Items[0].Unit)
	assert.Equal(t, 1.5, p.Items[0].UnitPrice)
	assert.Equal(t, 9.0, p.Items[0].Subtotal)
	assert.Equal(t, "甘草", p.Items[0].MedicineName)
	assert.Equal(t, "片", p.Items[1].Unit)
	assert.Equal(t, 20.0, p.Items[1].Subtotal)
}

func TestCreatePrescription_ExternalNeedsPharmacy(t *testing.T) {
	f := newRxFixture(t)
	consultation := seedConsultation(f)

	_, err := f.svc.CreatePrescription(context.Background(), nil, &model.CreatePrescriptionRequest{
		ConsultationID:   consultation.ID.String(),
		TotalDoses:       5,
		DispensingMethod: "external_decoction",
		Items:            []model.PrescriptionItemInput{{MedicineID: f.gancao.ID.String(), Dosage: 6}},
	})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrBadRequest, appErr.Code)
	assert.Equal(t, "external dispensing requires a pharmacy", appErr.Message)
}

func TestCreatePrescription_UnknownMedicine(t *testing.T) {
	f := newRxFixture(t)
	consultation := seedConsultation(f)
	missing := uuid.New()

	_, err := f.svc.CreatePrescription(context.Background(), nil, &model.CreatePrescriptionRequest{
		ConsultationID: consultation.ID.String(),
		TotalDoses:     5,
		Items:          []model.PrescriptionItemInput{{MedicineID: missing.String(), Dosage: 6}},
	})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, fmt.Sprintf("medicine %s not found", missing), appErr.Message)
}

func TestUpdatePrescription_OnlyPrescribingDoctor(t *testing.T) {
	f := newRxFixture(t)
	consultation := seedConsultation(f)
	p := createPrescription(t, f, consultation)

	other := &model.User{Base: model.Base{ID: uuid.New()}, Username: "drlee"}
	name := "加味方"
	_, err := f.svc.UpdatePrescription(context.Background(), other, p.ID, &model.UpdatePrescriptionRequest{Name: &name})

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrForbidden, appErr.Code)
	assert.Equal(t, "only the prescribing doctor can modify this prescription", appErr.Message)
}

func TestUpdatePrescription_AppendsAuditTrail(t *testing.T) {
	f := newRxFixture(t)
	consultation := seedConsultation(f)
	p := createPrescription(t, f, consultation)
	doctor := &model.User{Base: model.Base{ID: f.doctorID}, Username: "drchan"}

	doses := 7
	updated, err := f.svc.UpdatePrescription(context.Background(), doctor, p.ID, &model.UpdatePrescriptionRequest{TotalDoses: &doses})
	require.NoError(t, err)
	assert.Equal(t, 7, updated.TotalDoses)

	var trail []model.PrescriptionAuditEntry
	require.NoError(t, json.Unmarshal(updated.AuditLog, &trail))
	require.Len(t, trail, 1)
	assert.Equal(t, "drchan", trail[0].User)
	assert.Equal(t, float64(5), trail[0].Before["total_doses"])
	assert.Equal(t, float64(7), trail[0].After["total_doses"])

	notes := "飯後服"
	updated, err = f.svc.UpdatePrescription(context.Background(), doctor, p.ID, &model.UpdatePrescriptionRequest{Notes: &notes})
	require.NoError(t, err)

	trail = nil
	require.NoError(t, json.Unmarshal(updated.AuditLog, &trail))
	assert.Len(t, trail, 2)
}

func TestUpdatePrescription_RepricesItems(t *testing.T) {
	f := newRxFixture(t)
	consultation := seedConsultation(f)
	p := createPrescription(t, f, consultation)
	doctor := &model.User{Base: model.Base{ID: f.doctorID}, Username: "drchan"}

	updated, err := f.svc.UpdatePrescription(context.Background(), doctor, p.ID, &model.UpdatePrescriptionRequest{
		Items: []model.PrescriptionItemInput{{MedicineID: f.gancao.ID.String(), Dosage: 12}},
	})
	require.NoError(t, err)
	require.Len(t, updated.Items, 1)
	assert.Equal(t, 18.0, updated.MedicineFee)
}

func TestDispense(t *testing.T) {
	f := newRxFixture(t)
	consultation := seedConsultation(f)
	p := createPrescription(t, f, consultation)
	f.stock.Levels = []*model.StockLevel{
		{ID: uuid.New(), MedicineID: f.gancao.ID, Quantity: 100},
	}

	dispensed, err := f.svc.Dispense(context.Background(), nil, p.ID)
	require.NoError(t, err)
	assert.True(t, dispensed.IsDispensed)
	require.NotNil(t, dispensed.DispensedAt)

	level, err := f.stock.GetLevel(context.Background(), f.gancao.ID)
	require.NoError(t, err)
	assert.Equal(t, 70.0, level.Quantity)

	// Only the stocked medicine books a movement; the other line has no
	// stock row and is skipped.
	require.Len(t, f.stock.Transactions, 1)
	txn := f.stock.Transactions[0]
	assert.Equal(t, model.StockTxnDispense, txn.TransactionType)
	assert.Equal(t, -30.0, txn.Quantity)
	assert.Equal(t, 100.0, txn.BeforeQuantity)
	assert.Equal(t, 70.0, txn.AfterQuantity)
	assert.Equal(t, p.PrescriptionNumber, txn.ReferenceNumber)

	assert.Equal(t, []string{"prescription.dispensed"}, f.emitter.Events)

	_, err = f.svc.Dispense(context.Background(), nil, p.ID)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "prescription already dispensed", appErr.Message)
}

func TestCheckStock(t *testing.T) {
	f := newRxFixture(t)
	f.stock.Levels = []*model.StockLevel{
		{ID: uuid.New(), MedicineID: f.gancao.ID, Quantity: 100},
	}

	result, err := f.svc.CheckStock(context.Background(), &model.CheckStockRequest{
		TotalDoses: 5,
		Items: []model.PrescriptionItemInput{
			{MedicineID: f.gancao.ID.String(), Dosage: 6},
			{MedicineID: f.huangqi.ID.String(), Dosage: 10},
		},
	})
	require.NoError(t, err)
	assert.False(t, result.AllSufficient)
	require.Len(t, result.Items, 2)

	assert.True(t, result.Items[0].Sufficient)
	assert.Equal(t, 30.0, result.Items[0].Required)
	assert.Equal(t, 100.0, result.Items[0].Available)

	assert.False(t, result.Items[1].Sufficient)
	assert.Equal(t, 50.0, result.Items[1].Required)
	assert.Zero(t, result.Items[1].Available)
}

func TestApplyFormula(t *testing.T) {
	f := newRxFixture(t)
	consultation := seedConsultation(f)
	p := createPrescription(t, f, consultation)

	chaihu := &model.Medicine{
		Base: model.Base{ID: uuid.New()},
		Code: "CH001", Name: "柴胡", Unit: "g", SellingPrice: 3.0, IsActive: true,
	}
	f.medicines.Items = append(f.medicines.Items, chaihu)

	formula := &model.ExperienceFormula{
		Base:             model.Base{ID: uuid.New()},
		DoctorID:         uuid.New(),
		Name:             "逍遙散加減",
		UsageInstruction: "早晚各一次，飯後溫服",
		Items: []*model.ExperienceFormulaItem{
			{MedicineID: chaihu.ID, Dosage: 9, Unit: "g"},
		},
	}
	f.formulas.Items = append(f.formulas.Items, formula)

	_, err := f.svc.ApplyFormula(context.Background(), f.doctorID, p.ID, &model.ApplyFormulaRequest{
		FormulaID: formula.ID.String(),
	})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrForbidden, appErr.Code)
	assert.Equal(t, "formula is not shared", appErr.Message)

	formula.IsPublic = true
	applied, err := f.svc.ApplyFormula(context.Background(), f.doctorID, p.ID, &model.ApplyFormulaRequest{
		FormulaID: formula.ID.String(),
	})
	require.NoError(t, err)

	assert.Equal(t, "逍遙散加減", applied.Name)
	assert.Equal(t, "早晚各一次，飯後溫服", applied.UsageInstruction)
	require.Len(t, applied.Items, 3)
	assert.Equal(t, chaihu.ID, applied.Items[2].MedicineID)
	assert.Equal(t, 27.0, applied.Items[2].Subtotal)
	assert.Equal(t, 56.0, applied.MedicineFee)
}

func TestApplyFormula_OwnFormula(t *testing.T) {
	f := newRxFixture(t)
	consultation := seedConsultation(f)
	p := createPrescription(t, f, consultation)

	formula := &model.ExperienceFormula{
		Base:     model.Base{ID: uuid.New()},
		DoctorID: f.doctorID,
		Name:     "私人經驗方",
		Items: []*model.ExperienceFormulaItem{
			{MedicineID: f.gancao.ID, Dosage: 3, Unit: "g"},
		},
	}
	f.formulas.Items = append(f.formulas.Items, formula)

	applied, err := f.svc.ApplyFormula(context.Background(), f.doctorID, p.ID, &model.ApplyFormulaRequest{
		FormulaID: formula.ID.String(),
	})
	require.NoError(t, err)
	assert.Len(t, applied.Items, 3)
}

func TestDeletePrescription(t *testing.T) {
	f := newRxFixture(t)
	consultation := seedConsultation(f)
	p := createPrescription(t, f, consultation)

	require.NoError(t, f.svc.DeletePrescription(context.Background(), nil, p.ID))
	_, err := f.svc.GetPrescription(context.Background(), p.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestDeletePrescription_DispensedGuard(t *testing.T) {
	f := newRxFixture(t)
	consultation := seedConsultation(f)
	p := createPrescription(t, f, consultation)
	p.IsDispensed = true

	err := f.svc.DeletePrescription(context.Background(), nil, p.ID)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "prescription already dispensed", appErr.Message)
}
