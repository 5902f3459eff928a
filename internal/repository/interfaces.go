package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tcmflow/clinic-api/internal/model"
)

// All repository interfaces in one file. Methods ending in Tx run
// inside the caller's transaction.
type (
	// Tx begins transactions for multi-repository units of work.
	Tx interface {
		WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error
	}

	// SequenceRepository hands out gapless per-scope counters used
	// for chart, registration, bill and order numbers.
	SequenceRepository interface {
		NextTx(ctx context.Context, tx *sqlx.Tx, scope string) (int64, error)
	}

	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByUsername(ctx context.Context, username string) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		List(ctx context.Context) ([]*model.User, error)
		ListDoctors(ctx context.Context) ([]*model.User, error)
		Update(ctx context.Context, user *model.User) error
		UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
		UpdateLoginState(ctx context.Context, id uuid.UUID, failedCount int, lockedUntil, lastLogin *time.Time) error
	}

	TokenRepository interface {
		Create(ctx context.Context, token *model.Token) error
		GetByValue(ctx context.Context, tokenType, value string) (*model.Token, error)
		Revoke(ctx context.Context, id uuid.UUID) error
		IsRevoked(ctx context.Context, tokenType, value string) (bool, error)
		DeleteExpired(ctx context.Context, before time.Time) (int64, error)
	}

	ClinicRepository interface {
		GetSettings(ctx context.Context) (*model.ClinicSettings, error)
		UpdateSettings(ctx context.Context, settings *model.ClinicSettings) error

		CreateRoom(ctx context.Context, room *model.ClinicRoom) error
		GetRoom(ctx context.Context, id uuid.UUID) (*model.ClinicRoom, error)
		ListRooms(ctx context.Context) ([]*model.ClinicRoom, error)
		UpdateRoom(ctx context.Context, room *model.ClinicRoom) error
		DeleteRoom(ctx context.Context, id uuid.UUID) error

		CreateSchedule(ctx context.Context, schedule *model.Schedule) error
		GetSchedule(ctx context.Context, id uuid.UUID) (*model.Schedule, error)
		ListSchedules(ctx context.Context, doctorID *uuid.UUID) ([]*model.Schedule, error)
		UpdateSchedule(ctx context.Context, schedule *model.Schedule) error
		DeleteSchedule(ctx context.Context, id uuid.UUID) error
		ScheduleExists(ctx context.Context, doctorID uuid.UUID, dayOfWeek int, period model.Period, excludeID *uuid.UUID) (bool, error)
	}

	AuditRepository interface {
		Create(ctx context.Context, entry *model.AuditLog) error
		List(ctx context.Context, entityType string, entityID *uuid.UUID, limit int) ([]*model.AuditLog, error)
		DeleteBefore(ctx context.Context, before time.Time) (int64, error)
	}

	OutboxRepository interface {
		CreateTx(ctx context.Context, tx *sqlx.Tx, event *model.OutboxEvent) error
		BeginTx(ctx context.Context) (*sqlx.Tx, error)
		GetPendingEventsTx(ctx context.Context, tx *sqlx.Tx, limit int) ([]*model.OutboxEvent, error)
		UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error
		MoveToDeadLetterTx(ctx context.Context, tx *sqlx.Tx, event *model.OutboxEvent) error
		CountPending(ctx context.Context) (int, error)
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}

	PatientRepository interface {
		Tx
		CreateTx(ctx context.Context, tx *sqlx.Tx, patient *model.Patient) error
		GetByID(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		GetByChartNumber(ctx context.Context, chartNumber string) (*model.Patient, error)
		List(ctx context.Context, filter *model.PatientFilter) ([]*model.Patient, int, error)
		Update(ctx context.Context, patient *model.Patient) error
		Deactivate(ctx context.Context, id uuid.UUID) error
		Search(ctx context.Context, query string, limit int) ([]*model.Patient, error)
		AdjustBalanceTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, delta float64) error

		CreateImage(ctx context.Context, image *model.PatientImage) error
		ListImages(ctx context.Context, patientID uuid.UUID) ([]*model.PatientImage, error)
	}

	RegistrationRepository interface {
		Tx
		CreateAppointment(ctx context.Context, appt *model.Appointment) error
		GetAppointment(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		ListAppointments(ctx context.Context, filter *model.AppointmentFilter) ([]*model.Appointment, int, error)
		UpdateAppointment(ctx context.Context, appt *model.Appointment) error
		UpdateAppointmentStatusTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status model.AppointmentStatus) error
		DeleteAppointment(ctx context.Context, id uuid.UUID) error
		AppointmentConverted(ctx context.Context, appointmentID uuid.UUID) (bool, error)

		CreateTx(ctx context.Context, tx *sqlx.Tx, reg *model.Registration) error
		GetByID(ctx context.Context, id uuid.UUID) (*model.Registration, error)
		List(ctx context.Context, filter *model.RegistrationFilter) ([]*model.Registration, int, error)
		Update(ctx context.Context, reg *model.Registration) error
		UpdateTx(ctx context.Context, tx *sqlx.Tx, reg *model.Registration) error
		HasCompletedVisit(ctx context.Context, patientID uuid.UUID) (bool, error)
		ListQueue(ctx context.Context, date time.Time, doctorID, roomID *uuid.UUID) ([]*model.Registration, error)
		ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*model.Registration, error)
	}

	ConsultationRepository interface {
		CreateTerm(ctx context.Context, term *model.DiagnosticTerm) error
		GetTerm(ctx context.Context, id uuid.UUID) (*model.DiagnosticTerm, error)
		ListTerms(ctx context.Context, category string) ([]*model.DiagnosticTerm, error)
		UpdateTerm(ctx context.Context, term *model.DiagnosticTerm) error
		DeleteTerm(ctx context.Context, id uuid.UUID) error

		Create(ctx context.Context, c *model.Consultation) error
		GetByID(ctx context.Context, id uuid.UUID) (*model.Consultation, error)
		GetByRegistrationID(ctx context.Context, registrationID uuid.UUID) (*model.Consultation, error)
		ExistsForRegistration(ctx context.Context, registrationID uuid.UUID) (bool, error)
		List(ctx context.Context, p *model.Pagination) ([]*model.Consultation, int, error)
		ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*model.Consultation, error)
		GetPreviousForPatient(ctx context.Context, patientID uuid.UUID, before time.Time, excludeID uuid.UUID) (*model.Consultation, error)
		Update(ctx context.Context, c *model.Consultation) error
		Delete(ctx context.Context, id uuid.UUID) error
	}

	PrescriptionRepository interface {
		Tx
		CreateTx(ctx context.Context, tx *sqlx.Tx, p *model.Prescription, items []*model.PrescriptionItem) error
		GetByID(ctx context.Context, id uuid.UUID) (*model.Prescription, error)
		ListByConsultation(ctx context.Context, consultationID uuid.UUID) ([]*model.Prescription, error)
		ListByRegistration(ctx context.Context, registrationID uuid.UUID) ([]*model.Prescription, error)
		AnyDispensedForRegistration(ctx context.Context, registrationID uuid.UUID) (bool, error)
		UpdateTx(ctx context.Context, tx *sqlx.Tx, p *model.Prescription, items []*model.PrescriptionItem) error
		MarkDispensedTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, at time.Time) error
		Delete(ctx context.Context, id uuid.UUID) error
	}

	FormulaRepository interface {
		Create(ctx context.Context, f *model.ExperienceFormula, items []*model.ExperienceFormulaItem) error
		GetByID(ctx context.Context, id uuid.UUID) (*model.ExperienceFormula, error)
		ListVisible(ctx context.Context, doctorID uuid.UUID) ([]*model.ExperienceFormula, error)
		Update(ctx context.Context, f *model.ExperienceFormula, items []*model.ExperienceFormulaItem) error
		Delete(ctx context.Context, id uuid.UUID) error
	}

	CertificateRepository interface {
		Tx
		CreateTx(ctx context.Context, tx *sqlx.Tx, cert *model.Certificate) error
		GetByID(ctx context.Context, id uuid.UUID) (*model.Certificate, error)
		ListByConsultation(ctx context.Context, consultationID uuid.UUID) ([]*model.Certificate, error)
		List(ctx context.Context, p *model.Pagination) ([]*model.Certificate, int, error)
		Update(ctx context.Context, cert *model.Certificate) error
		Delete(ctx context.Context, id uuid.UUID) error
		RecordPrint(ctx context.Context, id uuid.UUID, at time.Time) (*model.Certificate, error)
	}

	ChargeItemRepository interface {
		Create(ctx context.Context, item *model.ChargeItem) error
		GetByID(ctx context.Context, id uuid.UUID) (*model.ChargeItem, error)
		GetByCode(ctx context.Context, code string) (*model.ChargeItem, error)
		List(ctx context.Context, activeOnly bool) ([]*model.ChargeItem, error)
		Update(ctx context.Context, item *model.ChargeItem) error
		Delete(ctx context.Context, id uuid.UUID) error
	}

	BillRepository interface {
		Tx
		CreateTx(ctx context.Context, tx *sqlx.Tx, bill *model.Bill, items []*model.BillItem) error
		GetByID(ctx context.Context, id uuid.UUID) (*model.Bill, error)
		GetByRegistrationID(ctx context.Context, registrationID uuid.UUID) (*model.Bill, error)
		ExistsForRegistration(ctx context.Context, registrationID uuid.UUID) (bool, error)
		List(ctx context.Context, filter *model.BillFilter) ([]*model.Bill, int, error)
		UpdateTx(ctx context.Context, tx *sqlx.Tx, bill *model.Bill) error
		ReplaceItemsTx(ctx context.Context, tx *sqlx.Tx, billID uuid.UUID, items []*model.BillItem) error
		DailySummary(ctx context.Context, date time.Time) (*model.DailyBillingSummary, error)
	}

	PaymentRepository interface {
		CreateTx(ctx context.Context, tx *sqlx.Tx, payment *model.Payment) error
		List(ctx context.Context, filter *model.PaymentFilter) ([]*model.Payment, int, error)
		ListByBill(ctx context.Context, billID uuid.UUID) ([]*model.Payment, error)
	}

	DebtRepository interface {
		Tx
		GetByID(ctx context.Context, id uuid.UUID) (*model.Debt, error)
		GetByBillTx(ctx context.Context, tx *sqlx.Tx, billID uuid.UUID) (*model.Debt, error)
		UpsertTx(ctx context.Context, tx *sqlx.Tx, debt *model.Debt) error
		UpdateTx(ctx context.Context, tx *sqlx.Tx, debt *model.Debt) error
		List(ctx context.Context, status string, p *model.Pagination) ([]*model.Debt, int, error)
		ListOpenByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Debt, error)
	}

	PharmacyRepository interface {
		Create(ctx context.Context, pharmacy *model.ExternalPharmacy) error
		GetByID(ctx context.Context, id uuid.UUID) (*model.ExternalPharmacy, error)
		List(ctx context.Context, activeOnly bool) ([]*model.ExternalPharmacy, error)
		Update(ctx context.Context, pharmacy *model.ExternalPharmacy) error
		Delete(ctx context.Context, id uuid.UUID) error
	}

	DispensingOrderRepository interface {
		Tx
		CreateTx(ctx context.Context, tx *sqlx.Tx, order *model.DispensingOrder) error
		GetByID(ctx context.Context, id uuid.UUID) (*model.DispensingOrder, error)
		GetByClientOrderID(ctx context.Context, clientOrderID string) (*model.DispensingOrder, error)
		List(ctx context.Context, filter *model.DispensingOrderFilter) ([]*model.DispensingOrder, int, error)
		Update(ctx context.Context, order *model.DispensingOrder) error
		UpdateTx(ctx context.Context, tx *sqlx.Tx, order *model.DispensingOrder) error
	}

	CategoryRepository interface {
		Create(ctx context.Context, category *model.MedicineCategory) error
		GetByID(ctx context.Context, id uuid.UUID) (*model.MedicineCategory, error)
		List(ctx context.Context) ([]*model.MedicineCategory, error)
		Update(ctx context.Context, category *model.MedicineCategory) error
		Delete(ctx context.Context, id uuid.UUID) error
	}

	SupplierRepository interface {
		Create(ctx context.Context, supplier *model.Supplier) error
		GetByID(ctx context.Context, id uuid.UUID) (*model.Supplier, error)
		List(ctx context.Context, activeOnly bool) ([]*model.Supplier, error)
		Update(ctx context.Context, supplier *model.Supplier) error
		Delete(ctx context.Context, id uuid.UUID) error
	}

	MedicineRepository interface {
		Tx
		CreateTx(ctx context.Context, tx *sqlx.Tx, medicine *model.Medicine) error
		GetByID(ctx context.Context, id uuid.UUID) (*model.Medicine, error)
		GetByCode(ctx context.Context, code string) (*model.Medicine, error)
		GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Medicine, error)
		List(ctx context.Context, filter *model.MedicineFilter) ([]*model.Medicine, int, error)
		Update(ctx context.Context, medicine *model.Medicine) error
		Search(ctx context.Context, query string, limit int) ([]*model.Medicine, error)
	}

	StockRepository interface {
		Tx
		GetLevel(ctx context.Context, medicineID uuid.UUID) (*model.StockLevel, error)
		GetLevelForUpdateTx(ctx context.Context, tx *sqlx.Tx, medicineID uuid.UUID) (*model.StockLevel, error)
		EnsureLevelTx(ctx context.Context, tx *sqlx.Tx, medicineID uuid.UUID) (*model.StockLevel, error)
		CreateLevelTx(ctx context.Context, tx *sqlx.Tx, medicineID uuid.UUID) error
		SetLevelTx(ctx context.Context, tx *sqlx.Tx, medicineID uuid.UUID, quantity float64) error
		ListLevels(ctx context.Context, p *model.Pagination) ([]*model.StockLevel, int, error)
		ListLowStock(ctx context.Context) ([]*model.StockLevel, error)

		CreateTransactionTx(ctx context.Context, tx *sqlx.Tx, txn *model.StockTransaction) error
		ListTransactions(ctx context.Context, filter *model.StockTransactionFilter) ([]*model.StockTransaction, int, error)
		ListTransactionsByMedicine(ctx context.Context, medicineID uuid.UUID, limit int) ([]*model.StockTransaction, error)
	}

	PurchaseOrderRepository interface {
		Tx
		CreateTx(ctx context.Context, tx *sqlx.Tx, order *model.PurchaseOrder, items []*model.PurchaseOrderItem) error
		GetByID(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error)
		List(ctx context.Context, status string, p *model.Pagination) ([]*model.PurchaseOrder, int, error)
		UpdateTx(ctx context.Context, tx *sqlx.Tx, order *model.PurchaseOrder) error
		ReplaceItemsTx(ctx context.Context, tx *sqlx.Tx, orderID uuid.UUID, items []*model.PurchaseOrderItem) error
		SetItemReceivedTx(ctx context.Context, tx *sqlx.Tx, itemID uuid.UUID, receivedQuantity float64) error
	}

	CompoundFormulaRepository interface {
		Create(ctx context.Context, cf *model.CompoundFormula) error
		GetByID(ctx context.Context, id uuid.UUID) (*model.CompoundFormula, error)
		ListByCompound(ctx context.Context, compoundID uuid.UUID) ([]*model.CompoundFormula, error)
		List(ctx context.Context) ([]*model.CompoundFormula, error)
		Delete(ctx context.Context, id uuid.UUID) error
	}

	ReportRepository interface {
		DailySummary(ctx context.Context, date time.Time) (*model.DailySummaryReport, error)
		MonthlySummary(ctx context.Context, year, month int) (*model.MonthlySummaryReport, error)
		DoctorWorkload(ctx context.Context, start, end time.Time) ([]*model.DoctorWorkloadLine, error)
		MedicineUsage(ctx context.Context, start, end time.Time, limit int) ([]*model.MedicineUsageLine, error)
		PharmacyReconciliation(ctx context.Context, start, end time.Time, pharmacyID *uuid.UUID) (*model.PharmacyReconciliationReport, error)

		CreateTemplate(ctx context.Context, tpl *model.ReportTemplate) error
		GetTemplate(ctx context.Context, id uuid.UUID) (*model.ReportTemplate, error)
		ListTemplates(ctx context.Context) ([]*model.ReportTemplate, error)
		UpdateTemplate(ctx context.Context, tpl *model.ReportTemplate) error
		DeleteTemplate(ctx context.Context, id uuid.UUID) error

		CreateGenerated(ctx context.Context, report *model.GeneratedReport) error
		GetGenerated(ctx context.Context, id uuid.UUID) (*model.GeneratedReport, error)
		ListGenerated(ctx context.Context, p *model.Pagination) ([]*model.GeneratedReport, int, error)
	}
)
