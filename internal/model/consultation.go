package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type TermCategory string

const (
	TermCategoryChiefComplaint TermCategory = "chief_complaint"
	TermCategorySymptom        TermCategory = "symptom"
	TermCategoryTongue         TermCategory = "tongue"
	TermCategoryPulse          TermCategory = "pulse"
	TermCategoryDiagnosis      TermCategory = "diagnosis"
	TermCategoryTreatment      TermCategory = "treatment"
)

type DiagnosticTerm struct {
	Base
	Category    TermCategory `db:"category" json:"category"`
	Code        string       `db:"code" json:"code"`
	Name        string       `db:"name" json:"name"`
	Description string       `db:"description" json:"description"`
	IsActive    bool         `db:"is_active" json:"is_active"`
}

type CreateDiagnosticTermRequest struct {
	Category    string `json:"category" binding:"required,oneof=chief_complaint symptom tongue pulse diagnosis treatment"`
	Code        string `json:"code" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type UpdateDiagnosticTermRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

// Consultation is the medical record of one registration. The four
// examinations of TCM practice map to the inspection, listening,
// inquiry and palpation field groups.
type Consultation struct {
	Base
	RegistrationID          uuid.UUID  `db:"registration_id" json:"registration_id"`
	DoctorID                uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	ChiefComplaint          string     `db:"chief_complaint" json:"chief_complaint"`
	PresentIllness          string     `db:"present_illness" json:"present_illness"`
	PastHistory             string     `db:"past_history" json:"past_history"`
	Inspection              string     `db:"inspection" json:"inspection"`
	TongueAppearance        string     `db:"tongue_appearance" json:"tongue_appearance"`
	ListeningSmelling       string     `db:"listening_smelling" json:"listening_smelling"`
	Inquiry                 string     `db:"inquiry" json:"inquiry"`
	Pulse                   string     `db:"pulse" json:"pulse"`
	Palpation               string     `db:"palpation" json:"palpation"`
	TCMDiagnosis            string     `db:"tcm_diagnosis" json:"tcm_diagnosis"`
	WesternDiagnosis        string     `db:"western_diagnosis" json:"western_diagnosis"`
	SyndromeDifferentiation string     `db:"syndrome_differentiation" json:"syndrome_differentiation"`
	TreatmentPrinciple      string     `db:"treatment_principle" json:"treatment_principle"`
	Advice                  string     `db:"advice" json:"advice"`
	FollowUpDate            *time.Time `db:"follow_up_date" json:"follow_up_date,omitempty"`
	Notes                   string     `db:"notes" json:"notes"`

	PatientID   *uuid.UUID `db:"patient_id" json:"patient_id,omitempty"`
	PatientName string     `db:"patient_name" json:"patient_name,omitempty"`
	DoctorName  string     `db:"doctor_name" json:"doctor_name,omitempty"`
}

type CreateConsultationRequest struct {
	RegistrationID          string `json:"registration_id" binding:"required,uuid"`
	ChiefComplaint          string `json:"chief_complaint"`
	PresentIllness          string `json:"present_illness"`
	PastHistory             string `json:"past_history"`
	Inspection              string `json:"inspection"`
	TongueAppearance        string `json:"tongue_appearance"`
	ListeningSmelling       string `json:"listening_smelling"`
	Inquiry                 string `json:"inquiry"`
	Pulse                   string `json:"pulse"`
	Palpation               string `json:"palpation"`
	TCMDiagnosis            string `json:"tcm_diagnosis"`
	WesternDiagnosis        string `json:"western_diagnosis"`
	SyndromeDifferentiation string `json:"syndrome_differentiation"`
	TreatmentPrinciple      string `json:"treatment_principle"`
	Advice                  string `json:"advice"`
	FollowUpDate            string `json:"follow_up_date" binding:"omitempty,datetime=2006-01-02"`
	Notes                   string `json:"notes"`
}

type UpdateConsultationRequest struct {
	ChiefComplaint          *string `json:"chief_complaint"`
	PresentIllness          *string `json:"present_illness"`
	PastHistory             *string `json:"past_history"`
	Inspection              *string `json:"inspection"`
	TongueAppearance        *string `json:"tongue_appearance"`
	ListeningSmelling       *string `json:"listening_smelling"`
	Inquiry                 *string `json:"inquiry"`
	Pulse                   *string `json:"pulse"`
	Palpation               *string `json:"palpation"`
	TCMDiagnosis            *string `json:"tcm_diagnosis"`
	WesternDiagnosis        *string `json:"western_diagnosis"`
	SyndromeDifferentiation *string `json:"syndrome_differentiation"`
	TreatmentPrinciple      *string `json:"treatment_principle"`
	Advice                  *string `json:"advice"`
	FollowUpDate            *string `json:"follow_up_date" binding:"omitempty,datetime=2006-01-02"`
	Notes                   *string `json:"notes"`
}

type DispensingMethod string

const (
	DispensingInternal            DispensingMethod = "internal"
	DispensingExternalDecoction   DispensingMethod = "external_decoction"
	DispensingExternalConcentrate DispensingMethod = "external_concentrate"
)

type Prescription struct {
	Base
	ConsultationID     uuid.UUID        `db:"consultation_id" json:"consultation_id"`
	PrescriptionNumber string           `db:"prescription_number" json:"prescription_number"`
	Name               string           `db:"name" json:"name"`
	TotalDoses         int              `db:"total_doses" json:"total_doses"`
	DosesPerDay        int              `db:"doses_per_day" json:"doses_per_day"`
	Days               int              `db:"days" json:"days"`
	UsageInstruction   string           `db:"usage_instruction" json:"usage_instruction"`
	DispensingMethod   DispensingMethod `db:"dispensing_method" json:"dispensing_method"`
	ExternalPharmacyID *uuid.UUID       `db:"external_pharmacy_id" json:"external_pharmacy_id,omitempty"`
	MedicineFee        float64          `db:"medicine_fee" json:"medicine_fee"`
	IsDispensed        bool             `db:"is_dispensed" json:"is_dispensed"`
	DispensedAt        *time.Time       `db:"dispensed_at" json:"dispensed_at,omitempty"`
	AuditLog           json.RawMessage  `db:"audit_log" json:"audit_log,omitempty"`
	Notes              string           `db:"notes" json:"notes"`

	Items []*PrescriptionItem `json:"items,omitempty"`
}

// PrescriptionAuditEntry is one element of a prescription's audit
// trail. New entries are appended on every update.
type PrescriptionAuditEntry struct {
	Timestamp time.Time `json:"timestamp"`
	User      string    `json:"user"`
	Before    JSONMap   `json:"before"`
	After     JSONMap   `json:"after"`
}

type PrescriptionItem struct {
	Base
	PrescriptionID  uuid.UUID `db:"prescription_id" json:"prescription_id"`
	MedicineID      uuid.UUID `db:"medicine_id" json:"medicine_id"`
	Dosage          float64   `db:"dosage" json:"dosage"`
	Unit            string    `db:"unit" json:"unit"`
	DecoctionMethod string    `db:"decoction_method" json:"decoction_method"`
	UnitPrice       float64   `db:"unit_price" json:"unit_price"`
	Subtotal        float64   `db:"subtotal" json:"subtotal"`

	MedicineCode string `db:"medicine_code" json:"medicine_code,omitempty"`
	MedicineName string `db:"medicine_name" json:"medicine_name,omitempty"`
}

type PrescriptionItemInput struct {
	MedicineID      string  `json:"medicine_id" binding:"required,uuid"`
	Dosage          float64 `json:"dosage" binding:"required,gt=0"`
	Unit            string  `json:"unit"`
	DecoctionMethod string  `json:"decoction_method"`
}

type CreatePrescriptionRequest struct {
	ConsultationID     string                  `json:"consultation_id" binding:"required,uuid"`
	Name               string                  `json:"name"`
	TotalDoses         int                     `json:"total_doses" binding:"required,gt=0"`
	DosesPerDay        int                     `json:"doses_per_day" binding:"omitempty,gt=0"`
	Days               int                     `json:"days" binding:"omitempty,gt=0"`
	UsageInstruction   string                  `json:"usage_instruction"`
	DispensingMethod   string                  `json:"dispensing_method" binding:"omitempty,oneof=internal external_decoction external_concentrate"`
	ExternalPharmacyID string                  `json:"external_pharmacy_id" binding:"omitempty,uuid"`
	Notes              string                  `json:"notes"`
	Items              []PrescriptionItemInput `json:"items" binding:"required,min=1,dive"`
}

type UpdatePrescriptionRequest struct {
	Name             *string                 `json:"name"`
	TotalDoses       *int                    `json:"total_doses" binding:"omitempty,gt=0"`
	DosesPerDay      *int                    `json:"doses_per_day" binding:"omitempty,gt=0"`
	Days             *int                    `json:"days" binding:"omitempty,gt=0"`
	UsageInstruction *string                 `json:"usage_instruction"`
	Notes            *string                 `json:"notes"`
	Items            []PrescriptionItemInput `json:"items" binding:"omitempty,min=1,dive"`
}

type CheckStockRequest struct {
	TotalDoses int                     `json:"total_doses" binding:"required,gt=0"`
	Items      []PrescriptionItemInput `json:"items" binding:"required,min=1,dive"`
}

type StockCheckLine struct {
	MedicineID   uuid.UUID `json:"medicine_id"`
	MedicineName string    `json:"medicine_name"`
	Required     float64   `json:"required"`
	Available    float64   `json:"available"`
	Sufficient   bool      `json:"sufficient"`
}

type StockCheckResult struct {
	AllSufficient bool              `json:"all_sufficient"`
	Items         []*StockCheckLine `json:"items"`
}

type ApplyFormulaRequest struct {
	FormulaID string `json:"formula_id" binding:"required,uuid"`
}

type ExperienceFormula struct {
	Base
	DoctorID         uuid.UUID `db:"doctor_id" json:"doctor_id"`
	Name             string    `db:"name" json:"name"`
	Category         string    `db:"category" json:"category"`
	Indication       string    `db:"indication" json:"indication"`
	UsageInstruction string    `db:"usage_instruction" json:"usage_instruction"`
	Notes            string    `db:"notes" json:"notes"`
	IsPublic         bool      `db:"is_public" json:"is_public"`

	DoctorName string                   `db:"doctor_name" json:"doctor_name,omitempty"`
	Items      []*ExperienceFormulaItem `json:"items,omitempty"`
}

type ExperienceFormulaItem struct {
	Base
	FormulaID       uuid.UUID `db:"formula_id" json:"formula_id"`
	MedicineID      uuid.UUID `db:"medicine_id" json:"medicine_id"`
	Dosage          float64   `db:"dosage" json:"dosage"`
	Unit            string    `db:"unit" json:"unit"`
	DecoctionMethod string    `db:"decoction_method" json:"decoction_method"`

	MedicineCode string `db:"medicine_code" json:"medicine_code,omitempty"`
	MedicineName string `db:"medicine_name" json:"medicine_name,omitempty"`
}

type FormulaItemInput struct {
	MedicineID      string  `json:"medicine_id" binding:"required,uuid"`
	Dosage          float64 `json:"dosage" binding:"required,gt=0"`
	Unit            string  `json:"unit"`
	DecoctionMethod string  `json:"decoction_method"`
}

type CreateFormulaRequest struct {
	Name             string             `json:"name" binding:"required"`
	Category         string             `json:"category"`
	Indication       string             `json:"indication"`
	UsageInstruction string             `json:"usage_instruction"`
	Notes            string             `json:"notes"`
	IsPublic         bool               `json:"is_public"`
	Items            []FormulaItemInput `json:"items" binding:"required,min=1,dive"`
}

type UpdateFormulaRequest struct {
	Name             *string            `json:"name"`
	Category         *string            `json:"category"`
	Indication       *string            `json:"indication"`
	UsageInstruction *string            `json:"usage_instruction"`
	Notes            *string            `json:"notes"`
	IsPublic         *bool              `json:"is_public"`
	Items            []FormulaItemInput `json:"items" binding:"omitempty,min=1,dive"`
}

type SaveFromPrescriptionRequest struct {
	PrescriptionID string `json:"prescription_id" binding:"required,uuid"`
	Name           string `json:"name" binding:"required"`
	Category       string `json:"category"`
	Indication     string `json:"indication"`
	IsPublic       bool   `json:"is_public"`
}

type CertificateType string

const (
	CertificateTypeMedical   CertificateType = "medical"
	CertificateTypeSickLeave CertificateType = "sick_leave"
	CertificateTypeReferral  CertificateType = "referral"
	CertificateTypeOther     CertificateType = "other"
)

type Certificate struct {
	Base
	ConsultationID    uuid.UUID       `db:"consultation_id" json:"consultation_id"`
	CertificateType   CertificateType `db:"certificate_type" json:"certificate_type"`
	CertificateNumber string          `db:"certificate_number" json:"certificate_number"`
	Content           string          `db:"content" json:"content"`
	IssueDate         time.Time       `db:"issue_date" json:"issue_date"`
	SickLeaveStart    *time.Time      `db:"sick_leave_start" json:"sick_leave_start,omitempty"`
	SickLeaveEnd      *time.Time      `db:"sick_leave_end" json:"sick_leave_end,omitempty"`
	PrintCount        int             `db:"print_count" json:"print_count"`
	LastPrintedAt     *time.Time      `db:"last_printed_at" json:"last_printed_at,omitempty"`
	CreatedBy         *uuid.UUID      `db:"created_by" json:"created_by,omitempty"`
}

type CreateCertificateRequest struct {
	ConsultationID  string `json:"consultation_id" binding:"required,uuid"`
	CertificateType string `json:"certificate_type" binding:"required,oneof=medical sick_leave referral other"`
	Content         string `json:"content" binding:"required"`
	IssueDate       string `json:"issue_date" binding:"omitempty,datetime=2006-01-02"`
	SickLeaveStart  string `json:"sick_leave_start" binding:"omitempty,datetime=2006-01-02"`
	SickLeaveEnd    string `json:"sick_leave_end" binding:"omitempty,datetime=2006-01-02"`
}

type UpdateCertificateRequest struct {
	Content        *string `json:"content"`
	IssueDate      *string `json:"issue_date" binding:"omitempty,datetime=2006-01-02"`
	SickLeaveStart *string `json:"sick_leave_start" binding:"omitempty,datetime=2006-01-02"`
	SickLeaveEnd   *string `json:"sick_leave_end" binding:"omitempty,datetime=2006-01-02"`
}
