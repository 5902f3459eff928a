package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

type ReportType string

const (
	ReportTypeDailySummary     ReportType = "daily_summary"
	ReportTypeMonthlySummary   ReportType = "monthly_summary"
	ReportTypeDoctorWorkload   ReportType = "doctor_workload"
	ReportTypeMedicineUsage    ReportType = "medicine_usage"
	ReportTypePatientVisit     ReportType = "patient_visit"
	ReportTypeRevenue          ReportType = "revenue"
	ReportTypeInventory        ReportType = "inventory"
	ReportTypeExternalPharmacy ReportType = "external_pharmacy"
	ReportTypeCustom           ReportType = "custom"
)

type ReportTemplate struct {
	Base
	Name          string     `db:"name" json:"name"`
	ReportType    ReportType `db:"report_type" json:"report_type"`
	Description   string     `db:"description" json:"description"`
	QueryTemplate string     `db:"query_template" json:"query_template"`
	IsActive      bool       `db:"is_active" json:"is_active"`
}

type CreateReportTemplateRequest struct {
	Name          string `json:"name" binding:"required"`
	ReportType    string `json:"report_type" binding:"required,oneof=daily_summary monthly_summary doctor_workload medicine_usage patient_visit revenue inventory external_pharmacy custom"`
	Description   string `json:"description"`
	QueryTemplate string `json:"query_template"`
}

type UpdateReportTemplateRequest struct {
	Name          *string `json:"name"`
	Description   *string `json:"description"`
	QueryTemplate *string `json:"query_template"`
	IsActive      *bool   `json:"is_active"`
}

// GeneratedReport is a stored run of a report with its parameters and
// result snapshot.
type GeneratedReport struct {
	Base
	TemplateID  *uuid.UUID      `db:"template_id" json:"template_id,omitempty"`
	Name        string          `db:"name" json:"name"`
	ReportType  ReportType      `db:"report_type" json:"report_type"`
	Parameters  json.RawMessage `db:"parameters" json:"parameters"`
	Result      json.RawMessage `db:"result" json:"result"`
	GeneratedBy *uuid.UUID      `db:"generated_by" json:"generated_by,omitempty"`
}

// DailySummaryReport covers one clinic day.
type DailySummaryReport struct {
	Date               string  `json:"date"`
	TotalRegistrations int     `json:"total_registrations"`
	FirstVisits        int     `json:"first_visits"`
	FollowUpVisits     int     `json:"follow_up_visits"`
	CompletedVisits    int     `json:"completed_visits"`
	CancelledVisits    int     `json:"cancelled_visits"`
	NoShows            int     `json:"no_shows"`
	TotalRevenue       float64 `json:"total_revenue"`
	BillCount          int     `json:"bill_count"`
	DispensedCount     int     `json:"dispensed_count"`
}

type MonthlyDayLine struct {
	Date          string  `json:"date"`
	Registrations int     `json:"registrations"`
	Revenue       float64 `json:"revenue"`
}

type MonthlySummaryReport struct {
	Year               int               `json:"year"`
	Month              int               `json:"month"`
	Days               []*MonthlyDayLine `json:"days"`
	TotalRegistrations int               `json:"total_registrations"`
	TotalRevenue       float64           `json:"total_revenue"`
	AvgRegistrations   float64           `json:"avg_registrations_per_day"`
	AvgRevenue         float64           `json:"avg_revenue_per_day"`
}

type DoctorWorkloadLine struct {
	DoctorID           uuid.UUID `json:"doctor_id" db:"doctor_id"`
	DoctorName         string    `json:"doctor_name" db:"doctor_name"`
	TotalRegistrations int       `json:"total_registrations" db:"total_registrations"`
	FirstVisits        int       `json:"first_visits" db:"first_visits"`
	FollowUpVisits     int       `json:"follow_up_visits" db:"follow_up_visits"`
	Completed          int       `json:"completed" db:"completed"`
	AvgMinutes         float64   `json:"avg_consultation_minutes" db:"avg_minutes"`
}

type DoctorWorkloadReport struct {
	StartDate string                `json:"start_date"`
	EndDate   string                `json:"end_date"`
	Doctors   []*DoctorWorkloadLine `json:"doctors"`
}

type MedicineUsageLine struct {
	MedicineID        uuid.UUID `json:"medicine_id" db:"medicine_id"`
	MedicineCode      string    `json:"medicine_code" db:"medicine_code"`
	MedicineName      string    `json:"medicine_name" db:"medicine_name"`
	Unit              string    `json:"unit" db:"unit"`
	TotalDosage       float64   `json:"total_dosage" db:"total_dosage"`
	PrescriptionCount int       `json:"prescription_count" db:"prescription_count"`
}

type MedicineUsageReport struct {
	StartDate string               `json:"start_date"`
	EndDate   string               `json:"end_date"`
	Items     []*MedicineUsageLine `json:"items"`
}

type PharmacyReconciliationLine struct {
	PharmacyID    uuid.UUID `json:"pharmacy_id" db:"pharmacy_id"`
	PharmacyName  string    `json:"pharmacy_name" db:"pharmacy_name"`
	OrderCount    int       `json:"order_count" db:"order_count"`
	MedicineFee   float64   `json:"medicine_fee" db:"medicine_fee"`
	ProcessingFee float64   `json:"processing_fee" db:"processing_fee"`
	DeliveryFee   float64   `json:"delivery_fee" db:"delivery_fee"`
	TotalAmount   float64   `json:"total_amount" db:"total_amount"`
}

type PharmacyReconciliationReport struct {
	StartDate string                        `json:"start_date"`
	EndDate   string                        `json:"end_date"`
	Lines     []*PharmacyReconciliationLine `json:"lines"`
	Orders    []*DispensingOrder            `json:"orders"`
}
