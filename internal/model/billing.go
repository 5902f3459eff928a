package model

import (
	"time"

	"github.com/google/uuid"
)

type ChargeItemType string

const (
	ChargeItemRegistration ChargeItemType = "registration"
	ChargeItemConsultation ChargeItemType = "consultation"
	ChargeItemMedicine     ChargeItemType = "medicine"
	ChargeItemTreatment    ChargeItemType = "treatment"
	ChargeItemCertificate  ChargeItemType = "certificate"
	ChargeItemOther        ChargeItemType = "other"
)

type ChargeItem struct {
	Base
	Code         string         `db:"code" json:"code"`
	Name         string         `db:"name" json:"name"`
	ItemType     ChargeItemType `db:"item_type" json:"item_type"`
	DefaultPrice float64        `db:"default_price" json:"default_price"`
	IsActive     bool           `db:"is_active" json:"is_active"`
}

type CreateChargeItemRequest struct {
	Code         string  `json:"code" binding:"required"`
	Name         string  `json:"name" binding:"required"`
	ItemType     string  `json:"item_type" binding:"required,oneof=registration consultation medicine treatment certificate other"`
	DefaultPrice float64 `json:"default_price" binding:"min=0"`
}

type UpdateChargeItemRequest struct {
	Name         *string  `json:"name"`
	DefaultPrice *float64 `json:"default_price" binding:"omitempty,min=0"`
	IsActive     *bool    `json:"is_active"`
}

type BillStatus string

const (
	BillStatusPending   BillStatus = "pending"
	BillStatusPartial   BillStatus = "partial"
	BillStatusPaid      BillStatus = "paid"
	BillStatusRefunded  BillStatus = "refunded"
	BillStatusCancelled BillStatus = "cancelled"
)

type PaymentMethod string

const (
	PaymentMethodCash           PaymentMethod = "cash"
	PaymentMethodCreditCard     PaymentMethod = "credit_card"
	PaymentMethodDebitCard      PaymentMethod = "debit_card"
	PaymentMethodOctopus        PaymentMethod = "octopus"
	PaymentMethodAlipay         PaymentMethod = "alipay"
	PaymentMethodWechat         PaymentMethod = "wechat"
	PaymentMethodBankTransfer   PaymentMethod = "bank_transfer"
	PaymentMethodAccountBalance PaymentMethod = "account_balance"
	PaymentMethodOther          PaymentMethod = "other"
)

type Bill struct {
	Base
	RegistrationID uuid.UUID     `db:"registration_id" json:"registration_id"`
	PatientID      uuid.UUID     `db:"patient_id" json:"patient_id"`
	BillNumber     string        `db:"bill_number" json:"bill_number"`
	BillDate       time.Time     `db:"bill_date" json:"bill_date"`
	Status         BillStatus    `db:"status" json:"status"`
	Subtotal       float64       `db:"subtotal" json:"subtotal"`
	Discount       float64       `db:"discount" json:"discount"`
	TotalAmount    float64       `db:"total_amount" json:"total_amount"`
	PaidAmount     float64       `db:"paid_amount" json:"paid_amount"`
	BalanceDue     float64       `db:"balance_due" json:"balance_due"`
	PaymentMethod  PaymentMethod `db:"payment_method" json:"payment_method"`
	PaidAt         *time.Time    `db:"paid_at" json:"paid_at,omitempty"`
	CreatedBy      *uuid.UUID    `db:"created_by" json:"created_by,omitempty"`

	PatientName string      `db:"patient_name" json:"patient_name,omitempty"`
	ChartNumber string      `db:"chart_number" json:"chart_number,omitempty"`
	Items       []*BillItem `json:"items,omitempty"`
}

type BillItem struct {
	Base
	BillID         uuid.UUID  `db:"bill_id" json:"bill_id"`
	ChargeItemID   *uuid.UUID `db:"charge_item_id" json:"charge_item_id,omitempty"`
	PrescriptionID *uuid.UUID `db:"prescription_id" json:"prescription_id,omitempty"`
	Description    string     `db:"description" json:"description"`
	Quantity       float64    `db:"quantity" json:"quantity"`
	UnitPrice      float64    `db:"unit_price" json:"unit_price"`
	Subtotal       float64    `db:"subtotal" json:"subtotal"`
}

type BillItemInput struct {
	ChargeItemID   string  `json:"charge_item_id" binding:"omitempty,uuid"`
	PrescriptionID string  `json:"prescription_id" binding:"omitempty,uuid"`
	Description    string  `json:"description" binding:"required"`
	Quantity       float64 `json:"quantity" binding:"required,gt=0"`
	UnitPrice      float64 `json:"unit_price" binding:"min=0"`
}

type CreateBillRequest struct {
	RegistrationID string          `json:"registration_id" binding:"required,uuid"`
	Discount       float64         `json:"discount" binding:"min=0"`
	Items          []BillItemInput `json:"items" binding:"required,min=1,dive"`
}

type UpdateBillRequest struct {
	Discount *float64        `json:"discount" binding:"omitempty,min=0"`
	Items    []BillItemInput `json:"items" binding:"omitempty,min=1,dive"`
}

type BillFilter struct {
	Pagination
	PatientID string `form:"patient_id"`
	Status    string `form:"status"`
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
}

type PayBillRequest struct {
	Amount          float64 `json:"amount" binding:"required,gt=0"`
	PaymentMethod   string  `json:"payment_method" binding:"required,oneof=cash credit_card debit_card octopus alipay wechat bank_transfer account_balance other"`
	ReferenceNumber string  `json:"reference_number"`
	Notes           string  `json:"notes"`
}

type RefundBillRequest struct {
	Amount         float64 `json:"amount" binding:"required,gt=0"`
	Reason         string  `json:"reason"`
	StoreToAccount bool    `json:"store_to_account"`
}

type CreditToAccountRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
	Notes  string  `json:"notes"`
}

type Payment struct {
	Base
	BillID          uuid.UUID     `db:"bill_id" json:"bill_id"`
	Amount          float64       `db:"amount" json:"amount"`
	PaymentMethod   PaymentMethod `db:"payment_method" json:"payment_method"`
	ReferenceNumber string        `db:"reference_number" json:"reference_number"`
	Notes           string        `db:"notes" json:"notes"`
	CreatedBy       *uuid.UUID    `db:"created_by" json:"created_by,omitempty"`

	BillNumber string `db:"bill_number" json:"bill_number,omitempty"`
}

type PaymentFilter struct {
	Pagination
	BillID    string `form:"bill_id"`
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
}

type DebtStatus string

const (
	DebtStatusOutstanding DebtStatus = "outstanding"
	DebtStatusPartial     DebtStatus = "partial"
	DebtStatusCleared     DebtStatus = "cleared"
	DebtStatusWrittenOff  DebtStatus = "written_off"
)

type Debt struct {
	Base
	PatientID       uuid.UUID  `db:"patient_id" json:"patient_id"`
	BillID          uuid.UUID  `db:"bill_id" json:"bill_id"`
	OriginalAmount  float64    `db:"original_amount" json:"original_amount"`
	RemainingAmount float64    `db:"remaining_amount" json:"remaining_amount"`
	Status          DebtStatus `db:"status" json:"status"`
	DueDate         *time.Time `db:"due_date" json:"due_date,omitempty"`

	PatientName string `db:"patient_name" json:"patient_name,omitempty"`
	BillNumber  string `db:"bill_number" json:"bill_number,omitempty"`
}

type PayDebtRequest struct {
	Amount        float64 `json:"amount" binding:"required,gt=0"`
	PaymentMethod string  `json:"payment_method" binding:"required,oneof=cash credit_card debit_card octopus alipay wechat bank_transfer account_balance other"`
	Notes         string  `json:"notes"`
}

// PatientDebtSummary is the open debt position of one patient.
type PatientDebtSummary struct {
	PatientID uuid.UUID `json:"patient_id"`
	Debts     []*Debt   `json:"debts"`
	Total     float64   `json:"total"`
}

// DailyBillingSummary aggregates one day's takings.
type DailyBillingSummary struct {
	Date           string             `json:"date"`
	TotalCollected float64            `json:"total_collected"`
	BillsByStatus  map[string]int     `json:"bills_by_status"`
	ByMethod       map[string]float64 `json:"by_method"`
	Registrations  int                `json:"registrations"`
}
