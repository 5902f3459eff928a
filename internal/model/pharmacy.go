package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type PharmacyType string

const (
	PharmacyTypeDecoction   PharmacyType = "decoction"
	PharmacyTypeConcentrate PharmacyType = "concentrate"
)

// ExternalPharmacy is a partner that decocts or granulates herbs.
// API keys are stored encrypted.
type ExternalPharmacy struct {
	Base
	Name          string       `db:"name" json:"name"`
	PharmacyType  PharmacyType `db:"pharmacy_type" json:"pharmacy_type"`
	ContactPerson string       `db:"contact_person" json:"contact_person"`
	Phone         string       `db:"phone" json:"phone"`
	Email         string       `db:"email" json:"email"`
	Address       string       `db:"address" json:"address"`
	ProcessingFee float64      `db:"processing_fee" json:"processing_fee"`
	DeliveryFee   float64      `db:"delivery_fee" json:"delivery_fee"`
	APIEndpoint   string       `db:"api_endpoint" json:"api_endpoint"`
	APIKey        string       `db:"api_key" json:"-"`
	WebhookAPIKey string       `db:"webhook_api_key" json:"-"`
	IsActive      bool         `db:"is_active" json:"is_active"`
}

type CreatePharmacyRequest struct {
	Name          string  `json:"name" binding:"required"`
	PharmacyType  string  `json:"pharmacy_type" binding:"required,oneof=decoction concentrate"`
	ContactPerson string  `json:"contact_person"`
	Phone         string  `json:"phone"`
	Email         string  `json:"email" binding:"omitempty,email"`
	Address       string  `json:"address"`
	ProcessingFee float64 `json:"processing_fee" binding:"min=0"`
	DeliveryFee   float64 `json:"delivery_fee" binding:"min=0"`
	APIEndpoint   string  `json:"api_endpoint" binding:"omitempty,url"`
	APIKey        string  `json:"api_key"`
	WebhookAPIKey string  `json:"webhook_api_key"`
}

type UpdatePharmacyRequest struct {
	Name          *string  `json:"name"`
	ContactPerson *string  `json:"contact_person"`
	Phone         *string  `json:"phone"`
	Email         *string  `json:"email" binding:"omitempty,email"`
	Address       *string  `json:"address"`
	ProcessingFee *float64 `json:"processing_fee" binding:"omitempty,min=0"`
	DeliveryFee   *float64 `json:"delivery_fee" binding:"omitempty,min=0"`
	APIEndpoint   *string  `json:"api_endpoint" binding:"omitempty,url"`
	APIKey        *string  `json:"api_key"`
	WebhookAPIKey *string  `json:"webhook_api_key"`
	IsActive      *bool    `json:"is_active"`
}

type DispensingStatus string

const (
	DispensingStatusPending    DispensingStatus = "pending"
	DispensingStatusSent       DispensingStatus = "sent"
	DispensingStatusConfirmed  DispensingStatus = "confirmed"
	DispensingStatusProcessing DispensingStatus = "processing"
	DispensingStatusShipped    DispensingStatus = "shipped"
	DispensingStatusCompleted  DispensingStatus = "completed"
	DispensingStatusFailed     DispensingStatus = "failed"
	DispensingStatusCancelled  DispensingStatus = "cancelled"
)

type DispensingOrder struct {
	Base
	PrescriptionID  uuid.UUID        `db:"prescription_id" json:"prescription_id"`
	PharmacyID      uuid.UUID        `db:"pharmacy_id" json:"pharmacy_id"`
	OrderNumber     string           `db:"order_number" json:"order_number"`
	ClientOrderID   string           `db:"client_order_id" json:"client_order_id"`
	Status          DispensingStatus `db:"status" json:"status"`
	MedicineFee     float64          `db:"medicine_fee" json:"medicine_fee"`
	ProcessingFee   float64          `db:"processing_fee" json:"processing_fee"`
	DeliveryFee     float64          `db:"delivery_fee" json:"delivery_fee"`
	TotalAmount     float64          `db:"total_amount" json:"total_amount"`
	RecipientName   string           `db:"recipient_name" json:"recipient_name"`
	RecipientPhone  string           `db:"recipient_phone" json:"recipient_phone"`
	DeliveryAddress string           `db:"delivery_address" json:"delivery_address"`
	TrackingCompany string           `db:"tracking_company" json:"tracking_company"`
	TrackingNumber  string           `db:"tracking_number" json:"tracking_number"`
	APIResponse     json.RawMessage  `db:"api_response" json:"api_response,omitempty"`
	ErrorMessage    string           `db:"error_message" json:"error_message"`
	Notes           string           `db:"notes" json:"notes"`
	SentAt          *time.Time       `db:"sent_at" json:"sent_at,omitempty"`
	CompletedAt     *time.Time       `db:"completed_at" json:"completed_at,omitempty"`
	CreatedBy       *uuid.UUID       `db:"created_by" json:"created_by,omitempty"`

	PharmacyName       string `db:"pharmacy_name" json:"pharmacy_name,omitempty"`
	PrescriptionNumber string `db:"prescription_number" json:"prescription_number,omitempty"`
}

type CreateDispensingOrderRequest struct {
	PrescriptionID  string `json:"prescription_id" binding:"required,uuid"`
	PharmacyID      string `json:"pharmacy_id" binding:"required,uuid"`
	RecipientName   string `json:"recipient_name" binding:"required"`
	RecipientPhone  string `json:"recipient_phone" binding:"required"`
	DeliveryAddress string `json:"delivery_address" binding:"required"`
	Notes           string `json:"notes"`
}

type UpdateDispensingOrderRequest struct {
	RecipientName   *string `json:"recipient_name"`
	RecipientPhone  *string `json:"recipient_phone"`
	DeliveryAddress *string `json:"delivery_address"`
	Notes           *string `json:"notes"`
}

type DispensingOrderFilter struct {
	Pagination
	PharmacyID string `form:"pharmacy_id"`
	Status     string `form:"status"`
	StartDate  string `form:"start_date"`
	EndDate    string `form:"end_date"`
}

// PharmacyWebhookRequest is the status callback partners POST back.
// Orders are addressed by the client_order_id issued at send time.
type PharmacyWebhookRequest struct {
	ClientOrderID   string `json:"client_order_id" binding:"required"`
	EventType       string `json:"event_type" binding:"required,oneof=order_confirmed processing shipped delivered"`
	TrackingCompany string `json:"tracking_company"`
	TrackingNumber  string `json:"tracking_number"`
	Notes           string `json:"notes"`
}
