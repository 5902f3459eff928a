package model

import (
	"time"

	"github.com/google/uuid"
)

type MedicineCategory struct {
	Base
	Name     string     `db:"name" json:"name"`
	Code     string     `db:"code" json:"code"`
	ParentID *uuid.UUID `db:"parent_id" json:"parent_id,omitempty"`
}

type CreateCategoryRequest struct {
	Name     string `json:"name" binding:"required"`
	Code     string `json:"code" binding:"required"`
	ParentID string `json:"parent_id" binding:"omitempty,uuid"`
}

type UpdateCategoryRequest struct {
	Name     *string `json:"name"`
	ParentID *string `json:"parent_id" binding:"omitempty,uuid"`
}

type Supplier struct {
	Base
	Name          string `db:"name" json:"name"`
	Code          string `db:"code" json:"code"`
	ContactPerson string `db:"contact_person" json:"contact_person"`
	Phone         string `db:"phone" json:"phone"`
	Email         string `db:"email" json:"email"`
	Address       string `db:"address" json:"address"`
	IsActive      bool   `db:"is_active" json:"is_active"`
}

type CreateSupplierRequest struct {
	Name          string `json:"name" binding:"required"`
	Code          string `json:"code" binding:"required"`
	ContactPerson string `json:"contact_person"`
	Phone         string `json:"phone"`
	Email         string `json:"email" binding:"omitempty,email"`
	Address       string `json:"address"`
}

type UpdateSupplierRequest struct {
	Name          *string `json:"name"`
	ContactPerson *string `json:"contact_person"`
	Phone         *string `json:"phone"`
	Email         *string `json:"email" binding:"omitempty,email"`
	Address       *string `json:"address"`
	IsActive      *bool   `json:"is_active"`
}

type MedicineType string

const (
	MedicineTypeHerb        MedicineType = "herb"
	MedicineTypeConcentrate MedicineType = "concentrate"
	MedicineTypeWestern     MedicineType = "western"
	MedicineTypeSupplement  MedicineType = "supplement"
	MedicineTypeOther       MedicineType = "other"
)

type Medicine struct {
	Base
	Code              string       `db:"code" json:"code"`
	Name              string       `db:"name" json:"name"`
	EnglishName       string       `db:"english_name" json:"english_name"`
	Pinyin            string       `db:"pinyin" json:"pinyin"`
	MedicineType      MedicineType `db:"medicine_type" json:"medicine_type"`
	CategoryID        *uuid.UUID   `db:"category_id" json:"category_id,omitempty"`
	Specification     string       `db:"specification" json:"specification"`
	Unit              string       `db:"unit" json:"unit"`
	PackageUnit       string       `db:"package_unit" json:"package_unit"`
	PackageSize       float64      `db:"package_size" json:"package_size"`
	Brand             string       `db:"brand" json:"brand"`
	SupplierID        *uuid.UUID   `db:"supplier_id" json:"supplier_id,omitempty"`
	CostPrice         float64      `db:"cost_price" json:"cost_price"`
	SellingPrice      float64      `db:"selling_price" json:"selling_price"`
	SafetyStock       float64      `db:"safety_stock" json:"safety_stock"`
	Efficacy          string       `db:"efficacy" json:"efficacy"`
	Indications       string       `db:"indications" json:"indications"`
	Contraindications string       `db:"contraindications" json:"contraindications"`
	ExternalSKU       string       `db:"external_sku" json:"external_sku"`
	IsActive          bool         `db:"is_active" json:"is_active"`

	StockQuantity *float64 `db:"stock_quantity" json:"stock_quantity,omitempty"`
}

type CreateMedicineRequest struct {
	Code              string  `json:"code" binding:"required"`
	Name              string  `json:"name" binding:"required"`
	EnglishName       string  `json:"english_name"`
	Pinyin            string  `json:"pinyin"`
	MedicineType      string  `json:"medicine_type" binding:"required,oneof=herb concentrate western supplement other"`
	CategoryID        string  `json:"category_id" binding:"omitempty,uuid"`
	Specification     string  `json:"specification"`
	Unit              string  `json:"unit"`
	PackageUnit       string  `json:"package_unit"`
	PackageSize       float64 `json:"package_size" binding:"omitempty,gt=0"`
	Brand             string  `json:"brand"`
	SupplierID        string  `json:"supplier_id" binding:"omitempty,uuid"`
	CostPrice         float64 `json:"cost_price" binding:"min=0"`
	SellingPrice      float64 `json:"selling_price" binding:"min=0"`
	SafetyStock       float64 `json:"safety_stock" binding:"min=0"`
	Efficacy          string  `json:"efficacy"`
	Indications       string  `json:"indications"`
	Contraindications string  `json:"contraindications"`
	ExternalSKU       string  `json:"external_sku"`
}

type UpdateMedicineRequest struct {
	Name              *string  `json:"name"`
	EnglishName       *string  `json:"english_name"`
	Pinyin            *string  `json:"pinyin"`
	CategoryID        *string  `json:"category_id" binding:"omitempty,uuid"`
	Specification     *string  `json:"specification"`
	Unit              *string  `json:"unit"`
	PackageUnit       *string  `json:"package_unit"`
	PackageSize       *float64 `json:"package_size" binding:"omitempty,gt=0"`
	Brand             *string  `json:"brand"`
	SupplierID        *string  `json:"supplier_id" binding:"omitempty,uuid"`
	CostPrice         *float64 `json:"cost_price" binding:"omitempty,min=0"`
	SellingPrice      *float64 `json:"selling_price" binding:"omitempty,min=0"`
	SafetyStock       *float64 `json:"safety_stock" binding:"omitempty,min=0"`
	Efficacy          *string  `json:"efficacy"`
	Indications       *string  `json:"indications"`
	Contraindications *string  `json:"contraindications"`
	ExternalSKU       *string  `json:"external_sku"`
	IsActive          *bool    `json:"is_active"`
}

type MedicineFilter struct {
	Pagination
	Query        string `form:"q"`
	MedicineType string `form:"medicine_type"`
	CategoryID   string `form:"category_id"`
	IsActive     *bool  `form:"is_active"`
}

// StockLevel is the single current-quantity row per medicine.
type StockLevel struct {
	ID          uuid.UUID `db:"id" json:"id"`
	MedicineID  uuid.UUID `db:"medicine_id" json:"medicine_id"`
	Quantity    float64   `db:"quantity" json:"quantity"`
	LastUpdated time.Time `db:"last_updated" json:"last_updated"`

	MedicineCode string  `db:"medicine_code" json:"medicine_code,omitempty"`
	MedicineName string  `db:"medicine_name" json:"medicine_name,omitempty"`
	Unit         string  `db:"unit" json:"unit,omitempty"`
	SafetyStock  float64 `db:"safety_stock" json:"safety_stock,omitempty"`
}

type AdjustStockRequest struct {
	Quantity float64 `json:"quantity" binding:"min=0"`
	Notes    string  `json:"notes"`
}

type StockTransactionType string

const (
	StockTxnPurchase   StockTransactionType = "purchase"
	StockTxnDispense   StockTransactionType = "dispense"
	StockTxnAdjustment StockTransactionType = "adjustment"
	StockTxnReturn     StockTransactionType = "return"
	StockTxnDamage     StockTransactionType = "damage"
	StockTxnTransfer   StockTransactionType = "transfer"
)

type StockTransaction struct {
	ID              uuid.UUID            `db:"id" json:"id"`
	MedicineID      uuid.UUID            `db:"medicine_id" json:"medicine_id"`
	TransactionType StockTransactionType `db:"transaction_type" json:"transaction_type"`
	Quantity        float64              `db:"quantity" json:"quantity"`
	BeforeQuantity  float64              `db:"before_quantity" json:"before_quantity"`
	AfterQuantity   float64              `db:"after_quantity" json:"after_quantity"`
	UnitCost        *float64             `db:"unit_cost" json:"unit_cost,omitempty"`
	ReferenceNumber string               `db:"reference_number" json:"reference_number"`
	Notes           string               `db:"notes" json:"notes"`
	CreatedBy       *uuid.UUID           `db:"created_by" json:"created_by,omitempty"`
	CreatedAt       time.Time            `db:"created_at" json:"created_at"`

	MedicineCode string `db:"medicine_code" json:"medicine_code,omitempty"`
	MedicineName string `db:"medicine_name" json:"medicine_name,omitempty"`
}

type StockTransactionFilter struct {
	Pagination
	MedicineID      string `form:"medicine_id"`
	TransactionType string `form:"transaction_type"`
	StartDate       string `form:"start_date"`
	EndDate         string `form:"end_date"`
}

type PurchaseOrderStatus string

const (
	PurchaseOrderDraft     PurchaseOrderStatus = "draft"
	PurchaseOrderSubmitted PurchaseOrderStatus = "submitted"
	PurchaseOrderReceived  PurchaseOrderStatus = "received"
	PurchaseOrderCancelled PurchaseOrderStatus = "cancelled"
)

type PurchaseOrder struct {
	Base
	OrderNumber  string              `db:"order_number" json:"order_number"`
	SupplierID   uuid.UUID           `db:"supplier_id" json:"supplier_id"`
	Status       PurchaseOrderStatus `db:"status" json:"status"`
	OrderDate    time.Time           `db:"order_date" json:"order_date"`
	ExpectedDate *time.Time          `db:"expected_date" json:"expected_date,omitempty"`
	ReceivedDate *time.Time          `db:"received_date" json:"received_date,omitempty"`
	TotalAmount  float64             `db:"total_amount" json:"total_amount"`
	Notes        string              `db:"notes" json:"notes"`
	CreatedBy    *uuid.UUID          `db:"created_by" json:"created_by,omitempty"`

	SupplierName string               `db:"supplier_name" json:"supplier_name,omitempty"`
	Items        []*PurchaseOrderItem `json:"items,omitempty"`
}

type PurchaseOrderItem struct {
	Base
	PurchaseOrderID  uuid.UUID `db:"purchase_order_id" json:"purchase_order_id"`
	MedicineID       uuid.UUID `db:"medicine_id" json:"medicine_id"`
	Quantity         float64   `db:"quantity" json:"quantity"`
	UnitPrice        float64   `db:"unit_price" json:"unit_price"`
	Subtotal         float64   `db:"subtotal" json:"subtotal"`
	ReceivedQuantity float64   `db:"received_quantity" json:"received_quantity"`

	MedicineCode string `db:"medicine_code" json:"medicine_code,omitempty"`
	MedicineName string `db:"medicine_name" json:"medicine_name,omitempty"`
}

type PurchaseOrderItemInput struct {
	MedicineID string  `json:"medicine_id" binding:"required,uuid"`
	Quantity   float64 `json:"quantity" binding:"required,gt=0"`
	UnitPrice  float64 `json:"unit_price" binding:"min=0"`
}

type CreatePurchaseOrderRequest struct {
	SupplierID   string                   `json:"supplier_id" binding:"required,uuid"`
	ExpectedDate string                   `json:"expected_date" binding:"omitempty,datetime=2006-01-02"`
	Notes        string                   `json:"notes"`
	Items        []PurchaseOrderItemInput `json:"items" binding:"required,min=1,dive"`
}

type UpdatePurchaseOrderRequest struct {
	ExpectedDate *string                  `json:"expected_date" binding:"omitempty,datetime=2006-01-02"`
	Notes        *string                  `json:"notes"`
	Items        []PurchaseOrderItemInput `json:"items" binding:"omitempty,min=1,dive"`
}

// CompoundFormula maps a compound medicine to one ingredient with its
// ratio. One row per compound+ingredient pair.
type CompoundFormula struct {
	Base
	CompoundID   uuid.UUID `db:"compound_id" json:"compound_id"`
	IngredientID uuid.UUID `db:"ingredient_id" json:"ingredient_id"`
	Ratio        float64   `db:"ratio" json:"ratio"`

	CompoundName   string `db:"compound_name" json:"compound_name,omitempty"`
	IngredientName string `db:"ingredient_name" json:"ingredient_name,omitempty"`
}

type CreateCompoundFormulaRequest struct {
	CompoundID   string  `json:"compound_id" binding:"required,uuid"`
	IngredientID string  `json:"ingredient_id" binding:"required,uuid"`
	Ratio        float64 `json:"ratio" binding:"required,gt=0"`
}

// LowStockReport lists medicines sitting below their safety stock.
type LowStockReport struct {
	Count int           `json:"count"`
	Items []*StockLevel `json:"items"`
}
