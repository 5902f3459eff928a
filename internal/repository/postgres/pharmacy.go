package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tcmflow/clinic-api/internal/model"
	"github.com/tcmflow/clinic-api/internal/repository"
)

type pharmacyRepository struct {
	BaseRepository
}

func NewPharmacyRepository(base BaseRepository) repository.PharmacyRepository {
	return &pharmacyRepository{base}
}

func (r *pharmacyRepository) Create(ctx context.Context, pharmacy *model.ExternalPharmacy) error {
	query := `
		INSERT INTO external_pharmacies (
			id, name, pharmacy_type, contact_person, phone, email, address,
			processing_fee, delivery_fee, api_endpoint, api_key, webhook_api_key,
			is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	pharmacy.ID = uuid.New()
	pharmacy.CreatedAt = time.Now()
	pharmacy.UpdatedAt = pharmacy.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		pharmacy.ID,
		pharmacy.Name,
		pharmacy.PharmacyType,
		pharmacy.ContactPerson,
		pharmacy.Phone,
		pharmacy.Email,
		pharmacy.Address,
		pharmacy.ProcessingFee,
		pharmacy.DeliveryFee,
		pharmacy.APIEndpoint,
		pharmacy.APIKey,
		pharmacy.WebhookAPIKey,
		pharmacy.IsActive,
		pharmacy.CreatedAt,
		pharmacy.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create pharmacy: %w", err)
	}
	return nil
}

func (r *pharmacyRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExternalPharmacy, error) {
	var pharmacy model.ExternalPharmacy
	err := r.db.GetContext(ctx, &pharmacy, `SELECT * FROM external_pharmacies WHERE id = $1`, id)
	if err != nil {
		return nil, notFound(err, "pharmacy")
	}
	return &pharmacy, nil
}

func (r *pharmacyRepository) List(ctx context.Context, activeOnly bool) ([]*model.ExternalPharmacy, error) {
	var pharmacies []*model.ExternalPharmacy
	query := `SELECT * FROM external_pharmacies WHERE ($1 = false OR is_active = true) ORDER BY name`
	if err := r.db.SelectContext(ctx, &pharmacies, query, activeOnly); err != nil {
		return nil, fmt.Errorf("failed to list pharmacies: %w", err)
	}
	return pharmacies, nil
}

func (r *pharmacyRepository) Update(ctx context.Context, pharmacy *model.ExternalPharmacy) error {
	query := `
		UPDATE external_pharmacies SET
			name = $1, pharmacy_type = $2, contact_person = $3, phone = $4,
			email = $5, address = $6, processing_fee = $7, delivery_fee = $8,
			api_endpoint = $9, api_key = $10, webhook_api_key = $11,
			is_active = $12, updated_at = $13
		WHERE id = $14
	`
	pharmacy.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		pharmacy.Name,
		pharmacy.PharmacyType,
		pharmacy.ContactPerson,
		pharmacy.Phone,
		pharmacy.Email,
		pharmacy.Address,
		pharmacy.ProcessingFee,
		pharmacy.DeliveryFee,
		pharmacy.APIEndpoint,
		pharmacy.APIKey,
		pharmacy.WebhookAPIKey,
		pharmacy.IsActive,
		pharmacy.UpdatedAt,
		pharmacy.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update pharmacy: %w", err)
	}
	return nil
}

func (r *pharmacyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE external_pharmacies SET is_active = false, updated_at = $1 WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, query, time.Now(), id); err != nil {
		return fmt.Errorf("failed to deactivate pharmacy: %w", err)
	}
	return nil
}

type dispensingOrderRepository struct {
	BaseRepository
}

func NewDispensingOrderRepository(base BaseRepository) repository.DispensingOrderRepository {
	return &dispensingOrderRepository{base}
}

func (r *dispensingOrderRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, order *model.DispensingOrder) error {
	query := `
		INSERT INTO dispensing_orders (
			id, prescription_id, pharmacy_id, order_number, client_order_id,
			status, medicine_fee, processing_fee, delivery_fee, total_amount,
			recipient_name, recipient_phone, delivery_address,
			tracking_company, tracking_number, api_response, error_message,
			notes, sent_at, completed_at, created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
	`
	order.ID = uuid.New()
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt

	_, err := tx.ExecContext(ctx, query,
		order.ID,
		order.PrescriptionID,
		order.PharmacyID,
		order.OrderNumber,
		order.ClientOrderID,
		order.Status,
		order.MedicineFee,
		order.ProcessingFee,
		order.DeliveryFee,
		order.TotalAmount,
		order.RecipientName,
		order.RecipientPhone,
		order.DeliveryAddress,
		order.TrackingCompany,
		order.TrackingNumber,
		order.APIResponse,
		order.ErrorMessage,
		order.Notes,
		order.SentAt,
		order.CompletedAt,
		order.CreatedBy,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create dispensing order: %w", err)
	}
	return nil
}

const dispensingSelect = `
	SELECT o.*, ph.name AS pharmacy_name, pr.prescription_number
	FROM dispensing_orders o
	JOIN external_pharmacies ph ON ph.id = o.pharmacy_id
	JOIN prescriptions pr ON pr.id = o.prescription_id
`

func (r *dispensingOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.DispensingOrder, error) {
	var order model.DispensingOrder
	err := r.db.GetContext(ctx, &order, dispensingSelect+` WHERE o.id = $1`, id)
	if err != nil {
		return nil, notFound(err, "dispensing order")
	}
	return &order, nil
}

func (r *dispensingOrderRepository) GetByClientOrderID(ctx context.Context, clientOrderID string) (*model.DispensingOrder, error) {
	var order model.DispensingOrder
	err := r.db.GetContext(ctx, &order, dispensingSelect+` WHERE o.client_order_id = $1`, clientOrderID)
	if err != nil {
		return nil, notFound(err, "dispensing order")
	}
	return &order, nil
}

func (r *dispensingOrderRepository) List(ctx context.Context, filter *model.DispensingOrderFilter) ([]*model.DispensingOrder, int, error) {
	where := ` WHERE ($1 = '' OR o.pharmacy_id = $1::uuid)
		AND ($2 = '' OR o.status = $2)
		AND ($3 = '' OR o.created_at >= $3::date)
		AND ($4 = '' OR o.created_at < $4::date + INTERVAL '1 day')`

	var total int
	countQuery := `SELECT COUNT(*) FROM dispensing_orders o` + where
	if err := r.db.GetContext(ctx, &total, countQuery,
		filter.PharmacyID, filter.Status, filter.StartDate, filter.EndDate); err != nil {
		return nil, 0, fmt.Errorf("failed to count dispensing orders: %w", err)
	}

	query := dispensingSelect + where + ` ORDER BY o.created_at DESC LIMIT $5 OFFSET $6`
	var orders []*model.DispensingOrder
	err := r.db.SelectContext(ctx, &orders, query,
		filter.PharmacyID, filter.Status, filter.StartDate, filter.EndDate,
		filter.PageSize, filter.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list dispensing orders: %w", err)
	}
	return orders, total, nil
}

func (r *dispensingOrderRepository) Update(ctx context.Context, order *model.DispensingOrder) error {
	return r.update(ctx, r.db, order)
}

func (r *dispensingOrderRepository) UpdateTx(ctx context.Context, tx *sqlx.Tx, order *model.DispensingOrder) error {
	return r.update(ctx, tx, order)
}

func (r *dispensingOrderRepository) update(ctx context.Context, ec sqlx.ExecerContext, order *model.DispensingOrder) error {
	query := `
		UPDATE dispensing_orders SET
			status = $1, medicine_fee = $2, processing_fee = $3, delivery_fee = $4,
			total_amount = $5, recipient_name = $6, recipient_phone = $7,
			delivery_address = $8, tracking_company = $9, tracking_number = $10,
			api_response = $11, error_message = $12, notes = $13, sent_at = $14,
			completed_at = $15, updated_at = $16
		WHERE id = $17
	`
	order.UpdatedAt = time.Now()
	_, err := ec.ExecContext(ctx, query,
		order.Status,
		order.MedicineFee,
		order.ProcessingFee,
		order.DeliveryFee,
		order.TotalAmount,
		order.RecipientName,
		order.RecipientPhone,
		order.DeliveryAddress,
		order.TrackingCompany,
		order.TrackingNumber,
		order.APIResponse,
		order.ErrorMessage,
		order.Notes,
		order.SentAt,
		order.CompletedAt,
		order.UpdatedAt,
		order.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update dispensing order: %w", err)
	}
	return nil
}
