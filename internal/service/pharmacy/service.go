package pharmacy

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tcmflow/clinic-api/internal/model"
	"github.com/tcmflow/clinic-api/internal/repository"
	"github.com/tcmflow/clinic-api/internal/service/audit"
	apperrors "github.com/tcmflow/clinic-api/pkg/errors"
	"github.com/tcmflow/clinic-api/pkg/event"
	"github.com/tcmflow/clinic-api/pkg/metrics"
	"github.com/tcmflow/clinic-api/pkg/security"
)

type Service struct {
	repo             repository.PharmacyRepository
	orderRepo        repository.DispensingOrderRepository
	prescriptionRepo repository.PrescriptionRepository
	medicineRepo     repository.MedicineRepository
	seqRepo          repository.SequenceRepository
	client           Client
	encryptor        security.Encryptor
	emitter          event.Emitter
	metrics          *metrics.Metrics
	auditor          *audit.Service
}

func NewService(repo repository.PharmacyRepository, orderRepo repository.DispensingOrderRepository,
	prescriptionRepo repository.PrescriptionRepository, medicineRepo repository.MedicineRepository,
	seqRepo repository.SequenceRepository, client Client, encryptor security.Encryptor,
	emitter event.Emitter, m *metrics.Metrics, auditor *audit.Service) *Service {
	return &Service{
		repo:             repo,
		orderRepo:        orderRepo,
		prescriptionRepo: prescriptionRepo,
		medicineRepo:     medicineRepo,
		seqRepo:          seqRepo,
		client:           client,
		encryptor:        encryptor,
		emitter:          emitter,
		metrics:          m,
		auditor:          auditor,
	}
}

func (s *Service) CreatePharmacy(ctx context.Context, req *model.CreatePharmacyRequest) (*model.ExternalPharmacy, error) {
	pharmacy := &model.ExternalPharmacy{
		Name:          req.Name,
		PharmacyType:  model.PharmacyType(req.PharmacyType),
		ContactPerson: req.ContactPerson,
		Phone:         req.Phone,
		Email:         req.Email,
		Address:       req.Address,
		ProcessingFee: req.ProcessingFee,
		DeliveryFee:   req.DeliveryFee,
		APIEndpoint:   req.APIEndpoint,
		IsActive:      true,
	}

	var err error
	if req.APIKey != "" {
		pharmacy.APIKey, err = s.encryptor.EncryptString(req.APIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt api key: %w", err)
		}
	}
	if req.WebhookAPIKey != "" {
		pharmacy.WebhookAPIKey, err = s.encryptor.EncryptString(req.WebhookAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt webhook api key: %w", err)
		}
	}

	if err := s.repo.Create(ctx, pharmacy); err != nil {
		return nil, fmt.Errorf("failed to create pharmacy: %w", err)
	}
	return pharmacy, nil
}

func (s *Service) GetPharmacy(ctx context.Context, id uuid.UUID) (*model.ExternalPharmacy, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListPharmacies(ctx context.Context, activeOnly bool) ([]*model.ExternalPharmacy, error) {
	return s.repo.List(ctx, activeOnly)
}

func (s *Service) UpdatePharmacy(ctx context.Context, id uuid.UUID, req *model.UpdatePharmacyRequest) (*model.ExternalPharmacy, error) {
	pharmacy, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		pharmacy.Name = *req.Name
	}
	if req.ContactPerson != nil {
		pharmacy.ContactPerson = *req.ContactPerson
	}
	if req.Phone != nil {
		pharmacy.Phone = *req.Phone
	}
	if req.Email != nil {
		pharmacy.Email = *req.Email
	}
	if req.Address != nil {
		pharmacy.Address = *req.Address
	}
	if req.ProcessingFee != nil {
		pharmacy.ProcessingFee = *req.ProcessingFee
	}
	if req.DeliveryFee != nil {
		pharmacy.DeliveryFee = *req.DeliveryFee
	}
	if req.APIEndpoint != nil {
		pharmacy.APIEndpoint = *req.APIEndpoint
	}
	if req.APIKey != nil {
		pharmacy.APIKey, err = s.encryptor.EncryptString(*req.APIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt api key: %w", err)
		}
	}
	if req.WebhookAPIKey != nil {
		pharmacy.WebhookAPIKey, err = s.encryptor.EncryptString(*req.WebhookAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt webhook api key: %w", err)
		}
	}
	if req.IsActive != nil {
		pharmacy.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, pharmacy); err != nil {
		return nil, fmt.Errorf("failed to update pharmacy: %w", err)
	}
	return pharmacy, nil
}

func (s *Service) DeletePharmacy(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// CreateOrder prices a dispensing order from the prescription's
// medicine fee plus the pharmacy's processing and delivery fees.
func (s *Service) CreateOrder(ctx context.Context, actorID *uuid.UUID, req *model.CreateDispensingOrderRequest) (*model.DispensingOrder, error) {
	prescriptionID, err := uuid.Parse(req.PrescriptionID)
	if err != nil {
		return nil, apperrors.BadRequest("invalid prescription id", err)
	}
	pharmacyID, err := uuid.Parse(req.PharmacyID)
	if err != nil {
		return nil, apperrors.BadRequest("invalid pharmacy id", err)
	}

	prescription, err := s.prescriptionRepo.GetByID(ctx, prescriptionID)
	if err != nil {
		return nil, err
	}
	pharmacy, err := s.repo.GetByID(ctx, pharmacyID)
	if err != nil {
		return nil, err
	}
	if !pharmacy.IsActive {
		return nil, apperrors.BadRequest("pharmacy is inactive", nil)
	}

	now := time.Now()
	order := &model.DispensingOrder{
		PrescriptionID:  prescription.ID,
		PharmacyID:      pharmacy.ID,
		ClientOrderID:   model.NewClientOrderID(),
		Status:          model.DispensingStatusPending,
		MedicineFee:     prescription.MedicineFee,
		ProcessingFee:   pharmacy.ProcessingFee,
		DeliveryFee:     pharmacy.DeliveryFee,
		TotalAmount:     prescription.MedicineFee + pharmacy.ProcessingFee + pharmacy.DeliveryFee,
		RecipientName:   req.RecipientName,
		RecipientPhone:  req.RecipientPhone,
		DeliveryAddress: req.DeliveryAddress,
		Notes:           req.Notes,
		CreatedBy:       actorID,
	}

	err = s.orderRepo.WithTx(ctx, func(tx *sqlx.Tx) error {
		seq, err := s.seqRepo.NextTx(ctx, tx, model.DateScope(model.SeqDispensing, now))
		if err != nil {
			return fmt.Errorf("failed to allocate order number: %w", err)
		}
		order.OrderNumber = model.FormatDateNumber("DO", now, seq)
		return s.orderRepo.CreateTx(ctx, tx, order)
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Log(ctx, actorID, model.AuditActionCreate, "dispensing_order", &order.ID,
		&audit.LogOptions{After: order})
	return order, nil
}

func (s *Service) GetOrder(ctx context.Context, id uuid.UUID) (*model.DispensingOrder, error) {
	return s.orderRepo.GetByID(ctx, id)
}

func (s *Service) ListOrders(ctx context.Context, filter *model.DispensingOrderFilter) ([]*model.DispensingOrder, int, error) {
	filter.Normalize()
	return s.orderRepo.List(ctx, filter)
}

func (s *Service) UpdateOrder(ctx context.Context, id uuid.UUID, req *model.UpdateDispensingOrderRequest) (*model.DispensingOrder, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status != model.DispensingStatusPending {
		return nil, apperrors.BadRequest("only pending orders can be changed", nil)
	}

	if req.RecipientName != nil {
		order.RecipientName = *req.RecipientName
	}
	if req.RecipientPhone != nil {
		order.RecipientPhone = *req.RecipientPhone
	}
	if req.DeliveryAddress != nil {
		order.DeliveryAddress = *req.DeliveryAddress
	}
	if req.Notes != nil {
		order.Notes = *req.Notes
	}

	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to update dispensing order: %w", err)
	}
	return order, nil
}

// SendOrder delivers a pending order to its pharmacy. The order lands
// in sent or failed depending on the partner's answer, and the raw
// response is kept for troubleshooting.
func (s *Service) SendOrder(ctx context.Context, actorID *uuid.UUID, id uuid.UUID) (*model.DispensingOrder, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status != model.DispensingStatusPending {
		return nil, apperrors.BadRequest("only pending orders can be sent", nil)
	}

	pharmacy, err := s.repo.GetByID(ctx, order.PharmacyID)
	if err != nil {
		return nil, err
	}
	if pharmacy.APIEndpoint == "" || pharmacy.APIKey == "" {
		return nil, apperrors.BadRequest("pharmacy has no API endpoint configured", nil)
	}
	apiKey, err := s.encryptor.DecryptString(pharmacy.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt api key: %w", err)
	}

	payload, err := s.buildPayload(ctx, order)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, sendErr := s.client.SendOrder(ctx, pharmacy.APIEndpoint, apiKey, payload)
	s.metrics.DispensingSendLatency.Observe(time.Since(start).Seconds())

	now := time.Now()
	sent := false
	switch {
	case sendErr != nil:
		order.Status = model.DispensingStatusFailed
		order.ErrorMessage = sendErr.Error()
	case result.StatusCode == 200:
		order.Status = model.DispensingStatusSent
		order.SentAt = &now
		order.ErrorMessage = ""
		if json.Valid(result.Body) {
			order.APIResponse = result.Body
		}
		sent = true
	default:
		order.Status = model.DispensingStatusFailed
		order.ErrorMessage = string(result.Body)
		if json.Valid(result.Body) {
			order.APIResponse = result.Body
		}
	}
	s.metrics.DispensingSendTotal.WithLabelValues(string(order.Status)).Inc()

	err = s.orderRepo.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.orderRepo.UpdateTx(ctx, tx, order); err != nil {
			return err
		}
		if !sent {
			return nil
		}
		return s.emitter.EmitTx(ctx, tx, event.TypeDispensingOrderSent, map[string]interface{}{
			"order_id":        order.ID,
			"order_number":    order.OrderNumber,
			"client_order_id": order.ClientOrderID,
			"pharmacy_id":     order.PharmacyID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Log(ctx, actorID, "send", "dispensing_order", &order.ID, nil)
	return order, nil
}

func (s *Service) buildPayload(ctx context.Context, order *model.DispensingOrder) (*OrderPayload, error) {
	prescription, err := s.prescriptionRepo.GetByID(ctx, order.PrescriptionID)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(prescription.Items))
	for _, item := range prescription.Items {
		ids = append(ids, item.MedicineID)
	}
	medicines, err := s.medicineRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load medicines: %w", err)
	}
	byID := make(map[uuid.UUID]*model.Medicine, len(medicines))
	for _, m := range medicines {
		byID[m.ID] = m
	}

	items := make([]OrderItem, 0, len(prescription.Items))
	for _, item := range prescription.Items {
		medicine, ok := byID[item.MedicineID]
		if !ok {
			return nil, fmt.Errorf("medicine %s missing for prescription %s", item.MedicineID, prescription.ID)
		}
		sku := medicine.ExternalSKU
		if sku == "" {
			sku = medicine.Code
		}
		items = append(items, OrderItem{
			SKU:      sku,
			Name:     medicine.Name,
			Quantity: item.Dosage * float64(prescription.TotalDoses),
			Unit:     item.Unit,
		})
	}

	return &OrderPayload{
		ClientOrderID: order.ClientOrderID,
		Recipient: Recipient{
			Name:    order.RecipientName,
			Phone:   order.RecipientPhone,
			Address: order.DeliveryAddress,
		},
		Items: items,
		Doses: prescription.TotalDoses,
		Notes: order.Notes,
	}, nil
}

func (s *Service) CancelOrder(ctx context.Context, actorID *uuid.UUID, id uuid.UUID) (*model.DispensingOrder, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status == model.DispensingStatusShipped || order.Status == model.DispensingStatusCompleted {
		return nil, apperrors.BadRequest("shipped or completed orders cannot be cancelled", nil)
	}

	order.Status = model.DispensingStatusCancelled
	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to cancel dispensing order: %w", err)
	}

	s.auditor.Log(ctx, actorID, "cancel", "dispensing_order", &order.ID, nil)
	return order, nil
}

// ProcessWebhook applies a partner status callback. The caller is
// authenticated by the webhook key of the order's own pharmacy.
func (s *Service) ProcessWebhook(ctx context.Context, apiKey string, req *model.PharmacyWebhookRequest) (*model.DispensingOrder, error) {
	order, err := s.orderRepo.GetByClientOrderID(ctx, req.ClientOrderID)
	if err != nil {
		return nil, err
	}

	pharmacy, err := s.repo.GetByID(ctx, order.PharmacyID)
	if err != nil {
		return nil, err
	}
	if pharmacy.WebhookAPIKey == "" {
		return nil, apperrors.Forbidden("invalid api key", nil)
	}
	webhookKey, err := s.encryptor.DecryptString(pharmacy.WebhookAPIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt webhook api key: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(apiKey), []byte(webhookKey)) != 1 {
		return nil, apperrors.Forbidden("invalid api key", nil)
	}

	previous := order.Status
	switch req.EventType {
	case "order_confirmed":
		order.Status = model.DispensingStatusConfirmed
	case "processing":
		order.Status = model.DispensingStatusProcessing
	case "shipped":
		order.Status = model.DispensingStatusShipped
		order.TrackingCompany = req.TrackingCompany
		order.TrackingNumber = req.TrackingNumber
	case "delivered":
		now := time.Now()
		order.Status = model.DispensingStatusCompleted
		order.CompletedAt = &now
	default:
		return nil, apperrors.BadRequest("unknown event type", nil)
	}

	err = s.orderRepo.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.orderRepo.UpdateTx(ctx, tx, order); err != nil {
			return err
		}
		return s.emitter.EmitTx(ctx, tx, event.TypeDispensingOrderStatusChanged, map[string]interface{}{
			"order_id":        order.ID,
			"client_order_id": order.ClientOrderID,
			"event_type":      req.EventType,
			"from":            previous,
			"to":              order.Status,
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}
