package pharmacy

import (
	"context"
	"errors"
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
	"github.com/tcmflow/clinic-api/pkg/metrics"
	"github.com/tcmflow/clinic-api/pkg/security"
)

// Collectors register globally, so the package shares one instance.
var testMetrics = metrics.NewMetrics("clinic", "pharmacytest")

// fakeClient records the last delivery and answers with a canned
// result.
type fakeClient struct {
	result *SendResult
	err    error

	endpoint string
	apiKey   string
	payload  *OrderPayload
	calls    int
}

func (c *fakeClient) SendOrder(_ context.Context, endpoint, apiKey string, payload *OrderPayload) (*SendResult, error) {
	c.calls++
	c.endpoint = endpoint
	c.apiKey = apiKey
	c.payload = payload
	if c.err != nil {
		return nil, c.err
	}
	return c.result, nil
}

type pharmFixture struct {
	svc           *Service
	pharmacies    *repotest.Pharmacies
	orders        *repotest.Orders
	prescriptions *repotest.Prescriptions
	medicines     *repotest.Medicines
	client        *fakeClient
	encryptor     security.Encryptor
	emitter       *repotest.Emitter
}

func newPharmFixture(t *testing.T) *pharmFixture {
	t.Helper()

	encryptor, err := security.NewAESEncryptor("pharmacy-test-secret")
	require.NoError(t, err)

	f := &pharmFixture{
		pharmacies:    &repotest.Pharmacies{},
		orders:        &repotest.Orders{},
		prescriptions: &repotest.Prescriptions{},
		medicines:     &repotest.Medicines{},
		client:        &fakeClient{result: &SendResult{StatusCode: 200, Body: []byte(`{"status":"accepted"}`)}},
		encryptor:     encryptor,
		emitter:       &repotest.Emitter{},
	}
	l := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	f.svc = NewService(f.pharmacies, f.orders, f.prescriptions, f.medicines,
		&repotest.Sequences{}, f.client, f.encryptor, f.emitter, testMetrics,
		audit.NewService(&repotest.Audits{}, l))
	return f
}

func seedPharmacy(t *testing.T, f *pharmFixture) *model.ExternalPharmacy {
	t.Helper()

	pharmacy, err := f.svc.CreatePharmacy(context.Background(), &model.CreatePharmacyRequest{
		Name:          "康和堂煎藥中心",
		PharmacyType:  "decoction",
		Phone:         "2345 6789",
		ProcessingFee: 30,
		DeliveryFee:   50,
		APIEndpoint:   "https://partner.example.com/api",
		APIKey:        "sk-live-123",
		WebhookAPIKey: "wh-secret-456",
	})
	require.NoError(t, err)
	return pharmacy
}

// seedPrescription stores a two-item prescription. The first medicine
// carries a partner SKU, the second falls back to its own code.
func seedPrescription(f *pharmFixture) *model.Prescription {
	gancao := &model.Medicine{
		Base: model.Base{ID: uuid.New()},
		Code: "GC001", Name: "甘草", Unit: "g", ExternalSKU: "PTN-GC-01", IsActive: true,
	}
	huangqi := &model.Medicine{
		Base: model.Base{ID: uuid.New()},
		Code: "HQ001", Name: "黃芪", Unit: "g", IsActive: true,
	}
	f.medicines.Items = append(f.medicines.Items, gancao, huangqi)

	p := &model.Prescription{
		Base:               model.Base{ID: uuid.New()},
		ConsultationID:     uuid.New(),
		PrescriptionNumber: "RX202608250001",
		TotalDoses:         5,
		DispensingMethod:   model.DispensingExternalDecoction,
		MedicineFee:        180,
		Items: []*model.PrescriptionItem{
			{MedicineID: gancao.ID, Dosage: 6, Unit: "g"},
			{MedicineID: huangqi.ID, Dosage: 10, Unit: "g"},
		},
	}
	f.prescriptions.Items = append(f.prescriptions.Items, p)
	return p
}

func createOrder(t *testing.T, f *pharmFixture, prescription *model.Prescription, pharmacy *model.ExternalPharmacy) *model.DispensingOrder {
	t.Helper()

	order, err := f.svc.CreateOrder(context.Background(), nil, &model.CreateDispensingOrderRequest{
		PrescriptionID:  prescription.ID.String(),
		PharmacyID:      pharmacy.ID.String(),
		RecipientName:   "陳大文",
		RecipientPhone:  "9123 4567",
		DeliveryAddress: "九龍旺角道1號",
	})
	require.NoError(t, err)
	return order
}

func assertBadRequest(t *testing.T, err error, message string) {
	t.Helper()

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok, "expected an application error, got %v", err)
	assert.Equal(t, apperrors.ErrBadRequest, appErr.Code)
	assert.Equal(t, message, appErr.Message)
}

func assertForbidden(t *testing.T, err error) {
	t.Helper()

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok, "expected an application error, got %v", err)
	assert.Equal(t, apperrors.ErrForbidden, appErr.Code)
	assert.Equal(t, "invalid api key", appErr.Message)
}

func TestCreatePharmacy_EncryptsKeys(t *testing.T) {
	f := newPharmFixture(t)
	pharmacy := seedPharmacy(t, f)

	assert.True(t, pharmacy.IsActive)
	assert.NotEqual(t, "sk-live-123", pharmacy.APIKey)
	assert.NotEqual(t, "wh-secret-456", pharmacy.WebhookAPIKey)

	apiKey, err := f.encryptor.DecryptString(pharmacy.APIKey)
	require.NoError(t, err)
	assert.Equal(t, "sk-live-123", apiKey)
}

func TestCreateOrder(t *testing.T) {
	f := newPharmFixture(t)
	pharmacy := seedPharmacy(t, f)
	prescription := seedPrescription(f)

	order := createOrder(t, f, prescription, pharmacy)

	assert.Equal(t, model.DispensingStatusPending, order.Status)
	assert.Equal(t, 180.0, order.MedicineFee)
	assert.Equal(t, 30.0, order.ProcessingFee)
	assert.Equal(t, 50.0, order.DeliveryFee)
	assert.Equal(t, 260.0, order.TotalAmount)
	assert.NotEmpty(t, order.ClientOrderID)
	assert.Equal(t, "DO"+time.Now().Format("20060102")+"0001", order.OrderNumber)
}

func TestCreateOrder_InactivePharmacy(t *testing.T) {
	f := newPharmFixture(t)
	pharmacy := seedPharmacy(t, f)
	prescription := seedPrescription(f)
	pharmacy.IsActive = false

	_, err := f.svc.CreateOrder(context.Background(), nil, &model.CreateDispensingOrderRequest{
		PrescriptionID: prescription.ID.String(),
		PharmacyID:     pharmacy.ID.String(),
	})
	assertBadRequest(t, err, "pharmacy is inactive")
}

func TestSendOrder(t *testing.T) {
	f := newPharmFixture(t)
	pharmacy := seedPharmacy(t, f)
	prescription := seedPrescription(f)
	order := createOrder(t, f, prescription, pharmacy)

	sent, err := f.svc.SendOrder(context.Background(), nil, order.ID)
	require.NoError(t, err)

	assert.Equal(t, model.DispensingStatusSent, sent.Status)
	require.NotNil(t, sent.SentAt)
	assert.Empty(t, sent.ErrorMessage)
	assert.JSONEq(t, `{"status":"accepted"}`, string(sent.APIResponse))
	assert.Equal(t, []string{"dispensing_order.sent"}, f.emitter.Events)

	// The partner call carries the decrypted key and the priced payload.
	assert.Equal(t, "https://partner.example.com/api", f.client.endpoint)
	assert.Equal(t, "sk-live-123", f.client.apiKey)
	require.NotNil(t, f.client.payload)
	assert.Equal(t, order.ClientOrderID, f.client.payload.ClientOrderID)
	assert.Equal(t, "陳大文", f.client.payload.Recipient.Name)
	assert.Equal(t, 5, f.client.payload.Doses)
	require.Len(t, f.client.payload.Items, 2)
	assert.Equal(t, "PTN-GC-01", f.client.payload.Items[0].SKU)
	assert.Equal(t, 30.0, f.client.payload.Items[0].Quantity)
	assert.Equal(t, "HQ001", f.client.payload.Items[1].SKU)
	assert.Equal(t, 50.0, f.client.payload.Items[1].Quantity)
}

func TestSendOrder_PartnerRejection(t *testing.T) {
	f := newPharmFixture(t)
	pharmacy := seedPharmacy(t, f)
	prescription := seedPrescription(f)
	order := createOrder(t, f, prescription, pharmacy)
	f.client.result = &SendResult{StatusCode: 422, Body: []byte("unknown sku PTN-GC-01")}

	sent, err := f.svc.SendOrder(context.Background(), nil, order.ID)
	require.NoError(t, err)

	assert.Equal(t, model.DispensingStatusFailed, sent.Status)
	assert.Equal(t, "unknown sku PTN-GC-01", sent.ErrorMessage)
	assert.Nil(t, sent.SentAt)
	assert.Empty(t, f.emitter.Events)
}

func TestSendOrder_TransportError(t *testing.T) {
	f := newPharmFixture(t)
	pharmacy := seedPharmacy(t, f)
	prescription := seedPrescription(f)
	order := createOrder(t, f, prescription, pharmacy)
	f.client.err = errors.New("connection refused")

	sent, err := f.svc.SendOrder(context.Background(), nil, order.ID)
	require.NoError(t, err)

	assert.Equal(t, model.DispensingStatusFailed, sent.Status)
	assert.Equal(t, "connection refused", sent.ErrorMessage)
	assert.Empty(t, f.emitter.Events)

	// The failure is terminal for this order.
	_, err = f.svc.SendOrder(context.Background(), nil, order.ID)
	assertBadRequest(t, err, "only pending orders can be sent")
}

func TestSendOrder_RequiresEndpoint(t *testing.T) {
	f := newPharmFixture(t)
	pharmacy, err := f.svc.CreatePharmacy(context.Background(), &model.CreatePharmacyRequest{
		Name: "手寫藥房", PharmacyType: "decoction",
	})
	require.NoError(t, err)
	prescription := seedPrescription(f)
	order := createOrder(t, f, prescription, pharmacy)

	_, err = f.svc.SendOrder(context.Background(), nil, order.ID)
	assertBadRequest(t, err, "pharmacy has no API endpoint configured")
	assert.Zero(t, f.client.calls)
}

func TestUpdateOrder_OnlyPending(t *testing.T) {
	f := newPharmFixture(t)
	pharmacy := seedPharmacy(t, f)
	prescription := seedPrescription(f)
	order := createOrder(t, f, prescription, pharmacy)

	name := "陳小文"
	updated, err := f.svc.UpdateOrder(context.Background(), order.ID, &model.UpdateDispensingOrderRequest{RecipientName: &name})
	require.NoError(t, err)
	assert.Equal(t, "陳小文", updated.RecipientName)

	_, err = f.svc.SendOrder(context.Background(), nil, order.ID)
	require.NoError(t, err)

	_, err = f.svc.UpdateOrder(context.Background(), order.ID, &model.UpdateDispensingOrderRequest{RecipientName: &name})
	assertBadRequest(t, err, "only pending orders can be changed")
}

func TestCancelOrder(t *testing.T) {
	f := newPharmFixture(t)
	pharmacy := seedPharmacy(t, f)
	prescription := seedPrescription(f)
	order := createOrder(t, f, prescription, pharmacy)

	cancelled, err := f.svc.CancelOrder(context.Background(), nil, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DispensingStatusCancelled, cancelled.Status)
}

func TestCancelOrder_ShippedGuard(t *testing.T) {
	f := newPharmFixture(t)
	pharmacy := seedPharmacy(t, f)
	prescription := seedPrescription(f)
	order := createOrder(t, f, prescription, pharmacy)
	order.Status = model.DispensingStatusShipped

	_, err := f.svc.CancelOrder(context.Background(), nil, order.ID)
	assertBadRequest(t, err, "shipped or completed orders cannot be cancelled")
}

func TestProcessWebhook_StatusFlow(t *testing.T) {
	f := newPharmFixture(t)
	pharmacy := seedPharmacy(t, f)
	prescription := seedPrescription(f)
	order := createOrder(t, f, prescription, pharmacy)
	_, err := f.svc.SendOrder(context.Background(), nil, order.ID)
	require.NoError(t, err)

	confirmed, err := f.svc.ProcessWebhook(context.Background(), "wh-secret-456", &model.PharmacyWebhookRequest{
		ClientOrderID: order.ClientOrderID,
		EventType:     "order_confirmed",
	})
	require.NoError(t, err)
	assert.Equal(t, model.DispensingStatusConfirmed, confirmed.Status)

	shipped, err := f.svc.ProcessWebhook(context.Background(), "wh-secret-456", &model.PharmacyWebhookRequest{
		ClientOrderID:   order.ClientOrderID,
		EventType:       "shipped",
		TrackingCompany: "順豐速運",
		TrackingNumber:  "SF1234567890",
	})
	require.NoError(t, err)
	assert.Equal(t, model.DispensingStatusShipped, shipped.Status)
	assert.Equal(t, "順豐速運", shipped.TrackingCompany)
	assert.Equal(t, "SF1234567890", shipped.TrackingNumber)

	delivered, err := f.svc.ProcessWebhook(context.Background(), "wh-secret-456", &model.PharmacyWebhookRequest{
		ClientOrderID: order.ClientOrderID,
		EventType:     "delivered",
	})
	require.NoError(t, err)
	assert.Equal(t, model.DispensingStatusCompleted, delivered.Status)
	assert.NotNil(t, delivered.CompletedAt)

	// One send event plus one status event per webhook.
	assert.Equal(t, []string{
		"dispensing_order.sent",
		"dispensing_order.status_changed",
		"dispensing_order.status_changed",
		"dispensing_order.status_changed",
	}, f.emitter.Events)
}

func TestProcessWebhook_RejectsBadKey(t *testing.T) {
	f := newPharmFixture(t)
	pharmacy := seedPharmacy(t, f)
	prescription := seedPrescription(f)
	order := createOrder(t, f, prescription, pharmacy)

	_, err := f.svc.ProcessWebhook(context.Background(), "wrong-key", &model.PharmacyWebhookRequest{
		ClientOrderID: order.ClientOrderID,
		EventType:     "order_confirmed",
	})
	assertForbidden(t, err)
}

func TestProcessWebhook_NoKeyConfigured(t *testing.T) {
	f := newPharmFixture(t)
	pharmacy, err := f.svc.CreatePharmacy(context.Background(), &model.CreatePharmacyRequest{
		Name: "手寫藥房", PharmacyType: "decoction", APIEndpoint: "https://partner.example.com/api", APIKey: "sk-1",
	})
	require.NoError(t, err)
	prescription := seedPrescription(f)
	order := createOrder(t, f, prescription, pharmacy)

	_, err = f.svc.ProcessWebhook(context.Background(), "", &model.PharmacyWebhookRequest{
		ClientOrderID: order.ClientOrderID,
		EventType:     "order_confirmed",
	})
	assertForbidden(t, err)
}

func TestProcessWebhook_UnknownEventType(t *testing.T) {
	f := newPharmFixture(t)
	pharmacy := seedPharmacy(t, f)
	prescription := seedPrescription(f)
	order := createOrder(t, f, prescription, pharmacy)

	_, err := f.svc.ProcessWebhook(context.Background(), "wh-secret-456", &model.PharmacyWebhookRequest{
		ClientOrderID: order.ClientOrderID,
		EventType:     "lost_in_transit",
	})
	assertBadRequest(t, err, "unknown event type")
}

func TestProcessWebhook_UnknownOrder(t *testing.T) {
	f := newPharmFixture(t)

	_, err := f.svc.ProcessWebhook(context.Background(), "wh-secret-456", &model.PharmacyWebhookRequest{
		ClientOrderID: "NO-SUCH-ORDER",
		EventType:     "order_confirmed",
	})
	assert.True(t, apperrors.IsNotFound(err))
}
