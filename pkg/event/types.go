package event

// Event types published through the outbox. Channel names are derived
// from these by the outbox processor.
const (
	TypePatientCreated        = "patient.created"
	TypeRegistrationCreated   = "registration.created"
	TypeRegistrationCompleted = "registration.completed"
	TypeBillCreated           = "bill.created"
	TypeBillPaid              = "bill.paid"
	TypeBillRefunded          = "bill.refunded"
	TypePrescriptionDispensed = "prescription.dispensed"

	TypeDispensingOrderSent          = "dispensing_order.sent"
	TypeDispensingOrderStatusChanged = "dispensing_order.status_changed"

	TypePurchaseReceived = "purchase_order.received"
)
