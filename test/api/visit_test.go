package api_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestVisitFlow walks the front-desk golden path: register a visit,
// run the consultation, close it and settle the auto-drafted bill.
func TestVisitFlow(t *testing.T) {
	requireServer(t)

	patientID := createTestPatient(t)
	doctorID := firstDoctorID(t)

	regResp := makeRequest("POST", "/registrations", map[string]interface{}{
		"patient_id": patientID,
		"doctor_id":  doctorID,
	}, authToken)
	require.True(t, regResp.IsSuccess(), regResp.Message)
	registrationID := regResp.GetString("id")
	require.NotEmpty(t, registrationID)
	assert.Equal(t, "waiting", regResp.GetString("status"))
	t.Cleanup(func() {
		makeRequest("POST", "/registrations/"+registrationID+"/cancel", nil, authToken)
	})

	startResp := makeRequest("POST", "/registrations/"+registrationID+"/start-consultation", nil, authToken)
	require.True(t, startResp.IsSuccess(), startResp.Message)
	assert.Equal(t, "in_consultation", startResp.GetString("status"))

	consultResp := makeRequest("POST", "/consultations", map[string]interface{}{
		"registration_id": registrationID,
		"chief_complaint": "咳嗽三日",
		"tcm_diagnosis":   "風寒犯肺",
	}, authToken)
	require.True(t, consultResp.IsSuccess(), consultResp.Message)

	endResp := makeRequest("POST", "/registrations/"+registrationID+"/end-consultation", nil, authToken)
	require.True(t, endResp.IsSuccess(), endResp.Message)
	assert.Equal(t, "completed", endResp.GetString("status"))

	billResp := makeRequest("GET", "/billing/bills/by-registration?registration_id="+registrationID, nil, authToken)
	require.True(t, billResp.IsSuccess(), billResp.Message)
	billID := billResp.GetString("id")
	require.NotEmpty(t, billID)
	assert.Equal(t, "pending", billResp.GetString("status"))

	balance := billResp.GetFloat("balance_due")
	require.Greater(t, balance, 0.0)

	payResp := makeRequest("POST", "/billing/bills/"+billID+"/pay", map[string]interface{}{
		"amount":         balance,
		"payment_method": "cash",
	}, authToken)
	require.True(t, payResp.IsSuccess(), payResp.Message)
	assert.Equal(t, "paid", payResp.GetString("status"))
}

func TestQueue(t *testing.T) {
	requireServer(t)

	resp := makeRequest("GET", "/registrations/queue", nil, authToken)
	assert.True(t, resp.IsSuccess(), resp.Message)
}
