package api_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatientFlow(t *testing.T) {
	requireServer(t)

	name := uniqueName("測試病人")
	createResp := makeRequest("POST", "/patients", map[string]interface{}{
		"name":       name,
		"gender":     "female",
		"birth_date": "1990-01-15",
		"mobile":     "9123 4567",
		"allergies":  "青霉素",
	}, authToken)
	require.True(t, createResp.IsSuccess(), createResp.Message)

	patientID := createResp.GetString("id")
	require.NotEmpty(t, patientID)
	t.Cleanup(func() {
		makeRequest("DELETE", "/patients/"+patientID, nil, authToken)
	})

	chartNumber := createResp.GetString("chart_number")
	assert.Len(t, chartNumber, 6)

	getResp := makeRequest("GET", "/patients/"+patientID, nil, authToken)
	require.True(t, getResp.IsSuccess(), getResp.Message)
	assert.Equal(t, name, getResp.GetString("name"))
	assert.Equal(t, chartNumber, getResp.GetString("chart_number"))

	searchResp := makeRequest("GET", "/patients/search?q="+chartNumber, nil, authToken)
	require.True(t, searchResp.IsSuccess(), searchResp.Message)
	require.Len(t, searchResp.List, 1)

	updateResp := makeRequest("PUT", "/patients/"+patientID, map[string]interface{}{
		"mobile": "6123 9876",
	}, authToken)
	require.True(t, updateResp.IsSuccess(), updateResp.Message)

	deactResp := makeRequest("DELETE", "/patients/"+patientID, nil, authToken)
	assert.True(t, deactResp.IsSuccess(), deactResp.Message)
}
