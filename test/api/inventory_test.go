package api_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMedicineAndStockFlow(t *testing.T) {
	requireServer(t)

	code := fmt.Sprintf("T%d", time.Now().UnixNano()%1_000_000_000)
	createResp := makeRequest("POST", "/inventory/medicines", map[string]interface{}{
		"code":          code,
		"name":          uniqueName("測試藥材"),
		"medicine_type": "herb",
		"unit":          "g",
		"cost_price":    0.8,
		"selling_price": 1.5,
		"safety_stock":  100,
	}, authToken)
	require.True(t, createResp.IsSuccess(), createResp.Message)
	medicineID := createResp.GetString("id")
	require.NotEmpty(t, medicineID)

	// A fresh medicine opens at zero stock, below its safety level.
	adjustResp := makeRequest("POST", "/inventory/stock/"+medicineID+"/adjust", map[string]interface{}{
		"quantity": 500,
		"notes":    "initial stocktake",
	}, authToken)
	require.True(t, adjustResp.IsSuccess(), adjustResp.Message)
	assert.Equal(t, 500.0, adjustResp.GetFloat("quantity"))

	dupResp := makeRequest("POST", "/inventory/medicines", map[string]interface{}{
		"code":          code,
		"name":          uniqueName("重複編號"),
		"medicine_type": "herb",
	}, authToken)
	assert.False(t, dupResp.IsSuccess())

	lowResp := makeRequest("GET", "/inventory/low-stock", nil, authToken)
	assert.True(t, lowResp.IsSuccess(), lowResp.Message)
}
