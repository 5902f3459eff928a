package api_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func uniqueName(prefix string) string {
	return fmt.Sprintf("%s %d", prefix, time.Now().UnixNano())
}

// createTestPatient registers a patient and deactivates it when the
// test finishes.
func createTestPatient(t *testing.T) string {
	t.Helper()

	resp := makeRequest("POST", "/patients", map[string]interface{}{
		"name":   uniqueName("測試病人"),
		"gender": "male",
		"mobile": "9123 4567",
	}, authToken)
	require.True(t, resp.IsSuccess(), "create patient: %s", resp.Message)

	id := resp.GetString("id")
	require.NotEmpty(t, id)
	t.Cleanup(func() {
		makeRequest("DELETE", "/patients/"+id, nil, authToken)
	})
	return id
}

// firstDoctorID returns a doctor to book against. The superuser is an
// admin, so a fresh install may have none; such tests skip.
func firstDoctorID(t *testing.T) string {
	t.Helper()

	resp := makeRequest("GET", "/core/users/doctors", nil, authToken)
	require.True(t, resp.IsSuccess(), "list doctors: %s", resp.Message)
	if len(resp.List) == 0 {
		t.Skip("no doctors registered on this server")
	}
	doctor, ok := resp.List[0].(map[string]interface{})
	require.True(t, ok)
	id, _ := doctor["id"].(string)
	require.NotEmpty(t, id)
	return id
}
