package report

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcmflow/clinic-api/internal/model"
	"github.com/tcmflow/clinic-api/internal/repository/repotest"
	apperrors "github.com/tcmflow/clinic-api/pkg/errors"
)

func newReportFixture() (*Service, *repotest.Reports) {
	repo := &repotest.Reports{}
	return NewService(repo), repo
}

func strPtr(s string) *string { return &s }

func TestDailySummary(t *testing.T) {
	svc, repo := newReportFixture()
	repo.Daily = &model.DailySummaryReport{
		TotalRegistrations: 18,
		FirstVisits:        4,
		FollowUpVisits:     14,
		CompletedVisits:    16,
		TotalRevenue:       5400,
		BillCount:          16,
	}

	summary, err := svc.DailySummary(context.Background(), nil, "2026-03-02")

	require.NoError(t, err)
	assert.Equal(t, "2026-03-02", summary.Date)
	assert.Equal(t, 18, summary.TotalRegistrations)
	assert.Equal(t, 5400.0, summary.TotalRevenue)

	require.Len(t, repo.Generated, 1)
	stored := repo.Generated[0]
	assert.Equal(t, model.ReportTypeDailySummary, stored.ReportType)
	assert.Equal(t, "Daily summary 2026-03-02", stored.Name)

	var params map[string]string
	require.NoError(t, json.Unmarshal(stored.Parameters, &params))
	assert.Equal(t, "2026-03-02", params["date"])

	var snapshot model.DailySummaryReport
	require.NoError(t, json.Unmarshal(stored.Result, &snapshot))
	assert.Equal(t, 16, snapshot.BillCount)
}

func TestDailySummary_BadDate(t *testing.T) {
	svc, repo := newReportFixture()

	_, err := svc.DailySummary(context.Background(), nil, "02/03/2026")

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrBadRequest, appErr.Code)
	assert.Empty(t, repo.Generated)
}

func TestMonthlySummary(t *testing.T) {
	svc, repo := newReportFixture()
	repo.Monthly = &model.MonthlySummaryReport{
		Year:               2026,
		Month:              2,
		TotalRegistrations: 240,
		TotalRevenue:       86000,
	}

	summary, err := svc.MonthlySummary(context.Background(), nil, 2026, 2)

	require.NoError(t, err)
	assert.Equal(t, 240, summary.TotalRegistrations)
	require.Len(t, repo.Generated, 1)
	assert.Equal(t, "Monthly summary 2026-02", repo.Generated[0].Name)
	assert.Equal(t, model.ReportTypeMonthlySummary, repo.Generated[0].ReportType)
}

func TestMonthlySummary_BadMonth(t *testing.T) {
	svc, _ := newReportFixture()

	_, err := svc.MonthlySummary(context.Background(), nil, 2026, 13)

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrBadRequest, appErr.Code)
}

func TestDoctorWorkload(t *testing.T) {
	svc, repo := newReportFixture()
	repo.Workload = []*model.DoctorWorkloadLine{
		{DoctorID: uuid.New(), DoctorName: "陳大文醫師", TotalRegistrations: 60, Completed: 58},
		{DoctorID: uuid.New(), DoctorName: "李美玲醫師", TotalRegistrations: 45, Completed: 45},
	}

	result, err := svc.DoctorWorkload(context.Background(), nil, "2026-01-01", "2026-01-31")

	require.NoError(t, err)
	assert.Equal(t, "2026-01-01", result.StartDate)
	assert.Equal(t, "2026-01-31", result.EndDate)
	require.Len(t, result.Doctors, 2)
	assert.Equal(t, "陳大文醫師", result.Doctors[0].DoctorName)
	require.Len(t, repo.Generated, 1)
	assert.Equal(t, "Doctor workload 2026-01-01 to 2026-01-31", repo.Generated[0].Name)
}

func TestDoctorWorkload_NoRows(t *testing.T) {
	svc, _ := newReportFixture()

	result, err := svc.DoctorWorkload(context.Background(), nil, "2026-01-01", "2026-01-31")

	require.NoError(t, err)
	require.NotNil(t, result.Doctors)
	assert.Len(t, result.Doctors, 0)
}

func TestDoctorWorkload_EndBeforeStart(t *testing.T) {
	svc, _ := newReportFixture()

	_, err := svc.DoctorWorkload(context.Background(), nil, "2026-02-01", "2026-01-01")

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrBadRequest, appErr.Code)
	assert.Contains(t, appErr.Message, "end date before start date")
}

func TestMedicineUsage(t *testing.T) {
	svc, repo := newReportFixture()
	repo.Usage = []*model.MedicineUsageLine{
		{MedicineID: uuid.New(), MedicineCode: "M001", MedicineName: "當歸", Unit: "g", TotalDosage: 900, PrescriptionCount: 60},
		{MedicineID: uuid.New(), MedicineCode: "M002", MedicineName: "黃芪", Unit: "g", TotalDosage: 750, PrescriptionCount: 50},
	}

	result, err := svc.MedicineUsage(context.Background(), nil, "2026-01-01", "2026-01-31")

	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	assert.Equal(t, "當歸", result.Items[0].MedicineName)
	require.Len(t, repo.Generated, 1)
	assert.Equal(t, model.ReportTypeMedicineUsage, repo.Generated[0].ReportType)
}

func TestPharmacyReconciliation_FiltersByPharmacy(t *testing.T) {
	svc, repo := newReportFixture()
	target := uuid.New()
	other := uuid.New()
	repo.Recon = &model.PharmacyReconciliationReport{
		Lines: []*model.PharmacyReconciliationLine{
			{PharmacyID: target, PharmacyName: "同德藥房", OrderCount: 12, TotalAmount: 3600},
			{PharmacyID: other, PharmacyName: "百子櫃", OrderCount: 5, TotalAmount: 1500},
		},
	}

	result, err := svc.PharmacyReconciliation(context.Background(), nil, "2026-01-01", "2026-01-31", target.String())

	require.NoError(t, err)
	require.Len(t, result.Lines, 1)
	assert.Equal(t, "同德藥房", result.Lines[0].PharmacyName)

	require.Len(t, repo.Generated, 1)
	var params map[string]string
	require.NoError(t, json.Unmarshal(repo.Generated[0].Parameters, &params))
	assert.Equal(t, target.String(), params["pharmacy_id"])
}

func TestPharmacyReconciliation_BadPharmacyID(t *testing.T) {
	svc, _ := newReportFixture()

	_, err := svc.PharmacyReconciliation(context.Background(), nil, "", "", "not-a-uuid")

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrBadRequest, appErr.Code)
}

func TestTemplateLifecycle(t *testing.T) {
	svc, _ := newReportFixture()
	ctx := context.Background()

	tpl, err := svc.CreateTemplate(ctx, &model.CreateReportTemplateRequest{
		Name:       "收入分析",
		ReportType: "revenue",
	})
	require.NoError(t, err)
	assert.True(t, tpl.IsActive)
	assert.Equal(t, model.ReportTypeRevenue, tpl.ReportType)

	updated, err := svc.UpdateTemplate(ctx, tpl.ID, &model.UpdateReportTemplateRequest{
		Name:        strPtr("月度收入分析"),
		Description: strPtr("按月彙總收入"),
	})
	require.NoError(t, err)
	assert.Equal(t, "月度收入分析", updated.Name)

	active, err := svc.ListTemplates(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)

	require.NoError(t, svc.DeleteTemplate(ctx, tpl.ID))

	active, err = svc.ListTemplates(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	// Soft delete keeps the row reachable by id.
	got, err := svc.GetTemplate(ctx, tpl.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func TestListGenerated(t *testing.T) {
	svc, _ := newReportFixture()
	ctx := context.Background()

	_, err := svc.DailySummary(ctx, nil, "2026-03-02")
	require.NoError(t, err)
	_, err = svc.MonthlySummary(ctx, nil, 2026, 3)
	require.NoError(t, err)

	reports, total, err := svc.ListGenerated(ctx, &model.Pagination{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, reports, 2)
}
