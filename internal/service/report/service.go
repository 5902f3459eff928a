package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tcmflow/clinic-api/internal/model"
	"github.com/tcmflow/clinic-api/internal/repository"
	apperrors "github.com/tcmflow/clinic-api/pkg/errors"
)

// topMedicines caps the usage report at the most dispensed entries.
const topMedicines = 50

type Service struct {
	repo repository.ReportRepository
}

func NewService(repo repository.ReportRepository) *Service {
	return &Service{repo: repo}
}

// store keeps a snapshot of every report run so past numbers stay
// reproducible after the underlying rows change.
func (s *Service) store(ctx context.Context, actorID *uuid.UUID, reportType model.ReportType, name string, params, result interface{}) error {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to marshal report parameters: %w", err)
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal report result: %w", err)
	}
	generated := &model.GeneratedReport{
		Name:        name,
		ReportType:  reportType,
		Parameters:  paramsJSON,
		Result:      resultJSON,
		GeneratedBy: actorID,
	}
	return s.repo.CreateGenerated(ctx, generated)
}

func (s *Service) DailySummary(ctx context.Context, actorID *uuid.UUID, dateStr string) (*model.DailySummaryReport, error) {
	date := time.Now()
	if dateStr != "" {
		var err error
		date, err = time.Parse(model.DateOnly, dateStr)
		if err != nil {
			return nil, apperrors.BadRequest("invalid date", err)
		}
	}

	summary, err := s.repo.DailySummary(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to build daily summary: %w", err)
	}
	summary.Date = date.Format(model.DateOnly)

	name := fmt.Sprintf("Daily summary %s", summary.Date)
	if err := s.store(ctx, actorID, model.ReportTypeDailySummary, name,
		map[string]string{"date": summary.Date}, summary); err != nil {
		return nil, err
	}
	return summary, nil
}

func (s *Service) MonthlySummary(ctx context.Context, actorID *uuid.UUID, year, month int) (*model.MonthlySummaryReport, error) {
	now := time.Now()
	if year == 0 {
		year = now.Year()
	}
	if month == 0 {
		month = int(now.Month())
	}
	if month < 1 || month > 12 {
		return nil, apperrors.BadRequest("invalid month", nil)
	}

	summary, err := s.repo.MonthlySummary(ctx, year, month)
	if err != nil {
		return nil, fmt.Errorf("failed to build monthly summary: %w", err)
	}

	name := fmt.Sprintf("Monthly summary %04d-%02d", year, month)
	if err := s.store(ctx, actorID, model.ReportTypeMonthlySummary, name,
		map[string]int{"year": year, "month": month}, summary); err != nil {
		return nil, err
	}
	return summary, nil
}

// parseRange turns optional start/end strings into a concrete window,
// defaulting to the last 30 days.
func parseRange(startStr, endStr string) (time.Time, time.Time, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -30)
	var err error
	if startStr != "" {
		start, err = time.Parse(model.DateOnly, startStr)
		if err != nil {
			return time.Time{}, time.Time{}, apperrors.BadRequest("invalid start date", err)
		}
	}
	if endStr != "" {
		end, err = time.Parse(model.DateOnly, endStr)
		if err != nil {
			return time.Time{}, time.Time{}, apperrors.BadRequest("invalid end date", err)
		}
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, apperrors.BadRequest("end date before start date", nil)
	}
	return start, end, nil
}

func (s *Service) DoctorWorkload(ctx context.Context, actorID *uuid.UUID, startStr, endStr string) (*model.DoctorWorkloadReport, error) {
	start, end, err := parseRange(startStr, endStr)
	if err != nil {
		return nil, err
	}

	lines, err := s.repo.DoctorWorkload(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to build doctor workload: %w", err)
	}
	if lines == nil {
		lines = []*model.DoctorWorkloadLine{}
	}
	result := &model.DoctorWorkloadReport{
		StartDate: start.Format(model.DateOnly),
		EndDate:   end.Format(model.DateOnly),
		Doctors:   lines,
	}

	name := fmt.Sprintf("Doctor workload %s to %s", result.StartDate, result.EndDate)
	if err := s.store(ctx, actorID, model.ReportTypeDoctorWorkload, name,
		map[string]string{"start_date": result.StartDate, "end_date": result.EndDate}, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) MedicineUsage(ctx context.Context, actorID *uuid.UUID, startStr, endStr string) (*model.MedicineUsageReport, error) {
	start, end, err := parseRange(startStr, endStr)
	if err != nil {
		return nil, err
	}

	lines, err := s.repo.MedicineUsage(ctx, start, end, topMedicines)
	if err != nil {
		return nil, fmt.Errorf("failed to build medicine usage: %w", err)
	}
	if lines == nil {
		lines = []*model.MedicineUsageLine{}
	}
	result := &model.MedicineUsageReport{
		StartDate: start.Format(model.DateOnly),
		EndDate:   end.Format(model.DateOnly),
		Items:     lines,
	}

	name := fmt.Sprintf("Medicine usage %s to %s", result.StartDate, result.EndDate)
	if err := s.store(ctx, actorID, model.ReportTypeMedicineUsage, name,
		map[string]string{"start_date": result.StartDate, "end_date": result.EndDate}, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) PharmacyReconciliation(ctx context.Context, actorID *uuid.UUID, startStr, endStr, pharmacyIDStr string) (*model.PharmacyReconciliationReport, error) {
	start, end, err := parseRange(startStr, endStr)
	if err != nil {
		return nil, err
	}

	var pharmacyID *uuid.UUID
	params := map[string]string{
		"start_date": start.Format(model.DateOnly),
		"end_date":   end.Format(model.DateOnly),
	}
	if pharmacyIDStr != "" {
		id, err := uuid.Parse(pharmacyIDStr)
		if err != nil {
			return nil, apperrors.BadRequest("invalid pharmacy id", err)
		}
		pharmacyID = &id
		params["pharmacy_id"] = pharmacyIDStr
	}

	result, err := s.repo.PharmacyReconciliation(ctx, start, end, pharmacyID)
	if err != nil {
		return nil, fmt.Errorf("failed to build pharmacy reconciliation: %w", err)
	}
	result.StartDate = start.Format(model.DateOnly)
	result.EndDate = end.Format(model.DateOnly)

	name := fmt.Sprintf("Pharmacy reconciliation %s to %s", result.StartDate, result.EndDate)
	if err := s.store(ctx, actorID, model.ReportTypeExternalPharmacy, name, params, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) CreateTemplate(ctx context.Context, req *model.CreateReportTemplateRequest) (*model.ReportTemplate, error) {
	tpl := &model.ReportTemplate{
		Name:          req.Name,
		ReportType:    model.ReportType(req.ReportType),
		Description:   req.Description,
		QueryTemplate: req.QueryTemplate,
		IsActive:      true,
	}
	if err := s.repo.CreateTemplate(ctx, tpl); err != nil {
		return nil, fmt.Errorf("failed to create report template: %w", err)
	}
	return tpl, nil
}

func (s *Service) GetTemplate(ctx context.Context, id uuid.UUID) (*model.ReportTemplate, error) {
	return s.repo.GetTemplate(ctx, id)
}

func (s *Service) ListTemplates(ctx context.Context) ([]*model.ReportTemplate, error) {
	return s.repo.ListTemplates(ctx)
}

func (s *Service) UpdateTemplate(ctx context.Context, id uuid.UUID, req *model.UpdateReportTemplateRequest) (*model.ReportTemplate, error) {
	tpl, err := s.repo.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		tpl.Name = *req.Name
	}
	if req.Description != nil {
		tpl.Description = *req.Description
	}
	if req.QueryTemplate != nil {
		tpl.QueryTemplate = *req.QueryTemplate
	}
	if req.IsActive != nil {
		tpl.IsActive = *req.IsActive
	}

	if err := s.repo.UpdateTemplate(ctx, tpl); err != nil {
		return nil, fmt.Errorf("failed to update report template: %w", err)
	}
	return tpl, nil
}

func (s *Service) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetTemplate(ctx, id); err != nil {
		return err
	}
	return s.repo.DeleteTemplate(ctx, id)
}

func (s *Service) GetGenerated(ctx context.Context, id uuid.UUID) (*model.GeneratedReport, error) {
	return s.repo.GetGenerated(ctx, id)
}

func (s *Service) ListGenerated(ctx context.Context, p *model.Pagination) ([]*model.GeneratedReport, int, error) {
	p.Normalize()
	return s.repo.ListGenerated(ctx, p)
}
