package repotest

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tcmflow/clinic-api/internal/model"
	"github.com/tcmflow/clinic-api/internal/repository"
	apperrors "github.com/tcmflow/clinic-api/pkg/errors"
)

var _ repository.ReportRepository = (*Reports)(nil)

// Reports serves pre-seeded aggregates. The SQL that would compute them
// lives in the postgres layer; tests seed the figures they expect back.
type Reports struct {
	Daily     *model.DailySummaryReport
	Monthly   *model.MonthlySummaryReport
	Workload  []*model.DoctorWorkloadLine
	Usage     []*model.MedicineUsageLine
	Recon     *model.PharmacyReconciliationReport
	Templates []*model.ReportTemplate
	Generated []*model.GeneratedReport
}

func (r *Reports) DailySummary(_ context.Context, _ time.Time) (*model.DailySummaryReport, error) {
	if r.Daily == nil {
		return &model.DailySummaryReport{}, nil
	}
	return r.Daily, nil
}

func (r *Reports) MonthlySummary(_ context.Context, year, month int) (*model.MonthlySummaryReport, error) {
	if r.Monthly == nil {
		return &model.MonthlySummaryReport{Year: year, Month: month}, nil
	}
	return r.Monthly, nil
}

func (r *Reports) DoctorWorkload(_ context.Context, _, _ time.Time) ([]*model.DoctorWorkloadLine, error) {
	return r.Workload, nil
}

func (r *Reports) MedicineUsage(_ context.Context, _, _ time.Time, limit int) ([]*model.MedicineUsageLine, error) {
	if limit > 0 && len(r.Usage) > limit {
		return r.Usage[:limit], nil
	}
	return r.Usage, nil
}

func (r *Reports) PharmacyReconciliation(_ context.Context, _, _ time.Time, pharmacyID *uuid.UUID) (*model.PharmacyReconciliationReport, error) {
	if r.Recon == nil {
		return &model.PharmacyReconciliationReport{}, nil
	}
	if pharmacyID == nil {
		return r.Recon, nil
	}
	filtered := &model.PharmacyReconciliationReport{}
	for _, l := range r.Recon.Lines {
		if l.PharmacyID == *pharmacyID {
			filtered.Lines = append(filtered.Lines, l)
		}
	}
	for _, o := range r.Recon.Orders {
		if o.PharmacyID == *pharmacyID {
			filtered.Orders = append(filtered.Orders, o)
		}
	}
	return filtered, nil
}

func (r *Reports) CreateTemplate(_ context.Context, tpl *model.ReportTemplate) error {
	stamp(&tpl.Base)
	r.Templates = append(r.Templates, tpl)
	return nil
}

func (r *Reports) GetTemplate(_ context.Context, id uuid.UUID) (*model.ReportTemplate, error) {
	for _, tpl := range r.Templates {
		if tpl.ID == id {
			return tpl, nil
		}
	}
	return nil, apperrors.NotFound("report template", nil)
}

func (r *Reports) ListTemplates(_ context.Context) ([]*model.ReportTemplate, error) {
	var out []*model.ReportTemplate
	for _, tpl := range r.Templates {
		if tpl.IsActive {
			out = append(out, tpl)
		}
	}
	return out, nil
}

func (r *Reports) UpdateTemplate(_ context.Context, tpl *model.ReportTemplate) error {
	for i, existing := range r.Templates {
		if existing.ID == tpl.ID {
			tpl.UpdatedAt = time.Now()
			r.Templates[i] = tpl
			return nil
		}
	}
	return apperrors.NotFound("report template", nil)
}

// DeleteTemplate deactivates, matching the SQL layer's soft delete.
func (r *Reports) DeleteTemplate(_ context.Context, id uuid.UUID) error {
	for _, tpl := range r.Templates {
		if tpl.ID == id {
			tpl.IsActive = false
			tpl.UpdatedAt = time.Now()
			return nil
		}
	}
	return apperrors.NotFound("report template", nil)
}

func (r *Reports) CreateGenerated(_ context.Context, report *model.GeneratedReport) error {
	stamp(&report.Base)
	r.Generated = append(r.Generated, report)
	return nil
}

func (r *Reports) GetGenerated(_ context.Context, id uuid.UUID) (*model.GeneratedReport, error) {
	for _, g := range r.Generated {
		if g.ID == id {
			return g, nil
		}
	}
	return nil, apperrors.NotFound("generated report", nil)
}

func (r *Reports) ListGenerated(_ context.Context, _ *model.Pagination) ([]*model.GeneratedReport, int, error) {
	return r.Generated, len(r.Generated), nil
}
