package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tcmflow/clinic-api/internal/model"
	"github.com/tcmflow/clinic-api/internal/repository"
)

type reportRepository struct {
	BaseRepository
}

func NewReportRepository(base BaseRepository) repository.ReportRepository {
	return &reportRepository{base}
}

func (r *reportRepository) DailySummary(ctx context.Context, date time.Time) (*model.DailySummaryReport, error) {
	day := date.Format("2006-01-02")
	report := &model.DailySummaryReport{Date: day}

	regQuery := `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE visit_type = 'first_visit') AS first_visits,
			COUNT(*) FILTER (WHERE visit_type = 'follow_up') AS follow_ups,
			COUNT(*) FILTER (WHERE status = 'completed') AS completed,
			COUNT(*) FILTER (WHERE status = 'cancelled') AS cancelled,
			COUNT(*) FILTER (WHERE status = 'no_show') AS no_shows
		FROM registrations
		WHERE registration_date = $1::date
	`
	regRow := struct {
		Total      int `db:"total"`
		FirstVisit int `db:"first_visits"`
		FollowUps  int `db:"follow_ups"`
		Completed  int `db:"completed"`
		Cancelled  int `db:"cancelled"`
		NoShows    int `db:"no_shows"`
	}{}
	if err := r.db.GetContext(ctx, &regRow, regQuery, day); err != nil {
		return nil, fmt.Errorf("failed to aggregate registrations: %w", err)
	}
	report.TotalRegistrations = regRow.Total
	report.FirstVisits = regRow.FirstVisit
	report.FollowUpVisits = regRow.FollowUps
	report.CompletedVisits = regRow.Completed
	report.CancelledVisits = regRow.Cancelled
	report.NoShows = regRow.NoShows

	billQuery := `
		SELECT COUNT(*) AS bill_count, COALESCE(SUM(paid_amount), 0) AS revenue
		FROM bills
		WHERE bill_date = $1::date AND status != 'cancelled'
	`
	billRow := struct {
		BillCount int     `db:"bill_count"`
		Revenue   float64 `db:"revenue"`
	}{}
	if err := r.db.GetContext(ctx, &billRow, billQuery, day); err != nil {
		return nil, fmt.Errorf("failed to aggregate bills: %w", err)
	}
	report.BillCount = billRow.BillCount
	report.TotalRevenue = billRow.Revenue

	dispQuery := `
		SELECT COUNT(*) FROM prescriptions
		WHERE is_dispensed = true
			AND dispensed_at >= $1::date AND dispensed_at < $1::date + INTERVAL '1 day'
	`
	if err := r.db.GetContext(ctx, &report.DispensedCount, dispQuery, day); err != nil {
		return nil, fmt.Errorf("failed to count dispensed prescriptions: %w", err)
	}
	return report, nil
}

func (r *reportRepository) MonthlySummary(ctx context.Context, year, month int) (*model.MonthlySummaryReport, error) {
	report := &model.MonthlySummaryReport{Year: year, Month: month}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	query := `
		SELECT d.day::date AS day,
			COALESCE(reg.count, 0) AS registrations,
			COALESCE(bil.revenue, 0) AS revenue
		FROM generate_series($1::date, $2::date - INTERVAL '1 day', '1 day') AS d(day)
		LEFT JOIN (
			SELECT registration_date, COUNT(*) AS count
			FROM registrations
			GROUP BY registration_date
		) reg ON reg.registration_date = d.day::date
		LEFT JOIN (
			SELECT bill_date, SUM(paid_amount) AS revenue
			FROM bills
			WHERE status != 'cancelled'
			GROUP BY bill_date
		) bil ON bil.bill_date = d.day::date
		ORDER BY d.day
	`
	rows := []struct {
		Day           time.Time `db:"day"`
		Registrations int       `db:"registrations"`
		Revenue       float64   `db:"revenue"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query,
		start.Format("2006-01-02"), end.Format("2006-01-02")); err != nil {
		return nil, fmt.Errorf("failed to aggregate monthly summary: %w", err)
	}

	for _, row := range rows {
		report.Days = append(report.Days, &model.MonthlyDayLine{
			Date:          row.Day.Format("2006-01-02"),
			Registrations: row.Registrations,
			Revenue:       row.Revenue,
		})
		report.TotalRegistrations += row.Registrations
		report.TotalRevenue += row.Revenue
	}
	if n := len(report.Days); n > 0 {
		report.AvgRegistrations = float64(report.TotalRegistrations) / float64(n)
		report.AvgRevenue = report.TotalRevenue / float64(n)
	}
	return report, nil
}

func (r *reportRepository) DoctorWorkload(ctx context.Context, start, end time.Time) ([]*model.DoctorWorkloadLine, error) {
	query := `
		SELECT u.id AS doctor_id, u.username AS doctor_name,
			COUNT(r.id) AS total_registrations,
			COUNT(r.id) FILTER (WHERE r.visit_type = 'first_visit') AS first_visits,
			COUNT(r.id) FILTER (WHERE r.visit_type = 'follow_up') AS follow_up_visits,
			COUNT(r.id) FILTER (WHERE r.status = 'completed') AS completed,
			COALESCE(AVG(
				EXTRACT(EPOCH FROM (r.consultation_end - r.consultation_start)) / 60
			) FILTER (WHERE r.consultation_end IS NOT NULL), 0) AS avg_minutes
		FROM users u
		LEFT JOIN registrations r ON r.doctor_id = u.id
			AND r.registration_date >= $1::date AND r.registration_date <= $2::date
		WHERE u.role = 'doctor'
		GROUP BY u.id, u.username
		ORDER BY total_registrations DESC
	`
	var lines []*model.DoctorWorkloadLine
	err := r.db.SelectContext(ctx, &lines, query,
		start.Format("2006-01-02"), end.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate doctor workload: %w", err)
	}
	return lines, nil
}

func (r *reportRepository) MedicineUsage(ctx context.Context, start, end time.Time, limit int) ([]*model.MedicineUsageLine, error) {
	query := `
		SELECT m.id AS medicine_id, m.code AS medicine_code, m.name AS medicine_name,
			m.unit,
			COALESCE(SUM(pi.dosage * pr.total_doses), 0) AS total_dosage,
			COUNT(DISTINCT pr.id) AS prescription_count
		FROM prescription_items pi
		JOIN prescriptions pr ON pr.id = pi.prescription_id
		JOIN medicines m ON m.id = pi.medicine_id
		WHERE pr.created_at >= $1::date AND pr.created_at < $2::date + INTERVAL '1 day'
		GROUP BY m.id, m.code, m.name, m.unit
		ORDER BY total_dosage DESC
		LIMIT $3
	`
	var lines []*model.MedicineUsageLine
	err := r.db.SelectContext(ctx, &lines, query,
		start.Format("2006-01-02"), end.Format("2006-01-02"), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate medicine usage: %w", err)
	}
	return lines, nil
}

func (r *reportRepository) PharmacyReconciliation(ctx context.Context, start, end time.Time, pharmacyID *uuid.UUID) (*model.PharmacyReconciliationReport, error) {
	report := &model.PharmacyReconciliationReport{
		StartDate: start.Format("2006-01-02"),
		EndDate:   end.Format("2006-01-02"),
	}

	lineQuery := `
		SELECT ph.id AS pharmacy_id, ph.name AS pharmacy_name,
			COUNT(o.id) AS order_count,
			COALESCE(SUM(o.medicine_fee), 0) AS medicine_fee,
			COALESCE(SUM(o.processing_fee), 0) AS processing_fee,
			COALESCE(SUM(o.delivery_fee), 0) AS delivery_fee,
			COALESCE(SUM(o.total_amount), 0) AS total_amount
		FROM dispensing_orders o
		JOIN external_pharmacies ph ON ph.id = o.pharmacy_id
		WHERE o.sent_at >= $1::date AND o.sent_at < $2::date + INTERVAL '1 day'
			AND o.status NOT IN ('pending', 'failed', 'cancelled')
			AND ($3::uuid IS NULL OR o.pharmacy_id = $3)
		GROUP BY ph.id, ph.name
		ORDER BY ph.name
	`
	err := r.db.SelectContext(ctx, &report.Lines, lineQuery,
		report.StartDate, report.EndDate, pharmacyID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate pharmacy reconciliation: %w", err)
	}

	orderQuery := dispensingSelect + `
		WHERE o.sent_at >= $1::date AND o.sent_at < $2::date + INTERVAL '1 day'
			AND o.status NOT IN ('pending', 'failed', 'cancelled')
			AND ($3::uuid IS NULL OR o.pharmacy_id = $3)
		ORDER BY o.sent_at
	`
	err = r.db.SelectContext(ctx, &report.Orders, orderQuery,
		report.StartDate, report.EndDate, pharmacyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reconciliation orders: %w", err)
	}
	return report, nil
}

func (r *reportRepository) CreateTemplate(ctx context.Context, tpl *model.ReportTemplate) error {
	query := `
		INSERT INTO report_templates (
			id, name, report_type, description, query_template,
			is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	tpl.ID = uuid.New()
	tpl.CreatedAt = time.Now()
	tpl.UpdatedAt = tpl.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		tpl.ID,
		tpl.Name,
		tpl.ReportType,
		tpl.Description,
		tpl.QueryTemplate,
		tpl.IsActive,
		tpl.CreatedAt,
		tpl.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create report template: %w", err)
	}
	return nil
}

func (r *reportRepository) GetTemplate(ctx context.Context, id uuid.UUID) (*model.ReportTemplate, error) {
	var tpl model.ReportTemplate
	err := r.db.GetContext(ctx, &tpl, `SELECT * FROM report_templates WHERE id = $1`, id)
	if err != nil {
		return nil, notFound(err, "report template")
	}
	return &tpl, nil
}

func (r *reportRepository) ListTemplates(ctx context.Context) ([]*model.ReportTemplate, error) {
	var templates []*model.ReportTemplate
	query := `SELECT * FROM report_templates WHERE is_active = true ORDER BY name`
	if err := r.db.SelectContext(ctx, &templates, query); err != nil {
		return nil, fmt.Errorf("failed to list report templates: %w", err)
	}
	return templates, nil
}

func (r *reportRepository) UpdateTemplate(ctx context.Context, tpl *model.ReportTemplate) error {
	query := `
		UPDATE report_templates SET
			name = $1, description = $2, query_template = $3,
			is_active = $4, updated_at = $5
		WHERE id = $6
	`
	tpl.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		tpl.Name,
		tpl.Description,
		tpl.QueryTemplate,
		tpl.IsActive,
		tpl.UpdatedAt,
		tpl.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update report template: %w", err)
	}
	return nil
}

func (r *reportRepository) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE report_templates SET is_active = false, updated_at = $1 WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, query, time.Now(), id); err != nil {
		return fmt.Errorf("failed to deactivate report template: %w", err)
	}
	return nil
}

func (r *reportRepository) CreateGenerated(ctx context.Context, report *model.GeneratedReport) error {
	query := `
		INSERT INTO generated_reports (
			id, template_id, name, report_type, parameters, result,
			generated_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	report.ID = uuid.New()
	report.CreatedAt = time.Now()
	report.UpdatedAt = report.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		report.ID,
		report.TemplateID,
		report.Name,
		report.ReportType,
		report.Parameters,
		report.Result,
		report.GeneratedBy,
		report.CreatedAt,
		report.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store generated report: %w", err)
	}
	return nil
}

func (r *reportRepository) GetGenerated(ctx context.Context, id uuid.UUID) (*model.GeneratedReport, error) {
	var report model.GeneratedReport
	err := r.db.GetContext(ctx, &report, `SELECT * FROM generated_reports WHERE id = $1`, id)
	if err != nil {
		return nil, notFound(err, "generated report")
	}
	return &report, nil
}

func (r *reportRepository) ListGenerated(ctx context.Context, p *model.Pagination) ([]*model.GeneratedReport, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM generated_reports`); err != nil {
		return nil, 0, fmt.Errorf("failed to count generated reports: %w", err)
	}

	query := `SELECT * FROM generated_reports ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	var reports []*model.GeneratedReport
	if err := r.db.SelectContext(ctx, &reports, query, p.PageSize, p.Offset()); err != nil {
		return nil, 0, fmt.Errorf("failed to list generated reports: %w", err)
	}
	return reports, total, nil
}
