package repository

import (
	"github.com/museum-staffing/shift-manager/backend/internal/domain"
)

const reportSelect = `
	SELECT
		r.id, r.guard_id, r.position_id, r.position_explanation, r.report_text, r.created_at,
		g.user_id, u.username, u.first_name, u.last_name, u.email,
		p.date, p.start_time, p.end_time, p.exhibition_id, e.name
	FROM reports r
	JOIN guards g ON g.id = r.guard_id
	JOIN users u ON u.id = g.user_id
	JOIN positions p ON p.id = r.position_id
	JOIN exhibitions e ON e.id = p.exhibition_id
`

func scanReport(s scanner) (*domain.Report, error) {
	rep := &domain.Report{
		Guard:    &domain.Guard{User: &domain.User{}},
		Position: &domain.Position{Exhibition: &domain.Exhibition{}},
	}
	g, u, p := rep.Guard, rep.Guard.User, rep.Position
	dst := []any{
		&rep.ID, &rep.GuardID, &rep.PositionID, &rep.PositionExplanation, &rep.ReportText, &rep.CreatedAt,
		&g.UserID, &u.Username, &u.FirstName, &u.LastName, &u.Email,
		&p.Date, &p.StartTime, &p.EndTime, &p.ExhibitionID, &p.Exhibition.Name,
	}
	if err := s.Scan(dst...); err != nil {
		return nil, err
	}
	g.ID = rep.GuardID
	u.ID = g.UserID
	p.ID = rep.PositionID
	p.Exhibition.ID = p.ExhibitionID
	return rep, nil
}

func (r *Repository) CreateReport(rep *domain.Report) error {
	query := `
		INSERT INTO reports (guard_id, position_id, position_explanation, report_text)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	return r.dbpool.QueryRowContext(ctx, query, rep.GuardID, rep.PositionID, rep.PositionExplanation, rep.ReportText).Scan(&rep.ID, &rep.CreatedAt)
}

func (r *Repository) GetReportByID(id int64) (*domain.Report, error) {
	ctx, cancel := r.queryContext()
	defer cancel()

	return scanReport(r.dbpool.QueryRowContext(ctx, reportSelect+` WHERE r.id = $1`, id))
}

// ListReports filters by exhibition when exhibitionID is set. Newest first
// unless oldestFirst.
func (r *Repository) ListReports(exhibitionID *int64, oldestFirst bool) ([]*domain.Report, error) {
	order := `DESC`
	if oldestFirst {
		order = `ASC`
	}
	query := reportSelect + `
		WHERE $1::BIGINT IS NULL OR p.exhibition_id = $1
		ORDER BY r.created_at ` + order + `, r.id ` + order

	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, exhibitionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := make([]*domain.Report, 0)
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, rep)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return reports, nil
}
