package repository

import (
	"context"

	"github.com/avlobanov/aerobook/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type StatsRepository interface {
	Dashboard(ctx context.Context) (*domain.DashboardStats, error)
}

type PGStatsRepository struct {
	db *pgxpool.Pool
}

func NewStatsRepository(db *pgxpool.Pool) StatsRepository {
	return &PGStatsRepository{db: db}
}

func (r *PGStatsRepository) Dashboard(ctx context.Context) (*domain.DashboardStats, error) {
	stats := &domain.DashboardStats{
		RevenueByMonth:   make([]domain.MonthlyRevenue, 0),
		BookingsByStatus: make(map[domain.BookingStatus]int64),
	}

	row := r.db.QueryRow(ctx, `SELECT
		(SELECT count(*) FROM users),
		(SELECT count(*) FROM flights),
		(SELECT count(*) FROM bookings),
		(SELECT count(*) FROM payments),
		(SELECT COALESCE(sum(amount_cents), 0) FROM payments WHERE status='COMPLETED')`)
	if err := row.Scan(&stats.Users, &stats.Flights, &stats.Bookings, &stats.Payments, &stats.RevenueCents); err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, `SELECT to_char(date_trunc('month', created_at), 'YYYY-MM') AS month, sum(amount_cents)
		FROM payments WHERE status='COMPLETED'
		GROUP BY 1 ORDER BY 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var m domain.MonthlyRevenue
		if err := rows.Scan(&m.Month, &m.RevenueCents); err != nil {
			return nil, err
		}
		stats.RevenueByMonth = append(stats.RevenueByMonth, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	statusRows, err := r.db.Query(ctx, `SELECT status, count(*) FROM bookings GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer statusRows.Close()
	for statusRows.Next() {
		var status domain.BookingStatus
		var count int64
		if err := statusRows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats.BookingsByStatus[status] = count
	}
	return stats, statusRows.Err()
}

var _ StatsRepository = (*PGStatsRepository)(nil)
