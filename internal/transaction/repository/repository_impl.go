package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/fintraq/fintraq/internal/transaction/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertBatch(ctx context.Context, db *gorm.DB, transactions []*domain.Transaction) error {
	for _, txn := range transactions {
		err := db.WithContext(ctx).Exec(`
			INSERT INTO transactions (
				id, user_id, occurred_on, amount, category, tier,
				direction, description, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			txn.ID,
			txn.UserID,
			txn.OccurredOn,
			txn.Amount,
			txn.Category,
			string(txn.Tier),
			string(txn.Direction),
			txn.Description,
			txn.CreatedAt,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) CategoryTotals(ctx context.Context, db *gorm.DB, userID snowflake.ID, from, to time.Time) ([]domain.CategoryTotal, error) {
	rows, err := db.WithContext(ctx).Raw(`
		SELECT category, tier, SUM(amount) AS total
		FROM transactions
		WHERE user_id = ?
		  AND direction = 'debit'
		  AND occurred_on >= ?
		  AND occurred_on < ?
		GROUP BY category, tier
		ORDER BY category`,
		userID, from, to,
	).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []domain.CategoryTotal
	for rows.Next() {
		var total domain.CategoryTotal
		if err := rows.Scan(&total.Category, &total.Tier, &total.Total); err != nil {
			return nil, err
		}
		totals = append(totals, total)
	}
	return totals, rows.Err()
}
