package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/iho/spareledger/internal/domain"
	"github.com/iho/spareledger/internal/usecase"
)

// GoalRepository implements usecase.GoalRepository.
type GoalRepository struct {
	db DB
}

// NewGoalRepository creates a new GoalRepository.
func NewGoalRepository(db DB) *GoalRepository {
	return &GoalRepository{db: db}
}

// ListRoundUpEnabled returns the goals that receive round-ups.
func (r *GoalRepository) ListRoundUpEnabled(ctx context.Context) ([]*domain.Goal, error) {
	query := `
		SELECT id, name, target_amount, current_amount, round_up_enabled
		FROM goals
		WHERE round_up_enabled
		ORDER BY id
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var goals []*domain.Goal
	for rows.Next() {
		var (
			g               domain.Goal
			target, current pgtype.Numeric
		)
		if err := rows.Scan(&g.ID, &g.Name, &target, &current, &g.RoundUpEnabled); err != nil {
			return nil, err
		}
		g.TargetAmount = numericToDecimal(target)
		g.CurrentAmount = numericToDecimal(current)
		goals = append(goals, &g)
	}

	return goals, rows.Err()
}

// Increment adds amount to the goal's current amount in a single UPDATE.
func (r *GoalRepository) Increment(ctx context.Context, tx usecase.Tx, id string, amount decimal.Decimal) error {
	query := `UPDATE goals SET current_amount = current_amount + $2, updated_at = now() WHERE id = $1`

	tag, err := conn(r.db, tx).Exec(ctx, query, id, decimalToNumeric(amount))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrGoalNotFound
	}

	return nil
}
