package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/fintraq/fintraq/internal/benchmark/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) LatestCohortCandidates(ctx context.Context, db *gorm.DB, query domain.CohortQuery) ([]domain.CohortMember, error) {
	rows, err := db.WithContext(ctx).Raw(`
		SELECT pp.user_id,
		       hp.num_adults,
		       hp.dependents_under_6,
		       hp.dependents_6_to_17,
		       hp.dependents_over_18,
		       pp.net_income,
		       pp.fixed_commitment_total,
		       pp.variable_spend_total
		FROM period_profiles pp
		JOIN (
			SELECT user_id, MAX(period) AS period
			FROM period_profiles
			GROUP BY user_id
		) latest ON latest.user_id = pp.user_id AND latest.period = pp.period
		JOIN household_profiles hp ON hp.user_id = pp.user_id
		WHERE pp.user_id <> ?
		  AND hp.region_tier = ?`,
		query.ExcludeUserID, string(query.RegionTier),
	).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.CohortMember
	for rows.Next() {
		var member domain.CohortMember
		err := rows.Scan(
			&member.UserID,
			&member.NumAdults,
			&member.DependentsUnder6,
			&member.Dependents6To17,
			&member.DependentsOver18,
			&member.NetIncome,
			&member.FixedCommitmentTotal,
			&member.VariableSpendTotal,
		)
		if err != nil {
			return nil, err
		}
		members = append(members, member)
	}
	return members, rows.Err()
}
