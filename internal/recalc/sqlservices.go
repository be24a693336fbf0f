package recalc

import (
	"context"
	"fmt"
	"time"

	"github.com/staffdesk/recalc/internal/infra/persistence/commonrepo"
)

// SQLServices runs each recalculation step through its stored procedure in
// the intranet schema. The procedures own the domain logic; this adapter only
// routes scope parameters. Steps run inside the worker's transaction when one
// is active on the context.
type SQLServices struct {
	commonrepo.DefaultRepo
}

func NewSQLServices(db commonrepo.DB) *SQLServices {
	return &SQLServices{DefaultRepo: commonrepo.NewDefaultRepo(db)}
}

// Bundle exposes the adapter as the full service set.
func (s *SQLServices) Bundle() Services {
	return Services{
		Availability:  procedureStep{s, "sp_recalc_availability"},
		WorkAggregate: procedureStep{s, "sp_recalc_work_aggregate"},
		Budget:        procedureStep{s, "sp_recalc_budget"},
		Salary:        procedureStep{s, "sp_recalc_salary"},
	}
}

type procedureStep struct {
	svc       *SQLServices
	procedure string
}

func (p procedureStep) Recalculate(ctx context.Context, userID string, day time.Time) error {
	call := fmt.Sprintf("CALL %s(?, ?)", p.procedure)
	if err := p.svc.Db(ctx).Exec(call, userID, day.Format("2006-01-02")).Error; err != nil {
		return fmt.Errorf("%s failed for user=%s day=%s: %w", p.procedure, userID, day.Format("2006-01-02"), err)
	}
	return nil
}

// SQLEntitySource snapshots the users eligible for recalculation as of a
// given day. One query per planning call.
type SQLEntitySource struct {
	commonrepo.DefaultRepo
}

func NewSQLEntitySource(db commonrepo.DB) *SQLEntitySource {
	return &SQLEntitySource{DefaultRepo: commonrepo.NewDefaultRepo(db)}
}

func (s *SQLEntitySource) EligibleEntities(ctx context.Context, asOf time.Time) ([]string, error) {
	var ids []string
	err := s.Db(ctx).
		Raw(`SELECT user_id FROM active_users WHERE active_from <= ? AND (active_to IS NULL OR active_to >= ?)`,
			asOf, asOf).
		Scan(&ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load eligible users as of %s: %w", asOf.Format("2006-01-02"), err)
	}
	return ids, nil
}
