package executionrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/wire"
	"github.com/samber/lo"
	domain "github.com/staffdesk/recalc/internal/biz/execution"
	"github.com/staffdesk/recalc/internal/infra/persistence/commonrepo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var Provider = wire.NewSet(NewMysqlRepositoryImpl)

// sortColumns is the fixed allow-list for List ordering. Anything outside it
// falls back to start_time.
var sortColumns = map[string]string{
	"start_time": "start_time",
	"end_time":   "end_time",
}

type MysqlRepositoryImpl struct {
	commonrepo.DefaultRepo
}

func NewMysqlRepositoryImpl(db commonrepo.DB) domain.Repo {
	return &MysqlRepositoryImpl{
		DefaultRepo: commonrepo.NewDefaultRepo(db),
	}
}

// Create implements execution.Repo. Always an INSERT: an id collision with an
// earlier attempt must produce a second row, never overwrite the first.
func (r *MysqlRepositoryImpl) Create(ctx context.Context, exec *domain.JobExecution) error {
	po := new(JobExecutionPO).FromDomain(exec)
	po.ID = 0
	if err := r.Db(ctx).Create(po).Error; err != nil {
		return err
	}
	exec.ID = po.ID
	exec.CreatedAt = po.CreatedAt
	exec.UpdatedAt = po.UpdatedAt
	return nil
}

// updateOpen loads the most recent open row for the id under a write lock,
// applies fn and saves, all inside one transaction. Returns
// domain.ErrNoOpenExecution when the row was never created or already sealed.
func (r *MysqlRepositoryImpl) updateOpen(ctx context.Context, executionID int64, fn func(po *JobExecutionPO)) error {
	return r.Execute(ctx, func(ctx context.Context) error {
		var po JobExecutionPO
		err := r.Db(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("execution_id = ? AND end_time IS NULL", executionID).
			Order("start_time DESC").
			First(&po).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("execution %d: %w", executionID, domain.ErrNoOpenExecution)
		}
		if err != nil {
			return err
		}
		fn(&po)
		return r.Db(ctx).Save(&po).Error
	})
}

func (r *MysqlRepositoryImpl) SetTotalSubtasks(ctx context.Context, executionID int64, n int) error {
	return r.updateOpen(ctx, executionID, func(po *JobExecutionPO) {
		po.TotalSubtasks = &n
	})
}

func (r *MysqlRepositoryImpl) IncrementTotalSubtasks(ctx context.Context, executionID int64) error {
	return r.updateOpen(ctx, executionID, func(po *JobExecutionPO) {
		n := 1
		if po.TotalSubtasks != nil {
			n = *po.TotalSubtasks + 1
		}
		po.TotalSubtasks = &n
	})
}

func (r *MysqlRepositoryImpl) SetCompletedSubtasks(ctx context.Context, executionID int64, n int) error {
	return r.updateOpen(ctx, executionID, func(po *JobExecutionPO) {
		po.CompletedSubtasks = &n
		if po.TotalSubtasks != nil && *po.TotalSubtasks > 0 {
			po.ProgressPercent = n * 100 / *po.TotalSubtasks
		}
	})
}

func (r *MysqlRepositoryImpl) IncrementCompletedSubtasks(ctx context.Context, executionID int64) error {
	return r.updateOpen(ctx, executionID, func(po *JobExecutionPO) {
		n := 1
		if po.CompletedSubtasks != nil {
			n = *po.CompletedSubtasks + 1
		}
		po.CompletedSubtasks = &n
		if po.TotalSubtasks != nil && *po.TotalSubtasks > 0 {
			po.ProgressPercent = n * 100 / *po.TotalSubtasks
		}
	})
}

func (r *MysqlRepositoryImpl) AppendDetail(ctx context.Context, executionID int64, line string) error {
	return r.updateOpen(ctx, executionID, func(po *JobExecutionPO) {
		if po.Details != "" {
			po.Details += "\n"
		}
		po.Details += line
	})
}

// AppendTrace appends, never overwrites: several partitions may each
// contribute a trace to the same execution.
func (r *MysqlRepositoryImpl) AppendTrace(ctx context.Context, executionID int64, trace string) error {
	return r.updateOpen(ctx, executionID, func(po *JobExecutionPO) {
		if po.TraceLog != "" {
			po.TraceLog += "\n---\n"
		}
		po.TraceLog += trace
	})
}

// Seal implements execution.Repo. The counters are read under the same row
// lock that writes the verdict, so a progress write can not slip between the
// read and the seal.
func (r *MysqlRepositoryImpl) Seal(ctx context.Context, executionID int64, raw domain.RawStatus, tolerance int) (domain.Result, error) {
	var result domain.Result
	err := r.updateOpen(ctx, executionID, func(po *JobExecutionPO) {
		e := po.ToDomain()
		e.Seal(raw, tolerance, time.Now())
		po.FromDomain(e)
		result = e.Result
	})
	if err != nil {
		return "", err
	}
	return result, nil
}

func (r *MysqlRepositoryImpl) GetLatest(ctx context.Context, executionID int64) (*domain.JobExecution, error) {
	var po JobExecutionPO
	err := r.Db(ctx).
		Where("execution_id = ?", executionID).
		Order("start_time DESC").
		First(&po).Error
	if err != nil {
		return nil, err
	}
	return po.ToDomain(), nil
}

func (r *MysqlRepositoryImpl) List(ctx context.Context, filter domain.ListFilter, offset, limit int) ([]*domain.JobExecution, int64, error) {
	db := r.Db(ctx).Model(&JobExecutionPO{})

	if filter.JobName.IsPresent() {
		db = db.Where("job_name = ?", filter.JobName.MustGet())
	}
	if filter.Status.IsPresent() {
		db = db.Where("status = ?", filter.Status.MustGet())
	}
	if filter.Result.IsPresent() {
		db = db.Where("result = ?", filter.Result.MustGet())
	}
	if filter.RunningOnly {
		db = db.Where("end_time IS NULL")
	}
	if filter.StartedAfter.IsPresent() {
		db = db.Where("start_time >= ?", filter.StartedAfter.MustGet())
	}
	if filter.StartedBefore.IsPresent() {
		db = db.Where("start_time <= ?", filter.StartedBefore.MustGet())
	}
	if filter.EndedAfter.IsPresent() {
		db = db.Where("end_time >= ?", filter.EndedAfter.MustGet())
	}
	if filter.EndedBefore.IsPresent() {
		db = db.Where("end_time <= ?", filter.EndedBefore.MustGet())
	}

	var count int64
	if err := db.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	column, ok := sortColumns[filter.SortBy]
	if !ok {
		column = "start_time"
	}
	order := column
	if filter.SortDesc {
		order += " DESC"
	}

	var pos []*JobExecutionPO
	if err := db.Order(order).Limit(limit).Offset(offset).Find(&pos).Error; err != nil {
		return nil, 0, err
	}

	return lo.Map(pos, func(po *JobExecutionPO, _ int) *domain.JobExecution {
		return po.ToDomain()
	}), count, nil
}

func (r *MysqlRepositoryImpl) CountByResult(ctx context.Context, query domain.StatsQuery) (map[domain.Result]int64, error) {
	db := r.Db(ctx).Model(&JobExecutionPO{}).Where("result != ''")

	if query.JobName.IsPresent() {
		db = db.Where("job_name = ?", query.JobName.MustGet())
	}
	if query.StartedAfter.IsPresent() {
		db = db.Where("start_time >= ?", query.StartedAfter.MustGet())
	}
	if query.StartedBefore.IsPresent() {
		db = db.Where("start_time <= ?", query.StartedBefore.MustGet())
	}

	type row struct {
		Result domain.Result
		Count  int64
	}
	var rows []row
	if err := db.Select("result, COUNT(*) AS count").Group("result").Find(&rows).Error; err != nil {
		return nil, err
	}

	stats := make(map[domain.Result]int64, len(rows))
	for _, rw := range rows {
		stats[rw.Result] = rw.Count
	}
	return stats, nil
}
