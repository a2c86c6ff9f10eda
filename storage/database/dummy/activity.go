package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/kazimoto/tarefa/core"
	"github.com/kazimoto/tarefa/core/activity"
)

type ActivityRepository struct {
	db      *activityTable
	records *fileRecordTable

	// FailCreateFileRecord, when set, makes CreateFileRecord fail; tests
	// use it to exercise lost tracking rows.
	FailCreateFileRecord error
}

var _ activity.Repository = (*ActivityRepository)(nil) // interface compliance check

func NewActivityRepository(db *DB) *ActivityRepository {
	return &ActivityRepository{db: db.activity, records: db.fileRecord}
}

func (repo *ActivityRepository) CreateActivity(_ context.Context, act activity.Activity) (activity.Activity, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	act.ID = uuid.New().String()
	repo.db.table[act.ID] = &act
	return act, nil
}

func (repo *ActivityRepository) GetActivityByID(_ context.Context, id string) (activity.Activity, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if act, ok := repo.db.table[id]; ok {
		return *act, nil
	}
	return activity.Activity{}, activity.ErrNotFound
}

func (repo *ActivityRepository) query() []activity.Activity {
	acts := make([]activity.Activity, 0, len(repo.db.table))
	for _, act := range repo.db.table {
		acts = append(acts, *act)
	}
	return acts
}

func (repo *ActivityRepository) FilterActivities(_ context.Context, filter activity.QueryFilter, ordering ...core.DBOrdering) ([]activity.Activity, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	acts := repo.query()

	if filter.AssigneeID != "" {
		var filtered []activity.Activity
		for _, a := range acts {
			if a.Assignee.ID == filter.AssigneeID {
				filtered = append(filtered, a)
			}
		}
		acts = filtered
	}
	if acts != nil && filter.Status != nil {
		var filtered []activity.Activity
		for _, a := range acts {
			if a.Status == *filter.Status {
				filtered = append(filtered, a)
			}
		}
		acts = filtered
	}
	if acts != nil && filter.Archived != nil {
		var filtered []activity.Activity
		for _, a := range acts {
			if a.Archived == *filter.Archived {
				filtered = append(filtered, a)
			}
		}
		acts = filtered
	}
	if acts != nil && filter.Search != "" {
		var filtered []activity.Activity
		needle := strings.ToLower(filter.Search)
		for _, a := range acts {
			if strings.Contains(strings.ToLower(a.Title), needle) ||
				strings.Contains(strings.ToLower(a.Description), needle) {
				filtered = append(filtered, a)
			}
		}
		acts = filtered
	}
	if acts != nil && !filter.CreatedFrom.IsZero() {
		var filtered []activity.Activity
		timeUTC := filter.CreatedFrom.UTC()
		for _, a := range acts {
			if a.CreatedAt.Equal(timeUTC) || a.CreatedAt.After(timeUTC) {
				filtered = append(filtered, a)
			}
		}
		acts = filtered
	}
	if acts != nil && !filter.CreatedTo.IsZero() {
		var filtered []activity.Activity
		timeUTC := filter.CreatedTo.UTC()
		for _, a := range acts {
			if a.CreatedAt.Before(timeUTC) || a.CreatedAt.Equal(timeUTC) {
				filtered = append(filtered, a)
			}
		}
		acts = filtered
	}

	sort.Slice(acts, func(i, j int) bool { return acts[i].CreatedAt.After(acts[j].CreatedAt) })
	return acts, nil
}

func (repo *ActivityRepository) UpdateActivity(_ context.Context, act activity.Activity) (activity.Activity, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[act.ID]; !ok {
		return activity.Activity{}, activity.ErrNotFound
	}
	repo.db.table[act.ID] = &act
	return act, nil
}

func (repo *ActivityRepository) DeleteActivity(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return activity.ErrNotFound
	}

	// tracking rows go first
	repo.records.Lock()
	for rid, rec := range repo.records.table {
		if rec.ActivityID == id {
			delete(repo.records.table, rid)
		}
	}
	repo.records.Unlock()

	delete(repo.db.table, id)
	return nil
}

func (repo *ActivityRepository) CreateFileRecord(_ context.Context, rec activity.FileRecord) (activity.FileRecord, error) {
	if repo.FailCreateFileRecord != nil {
		return activity.FileRecord{}, repo.FailCreateFileRecord
	}
	repo.records.Lock()
	defer repo.records.Unlock()

	rec.ID = uuid.New().String()
	repo.records.table[rec.ID] = &rec
	return rec, nil
}

func (repo *ActivityRepository) FileRecordsByActivity(_ context.Context, activityID string) ([]activity.FileRecord, error) {
	repo.records.RLock()
	defer repo.records.RUnlock()

	recs := make([]activity.FileRecord, 0)
	for _, rec := range repo.records.table {
		if rec.ActivityID == activityID {
			recs = append(recs, *rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].UploadedAt.Before(recs[j].UploadedAt) })
	return recs, nil
}
