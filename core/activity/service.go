package activity

import (
	"context"
	"time"

	"github.com/kazimoto/tarefa/core"
)

var NowFunc = time.Now // mockable

type (
	Repository interface {
		CreateActivity(ctx context.Context, act Activity) (Activity, error)
		GetActivityByID(ctx context.Context, id string) (Activity, error)
		// FilterActivities applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Title or Description.
		FilterActivities(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Activity, error)
		UpdateActivity(ctx context.Context, act Activity) (Activity, error)
		// DeleteActivity removes the activity and its file records; records
		// go first so no orphaned tracking rows can survive.
		DeleteActivity(ctx context.Context, id string) error

		CreateFileRecord(ctx context.Context, rec FileRecord) (FileRecord, error)
		FileRecordsByActivity(ctx context.Context, activityID string) ([]FileRecord, error)
	}

	// Notifier is told about every accepted submission; implementations are
	// best effort and must never fail the submission.
	Notifier interface {
		ActivitySubmitted(ctx context.Context, act Activity, action Action)
	}

	Service struct {
		repo     Repository
		store    core.ObjectStore
		notifier Notifier
		logger   core.Logger
	}
)

func NewService(repo Repository, store core.ObjectStore, notifier Notifier, logger core.Logger) *Service {
	return &Service{repo: repo, store: store, notifier: notifier, logger: logger}
}

func (svc *Service) Create(ctx context.Context, na NewActivity) (Activity, error) {
	if err := na.Validate(); err != nil {
		return Activity{}, err
	}
	now := NowFunc().UTC()
	act := Activity{
		Title:       na.Title,
		Description: na.Description,
		Assignee: Assignee{
			ID:    na.AssigneeID,
			Name:  na.AssigneeName,
			Email: na.AssigneeEmail,
		},
		StartDate: na.StartDate.UTC(),
		EndDate:   na.EndDate.UTC(),
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateActivity(ctx, act)
}

// Get returns the activity with its status re-derived for the current
// clock. The cached column is left alone: recomputation on read is pure.
func (svc *Service) Get(ctx context.Context, id string) (Activity, error) {
	act, err := svc.repo.GetActivityByID(ctx, id)
	if err != nil {
		return Activity{}, err
	}
	act.Status = Resolve(act, NowFunc())
	return act, nil
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Activity, error) {
	filter.Clean()
	acts, err := svc.repo.FilterActivities(ctx, filter, ordering...)
	if err != nil {
		return nil, err
	}
	now := NowFunc()
	for i := range acts {
		acts[i].Status = Resolve(acts[i], now)
	}
	return acts, nil
}

// Active lists non-archived activities, the default view.
func (svc *Service) Active(ctx context.Context, ordering ...core.DBOrdering) ([]Activity, error) {
	archived := false
	return svc.Filter(ctx, QueryFilter{Archived: &archived}, ordering...)
}

// Archive lists archived activities only.
func (svc *Service) Archive(ctx context.Context, ordering ...core.DBOrdering) ([]Activity, error) {
	archived := true
	return svc.Filter(ctx, QueryFilter{Archived: &archived}, ordering...)
}

// Submit validates and executes a collaborator submission on an activity.
//
// Files are merged into the submission folder one by one; a partial failure
// keeps the files that landed and is reported as a *MergeError naming the
// rest, alongside the updated activity. A finalization whose merge failed is
// withheld: the activity stays open so the failed files can be resubmitted,
// and only then finalized. Concurrent submissions to the same activity are
// not detected: the last write wins.
func (svc *Service) Submit(ctx context.Context, id string, sub Submission) (Activity, Action, error) {
	sub.Clean()
	act, err := svc.repo.GetActivityByID(ctx, id)
	if err != nil {
		return Activity{}, 0, err
	}
	now := NowFunc()

	updated, action, err := applySubmission(act, sub, now)
	if err != nil {
		return Activity{}, 0, err
	}

	var mergeErr *MergeError
	if len(sub.Files) > 0 {
		var stored int
		stored, mergeErr = svc.mergeFiles(ctx, updated.ID, updated.SubmissionFolder, sub.Files)
		if mergeErr != nil {
			if sub.Finalize {
				// an incomplete deliverable set must stay retryable
				updated.ManuallyCompleted = false
				if stored > 0 {
					action = ActionProgress
				} else {
					action = ActionObservation
				}
			}
			if stored == 0 && act.SubmissionFolder == "" {
				// nothing ever landed; the folder does not exist yet
				updated.SubmissionFolder = ""
			}
			// Resolve is sticky on the cached status; restore the
			// pre-submission cache before re-deriving
			updated.Status = act.Status
			updated.Status = Resolve(updated, now)
		}
	}

	updated, err = svc.repo.UpdateActivity(ctx, updated)
	if err != nil {
		return Activity{}, 0, err
	}

	if svc.notifier != nil {
		svc.notifier.ActivitySubmitted(ctx, updated, action)
	}

	if mergeErr != nil {
		return updated, action, mergeErr
	}
	return updated, action, nil
}

// mergeFiles puts each file independently; already-succeeded writes are
// kept on failure. Name collisions overwrite in place.
func (svc *Service) mergeFiles(ctx context.Context, activityID, folder string, files []File) (int, *MergeError) {
	failed := make(map[string]error)
	var stored int
	now := NowFunc().UTC()

	for _, f := range files {
		path := folder + "/" + core.Slugify(f.Name)
		if err := svc.store.Put(ctx, path, f.Content); err != nil {
			failed[f.Name] = err
			continue
		}
		stored++
		rec := FileRecord{ActivityID: activityID, Name: f.Name, Path: path, UploadedAt: now}
		if _, err := svc.repo.CreateFileRecord(ctx, rec); err != nil {
			// the object landed; losing the tracking row is recoverable
			svc.logError("recording submission file", err)
		}
	}
	if len(failed) > 0 {
		return stored, &MergeError{Folder: folder, Failed: failed}
	}
	return stored, nil
}

// AttachMaterials stores admin-provided input materials in a dated folder
// and records it on the activity.
func (svc *Service) AttachMaterials(ctx context.Context, id string, files []File) (Activity, error) {
	act, err := svc.repo.GetActivityByID(ctx, id)
	if err != nil {
		return Activity{}, err
	}
	now := NowFunc()
	if Resolve(act, now).Terminal() {
		return Activity{}, ErrInvalidState
	}
	if len(files) == 0 {
		return Activity{}, ErrEmptySubmission
	}

	folder := core.MaterialFolder(act.Assignee.ID, now)
	stored, mergeErr := svc.mergeFiles(ctx, act.ID, folder, files)
	if stored == 0 {
		// the folder holds nothing; leave the activity untouched
		return act, mergeErr
	}

	act.MaterialFolder = folder
	act.UpdatedAt = now.UTC()
	act, err = svc.repo.UpdateActivity(ctx, act)
	if err != nil {
		return Activity{}, err
	}
	if mergeErr != nil {
		return act, mergeErr
	}
	return act, nil
}

// SetArchived toggles the orthogonal visibility flag. Only completed
// activities may be archived; turning the flag back off requires explicit
// confirmation since it historically gates visibility of unread
// deliverables. The lifecycle status is never touched.
func (svc *Service) SetArchived(ctx context.Context, id string, desired, confirmed bool) (Activity, error) {
	act, err := svc.repo.GetActivityByID(ctx, id)
	if err != nil {
		return Activity{}, err
	}
	if desired && !act.Archived && !Resolve(act, NowFunc()).Terminal() {
		return Activity{}, ErrInvalidState
	}
	if act.Archived && !desired && !confirmed {
		return Activity{}, ErrConfirmationRequired
	}
	if act.Archived == desired {
		return act, nil
	}
	act.Archived = desired
	act.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateActivity(ctx, act)
}

// Delete removes an activity. Stored objects are cleaned up best effort;
// the relational delete cascades file records before the activity row.
func (svc *Service) Delete(ctx context.Context, id string) error {
	recs, err := svc.repo.FileRecordsByActivity(ctx, id)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		if err := svc.store.Remove(ctx, rec.Path); err != nil {
			svc.logError("removing stored file "+rec.Path, err)
		}
	}
	return svc.repo.DeleteActivity(ctx, id)
}

func (svc *Service) Files(ctx context.Context, id string) ([]FileRecord, error) {
	if _, err := svc.repo.GetActivityByID(ctx, id); err != nil {
		return nil, err
	}
	return svc.repo.FileRecordsByActivity(ctx, id)
}

func (svc *Service) logError(msg string, err error) {
	if svc.logger != nil {
		svc.logger.Error(msg, err)
	}
}
