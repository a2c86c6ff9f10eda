package activity_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kazimoto/tarefa/core/activity"
	dummydb "github.com/kazimoto/tarefa/storage/database/dummy"
	dummystore "github.com/kazimoto/tarefa/storage/object/dummy"
	testutil "github.com/kazimoto/tarefa/tests"
)

type notifierRecorder struct {
	mu      sync.Mutex
	actions []activity.Action
}

func (n *notifierRecorder) ActivitySubmitted(_ context.Context, _ activity.Activity, action activity.Action) {
	n.mu.Lock()
	n.actions = append(n.actions, action)
	n.mu.Unlock()
}

type serviceFixture struct {
	svc      *activity.Service
	repo     *dummydb.ActivityRepository
	store    *dummystore.Store
	notifier *notifierRecorder
}

func setup(t *testing.T) *serviceFixture {
	t.Helper()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	fix := &serviceFixture{
		repo:     dummydb.NewActivityRepository(db),
		store:    dummystore.New(),
		notifier: &notifierRecorder{},
	}
	fix.svc = activity.NewService(fix.repo, fix.store, fix.notifier, nil)
	return fix
}

func mockNow(t *testing.T, now time.Time) {
	t.Helper()
	orig := activity.NowFunc
	activity.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { activity.NowFunc = orig })
}

var (
	ana      = activity.Assignee{ID: "col-7", Name: "Ana Prado", Email: "ana@test.cd"}
	window   = time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	deadline = time.Date(2021, 3, 15, 0, 0, 0, 0, time.UTC)
)

func file(name, content string) activity.File {
	return activity.File{Name: name, Content: strings.NewReader(content)}
}

func TestServiceCreate(t *testing.T) {
	fix := setup(t)
	ctx := context.Background()
	mockNow(t, window.Add(time.Hour))

	t.Run("missing required fields", func(t *testing.T) {
		_, err := fix.svc.Create(ctx, activity.NewActivity{Title: "Relatorio"})
		if err == nil {
			t.Fatal("Create() expected a validation error")
		}
	})

	t.Run("ok", func(t *testing.T) {
		act, err := fix.svc.Create(ctx, activity.NewActivity{
			Title:        "  Relatorio Mensal ",
			AssigneeID:   ana.ID,
			AssigneeName: ana.Name,
			StartDate:    window,
			EndDate:      deadline,
		})
		if err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
		if act.ID == "" {
			t.Error("Create() did not assign an ID")
		}
		if act.Title != "Relatorio Mensal" {
			t.Errorf("Title = %q; want cleaned %q", act.Title, "Relatorio Mensal")
		}
		if act.Status != activity.StatusPending {
			t.Errorf("Status = %v; want %v", act.Status, activity.StatusPending)
		}
		if act.CreatedAt.Location() != time.UTC {
			t.Error("CreatedAt is not UTC")
		}
	})
}

func TestServiceGetResolvesStatus(t *testing.T) {
	fix := setup(t)
	ctx := context.Background()

	act := testutil.CreateActivity(t, fix.repo, "Inventario", ana, window, deadline)

	// the cached column still says Pending; a read after the deadline
	// must report Late
	mockNow(t, deadline.Add(48*time.Hour))
	got, err := fix.svc.Get(ctx, act.ID)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.Status != activity.StatusLate {
		t.Errorf("Status = %v; want %v", got.Status, activity.StatusLate)
	}

	if _, err = fix.svc.Get(ctx, "nope"); !errors.Is(err, activity.ErrNotFound) {
		t.Errorf("Get(unknown) error = %v; want ErrNotFound", err)
	}
}

func TestServiceSubmit(t *testing.T) {
	ctx := context.Background()
	now := window.Add(72 * time.Hour)

	t.Run("progress stores files and records", func(t *testing.T) {
		fix := setup(t)
		mockNow(t, now)
		act := testutil.CreateActivity(t, fix.repo, "Relatorio Mensal", ana, window, deadline)

		got, action, err := fix.svc.Submit(ctx, act.ID, activity.Submission{
			Files: []activity.File{file("Parcial V1.pdf", "%PDF"), file("dados.csv", "a,b")},
			Note:  "primeira parcial",
		})
		if err != nil {
			t.Fatalf("Submit() failed: %v", err)
		}
		if action != activity.ActionProgress {
			t.Errorf("action = %v; want %v", action, activity.ActionProgress)
		}
		if got.Status != activity.StatusInProgress {
			t.Errorf("Status = %v; want %v", got.Status, activity.StatusInProgress)
		}
		if got.SubmissionFolder != "ana-prado/relatorio-mensal" {
			t.Errorf("SubmissionFolder = %q", got.SubmissionFolder)
		}
		if !got.DeliveryDate.Equal(now.UTC()) {
			t.Errorf("DeliveryDate = %v; want %v", got.DeliveryDate, now.UTC())
		}
		if fix.store.Len() != 2 {
			t.Errorf("stored objects = %d; want 2", fix.store.Len())
		}
		if _, err := fix.store.Get(ctx, "ana-prado/relatorio-mensal/parcial-v1.pdf"); err != nil {
			t.Errorf("stored file missing: %v", err)
		}

		recs, err := fix.svc.Files(ctx, act.ID)
		if err != nil {
			t.Fatalf("Files() failed: %v", err)
		}
		if len(recs) != 2 {
			t.Errorf("file records = %d; want 2", len(recs))
		}
		if len(fix.notifier.actions) != 1 || fix.notifier.actions[0] != activity.ActionProgress {
			t.Errorf("notifier actions = %v; want [ActionProgress]", fix.notifier.actions)
		}
	})

	t.Run("finalize on time", func(t *testing.T) {
		fix := setup(t)
		mockNow(t, now)
		act := testutil.CreateActivity(t, fix.repo, "Relatorio Mensal", ana, window, deadline)

		got, action, err := fix.svc.Submit(ctx, act.ID, activity.Submission{
			Files:    []activity.File{file("final.pdf", "%PDF")},
			Finalize: true,
		})
		if err != nil {
			t.Fatalf("Submit() failed: %v", err)
		}
		if action != activity.ActionFinalization {
			t.Errorf("action = %v; want %v", action, activity.ActionFinalization)
		}
		if got.Status != activity.StatusCompleted {
			t.Errorf("Status = %v; want %v", got.Status, activity.StatusCompleted)
		}
		if !got.ManuallyCompleted {
			t.Error("ManuallyCompleted not set")
		}
	})

	t.Run("terminal rejects further submissions", func(t *testing.T) {
		fix := setup(t)
		mockNow(t, now)
		act := testutil.CreateActivity(t, fix.repo, "Relatorio Mensal", ana, window, deadline)

		if _, _, err := fix.svc.Submit(ctx, act.ID, activity.Submission{Finalize: true, Files: []activity.File{file("f.pdf", "x")}}); err != nil {
			t.Fatalf("Submit() failed: %v", err)
		}
		_, _, err := fix.svc.Submit(ctx, act.ID, activity.Submission{Files: []activity.File{file("late.pdf", "x")}})
		if !errors.Is(err, activity.ErrInvalidState) {
			t.Errorf("Submit() error = %v; want ErrInvalidState", err)
		}
		if len(fix.notifier.actions) != 1 {
			t.Errorf("notifier called %d times; want 1", len(fix.notifier.actions))
		}
	})

	t.Run("partial merge keeps landed files", func(t *testing.T) {
		fix := setup(t)
		mockNow(t, now)
		act := testutil.CreateActivity(t, fix.repo, "Relatorio Mensal", ana, window, deadline)

		storeErr := errors.New("disk full")
		fix.store.FailPut = map[string]error{"ana-prado/relatorio-mensal/b.pdf": storeErr}

		got, _, err := fix.svc.Submit(ctx, act.ID, activity.Submission{
			Files: []activity.File{file("a.pdf", "aa"), file("b.pdf", "bb")},
		})
		var merr *activity.MergeError
		if !errors.As(err, &merr) {
			t.Fatalf("Submit() error = %v; want *MergeError", err)
		}
		if wantErr, ok := merr.Failed["b.pdf"]; !ok || !errors.Is(wantErr, storeErr) {
			t.Errorf("MergeError.Failed = %v; want b.pdf: disk full", merr.Failed)
		}
		if got.SubmissionFolder != "ana-prado/relatorio-mensal" {
			t.Errorf("SubmissionFolder = %q; the successful file must keep the folder", got.SubmissionFolder)
		}
		if got.Status != activity.StatusInProgress {
			t.Errorf("Status = %v; want %v", got.Status, activity.StatusInProgress)
		}
		if fix.store.Len() != 1 {
			t.Errorf("stored objects = %d; want 1", fix.store.Len())
		}
		recs, _ := fix.repo.FileRecordsByActivity(ctx, act.ID)
		if len(recs) != 1 {
			t.Errorf("file records = %d; want only the landed file", len(recs))
		}
	})

	t.Run("failed merge withholds finalization", func(t *testing.T) {
		fix := setup(t)
		mockNow(t, now)
		act := testutil.CreateActivity(t, fix.repo, "Relatorio Mensal", ana, window, deadline)

		storeErr := errors.New("unreachable")
		fix.store.FailPut = map[string]error{"ana-prado/relatorio-mensal/final.pdf": storeErr}

		got, _, err := fix.svc.Submit(ctx, act.ID, activity.Submission{
			Files:    []activity.File{file("final.pdf", "%PDF")},
			Finalize: true,
		})
		var merr *activity.MergeError
		if !errors.As(err, &merr) {
			t.Fatalf("Submit() error = %v; want *MergeError", err)
		}
		if got.Status.Terminal() {
			t.Fatalf("Status = %v; a failed merge must not finalize", got.Status)
		}
		if got.ManuallyCompleted {
			t.Error("ManuallyCompleted set although the deliverable never landed")
		}
		if got.SubmissionFolder != "" {
			t.Errorf("SubmissionFolder = %q; want empty when nothing landed", got.SubmissionFolder)
		}

		// the failed file stays resubmittable, then the activity finalizes
		fix.store.FailPut = nil
		got, action, err := fix.svc.Submit(ctx, act.ID, activity.Submission{
			Files:    []activity.File{file("final.pdf", "%PDF")},
			Finalize: true,
		})
		if err != nil {
			t.Fatalf("Submit() retry failed: %v", err)
		}
		if action != activity.ActionFinalization {
			t.Errorf("retry action = %v; want %v", action, activity.ActionFinalization)
		}
		if got.Status != activity.StatusCompleted {
			t.Errorf("retry Status = %v; want %v", got.Status, activity.StatusCompleted)
		}
	})

	t.Run("partial merge demotes finalization to progress", func(t *testing.T) {
		fix := setup(t)
		mockNow(t, now)
		act := testutil.CreateActivity(t, fix.repo, "Relatorio Mensal", ana, window, deadline)

		storeErr := errors.New("disk full")
		fix.store.FailPut = map[string]error{"ana-prado/relatorio-mensal/b.pdf": storeErr}

		got, _, err := fix.svc.Submit(ctx, act.ID, activity.Submission{
			Files:    []activity.File{file("a.pdf", "aa"), file("b.pdf", "bb")},
			Finalize: true,
		})
		var merr *activity.MergeError
		if !errors.As(err, &merr) {
			t.Fatalf("Submit() error = %v; want *MergeError", err)
		}
		if got.Status != activity.StatusInProgress {
			t.Errorf("Status = %v; want %v", got.Status, activity.StatusInProgress)
		}
		if got.ManuallyCompleted {
			t.Error("ManuallyCompleted set although the deliverable set is incomplete")
		}
		if last := fix.notifier.actions[len(fix.notifier.actions)-1]; last != activity.ActionProgress {
			t.Errorf("notified action = %v; want %v", last, activity.ActionProgress)
		}

		// retrying just the failed file completes the activity
		fix.store.FailPut = nil
		got, action, err := fix.svc.Submit(ctx, act.ID, activity.Submission{
			Files:    []activity.File{file("b.pdf", "bb")},
			Finalize: true,
		})
		if err != nil {
			t.Fatalf("Submit() retry failed: %v", err)
		}
		if action != activity.ActionFinalization {
			t.Errorf("retry action = %v; want %v", action, activity.ActionFinalization)
		}
		if got.Status != activity.StatusCompleted {
			t.Errorf("retry Status = %v; want %v", got.Status, activity.StatusCompleted)
		}
		if fix.store.Len() != 2 {
			t.Errorf("stored objects = %d; want 2", fix.store.Len())
		}
	})

	t.Run("total merge failure reverts folder", func(t *testing.T) {
		fix := setup(t)
		mockNow(t, now)
		act := testutil.CreateActivity(t, fix.repo, "Relatorio Mensal", ana, window, deadline)

		storeErr := errors.New("unreachable")
		fix.store.FailPut = map[string]error{"ana-prado/relatorio-mensal/a.pdf": storeErr}

		got, _, err := fix.svc.Submit(ctx, act.ID, activity.Submission{
			Files: []activity.File{file("a.pdf", "aa")},
		})
		var merr *activity.MergeError
		if !errors.As(err, &merr) {
			t.Fatalf("Submit() error = %v; want *MergeError", err)
		}
		if got.SubmissionFolder != "" {
			t.Errorf("SubmissionFolder = %q; want empty when nothing landed", got.SubmissionFolder)
		}
		if got.Status != activity.StatusPending {
			t.Errorf("Status = %v; want %v", got.Status, activity.StatusPending)
		}
	})

	t.Run("lost tracking row is not fatal", func(t *testing.T) {
		fix := setup(t)
		mockNow(t, now)
		act := testutil.CreateActivity(t, fix.repo, "Relatorio Mensal", ana, window, deadline)

		fix.repo.FailCreateFileRecord = errors.New("insert failed")

		got, _, err := fix.svc.Submit(ctx, act.ID, activity.Submission{
			Files: []activity.File{file("a.pdf", "aa")},
		})
		if err != nil {
			t.Fatalf("Submit() failed: %v", err)
		}
		if got.SubmissionFolder == "" {
			t.Error("SubmissionFolder not set")
		}
		if fix.store.Len() != 1 {
			t.Errorf("stored objects = %d; want 1", fix.store.Len())
		}
	})

	t.Run("unknown activity", func(t *testing.T) {
		fix := setup(t)
		mockNow(t, now)
		_, _, err := fix.svc.Submit(ctx, "nope", activity.Submission{Files: []activity.File{file("a.pdf", "x")}})
		if !errors.Is(err, activity.ErrNotFound) {
			t.Errorf("Submit() error = %v; want ErrNotFound", err)
		}
	})
}

func TestServiceAttachMaterials(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2021, 3, 4, 10, 0, 0, 0, time.UTC)

	t.Run("ok", func(t *testing.T) {
		fix := setup(t)
		mockNow(t, now)
		act := testutil.CreateActivity(t, fix.repo, "Inventario", ana, window, deadline)

		got, err := fix.svc.AttachMaterials(ctx, act.ID, []activity.File{file("modelo.xlsx", "bin")})
		if err != nil {
			t.Fatalf("AttachMaterials() failed: %v", err)
		}
		if got.MaterialFolder != "col-7/2021/03/04" {
			t.Errorf("MaterialFolder = %q", got.MaterialFolder)
		}
		if _, err := fix.store.Get(ctx, "col-7/2021/03/04/modelo.xlsx"); err != nil {
			t.Errorf("stored material missing: %v", err)
		}
	})

	t.Run("failed uploads record no folder", func(t *testing.T) {
		fix := setup(t)
		mockNow(t, now)
		act := testutil.CreateActivity(t, fix.repo, "Inventario", ana, window, deadline)

		storeErr := errors.New("disk full")
		fix.store.FailPut = map[string]error{"col-7/2021/03/04/modelo.xlsx": storeErr}

		got, err := fix.svc.AttachMaterials(ctx, act.ID, []activity.File{file("modelo.xlsx", "bin")})
		var merr *activity.MergeError
		if !errors.As(err, &merr) {
			t.Fatalf("AttachMaterials() error = %v; want *MergeError", err)
		}
		if got.MaterialFolder != "" {
			t.Errorf("MaterialFolder = %q; want empty when nothing landed", got.MaterialFolder)
		}
		refetched, err := fix.repo.GetActivityByID(ctx, act.ID)
		if err != nil {
			t.Fatalf("GetActivityByID() failed: %v", err)
		}
		if refetched.MaterialFolder != "" {
			t.Errorf("persisted MaterialFolder = %q; want empty", refetched.MaterialFolder)
		}
		if fix.store.Len() != 0 {
			t.Errorf("stored objects = %d; want 0", fix.store.Len())
		}
	})

	t.Run("no files", func(t *testing.T) {
		fix := setup(t)
		mockNow(t, now)
		act := testutil.CreateActivity(t, fix.repo, "Inventario", ana, window, deadline)

		if _, err := fix.svc.AttachMaterials(ctx, act.ID, nil); !errors.Is(err, activity.ErrEmptySubmission) {
			t.Errorf("AttachMaterials() error = %v; want ErrEmptySubmission", err)
		}
	})

	t.Run("terminal activity", func(t *testing.T) {
		fix := setup(t)
		mockNow(t, now)
		act := testutil.CreateActivity(t, fix.repo, "Inventario", ana, window, deadline)
		if _, _, err := fix.svc.Submit(ctx, act.ID, activity.Submission{Finalize: true, Files: []activity.File{file("f.pdf", "x")}}); err != nil {
			t.Fatalf("Submit() failed: %v", err)
		}

		if _, err := fix.svc.AttachMaterials(ctx, act.ID, []activity.File{file("m.pdf", "x")}); !errors.Is(err, activity.ErrInvalidState) {
			t.Errorf("AttachMaterials() error = %v; want ErrInvalidState", err)
		}
	})
}

func TestServiceSetArchived(t *testing.T) {
	ctx := context.Background()
	now := window.Add(24 * time.Hour)

	finalize := func(t *testing.T, fix *serviceFixture, id string) {
		t.Helper()
		if _, _, err := fix.svc.Submit(ctx, id, activity.Submission{Finalize: true, Files: []activity.File{file("f.pdf", "x")}}); err != nil {
			t.Fatalf("Submit() failed: %v", err)
		}
	}

	t.Run("archive requires a completed activity", func(t *testing.T) {
		fix := setup(t)
		mockNow(t, now)
		act := testutil.CreateActivity(t, fix.repo, "Inventario", ana, window, deadline)

		if _, err := fix.svc.SetArchived(ctx, act.ID, true, false); !errors.Is(err, activity.ErrInvalidState) {
			t.Errorf("SetArchived() error = %v; want ErrInvalidState", err)
		}

		finalize(t, fix, act.ID)
		got, err := fix.svc.SetArchived(ctx, act.ID, true, false)
		if err != nil {
			t.Fatalf("SetArchived() failed: %v", err)
		}
		if !got.Archived {
			t.Error("Archived flag not set")
		}
		if got.Status != activity.StatusCompleted {
			t.Errorf("Status = %v; archiving must not touch the lifecycle", got.Status)
		}
	})

	t.Run("unarchive requires confirmation", func(t *testing.T) {
		fix := setup(t)
		mockNow(t, now)
		act := testutil.CreateActivity(t, fix.repo, "Inventario", ana, window, deadline)
		finalize(t, fix, act.ID)
		if _, err := fix.svc.SetArchived(ctx, act.ID, true, false); err != nil {
			t.Fatalf("SetArchived() failed: %v", err)
		}

		if _, err := fix.svc.SetArchived(ctx, act.ID, false, false); !errors.Is(err, activity.ErrConfirmationRequired) {
			t.Errorf("SetArchived() error = %v; want ErrConfirmationRequired", err)
		}
		got, err := fix.svc.SetArchived(ctx, act.ID, false, true)
		if err != nil {
			t.Fatalf("SetArchived(confirmed) failed: %v", err)
		}
		if got.Archived {
			t.Error("Archived flag still set")
		}
	})

	t.Run("noop when already in the desired state", func(t *testing.T) {
		fix := setup(t)
		mockNow(t, now)
		act := testutil.CreateActivity(t, fix.repo, "Inventario", ana, window, deadline)

		got, err := fix.svc.SetArchived(ctx, act.ID, false, false)
		if err != nil {
			t.Fatalf("SetArchived() failed: %v", err)
		}
		if got.Archived {
			t.Error("Archived flag set on noop")
		}
	})
}

func TestServiceActiveAndArchive(t *testing.T) {
	fix := setup(t)
	ctx := context.Background()
	mockNow(t, window.Add(time.Hour))

	live := testutil.CreateActivity(t, fix.repo, "Inventario", ana, window, deadline)
	done := testutil.CreateActivity(t, fix.repo, "Relatorio", ana, window, deadline)
	if _, _, err := fix.svc.Submit(ctx, done.ID, activity.Submission{Finalize: true, Files: []activity.File{file("f.pdf", "x")}}); err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	if _, err := fix.svc.SetArchived(ctx, done.ID, true, false); err != nil {
		t.Fatalf("SetArchived() failed: %v", err)
	}

	active, err := fix.svc.Active(ctx)
	if err != nil {
		t.Fatalf("Active() failed: %v", err)
	}
	if len(active) != 1 || active[0].ID != live.ID {
		t.Errorf("Active() = %d activities; want only %q", len(active), live.Title)
	}

	archived, err := fix.svc.Archive(ctx)
	if err != nil {
		t.Fatalf("Archive() failed: %v", err)
	}
	if len(archived) != 1 || archived[0].ID != done.ID {
		t.Errorf("Archive() = %d activities; want only %q", len(archived), done.Title)
	}
}

func TestServiceDelete(t *testing.T) {
	fix := setup(t)
	ctx := context.Background()
	mockNow(t, window.Add(time.Hour))

	act := testutil.CreateActivity(t, fix.repo, "Relatorio Mensal", ana, window, deadline)
	if _, _, err := fix.svc.Submit(ctx, act.ID, activity.Submission{
		Files: []activity.File{file("a.pdf", "aa"), file("b.pdf", "bb")},
	}); err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	if fix.store.Len() != 2 {
		t.Fatalf("stored objects = %d; want 2", fix.store.Len())
	}

	if err := fix.svc.Delete(ctx, act.ID); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if fix.store.Len() != 0 {
		t.Errorf("stored objects = %d after delete; want 0", fix.store.Len())
	}
	if _, err := fix.svc.Get(ctx, act.ID); !errors.Is(err, activity.ErrNotFound) {
		t.Errorf("Get() after delete error = %v; want ErrNotFound", err)
	}
	recs, err := fix.repo.FileRecordsByActivity(ctx, act.ID)
	if err != nil {
		t.Fatalf("FileRecordsByActivity() failed: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("file records = %d after delete; want 0", len(recs))
	}
}
