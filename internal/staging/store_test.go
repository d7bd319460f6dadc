package staging_test

import (
	"testing"

	"github.com/opsdesk/attachkit/internal/attachment"
	"github.com/opsdesk/attachkit/internal/staging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(id string) attachment.Record {
	return attachment.Record{ID: id, OriginalName: id + ".pdf", FileType: "application/pdf", SizeBytes: 1024}
}

func ids(records []attachment.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func TestMoveExistingToDeleteIsAtomic(t *testing.T) {
	s := staging.NewStore()
	scope := staging.ForTarget("task-1")
	s.SetExisting(scope, []attachment.Record{record("a"), record("b"), record("c")})

	s.MoveExistingToDelete(scope, "b")

	assert.Equal(t, []string{"a", "c"}, ids(s.Existing(scope)))
	assert.Equal(t, []string{"b"}, ids(s.PendingDelete(scope)))

	s.RestoreFromDelete(scope, "b")

	assert.Equal(t, []string{"a", "c", "b"}, ids(s.Existing(scope)))
	assert.Empty(t, s.PendingDelete(scope))
}

func TestMoveExistingToDeleteMissingIDIsNoop(t *testing.T) {
	s := staging.NewStore()
	scope := staging.ForTarget("task-1")
	s.SetExisting(scope, []attachment.Record{record("a")})

	s.MoveExistingToDelete(scope, "nope")

	assert.Equal(t, []string{"a"}, ids(s.Existing(scope)))
	assert.Empty(t, s.PendingDelete(scope))

	s.RestoreFromDelete(scope, "nope")

	assert.Equal(t, []string{"a"}, ids(s.Existing(scope)))
	assert.Empty(t, s.PendingDelete(scope))
}

func TestConfirmDeletionDropsStagedAndScrubsExisting(t *testing.T) {
	s := staging.NewStore()
	scope := staging.ForTarget("task-1")
	s.SetExisting(scope, []attachment.Record{record("a"), record("b")})
	s.MoveExistingToDelete(scope, "a")
	// Simulate a stray duplicate that is both existing and staged.
	s.AddExisting(scope, record("a"))

	s.ConfirmDeletion(scope)

	assert.Equal(t, []string{"b"}, ids(s.Existing(scope)))
	assert.Empty(t, s.PendingDelete(scope))
}

func TestUpsertExistingReplacesByID(t *testing.T) {
	s := staging.NewStore()
	scope := staging.ForTarget("task-1")
	s.SetExisting(scope, []attachment.Record{record("a"), record("b")})

	updated := record("a")
	updated.OriginalName = "renamed.pdf"
	s.UpsertExisting(scope, updated)

	got := s.Existing(scope)
	require.Len(t, got, 2)
	assert.Equal(t, "renamed.pdf", got[0].OriginalName)

	s.UpsertExisting(scope, record("c"))
	assert.Equal(t, []string{"a", "b", "c"}, ids(s.Existing(scope)))
}

func TestAddExistingDoesNotDeduplicate(t *testing.T) {
	s := staging.NewStore()
	scope := staging.ForTarget("task-1")
	s.AddExisting(scope, record("a"))
	s.AddExisting(scope, record("a"))

	assert.Len(t, s.Existing(scope), 2)
}

func TestEnqueueAndQueueLifecycle(t *testing.T) {
	s := staging.NewStore()
	scope := staging.ForTarget("task-1")

	id1 := s.Enqueue(scope, staging.EnqueueInput{Filename: "one.txt", SizeBytes: 3, Open: attachment.BytesOpener([]byte("one"))})
	id2 := s.Enqueue(scope, staging.EnqueueInput{Filename: "two.txt", SizeBytes: 3, Open: attachment.BytesOpener([]byte("two"))})
	require.NotEqual(t, id1, id2)

	queue := s.Queue(scope)
	require.Len(t, queue, 2)
	assert.Equal(t, attachment.StatusQueued, queue[0].Status)
	assert.Equal(t, "one.txt", queue[0].Filename)

	s.SetStatus(scope, id1, attachment.StatusFailed)
	pending := s.Pending(scope)
	require.Len(t, pending, 1)
	assert.Equal(t, id2, pending[0].ID)
	require.Len(t, s.Failed(scope), 1)

	s.Retry(scope, id1)
	assert.Len(t, s.Pending(scope), 2)

	s.SetStatus(scope, id1, attachment.StatusFailed)
	s.ClearFailed(scope)
	assert.Equal(t, []string{id2}, func() []string {
		var out []string
		for _, it := range s.Queue(scope) {
			out = append(out, it.ID)
		}
		return out
	}())

	s.Flush(scope)
	assert.Empty(t, s.Queue(scope))
}

func TestRemoveCancelsInFlightTransfer(t *testing.T) {
	s := staging.NewStore()
	scope := staging.ForTarget("task-1")
	id := s.Enqueue(scope, staging.EnqueueInput{Filename: "big.bin", SizeBytes: 10})

	cancelled := false
	s.SetCancel(id, func() { cancelled = true })
	s.SetStatus(scope, id, attachment.StatusUploading)

	s.Remove(scope, id)

	assert.True(t, cancelled)
	assert.Empty(t, s.Queue(scope))
}

func TestRetryLeavesNonFailedAlone(t *testing.T) {
	s := staging.NewStore()
	scope := staging.ForTarget("task-1")
	id := s.Enqueue(scope, staging.EnqueueInput{Filename: "a.txt", SizeBytes: 1})
	s.SetStatus(scope, id, attachment.StatusUploaded)

	s.Retry(scope, id)

	assert.Equal(t, attachment.StatusUploaded, s.Queue(scope)[0].Status)
}

func TestSelections(t *testing.T) {
	s := staging.NewStore()
	scope := staging.ForTarget("faq-9")

	s.Select(scope, record("lib-1"))
	s.Select(scope, record("lib-2"))
	s.Deselect(scope, "lib-1")
	s.Deselect(scope, "missing") // no-op

	assert.Equal(t, []string{"lib-2"}, ids(s.Selections(scope)))

	s.ClearSelections(scope)
	assert.Empty(t, s.Selections(scope))
}

func TestAdoptUnassignedMovesEverythingOnce(t *testing.T) {
	s := staging.NewStore()
	un := staging.Unassigned()

	id1 := s.Enqueue(un, staging.EnqueueInput{Filename: "first.txt", SizeBytes: 1})
	id2 := s.Enqueue(un, staging.EnqueueInput{Filename: "second.txt", SizeBytes: 1})
	s.Select(un, record("lib-1"))

	s.AdoptUnassigned("task-7")

	target := staging.ForTarget("task-7")
	queue := s.Queue(target)
	require.Len(t, queue, 2)
	assert.Equal(t, id1, queue[0].ID, "adoption must preserve order")
	assert.Equal(t, id2, queue[1].ID)
	assert.Equal(t, []string{"lib-1"}, ids(s.Selections(target)))

	assert.Empty(t, s.Queue(un))
	assert.Empty(t, s.Selections(un))

	// A second adoption into another target finds nothing to move.
	s.AdoptUnassigned("task-8")
	assert.Empty(t, s.Queue(staging.ForTarget("task-8")))
	assert.Len(t, s.Queue(target), 2)
}

func TestScopesAreIndependent(t *testing.T) {
	s := staging.NewStore()
	a := staging.ForTarget("a")
	b := staging.ForTarget("b")

	s.AddExisting(a, record("one"))
	s.Enqueue(b, staging.EnqueueInput{Filename: "x", SizeBytes: 1})

	assert.Len(t, s.Existing(a), 1)
	assert.Empty(t, s.Existing(b))
	assert.Empty(t, s.Queue(a))
	assert.Len(t, s.Queue(b), 1)
}
