package extensions

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkVersion(id int64, status Status, deleted bool, createdAt time.Time) *Version {
	return &Version{ID: id, Status: status, Deleted: deleted, CreatedAt: createdAt}
}

func TestDeriveStatus(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		versions []*Version
		want     Status
	}{
		{
			name:     "no versions",
			versions: nil,
			want:     StatusNull,
		},
		{
			name: "all deleted",
			versions: []*Version{
				mkVersion(1, StatusPublic, true, base),
				mkVersion(2, StatusPending, true, base.Add(time.Hour)),
			},
			want: StatusNull,
		},
		{
			name: "single pending",
			versions: []*Version{
				mkVersion(1, StatusPending, false, base),
			},
			want: StatusPending,
		},
		{
			name: "public wins over newer pending",
			versions: []*Version{
				mkVersion(1, StatusPublic, false, base),
				mkVersion(2, StatusPending, false, base.Add(time.Hour)),
			},
			want: StatusPublic,
		},
		{
			name: "deleted public falls back to newest live",
			versions: []*Version{
				mkVersion(1, StatusPublic, true, base),
				mkVersion(2, StatusPending, false, base.Add(time.Hour)),
			},
			want: StatusPending,
		},
		{
			name: "newest rejected with no public",
			versions: []*Version{
				mkVersion(1, StatusObsolete, false, base),
				mkVersion(2, StatusRejected, false, base.Add(time.Hour)),
			},
			want: StatusRejected,
		},
		{
			name: "id breaks timestamp ties",
			versions: []*Version{
				mkVersion(1, StatusRejected, false, base),
				mkVersion(2, StatusPending, false, base),
			},
			want: StatusPending,
		},
		{
			name: "old public still wins",
			versions: []*Version{
				mkVersion(1, StatusPublic, false, base),
				mkVersion(2, StatusRejected, false, base.Add(time.Hour)),
				mkVersion(3, StatusObsolete, false, base.Add(2*time.Hour)),
			},
			want: StatusPublic,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveStatus(tt.versions))
		})
	}
}

func TestDeriveStatusOrderIndependent(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	versions := []*Version{
		mkVersion(1, StatusRejected, false, base),
		mkVersion(2, StatusPublic, false, base.Add(time.Hour)),
		mkVersion(3, StatusPending, false, base.Add(2*time.Hour)),
		mkVersion(4, StatusObsolete, true, base.Add(3*time.Hour)),
	}

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := append([]*Version(nil), versions...)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		assert.Equal(t, StatusPublic, DeriveStatus(shuffled))
	}
}

func TestDeriveStatusDoesNotMutateInput(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	versions := []*Version{
		mkVersion(3, StatusPending, false, base.Add(2*time.Hour)),
		mkVersion(1, StatusRejected, false, base),
		mkVersion(2, StatusPublic, false, base.Add(time.Hour)),
	}
	DeriveStatus(versions)
	assert.Equal(t, int64(3), versions[0].ID)
	assert.Equal(t, int64(1), versions[1].ID)
	assert.Equal(t, int64(2), versions[2].ID)
}

// TestProjectionTracksRandomLifecycle drives a random mix of store mutations
// and checks after every step that the stored extension status matches the
// projection over its version list. Transition and lifecycle errors are
// expected along the way; the invariant must hold regardless.
func TestProjectionTracksRandomLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	ext := &Extension{UUID: "uuid-walk", Slug: "walk", Name: "Walk", AuthorIDs: []int64{1}}
	first := &Version{Version: "0.1.0"}
	require.NoError(t, store.CreateExtension(ctx, ext, first, nil))
	ids := []int64{first.ID}

	noArtifact := func(context.Context) (int64, error) { return 0, nil }
	rng := rand.New(rand.NewSource(11))

	for step := 0; step < 300; step++ {
		switch rng.Intn(4) {
		case 0:
			v := &Version{ExtensionID: ext.ID, Version: fmt.Sprintf("0.1.%d", step+1)}
			if _, err := store.AddVersion(ctx, v, nil); err == nil {
				ids = append(ids, v.ID)
			}
		case 1:
			_, _ = store.PublishVersion(ctx, ids[rng.Intn(len(ids))], 1)
		case 2:
			_, _ = store.RejectVersion(ctx, ids[rng.Intn(len(ids))], noArtifact)
		case 3:
			_, _ = store.DeleteVersion(ctx, ids[rng.Intn(len(ids))])
		}

		got, err := store.GetExtension(ctx, ext.ID)
		require.NoError(t, err)
		versions, err := store.ListVersions(ctx, ext.ID)
		require.NoError(t, err)
		require.Equal(t, DeriveStatus(versions), got.Status, "step %d", step)
	}
}
