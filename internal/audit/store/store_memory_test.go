package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"credvault/internal/audit"
)

func TestInMemoryStoreNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, action := range []audit.Action{audit.ActionMint, audit.ActionRevision, audit.ActionRevoke} {
		err := s.Append(ctx, audit.Entry{
			Action:    action,
			Metadata:  "entry",
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	out, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, out, 3)
	require.Equal(t, audit.ActionRevoke, out[0].Action)
	require.Equal(t, audit.ActionMint, out[2].Action)
}

func TestInMemoryStoreListReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	require.NoError(t, s.Append(ctx, audit.Entry{Action: audit.ActionMint, Timestamp: time.Now()}))

	out, _ := s.List(ctx)
	out[0].Metadata = "mutated by caller"

	again, _ := s.List(ctx)
	require.Empty(t, again[0].Metadata)
}

func TestActionCategories(t *testing.T) {
	require.Equal(t, audit.CategoryCompliance, audit.ActionRevoke.Category())
	require.Equal(t, audit.CategorySecurity, audit.ActionLogin.Category())
	require.Equal(t, audit.CategoryOperations, audit.Action("SOMETHING_NEW").Category())
}
