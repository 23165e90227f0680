package docstore

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sumDoc struct {
	Sum int `json:"sum"`
}

// runStoreContract exercises the behaviour every adapter must share.
func runStoreContract(t *testing.T, open func(t *testing.T) Store) {
	t.Run("put and get", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		doc, err := NewDocument("run-1", sumDoc{Sum: 1})
		require.NoError(t, err)
		rev, err := s.Put(ctx, doc)
		require.NoError(t, err)
		assert.Regexp(t, `^1-[0-9a-f]{16}$`, rev)

		got, err := s.Get(ctx, "run-1")
		require.NoError(t, err)
		assert.Equal(t, rev, got.Rev)
		var body sumDoc
		require.NoError(t, got.Decode(&body))
		assert.Equal(t, 1, body.Sum)
	})

	t.Run("get missing", func(t *testing.T) {
		s := open(t)
		_, err := s.Get(context.Background(), "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("update requires current revision", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		doc, err := NewDocument("run-1", sumDoc{Sum: 1})
		require.NoError(t, err)
		rev1, err := s.Put(ctx, doc)
		require.NoError(t, err)

		// A second create without a revision conflicts.
		_, err = s.Put(ctx, doc)
		assert.ErrorIs(t, err, ErrConflict)

		doc, err = NewDocument("run-1", sumDoc{Sum: 2})
		require.NoError(t, err)
		doc.Rev = rev1
		rev2, err := s.Put(ctx, doc)
		require.NoError(t, err)
		assert.Regexp(t, `^2-`, rev2)

		// Reusing the old revision conflicts.
		_, err = s.Put(ctx, doc)
		assert.ErrorIs(t, err, ErrConflict)

		// Creating with an invented revision conflicts too.
		ghost, err := NewDocument("ghost", sumDoc{})
		require.NoError(t, err)
		ghost.Rev = "3-abc"
		_, err = s.Put(ctx, ghost)
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("all is ordered by id", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		for _, id := range []string{"c", "a", "b"} {
			doc, err := NewDocument(id, sumDoc{})
			require.NoError(t, err)
			_, err = s.Put(ctx, doc)
			require.NoError(t, err)
		}

		docs, err := s.All(ctx)
		require.NoError(t, err)
		require.Len(t, docs, 3)
		assert.Equal(t, []string{"a", "b", "c"}, []string{docs[0].ID, docs[1].ID, docs[2].ID})
	})

	t.Run("delete", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		doc, err := NewDocument("gone", sumDoc{})
		require.NoError(t, err)
		rev, err := s.Put(ctx, doc)
		require.NoError(t, err)

		assert.ErrorIs(t, s.Delete(ctx, "gone", "1-stale"), ErrConflict)
		require.NoError(t, s.Delete(ctx, "gone", rev))
		assert.ErrorIs(t, s.Delete(ctx, "gone", rev), ErrNotFound)
		_, err = s.Get(ctx, "gone")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("concurrent writers to distinct documents", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		const writers = 20

		var wg sync.WaitGroup
		wg.Add(writers)
		for i := 0; i < writers; i++ {
			go func(i int) {
				defer wg.Done()
				doc, err := NewDocument(fmt.Sprintf("site-%02d", i), sumDoc{Sum: i})
				if err != nil {
					t.Errorf("encode: %v", err)
					return
				}
				if _, err := s.Put(ctx, doc); err != nil {
					t.Errorf("put %d: %v", i, err)
				}
			}(i)
		}
		wg.Wait()

		docs, err := s.All(ctx)
		require.NoError(t, err)
		assert.Len(t, docs, writers)
	})
}
