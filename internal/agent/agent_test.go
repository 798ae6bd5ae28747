package agent_test

import (
	"context"
	"errors"
	"testing"

	"github.com/sago-labs/sago/internal/agent"
	"github.com/sago-labs/sago/internal/testutil"
)

func TestStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store := agent.NewStore(db.Pool, testutil.DiscardLogger())
	ctx := context.Background()

	t.Run("get missing agent", func(t *testing.T) {
		_, err := store.Get(ctx, "nope")
		if !errors.Is(err, agent.ErrNotFound) {
			t.Errorf("Get() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("upsert and get", func(t *testing.T) {
		if err := store.Upsert(ctx, "Sago", "You are Sago."); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}

		got, err := store.Get(ctx, "Sago")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.SystemPrompt != "You are Sago." {
			t.Errorf("prompt = %q", got.SystemPrompt)
		}
		if got.CreatedAt.IsZero() {
			t.Error("created_at not set")
		}
	})

	t.Run("upsert overwrites prompt", func(t *testing.T) {
		if err := store.Upsert(ctx, "Sago", "You are still Sago."); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
		got, err := store.Get(ctx, "Sago")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.SystemPrompt != "You are still Sago." {
			t.Errorf("prompt = %q", got.SystemPrompt)
		}
	})

	t.Run("list ordered by name", func(t *testing.T) {
		for _, name := range []string{"Zeta", "Alpha"} {
			if err := store.Upsert(ctx, name, "prompt"); err != nil {
				t.Fatalf("Upsert(%s) error = %v", name, err)
			}
		}

		agents, err := store.List(ctx)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(agents) != 3 {
			t.Fatalf("agents = %d, want 3", len(agents))
		}
		for i, want := range []string{"Alpha", "Sago", "Zeta"} {
			if agents[i].Name != want {
				t.Errorf("agents[%d] = %q, want %q", i, agents[i].Name, want)
			}
		}
	})

	t.Run("delete all", func(t *testing.T) {
		n, err := store.DeleteAll(ctx)
		if err != nil {
			t.Fatalf("DeleteAll() error = %v", err)
		}
		if n != 3 {
			t.Errorf("deleted %d agents, want 3", n)
		}
	})
}
