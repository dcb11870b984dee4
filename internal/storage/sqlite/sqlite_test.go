package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mmynk/tripsplit/internal/models"
	"github.com/mmynk/tripsplit/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "tripsplit-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

func TestGroups(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	group := &models.Group{
		Name:      "Goa Trip",
		JoinCode:  "12345",
		CreatedBy: "alice",
		Members:   []string{"alice"},
	}

	t.Run("CreateGroup assigns ID and CreatedAt", func(t *testing.T) {
		if err := store.CreateGroup(ctx, group); err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}
		if group.ID == "" {
			t.Error("Expected group ID to be generated")
		}
		if group.CreatedAt.IsZero() {
			t.Error("Expected CreatedAt to be set")
		}
	})

	t.Run("CreateGroup rejects a used join code", func(t *testing.T) {
		err := store.CreateGroup(ctx, &models.Group{Name: "Other", JoinCode: "12345", CreatedBy: "bob", Members: []string{"bob"}})
		if !errors.Is(err, storage.ErrJoinCodeTaken) {
			t.Fatalf("expected ErrJoinCodeTaken, got %v", err)
		}
	})

	t.Run("GetGroup and FindGroupByJoinCode", func(t *testing.T) {
		byID, err := store.GetGroup(ctx, group.ID)
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		byCode, err := store.FindGroupByJoinCode(ctx, "12345")
		if err != nil {
			t.Fatalf("FindGroupByJoinCode failed: %v", err)
		}
		for _, got := range []*models.Group{byID, byCode} {
			if got.ID != group.ID || got.Name != "Goa Trip" || got.CreatedBy != "alice" {
				t.Errorf("unexpected group: %+v", got)
			}
			if !got.CreatedAt.Equal(group.CreatedAt) {
				t.Errorf("CreatedAt: expected %v, got %v", group.CreatedAt, got.CreatedAt)
			}
		}
	})

	t.Run("missing groups return ErrNotFound", func(t *testing.T) {
		if _, err := store.GetGroup(ctx, "nope"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetGroup: expected ErrNotFound, got %v", err)
		}
		if _, err := store.FindGroupByJoinCode(ctx, "99999"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("FindGroupByJoinCode: expected ErrNotFound, got %v", err)
		}
		if _, err := store.AddGroupMember(ctx, "nope", "bob"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("AddGroupMember: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("AddGroupMember keeps join order and ignores repeats", func(t *testing.T) {
		for _, uid := range []string{"bob", "carol"} {
			added, err := store.AddGroupMember(ctx, group.ID, uid)
			if err != nil {
				t.Fatalf("AddGroupMember(%s) failed: %v", uid, err)
			}
			if !added {
				t.Errorf("expected %s to be added", uid)
			}
		}

		added, err := store.AddGroupMember(ctx, group.ID, "bob")
		if err != nil {
			t.Fatalf("AddGroupMember repeat failed: %v", err)
		}
		if added {
			t.Error("expected repeat join to be a no-op")
		}

		got, err := store.GetGroup(ctx, group.ID)
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		want := []string{"alice", "bob", "carol"}
		if len(got.Members) != len(want) {
			t.Fatalf("members: expected %v, got %v", want, got.Members)
		}
		for i := range want {
			if got.Members[i] != want[i] {
				t.Errorf("members[%d]: expected %s, got %s", i, want[i], got.Members[i])
			}
		}
	})

	t.Run("ListGroupsForMember is newest first", func(t *testing.T) {
		newer := &models.Group{
			Name:      "Office Lunch",
			JoinCode:  "54321",
			CreatedBy: "bob",
			Members:   []string{"bob"},
			CreatedAt: group.CreatedAt.Add(time.Minute),
		}
		if err := store.CreateGroup(ctx, newer); err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}

		groups, err := store.ListGroupsForMember(ctx, "bob")
		if err != nil {
			t.Fatalf("ListGroupsForMember failed: %v", err)
		}
		if len(groups) != 2 {
			t.Fatalf("expected 2 groups, got %d", len(groups))
		}
		if groups[0].ID != newer.ID || groups[1].ID != group.ID {
			t.Errorf("unexpected order: %s, %s", groups[0].Name, groups[1].Name)
		}
		if len(groups[1].Members) != 3 {
			t.Errorf("expected members to be loaded, got %v", groups[1].Members)
		}

		none, err := store.ListGroupsForMember(ctx, "zed")
		if err != nil {
			t.Fatalf("ListGroupsForMember failed: %v", err)
		}
		if len(none) != 0 {
			t.Errorf("expected no groups, got %d", len(none))
		}
	})
}

func TestAddGroupMember_Concurrent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	group := &models.Group{Name: "Race", JoinCode: "11111", CreatedBy: "alice", Members: []string{"alice"}}
	if err := store.CreateGroup(ctx, group); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	addedCount := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			added, err := store.AddGroupMember(ctx, group.ID, "bob")
			if err != nil {
				t.Errorf("AddGroupMember failed: %v", err)
				return
			}
			if added {
				mu.Lock()
				addedCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if addedCount != 1 {
		t.Errorf("expected exactly one join to add bob, got %d", addedCount)
	}
	got, _ := store.GetGroup(ctx, group.ID)
	if len(got.Members) != 2 {
		t.Errorf("expected 2 members, got %v", got.Members)
	}
}

func TestUsers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("UpsertUser creates once and never overwrites", func(t *testing.T) {
		stored, created, err := store.UpsertUser(ctx, &models.User{UID: "alice", Name: "Alice", Email: "alice@example.com"})
		if err != nil {
			t.Fatalf("UpsertUser failed: %v", err)
		}
		if !created {
			t.Error("expected first upsert to create")
		}
		if stored.CreatedAt.IsZero() {
			t.Error("expected CreatedAt to be set")
		}

		stored, created, err = store.UpsertUser(ctx, &models.User{UID: "alice", Name: "Changed"})
		if err != nil {
			t.Fatalf("UpsertUser failed: %v", err)
		}
		if created {
			t.Error("expected second upsert to be a no-op")
		}
		if stored.Name != "Alice" || stored.Email != "alice@example.com" {
			t.Errorf("expected original record, got %+v", stored)
		}
	})

	t.Run("GetUser", func(t *testing.T) {
		user, err := store.GetUser(ctx, "alice")
		if err != nil {
			t.Fatalf("GetUser failed: %v", err)
		}
		if user.Name != "Alice" {
			t.Errorf("name: expected Alice, got %s", user.Name)
		}
		if _, err := store.GetUser(ctx, "ghost"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("GetUsersByIDs omits missing users", func(t *testing.T) {
		store.UpsertUser(ctx, &models.User{UID: "bob", Name: "Bob"})

		users, err := store.GetUsersByIDs(ctx, []string{"alice", "bob", "ghost"})
		if err != nil {
			t.Fatalf("GetUsersByIDs failed: %v", err)
		}
		if len(users) != 2 {
			t.Fatalf("expected 2 users, got %d", len(users))
		}
		if users["bob"].Name != "Bob" {
			t.Errorf("unexpected bob: %+v", users["bob"])
		}

		empty, err := store.GetUsersByIDs(ctx, nil)
		if err != nil || len(empty) != 0 {
			t.Errorf("expected empty map, got %v, %v", empty, err)
		}
	})

	t.Run("credentials", func(t *testing.T) {
		cred := &models.Credential{UID: "u-1", Email: "dev@example.com", PasswordHash: "hash"}
		if err := store.CreateAccount(ctx, cred, &models.User{UID: "u-1", Name: "Dev", Email: "dev@example.com"}); err != nil {
			t.Fatalf("CreateAccount failed: %v", err)
		}
		err := store.CreateAccount(ctx,
			&models.Credential{UID: "u-2", Email: "dev@example.com", PasswordHash: "x"},
			&models.User{UID: "u-2", Name: "Other", Email: "dev@example.com"})
		if !errors.Is(err, storage.ErrEmailTaken) {
			t.Errorf("expected ErrEmailTaken, got %v", err)
		}
		if _, err := store.GetUser(ctx, "u-2"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected no profile for the rejected account, got %v", err)
		}

		profile, err := store.GetUser(ctx, "u-1")
		if err != nil {
			t.Fatalf("GetUser failed: %v", err)
		}
		if profile.Name != "Dev" || profile.CreatedAt.IsZero() {
			t.Errorf("unexpected profile: %+v", profile)
		}

		got, err := store.GetCredentialByEmail(ctx, "dev@example.com")
		if err != nil {
			t.Fatalf("GetCredentialByEmail failed: %v", err)
		}
		if got.UID != "u-1" || got.PasswordHash != "hash" {
			t.Errorf("unexpected credential: %+v", got)
		}
		if _, err := store.GetCredentialByEmail(ctx, "nobody@example.com"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("failed profile write releases the email", func(t *testing.T) {
		if _, _, err := store.UpsertUser(ctx, &models.User{UID: "u-taken", Name: "Existing"}); err != nil {
			t.Fatalf("UpsertUser failed: %v", err)
		}
		err := store.CreateAccount(ctx,
			&models.Credential{UID: "u-taken", Email: "late@example.com", PasswordHash: "x"},
			&models.User{UID: "u-taken", Name: "Late", Email: "late@example.com"})
		if err == nil {
			t.Fatal("expected profile insert to fail")
		}
		if _, err := store.GetCredentialByEmail(ctx, "late@example.com"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected credential rolled back, got %v", err)
		}
		existing, err := store.GetUser(ctx, "u-taken")
		if err != nil {
			t.Fatalf("GetUser failed: %v", err)
		}
		if existing.Name != "Existing" {
			t.Errorf("existing profile changed: %+v", existing)
		}
	})
}

func TestExpenses(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	group := &models.Group{Name: "Trip", JoinCode: "22222", CreatedBy: "a", Members: []string{"a", "b", "c"}}
	if err := store.CreateGroup(ctx, group); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	dinner := &models.Expense{
		GroupID:         group.ID,
		Description:     "Dinner",
		TotalAmount:     300,
		PaidBy:          "a",
		SplitAmong:      []string{"c", "a", "b"},
		PerPersonAmount: 100,
	}
	txns := []models.Transaction{
		{From: "c", To: "a", Amount: 100},
		{From: "b", To: "a", Amount: 100},
	}

	t.Run("RecordExpense back-fills ids", func(t *testing.T) {
		if err := store.RecordExpense(ctx, dinner, txns); err != nil {
			t.Fatalf("RecordExpense failed: %v", err)
		}
		if dinner.ID == "" || dinner.CreatedAt.IsZero() {
			t.Errorf("expected ID and CreatedAt, got %+v", dinner)
		}
		for _, txn := range txns {
			if txn.ID == "" {
				t.Error("expected transaction ID")
			}
			if txn.ExpenseID != dinner.ID {
				t.Errorf("ExpenseID: expected %s, got %s", dinner.ID, txn.ExpenseID)
			}
			if txn.GroupID != group.ID {
				t.Errorf("GroupID: expected %s, got %s", group.ID, txn.GroupID)
			}
		}
	})

	cab := &models.Expense{
		GroupID:         group.ID,
		Description:     "Cab",
		TotalAmount:     50,
		PaidBy:          "b",
		SplitAmong:      []string{"b", "c"},
		PerPersonAmount: 25,
		CreatedAt:       dinner.CreatedAt.Add(time.Second),
	}
	if err := store.RecordExpense(ctx, cab, []models.Transaction{{From: "c", To: "b", Amount: 25}}); err != nil {
		t.Fatalf("RecordExpense failed: %v", err)
	}

	t.Run("ListExpenses is newest first with split order kept", func(t *testing.T) {
		expenses, err := store.ListExpenses(ctx, group.ID)
		if err != nil {
			t.Fatalf("ListExpenses failed: %v", err)
		}
		if len(expenses) != 2 {
			t.Fatalf("expected 2 expenses, got %d", len(expenses))
		}
		if expenses[0].Description != "Cab" || expenses[1].Description != "Dinner" {
			t.Errorf("unexpected order: %s, %s", expenses[0].Description, expenses[1].Description)
		}
		split := expenses[1].SplitAmong
		if len(split) != 3 || split[0] != "c" || split[1] != "a" || split[2] != "b" {
			t.Errorf("split order not kept: %v", split)
		}
		if expenses[1].PerPersonAmount != 100 {
			t.Errorf("PerPersonAmount: expected 100, got %v", expenses[1].PerPersonAmount)
		}
	})

	t.Run("ListTransactions", func(t *testing.T) {
		list, err := store.ListTransactions(ctx, group.ID)
		if err != nil {
			t.Fatalf("ListTransactions failed: %v", err)
		}
		if len(list) != 3 {
			t.Fatalf("expected 3 transactions, got %d", len(list))
		}
		if list[0].From != "c" || list[0].To != "b" {
			t.Errorf("expected cab transaction first, got %+v", list[0])
		}
	})

	t.Run("failed RecordExpense leaves nothing behind", func(t *testing.T) {
		bad := &models.Expense{
			GroupID:         "missing-group",
			Description:     "Ghost",
			TotalAmount:     10,
			PaidBy:          "a",
			SplitAmong:      []string{"a", "b"},
			PerPersonAmount: 5,
		}
		err := store.RecordExpense(ctx, bad, []models.Transaction{{From: "b", To: "a", Amount: 5}})
		if err == nil {
			t.Fatal("expected foreign key failure")
		}
		list, _ := store.ListTransactions(ctx, "missing-group")
		if len(list) != 0 {
			t.Errorf("expected no transactions, got %d", len(list))
		}
	})

	t.Run("failure after the expense row rolls everything back", func(t *testing.T) {
		other := &models.Group{Name: "Side trip", JoinCode: "33333", CreatedBy: "a", Members: []string{"a", "b", "c"}}
		if err := store.CreateGroup(ctx, other); err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}
		half := &models.Expense{
			GroupID:         other.ID,
			Description:     "Boat",
			TotalAmount:     90,
			PaidBy:          "a",
			SplitAmong:      []string{"a", "b", "c"},
			PerPersonAmount: 30,
		}
		err := store.RecordExpense(ctx, half, []models.Transaction{
			{ID: "txn-dup", From: "b", To: "a", Amount: 30},
			{ID: "txn-dup", From: "c", To: "a", Amount: 30},
		})
		if err == nil {
			t.Fatal("expected duplicate transaction id to fail")
		}

		expenses, err := store.ListExpenses(ctx, other.ID)
		if err != nil {
			t.Fatalf("ListExpenses failed: %v", err)
		}
		if len(expenses) != 0 {
			t.Errorf("expected no expenses, got %d", len(expenses))
		}
		list, err := store.ListTransactions(ctx, other.ID)
		if err != nil {
			t.Fatalf("ListTransactions failed: %v", err)
		}
		if len(list) != 0 {
			t.Errorf("expected no transactions, got %d", len(list))
		}
	})

	t.Run("empty group", func(t *testing.T) {
		expenses, err := store.ListExpenses(ctx, "other")
		if err != nil || len(expenses) != 0 {
			t.Errorf("expected no expenses, got %v, %v", expenses, err)
		}
	})
}

func TestRevokedTokens(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	if err := store.RevokeToken(ctx, "expired", now.Add(-time.Minute)); err != nil {
		t.Fatalf("RevokeToken failed: %v", err)
	}
	if err := store.RevokeToken(ctx, "live", now.Add(time.Minute)); err != nil {
		t.Fatalf("RevokeToken failed: %v", err)
	}
	if err := store.RevokeToken(ctx, "live", now.Add(time.Hour)); err != nil {
		t.Fatalf("repeat RevokeToken failed: %v", err)
	}

	revoked, err := store.ListRevokedTokens(ctx, now)
	if err != nil {
		t.Fatalf("ListRevokedTokens failed: %v", err)
	}
	if len(revoked) != 1 {
		t.Fatalf("expected 1 live revocation, got %v", revoked)
	}
	if !revoked["live"].Equal(now.Add(time.Hour)) {
		t.Errorf("expected the later expiry, got %v", revoked["live"])
	}

	removed, err := store.PruneRevokedTokens(ctx, now)
	if err != nil {
		t.Fatalf("PruneRevokedTokens failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 pruned, got %d", removed)
	}
	if removed, _ := store.PruneRevokedTokens(ctx, now); removed != 0 {
		t.Errorf("expected nothing left to prune, got %d", removed)
	}
}
