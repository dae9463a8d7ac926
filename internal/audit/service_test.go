package audit

import (
	"context"
	"testing"
	"time"
)

func TestService_AppendRequiresTypeAndSubject(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.Append(context.Background(), Event{Type: EventTypeMemberAdded}); err == nil {
		t.Fatalf("expected error without workspace or target user")
	}
	if err := svc.Append(context.Background(), Event{WorkspaceID: "w"}); err == nil {
		t.Fatalf("expected error without type")
	}
	if len(repo.Events()) != 0 {
		t.Fatalf("rejected events must not be stored")
	}
}

func TestService_LogUserAction(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	svc.clock = func() time.Time { return time.Unix(1700000000, 0) }

	actor := Actor{UserID: "admin", Role: "super_admin", IP: "1.2.3.4"}
	if err := svc.LogUserAction(context.Background(), EventTypeUserStatusChanged, actor, "u1", "suspend", map[string]any{"status": "suspended"}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	evs := repo.Events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event, got %d", len(evs))
	}
	e := evs[0]
	if e.ID == "" {
		t.Fatalf("expected generated id")
	}
	if e.IPAddress != "1.2.3.4" || e.ActorRole != "super_admin" || e.TargetUserID != "u1" {
		t.Fatalf("unexpected event: %+v", e)
	}
	if !e.CreatedAt.Equal(time.Unix(1700000000, 0)) {
		t.Fatalf("expected clock time, got %v", e.CreatedAt)
	}
}

func TestService_LogWorkspaceAction(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.LogWorkspaceAction(context.Background(), EventTypeCreditsAdjusted, Actor{UserID: "admin"}, "ws", "adjust", nil); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	evs := repo.Events()
	if len(evs) != 1 || evs[0].WorkspaceID != "ws" || evs[0].Type != EventTypeCreditsAdjusted {
		t.Fatalf("unexpected events: %+v", evs)
	}
}
