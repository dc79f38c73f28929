package deadletter

import (
	"context"
	"testing"
)

func TestService_AppendRequiresReason(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.Append(context.Background(), Record{EventKind: "call_ended"}); err == nil {
		t.Fatalf("expected error")
	}
	if len(repo.Records()) != 0 {
		t.Fatalf("expected nothing appended")
	}
}

func TestService_RecordFailure(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	payload := []byte(`{"event": "call_ended"}`)
	if err := svc.RecordFailure(context.Background(), "call_ended", "ret_1", "int_1", "store unavailable", payload); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	recs := repo.Records()
	if len(recs) != 1 {
		t.Fatalf("expected 1 record")
	}
	if recs[0].ID == "" || recs[0].CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp filled")
	}
	if recs[0].Payload != string(payload) {
		t.Fatalf("expected raw payload retained")
	}
	if recs[0].RetellCallID != "ret_1" || recs[0].CallID != "int_1" {
		t.Fatalf("expected correlation keys")
	}
}
