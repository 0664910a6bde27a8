package notifications

import (
	"context"
	"errors"
	"testing"
)

type fakeNotifStore struct {
	created      []Notification
	emailEnabled bool
	emailFrom    string
	userEmail    string
	createErr    error
}

func (f *fakeNotifStore) CreateNotification(_ context.Context, _, userID, ntype, title, body string) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, Notification{UserID: userID, Type: ntype, Title: title, Body: body})
	return nil
}

func (f *fakeNotifStore) ListNotifications(_ context.Context, _, _ string, _, _ int) ([]Notification, error) {
	return f.created, nil
}

func (f *fakeNotifStore) CountNotifications(_ context.Context, _, _ string) (int, error) {
	return len(f.created), nil
}

func (f *fakeNotifStore) MarkRead(_ context.Context, _, _, _ string) error { return nil }

func (f *fakeNotifStore) UserEmail(_ context.Context, _, _ string) (string, error) {
	return f.userEmail, nil
}

func (f *fakeNotifStore) EmailSettings(_ context.Context, _ string) (bool, string, error) {
	return f.emailEnabled, f.emailFrom, nil
}

func (f *fakeNotifStore) UpdateEmailSettings(_ context.Context, _ string, enabled bool, from string) error {
	f.emailEnabled, f.emailFrom = enabled, from
	return nil
}

type fakeMailer struct {
	sent []string
	err  error
}

func (f *fakeMailer) Send(_ context.Context, _, to, _, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to)
	return nil
}

func TestCreateStoresRowAndSendsEmail(t *testing.T) {
	store := &fakeNotifStore{emailEnabled: true, emailFrom: "hr@acme.test", userEmail: "jo@acme.test"}
	mailer := &fakeMailer{}
	svc := New(store, mailer, "fallback@acme.test")

	if err := svc.Create(context.Background(), "t1", "u1", TypeLeaveApproved, "Approved", "body"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(store.created) != 1 {
		t.Fatalf("created = %d rows, want 1", len(store.created))
	}
	if len(mailer.sent) != 1 || mailer.sent[0] != "jo@acme.test" {
		t.Fatalf("sent = %v, want jo@acme.test", mailer.sent)
	}
}

func TestCreateSkipsEmailWhenDisabled(t *testing.T) {
	store := &fakeNotifStore{emailEnabled: false, userEmail: "jo@acme.test"}
	mailer := &fakeMailer{}
	svc := New(store, mailer, "fallback@acme.test")

	if err := svc.Create(context.Background(), "t1", "u1", TypeLeaveSubmitted, "New", "body"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(store.created) != 1 {
		t.Fatal("notification row should still be written")
	}
	if len(mailer.sent) != 0 {
		t.Fatal("no email should be sent when tenant email is disabled")
	}
}

func TestCreateMailFailureIsBestEffort(t *testing.T) {
	store := &fakeNotifStore{emailEnabled: true, emailFrom: "hr@acme.test", userEmail: "jo@acme.test"}
	mailer := &fakeMailer{err: errors.New("smtp down")}
	svc := New(store, mailer, "fallback@acme.test")

	if err := svc.Create(context.Background(), "t1", "u1", TypeLeaveRejected, "Rejected", "body"); err != nil {
		t.Fatalf("Create should swallow mail errors, got %v", err)
	}
	if len(store.created) != 1 {
		t.Fatal("notification row missing")
	}
}

func TestCreateStoreFailurePropagates(t *testing.T) {
	store := &fakeNotifStore{createErr: errors.New("db down")}
	svc := New(store, &fakeMailer{}, "fallback@acme.test")

	if err := svc.Create(context.Background(), "t1", "u1", TypeBalanceReset, "Reset", "body"); err == nil {
		t.Fatal("store failure must propagate")
	}
}
