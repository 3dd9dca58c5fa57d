package leads

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestPostgresCreateLead(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newPostgresRepositoryWithQuerier(mock)

	now := time.Now().UTC()
	mock.ExpectQuery("INSERT INTO leads").
		WithArgs(pgxmock.AnyArg(), "CA123", "Anna Schmidt", "0176 1234567", "Zahnschmerzen", "akut", "", pgxmock.AnyArg(), "raw transcript", StatusNew).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(now))

	lead, err := repo.Create(context.Background(), &CreateLeadRequest{
		CallRef:       "CA123",
		Name:          "Anna Schmidt",
		Phone:         "0176 1234567",
		Concern:       "Zahnschmerzen",
		Urgency:       "akut",
		PreferredSlot: PreferredSlot{Text: "morgen 10 Uhr"},
		Notes:         "raw transcript",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if lead.Status != StatusNew {
		t.Errorf("status = %q, want %q", lead.Status, StatusNew)
	}
	if !lead.CreatedAt.Equal(now) {
		t.Errorf("created_at = %v, want %v", lead.CreatedAt, now)
	}
	if lead.PreferredSlot.Text != "morgen 10 Uhr" {
		t.Errorf("preferred slot = %q", lead.PreferredSlot.Text)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresCreateLeadDefaultsUrgency(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newPostgresRepositoryWithQuerier(mock)

	mock.ExpectQuery("INSERT INTO leads").
		WithArgs(pgxmock.AnyArg(), "", "Max Meier", "030 555555", "Kontrolle", "normal", "", pgxmock.AnyArg(), "", StatusNew).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now().UTC()))

	lead, err := repo.Create(context.Background(), &CreateLeadRequest{
		Name:          "Max Meier",
		Phone:         "030 555555",
		Concern:       "Kontrolle",
		PreferredSlot: PreferredSlot{Text: "nächste Woche"},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if lead.Urgency != "normal" {
		t.Errorf("urgency = %q, want normal", lead.Urgency)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresCreateLeadValidates(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newPostgresRepositoryWithQuerier(mock)

	if _, err := repo.Create(context.Background(), &CreateLeadRequest{Phone: "0176"}); err != ErrInvalidName {
		t.Fatalf("err = %v, want ErrInvalidName", err)
	}
}

func TestPostgresGetByIDNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newPostgresRepositoryWithQuerier(mock)

	id := uuid.NewString()
	mock.ExpectQuery("SELECT id").WithArgs(id).WillReturnRows(pgxmock.NewRows([]string{"id"}))

	if _, err := repo.GetByID(context.Background(), id); err != ErrLeadNotFound {
		t.Fatalf("err = %v, want ErrLeadNotFound", err)
	}
}

func TestPostgresListByStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newPostgresRepositoryWithQuerier(mock)

	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{"id", "call_ref", "name", "phone", "concern", "urgency", "insurance", "preferred_slot", "notes", "status", "created_at"}).
		AddRow(uuid.NewString(), "CA1", "Anna Schmidt", "0176 1234567", "Zahnschmerzen", "akut", "", []byte(`{"text":"morgen"}`), "", StatusNew, now)
	mock.ExpectQuery("SELECT id").WithArgs(StatusNew, 50).WillReturnRows(rows)

	list, err := repo.List(context.Background(), ListFilter{Status: StatusNew, Limit: 50})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d leads, want 1", len(list))
	}
	if list[0].PreferredSlot.Text != "morgen" {
		t.Errorf("preferred slot = %q, want morgen", list[0].PreferredSlot.Text)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresUpdateStatusRejectsUnknown(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newPostgresRepositoryWithQuerier(mock)

	if _, err := repo.UpdateStatus(context.Background(), uuid.NewString(), "done"); err != ErrInvalidStatus {
		t.Fatalf("err = %v, want ErrInvalidStatus", err)
	}
}
