package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/iliyamo/boat-boarding/internal/model"
)

func TestAppendDefaultsConfirmedAt(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewCheckinLogRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO checkin_logs`).
		WithArgs(uint64(5), nil, uint64(2), model.MethodSkip, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectCommit()

	l := &model.CheckinLog{BookingID: 5, ConfirmedBy: 2, Method: model.MethodSkip}
	if err := repo.Append(context.Background(), l); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if l.ID != 7 {
		t.Errorf("ID = %d, want 7", l.ID)
	}
	if l.ConfirmedAt.IsZero() {
		t.Error("ConfirmedAt not defaulted")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestListByBooking(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewCheckinLogRepo(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "booking_id", "boat_number", "confirmed_by", "method", "confirmed_at"}).
		AddRow(1, 5, nil, 2, model.MethodSkip, now.Add(-time.Minute)).
		AddRow(2, 5, 9, 2, "arrival-manual", now)
	mock.ExpectQuery(`FROM checkin_logs WHERE booking_id = \?`).
		WithArgs(uint64(5)).
		WillReturnRows(rows)

	logs, err := repo.ListByBooking(context.Background(), 5)
	if err != nil {
		t.Fatalf("ListByBooking: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("len = %d, want 2", len(logs))
	}
	if logs[0].BoatNumber != nil {
		t.Errorf("skip row boat = %v, want nil", *logs[0].BoatNumber)
	}
	if logs[1].BoatNumber == nil || *logs[1].BoatNumber != 9 {
		t.Errorf("boarded row boat = %v, want 9", logs[1].BoatNumber)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}
