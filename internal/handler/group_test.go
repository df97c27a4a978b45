package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

var outstandingColumns = []string{
	"id", "event_id", "ticket_ref", "name", "id_number", "phone",
	"male_dep", "resort_dep", "paid_amount", "transfer_ref", "ticket_type",
	"arrival_time", "departure_time", "arrival_boat_boarded", "departure_boat_boarded",
	"checkin_time", "status", "created_at", "updated_at",
}

func outstandingRow(rows *sqlmock.Rows, id uint64, name string) *sqlmock.Rows {
	now := time.Now().UTC()
	phone := "7771234"
	return rows.AddRow(id, "summer", "SUM-AAAA1111", name, "A00000"+name[:1], phone,
		nil, nil, nil, nil, nil,
		nil, nil, nil, nil,
		nil, "booked", now, now)
}

func activeEventRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"v"}).AddRow("summer")
}

func TestGroupConfirmAllOrNothing(t *testing.T) {
	h, mock := newCheckinHandler(t)

	// group of 3, only 2 seats left: nobody boards
	mock.ExpectQuery(`SELECT v FROM config WHERE k = \?`).
		WithArgs("active_event").
		WillReturnRows(activeEventRows())
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM boarding_sessions WHERE is_active = TRUE`).
		WillReturnRows(sessionRows(9, "departure"))
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs(uint32(9)).
		WillReturnRows(boatLockRows(9, 10, "open"))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings WHERE departure_boat_boarded = \? FOR UPDATE`).
		WithArgs(uint32(9)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(8))
	rows := sqlmock.NewRows(outstandingColumns)
	outstandingRow(rows, 11, "Aminath")
	outstandingRow(rows, 12, "Hassan")
	outstandingRow(rows, 13, "Mariyam")
	mock.ExpectQuery(`AND phone = \? AND departure_boat_boarded IS NULL ORDER BY id FOR UPDATE`).
		WithArgs("summer", "7771234").
		WillReturnRows(rows)
	mock.ExpectRollback()

	c := postJSON(t, "/v1/checkin/group/confirm", `{"phone":"7771234","leg":"departure"}`)
	if err := h.GroupConfirm(c); err != nil {
		t.Fatalf("GroupConfirm: %v", err)
	}
	rec := recorder(c)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409; body=%s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["needed"].(float64) != 3 || body["available"].(float64) != 2 {
		t.Errorf("needed/available = %v/%v", body["needed"], body["available"])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestGroupConfirmBoardsEveryone(t *testing.T) {
	h, mock := newCheckinHandler(t)

	mock.ExpectQuery(`SELECT v FROM config WHERE k = \?`).
		WithArgs("active_event").
		WillReturnRows(activeEventRows())
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM boarding_sessions WHERE is_active = TRUE`).
		WillReturnRows(sessionRows(9, "arrival"))
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs(uint32(9)).
		WillReturnRows(boatLockRows(9, 10, "open"))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings WHERE arrival_boat_boarded = \? FOR UPDATE`).
		WithArgs(uint32(9)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(4))
	rows := sqlmock.NewRows(outstandingColumns)
	outstandingRow(rows, 11, "Aminath")
	outstandingRow(rows, 12, "Hassan")
	mock.ExpectQuery(`AND phone = \? AND arrival_boat_boarded IS NULL ORDER BY id FOR UPDATE`).
		WithArgs("summer", "7771234").
		WillReturnRows(rows)
	for _, id := range []uint64{11, 12} {
		mock.ExpectExec(`UPDATE bookings SET arrival_boat_boarded = \?`).
			WithArgs(uint32(9), "checked_in", sqlmock.AnyArg(), id).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO checkin_logs`).
			WithArgs(id, sqlmock.AnyArg(), uint64(2), "group-arrival", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(int64(id), 1))
	}
	mock.ExpectCommit()

	c := postJSON(t, "/v1/checkin/group/confirm", `{"phone":"7771234","leg":"arrival"}`)
	if err := h.GroupConfirm(c); err != nil {
		t.Fatalf("GroupConfirm: %v", err)
	}
	rec := recorder(c)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if got := body["boarded"].([]any); len(got) != 2 {
		t.Errorf("boarded = %v", got)
	}
	if body["occupancy"].(float64) != 6 {
		t.Errorf("occupancy = %v", body["occupancy"])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestGroupConfirmUnknownPhone(t *testing.T) {
	h, mock := newCheckinHandler(t)

	mock.ExpectQuery(`SELECT v FROM config WHERE k = \?`).
		WithArgs("active_event").
		WillReturnRows(activeEventRows())
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM boarding_sessions WHERE is_active = TRUE`).
		WillReturnRows(sessionRows(9, "arrival"))
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs(uint32(9)).
		WillReturnRows(boatLockRows(9, 10, "open"))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings WHERE arrival_boat_boarded = \? FOR UPDATE`).
		WithArgs(uint32(9)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectQuery(`AND phone = \? AND arrival_boat_boarded IS NULL ORDER BY id FOR UPDATE`).
		WithArgs("summer", "0000000").
		WillReturnRows(sqlmock.NewRows(outstandingColumns))
	mock.ExpectRollback()

	c := postJSON(t, "/v1/checkin/group/confirm", `{"phone":"0000000","leg":"arrival"}`)
	if err := h.GroupConfirm(c); err != nil {
		t.Fatalf("GroupConfirm: %v", err)
	}
	if rec := recorder(c); rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}
