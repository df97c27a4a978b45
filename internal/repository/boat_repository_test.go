package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/iliyamo/boat-boarding/internal/model"
)

func boatRows(boatNumber, capacity uint32, status string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{"id", "boat_number", "capacity", "status", "created_at", "updated_at"}).
		AddRow(1, boatNumber, capacity, status, now, now)
}

func TestGetForUpdateTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewBoatRepo(db)
	ctx := context.Background()

	t.Run("locks and returns open boat", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`FROM boats WHERE boat_number = \? FOR UPDATE`).
			WithArgs(uint32(9)).
			WillReturnRows(boatRows(9, 12, model.BoatStatusOpen))
		mock.ExpectRollback()

		tx, _ := db.BeginTx(ctx, nil)
		defer tx.Rollback()
		boat, err := repo.GetForUpdateTx(ctx, tx, 9)
		if err != nil {
			t.Fatalf("GetForUpdateTx: %v", err)
		}
		if boat.Capacity != 12 || boat.BoatNumber != 9 {
			t.Errorf("boat = %+v", boat)
		}
	})

	t.Run("departed boat is rejected", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).
			WithArgs(uint32(9)).
			WillReturnRows(boatRows(9, 12, model.BoatStatusDeparted))
		mock.ExpectRollback()

		tx, _ := db.BeginTx(ctx, nil)
		defer tx.Rollback()
		if _, err := repo.GetForUpdateTx(ctx, tx, 9); !errors.Is(err, ErrBoatDeparted) {
			t.Errorf("err = %v, want ErrBoatDeparted", err)
		}
	})

	t.Run("missing boat", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).
			WithArgs(uint32(4)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "boat_number", "capacity", "status", "created_at", "updated_at"}))
		mock.ExpectRollback()

		tx, _ := db.BeginTx(ctx, nil)
		defer tx.Rollback()
		if _, err := repo.GetForUpdateTx(ctx, tx, 4); !errors.Is(err, ErrBoatNotFound) {
			t.Errorf("err = %v, want ErrBoatNotFound", err)
		}
	})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestOccupancyTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewBoatRepo(db)
	ctx := context.Background()

	// The count must be a locking read: a snapshot read would miss
	// check-ins committed while this transaction waited on the boat lock.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings WHERE departure_boat_boarded = \? FOR UPDATE`).
		WithArgs(uint32(9)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(7))
	mock.ExpectRollback()

	tx, _ := db.BeginTx(ctx, nil)
	n, err := repo.OccupancyTx(ctx, tx, 9, model.LegDeparture)
	if err != nil {
		t.Fatalf("OccupancyTx: %v", err)
	}
	if n != 7 {
		t.Errorf("occupancy = %d, want 7", n)
	}
	_ = tx.Rollback()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestClaimSeatTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewBoatRepo(db)
	ctx := context.Background()
	boat := &model.Boat{BoatNumber: 9, Capacity: 2}

	t.Run("seat free", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings WHERE arrival_boat_boarded = \? FOR UPDATE`).
			WithArgs(uint32(9)).
			WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
		mock.ExpectRollback()

		tx, _ := db.BeginTx(ctx, nil)
		defer tx.Rollback()
		n, err := repo.ClaimSeatTx(ctx, tx, boat, model.LegArrival)
		if err != nil {
			t.Fatalf("ClaimSeatTx: %v", err)
		}
		if n != 1 {
			t.Errorf("occupancy = %d, want 1", n)
		}
	})

	t.Run("boat full", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).
			WithArgs(uint32(9)).
			WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(2))
		mock.ExpectRollback()

		tx, _ := db.BeginTx(ctx, nil)
		defer tx.Rollback()
		if _, err := repo.ClaimSeatTx(ctx, tx, boat, model.LegArrival); !errors.Is(err, ErrBoatFull) {
			t.Errorf("err = %v, want ErrBoatFull", err)
		}
	})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUpsertOpenTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewBoatRepo(db)
	ctx := context.Background()

	t.Run("creates a new boat", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT status FROM boats WHERE boat_number = \? FOR UPDATE`).
			WithArgs(uint32(3)).
			WillReturnRows(sqlmock.NewRows([]string{"status"}))
		mock.ExpectExec(`INSERT INTO boats`).
			WithArgs(uint32(3), uint32(20), model.BoatStatusOpen).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		tx, _ := db.BeginTx(ctx, nil)
		if err := repo.UpsertOpenTx(ctx, tx, 3, 20); err != nil {
			t.Fatalf("UpsertOpenTx: %v", err)
		}
		if err := tx.Commit(); err != nil {
			t.Fatalf("commit: %v", err)
		}
	})

	t.Run("never reopens a departed boat", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT status FROM boats`).
			WithArgs(uint32(3)).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(model.BoatStatusDeparted))
		mock.ExpectRollback()

		tx, _ := db.BeginTx(ctx, nil)
		defer tx.Rollback()
		if err := repo.UpsertOpenTx(ctx, tx, 3, 20); !errors.Is(err, ErrBoatDeparted) {
			t.Errorf("err = %v, want ErrBoatDeparted", err)
		}
	})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}
