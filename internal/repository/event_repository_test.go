package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestActiveEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewEventRepo(db)
	ctx := context.Background()

	t.Run("unset", func(t *testing.T) {
		mock.ExpectQuery(`SELECT v FROM config WHERE k = \?`).
			WithArgs("active_event").
			WillReturnRows(sqlmock.NewRows([]string{"v"}))
		if _, err := repo.ActiveEvent(ctx); !errors.Is(err, ErrNoActiveEvent) {
			t.Errorf("err = %v, want ErrNoActiveEvent", err)
		}
	})

	t.Run("blank value counts as unset", func(t *testing.T) {
		mock.ExpectQuery(`SELECT v FROM config WHERE k = \?`).
			WithArgs("active_event").
			WillReturnRows(sqlmock.NewRows([]string{"v"}).AddRow("  "))
		if _, err := repo.ActiveEvent(ctx); !errors.Is(err, ErrNoActiveEvent) {
			t.Errorf("err = %v, want ErrNoActiveEvent", err)
		}
	})

	t.Run("set", func(t *testing.T) {
		mock.ExpectQuery(`SELECT v FROM config WHERE k = \?`).
			WithArgs("active_event").
			WillReturnRows(sqlmock.NewRows([]string{"v"}).AddRow("summer"))
		got, err := repo.ActiveEvent(ctx)
		if err != nil {
			t.Fatalf("ActiveEvent: %v", err)
		}
		if got != "summer" {
			t.Errorf("event = %q", got)
		}
	})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestSetActiveEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewEventRepo(db)

	mock.ExpectExec(`INSERT INTO config \(k, v\)`).
		WithArgs("active_event", "eid-2026").
		WillReturnResult(sqlmock.NewResult(1, 1))
	if err := repo.SetActiveEvent(context.Background(), " eid-2026 "); err != nil {
		t.Fatalf("SetActiveEvent: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}
