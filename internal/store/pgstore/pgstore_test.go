package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/go-cmp/cmp"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/meimodev/activid-web-sub001/internal/wish"
)

const (
	selectExistsQ = `(?s)^SELECT\s+1\s+FROM\s+wishes\s+WHERE\s+id\s*=\s*\$1$`
	insertQ       = `(?s)^\s*INSERT\s+INTO\s+wishes\s*\(id,\s*invitation_id,\s*name,\s*name_key,\s*attendance,\s*message\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6\)\s*RETURNING\s+created_at\s*$`
	getQ          = `(?s)^\s*SELECT\s+id,\s*invitation_id,\s*name,\s*name_key,\s*attendance,\s*message,\s*created_at\s+FROM\s+wishes\s+WHERE\s+id\s*=\s*\$1\s*$`
	listQ         = `(?s)^\s*SELECT\s+id,.*FROM\s+wishes\s+WHERE\s+invitation_id\s*=\s*\$1\s+ORDER\s+BY\s+created_at\s+DESC,\s*id\s+COLLATE\s+"C"\s+ASC\s*$`
)

var wishColumns = []string{"id", "invitation_id", "name", "name_key", "attendance", "message", "created_at"}

func newRepoWithMock(t *testing.T) (*Store, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return New(db), mock, db
}

func budi() *wish.Wish {
	return &wish.Wish{
		ID:           "wed_123:budi_santoso",
		InvitationID: "wed_123",
		Name:         "Budi Santoso",
		NameKey:      "budi_santoso",
		Attendance:   wish.AttendanceYes,
		Message:      "Selamat ya!",
	}
}

func TestCreateIfAbsent_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	at := time.Date(2026, 6, 6, 9, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(selectExistsQ).WithArgs("wed_123:budi_santoso").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(insertQ).
		WithArgs("wed_123:budi_santoso", "wed_123", "Budi Santoso", "budi_santoso", "hadir", "Selamat ya!").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(at))
	mock.ExpectCommit()

	w := budi()
	if err := repo.CreateIfAbsent(context.Background(), w); err != nil {
		t.Fatalf("CreateIfAbsent error: %v", err)
	}
	if !w.CreatedAt.Equal(at) {
		t.Errorf("CreatedAt = %v, want %v", w.CreatedAt, at)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCreateIfAbsent_AnonymousNullKey(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(selectExistsQ).WithArgs("anon-1").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(insertQ).
		WithArgs("anon-1", "demo", "Tamu", nil, "", "").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectCommit()

	w := &wish.Wish{ID: "anon-1", InvitationID: "demo", Name: "Tamu"}
	if err := repo.CreateIfAbsent(context.Background(), w); err != nil {
		t.Fatalf("CreateIfAbsent error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCreateIfAbsent_Exists(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(selectExistsQ).
		WithArgs("wed_123:budi_santoso").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectRollback()

	w := budi()
	err := repo.CreateIfAbsent(context.Background(), w)
	if !errors.Is(err, wish.ErrAlreadyExists) {
		t.Fatalf("want wish.ErrAlreadyExists, got %v", err)
	}
	if !w.CreatedAt.IsZero() {
		t.Errorf("CreatedAt set on conflict: %v", w.CreatedAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCreateIfAbsent_UniqueViolation(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(selectExistsQ).WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(insertQ).WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key"})
	mock.ExpectRollback()

	err := repo.CreateIfAbsent(context.Background(), budi())
	if !errors.Is(err, wish.ErrAlreadyExists) {
		t.Fatalf("want wish.ErrAlreadyExists, got %v", err)
	}
}

func TestCreateIfAbsent_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(selectExistsQ).WillReturnError(errors.New("db down"))
	mock.ExpectRollback()

	err := repo.CreateIfAbsent(context.Background(), budi())
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
	if errors.Is(err, wish.ErrAlreadyExists) {
		t.Fatal("db error must not read as a conflict")
	}
}

func TestGet_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	at := time.Date(2026, 6, 6, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(getQ).
		WithArgs("wed_123:budi_santoso").
		WillReturnRows(sqlmock.NewRows(wishColumns).
			AddRow("wed_123:budi_santoso", "wed_123", "Budi Santoso", "budi_santoso", "hadir", "Selamat ya!", at))

	got, err := repo.Get(context.Background(), "wed_123:budi_santoso")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	want := budi()
	want.CreatedAt = at
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Get() mismatch (-want +got):\n%s", diff)
	}
}

func TestGet_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(getQ).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "ghost")
	if !errors.Is(err, wish.ErrNotFound) {
		t.Fatalf("want wish.ErrNotFound, got %v", err)
	}
}

func TestListByInvitation(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	t1 := time.Date(2026, 6, 6, 10, 0, 0, 0, time.UTC)
	t0 := t1.Add(-time.Hour)
	mock.ExpectQuery(listQ).
		WithArgs("wed_123").
		WillReturnRows(sqlmock.NewRows(wishColumns).
			AddRow("wed_123:siti", "wed_123", "Siti", "siti", "", "Bahagia selalu", t1).
			AddRow("wed_123:budi", "wed_123", "Budi", nil, "tidak", "Maaf", t0))

	got, err := repo.ListByInvitation(context.Background(), "wed_123")
	if err != nil {
		t.Fatalf("ListByInvitation error: %v", err)
	}
	want := []wish.Wish{
		{ID: "wed_123:siti", InvitationID: "wed_123", Name: "Siti", NameKey: "siti", Message: "Bahagia selalu", CreatedAt: t1},
		{ID: "wed_123:budi", InvitationID: "wed_123", Name: "Budi", Attendance: wish.AttendanceNo, Message: "Maaf", CreatedAt: t0},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ListByInvitation() mismatch (-want +got):\n%s", diff)
	}
}

func TestListByInvitation_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(listQ).WithArgs("wed_123").WillReturnError(errors.New("db err"))

	_, err := repo.ListByInvitation(context.Background(), "wed_123")
	if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}
