package repository_test

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cerina/foundry/pkg/repository"
)

var (
	errMissing = errors.New("missing")
	errTaken   = errors.New("taken")
)

func TestMapError(t *testing.T) {
	driverErr := errors.New("connection reset")

	tests := []struct {
		name string
		in   error
		want error
	}{
		{name: "nil passes through", in: nil, want: nil},
		{name: "no rows becomes not found", in: sql.ErrNoRows, want: errMissing},
		{name: "unique violation becomes duplicate", in: &pgconn.PgError{Code: "23505"}, want: errTaken},
		{name: "other driver errors pass through", in: driverErr, want: driverErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := repository.MapError(tt.in, errMissing, errTaken)
			if tt.want == nil {
				if got != nil {
					t.Errorf("got %v, want nil", got)
				}
				return
			}
			if !errors.Is(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMapErrorOtherPgCode(t *testing.T) {
	fkErr := &pgconn.PgError{Code: "23503"}
	if got := repository.MapError(fkErr, errMissing, errTaken); got != fkErr {
		t.Errorf("foreign key violation should pass through, got %v", got)
	}
}
