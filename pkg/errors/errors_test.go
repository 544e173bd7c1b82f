package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found", detailsOK: true},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected", detailsOK: true},
		{code: CodeRateLimit, status: http.StatusTooManyRequests, publicMsg: "rate limit exceeded", retryable: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing section")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing section" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	base.WithDetails(map[string]any{"field": "section"})
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}

	formatted := Newf(CodeNotFound, "Unit %d doesn't exist", 7)
	if formatted.Message() != "Unit 7 doesn't exist" {
		t.Fatalf("unexpected formatted message %q", formatted.Message())
	}
}

func TestAsAndHasCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeNotFound, "no unit"))
	if got := As(err); got == nil || got.Code() != CodeNotFound {
		t.Fatalf("As failed to return typed error")
	}
	if !HasCode(err, CodeNotFound) {
		t.Fatalf("expected HasCode to find not found")
	}
	if HasCode(err, CodeConflict) {
		t.Fatalf("did not expect conflict code")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}

	nested := Wrap(CodeInternal, fmt.Errorf("tx: %w", New(CodeConflict, "duplicate")), "create unit")
	if !HasCode(nested, CodeConflict) || !HasCode(nested, CodeInternal) {
		t.Fatalf("expected HasCode to walk the whole chain")
	}
}

func TestDumpExtractsPostgresFields(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_units_number_section_active", TableName: "units"}
	err := Wrap(CodeConflict, fmt.Errorf("insert unit: %w", pgErr), "unit already exists")

	d := Dump(err)
	if d.Code != CodeConflict {
		t.Fatalf("expected conflict code, got %s", d.Code)
	}
	if d.Driver != "pgx" || d.SQLState != "23505" || d.Constraint != "ux_units_number_section_active" || d.Table != "units" {
		t.Fatalf("unexpected store fields: %+v", d)
	}
	if len(d.Chain) != 3 {
		t.Fatalf("expected 3 chain entries, got %d", len(d.Chain))
	}

	fields := d.Fields()
	if fields["db_constraint"] != "ux_units_number_section_active" || fields["error_code"] != CodeConflict {
		t.Fatalf("unexpected log fields: %v", fields)
	}
	if _, ok := fields["db_column"]; ok {
		t.Fatalf("empty store fields must be omitted: %v", fields)
	}
}

func TestDumpRecognisesSQLiteConstraint(t *testing.T) {
	err := fmt.Errorf("insert unit: %w", stdErrors.New("UNIQUE constraint failed: units.number, units.section"))
	d := Dump(err)
	if d.Driver != "sqlite" || d.DBMessage == "" {
		t.Fatalf("expected sqlite dump, got %+v", d)
	}
	if d.Code != "" {
		t.Fatalf("plain errors carry no code, got %s", d.Code)
	}
	if got := Dump(stdErrors.New("boom")); got.Driver != "" {
		t.Fatalf("non-store error should not report a driver: %+v", got)
	}
}
