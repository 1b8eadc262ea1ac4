package apperr

import (
	"errors"
	"net/http"
	"testing"
)

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindNotFound, http.StatusNotFound},
		{KindValidation, http.StatusBadRequest},
		{KindBadRequest, http.StatusBadRequest},
		{KindConflict, http.StatusConflict},
		{KindForbidden, http.StatusForbidden},
		{KindUnauthorized, http.StatusUnauthorized},
		{KindInternal, http.StatusInternalServerError},
		{KindStore, http.StatusServiceUnavailable},
		{KindConfiguration, http.StatusNotImplemented},
		{KindUnknown, http.StatusBadRequest},
	}

	for _, tt := range tests {
		if got := New(tt.kind, "boom").HTTPStatus(); got != tt.want {
			t.Errorf("kind %v -> status %d, want %d", tt.kind, got, tt.want)
		}
	}
}

func TestValidationFieldsRoundTrip(t *testing.T) {
	fields := []FieldError{
		{Field: "name", Message: "is required"},
		{Field: "score", Message: "must be at most 100"},
	}

	err := ValidationFields(fields)
	if !Is(err, KindValidation) {
		t.Fatalf("expected validation kind, got %v", GetKind(err))
	}

	got := Fields(err)
	if len(got) != 2 || got[0].Field != "name" || got[1].Field != "score" {
		t.Fatalf("fields lost in round trip: %v", got)
	}

	if Fields(errors.New("plain")) != nil {
		t.Fatal("plain errors must carry no field details")
	}
}

func TestErrorStringIncludesOp(t *testing.T) {
	err := Wrap(KindStore, "store operation failed", errors.New("timeout")).WithOp("create contact")
	if err.Error() != "create contact: store operation failed" {
		t.Fatalf("unexpected error string %q", err.Error())
	}
	if !errors.Is(err, err.Err) {
		t.Fatal("wrapped error not reachable via errors.Is")
	}
}

func TestGetKindOnForeignError(t *testing.T) {
	if GetKind(errors.New("plain")) != KindUnknown {
		t.Fatal("foreign errors must map to KindUnknown")
	}
	if Is(errors.New("plain"), KindInternal) {
		t.Fatal("foreign errors must not match a typed kind")
	}
}
