package kernelerr

import (
	"errors"
	"testing"
)

func TestNewErrorFormatsWithoutCause(t *testing.T) {
	err := New(NoMatchingPolicy, "no policy matched event type")
	want := "NO_MATCHING_POLICY: no policy matched event type"
	if got := err.Error(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if err.Unwrap() != nil {
		t.Fatalf("expected no wrapped cause")
	}
}

func TestWrapFormatsWithCauseAndUnwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(StorageUnavailable, "could not reach storage", cause)
	want := "STORAGE_UNAVAILABLE: could not reach storage: connection refused"
	if got := err.Error(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to find the wrapped cause")
	}
}

func TestWithDetailsAttachesAndReturnsReceiver(t *testing.T) {
	err := New(ConfigInvalid, "bad config").WithDetails(map[string]any{"field": "database_url"})
	if err.Details["field"] != "database_url" {
		t.Fatalf("expected details to be attached, got %+v", err.Details)
	}
}

func TestHTTPStatusMapsKnownCodes(t *testing.T) {
	cases := map[Code]int{
		NoMatchingPolicy:    422,
		AmbiguousPolicy:     409,
		RecordNotFound:      404,
		AuditChainBroken:    500,
		StorageUnavailable:  500,
		ImmutabilityViolation: 500,
	}
	for code, want := range cases {
		if got := code.HTTPStatus(); got != want {
			t.Errorf("%s.HTTPStatus() = %d, want %d", code, got, want)
		}
	}
}

func TestHTTPStatusDefaultsTo500ForUnknownCode(t *testing.T) {
	var unknown Code = "SOMETHING_ELSE"
	if got := unknown.HTTPStatus(); got != 500 {
		t.Fatalf("expected unknown code to default to 500, got %d", got)
	}
}
