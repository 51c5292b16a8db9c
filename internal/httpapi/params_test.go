package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jcgurango/meremail/internal/errs"
)

func TestPathUint(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/threads/42", nil)
	r.SetPathValue("id", "42")

	got, err := pathUint(r, "id")
	if err != nil {
		t.Fatalf("pathUint failed: %v", err)
	}
	if got != 42 {
		t.Errorf("pathUint = %d, want 42", got)
	}
}

func TestPathUintInvalid(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/threads/abc", nil)
	r.SetPathValue("id", "abc")

	_, err := pathUint(r, "id")
	if errs.KindOf(err) != errs.KindValidation {
		t.Errorf("expected a validation error, got %v", err)
	}
}

func TestQueryInt(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/threads?limit=25", nil)
	if got := queryInt(r, "limit", 10); got != 25 {
		t.Errorf("queryInt = %d, want 25", got)
	}
	if got := queryInt(r, "offset", 10); got != 10 {
		t.Errorf("queryInt default = %d, want 10", got)
	}

	r2 := httptest.NewRequest(http.MethodGet, "/api/threads?limit=notanumber", nil)
	if got := queryInt(r2, "limit", 10); got != 10 {
		t.Errorf("queryInt with unparseable value should fall back to default, got %d", got)
	}
}
