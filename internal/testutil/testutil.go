// Package testutil holds helpers shared by package tests.
package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/banshee-data/paintbrush/internal/geometry"
)

// AssertStatusCode checks an HTTP status code.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// AssertNoError fails the test immediately on err.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// PointNear reports whether got is within tol of want.
func PointNear(got, want geometry.Point2D, tol float64) bool {
	return got.Distance(want) <= tol
}

// AssertPointNear checks got is within tol of want.
func AssertPointNear(t *testing.T, got, want geometry.Point2D, tol float64) {
	t.Helper()
	if !PointNear(got, want, tol) {
		t.Errorf("point = %v, want %v (tolerance %g)", got, want, tol)
	}
}

// NewDebugRequest builds a request from loopback so it passes tsweb's debug
// access check.
func NewDebugRequest(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.RemoteAddr = "127.0.0.1:12345"
	return req
}
