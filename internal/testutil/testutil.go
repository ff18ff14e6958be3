// Package testutil provides common test utilities and fixtures for ParcelPipe tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BTreeMap/ParcelPipe/internal/models"
)

// FixtureTime is the fixed clock used by fixtures.
var FixtureTime = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

// Envelope mirrors models.APIResponse with a typed result.
type Envelope[T any] struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  T      `json:"result"`
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t testing.TB, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// CreateHTTPRequest creates an HTTP request with optional JSON body for testing.
// A string body is sent verbatim so tests can submit malformed JSON.
func CreateHTTPRequest(t testing.TB, method, url string, body interface{}) *http.Request {
	t.Helper()
	var reqBody *bytes.Buffer
	switch b := body.(type) {
	case nil:
		reqBody = bytes.NewBuffer(nil)
	case string:
		reqBody = bytes.NewBufferString(b)
	default:
		reqBody = bytes.NewBuffer(MustMarshalJSON(t, b))
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		t.Fatalf("failed to create HTTP request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// Serve runs req through h and returns the recorded response.
func Serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// DecodeEnvelope decodes the standard response envelope and fails on malformed JSON.
func DecodeEnvelope[T any](t testing.TB, rr *httptest.ResponseRecorder) Envelope[T] {
	t.Helper()
	var env Envelope[T]
	MustUnmarshalJSON(t, rr.Body.Bytes(), &env)
	return env
}

// SampleAddress returns a complete destination address.
func SampleAddress() models.Address {
	return models.Address{Street: "1 Main St", City: "Springfield", State: "IL", PostalCode: "62701", Country: "USA"}
}

// SamplePackage returns a committed-looking box with every required field set.
func SamplePackage(id string) models.Package {
	dest := SampleAddress()
	return models.Package{
		ID:          id,
		Type:        models.PackageBox,
		Dimensions:  &models.Dimensions{Length: 30, Width: 20, Height: 10, Unit: models.UnitCM},
		Weight:      &models.Weight{Value: 2.5, Unit: models.UnitKG},
		Fragile:     models.BoolPtr(true),
		Priority:    models.PriorityStandard,
		Destination: &dest,
		CreatedAt:   FixtureTime,
		UpdatedAt:   FixtureTime,
	}
}

// SampleSession returns a session at asking_continue holding one package
// and one user history entry.
func SampleSession(id string) models.Session {
	snap := models.NewSession(id, FixtureTime)
	snap.State = models.StateAskingContinue
	snap.Packages = append(snap.Packages, SamplePackage("pkg-1"))
	snap.Metadata.TotalPackages = 1
	snap.Metadata.CompletedPackages = 1
	snap.History = append(snap.History, models.HistoryEntry{Timestamp: FixtureTime, Role: models.RoleUser, Message: "hello"})
	return snap
}

// MustMarshalJSON marshals an object to JSON and fails test on error.
func MustMarshalJSON(t testing.TB, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	return data
}

// MustUnmarshalJSON unmarshals JSON data into target and fails test on error.
func MustUnmarshalJSON(t testing.TB, data []byte, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, target); err != nil {
		t.Fatalf("failed to unmarshal JSON %q: %v", data, err)
	}
}
