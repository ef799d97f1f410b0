package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/tibialabs/tibia-houses/internal/cache"
	"github.com/tibialabs/tibia-houses/internal/houses"
	"github.com/tibialabs/tibia-houses/internal/httpx"
	"github.com/tibialabs/tibia-houses/internal/observability"
)

func fixture(t *testing.T, path string) []byte {
	t.Helper()
	body, err := os.ReadFile(filepath.Join("..", path))
	if err != nil {
		t.Fatalf("failed to read fixture %s: %v", path, err)
	}
	return body
}

// stubClient serves captured pages instead of fetching tibia.com. The
// residences fixture is re-labelled per town so every town in a fan-out
// resolves.
type stubClient struct {
	mu              sync.Mutex
	residencesBody  []byte
	townsBody       []byte
	err             error
	residencesCalls int
}

func (s *stubClient) ResidencesPage(_ context.Context, _, town, _ string) ([]byte, error) {
	s.mu.Lock()
	s.residencesCalls++
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return bytes.ReplaceAll(s.residencesBody, []byte("in Thais on"), []byte("in "+town+" on")), nil
}

func (s *stubClient) TownsPage(context.Context) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.townsBody, nil
}

func (s *stubClient) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.residencesCalls
}

func newTestServer(stub *stubClient) *Server {
	return NewServer(
		stub,
		cache.New[*houses.ExtractionResult](64, time.Minute),
		cache.New[[]string](4, time.Minute),
		nil,
		observability.NewMetrics(),
	)
}

func doRequest(srv *Server, target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	srv.Router().ServeHTTP(rr, req)
	return rr
}

type residencesResponse struct {
	Residences []struct {
		ID   int    `json:"id"`
		Town string `json:"town"`
		Type string `json:"type"`
		Rent int    `json:"rent"`
		Name string `json:"name"`
	} `json:"residences"`
	Failures []struct {
		Row    int    `json:"row"`
		Field  string `json:"field"`
		Reason string `json:"reason"`
	} `json:"failures"`
}

func TestHandleTowns(t *testing.T) {
	stub := &stubClient{townsBody: fixture(t, "towns/testdata/towns.html")}
	rr := doRequest(newTestServer(stub), "/api/v1/towns")

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body)
	}
	var got []string
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(got) != 5 || got[0] != "Ab'Dendriel" || got[3] != "Thais" {
		t.Fatalf("towns = %v", got)
	}
}

func TestHandleResidencesSingleTown(t *testing.T) {
	stub := &stubClient{residencesBody: fixture(t, "houses/testdata/houses_thais.html")}
	rr := doRequest(newTestServer(stub), "/api/v1/worlds/Antica/residences?town=Thais&type=house")

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body)
	}
	var got residencesResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(got.Residences) != 4 {
		t.Fatalf("got %d residences, want 4", len(got.Residences))
	}
	if len(got.Failures) != 0 {
		t.Fatalf("failures = %+v, want none", got.Failures)
	}
	if got.Residences[0].ID != 35006 || got.Residences[0].Rent != 50000 {
		t.Fatalf("first residence = %+v", got.Residences[0])
	}
}

func TestHandleResidencesRowFailuresAreNotFatal(t *testing.T) {
	stub := &stubClient{residencesBody: fixture(t, "houses/testdata/houses_bad_rent.html")}
	rr := doRequest(newTestServer(stub), "/api/v1/worlds/Antica/residences?town=Thais&type=house")

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 despite row failure", rr.Code)
	}
	var got residencesResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(got.Residences) != 3 || len(got.Failures) != 1 {
		t.Fatalf("got %d residences and %d failures, want 3 and 1", len(got.Residences), len(got.Failures))
	}
	if got.Failures[0].Row != 2 || got.Failures[0].Field != "rent" {
		t.Fatalf("failure = %+v", got.Failures[0])
	}
}

func TestHandleResidencesFanOut(t *testing.T) {
	stub := &stubClient{
		residencesBody: fixture(t, "houses/testdata/houses_thais.html"),
		townsBody:      fixture(t, "towns/testdata/towns.html"),
	}
	rr := doRequest(newTestServer(stub), "/api/v1/worlds/Antica/residences?type=house")

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body)
	}
	var got residencesResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	// 5 towns, 4 listings each.
	if len(got.Residences) != 20 {
		t.Fatalf("got %d residences, want 20", len(got.Residences))
	}
	if stub.calls() != 5 {
		t.Fatalf("upstream calls = %d, want 5", stub.calls())
	}
}

func TestHandleResidencesUsesCache(t *testing.T) {
	stub := &stubClient{residencesBody: fixture(t, "houses/testdata/houses_thais.html")}
	srv := newTestServer(stub)

	for i := 0; i < 3; i++ {
		if rr := doRequest(srv, "/api/v1/worlds/Antica/residences?town=Thais&type=house"); rr.Code != http.StatusOK {
			t.Fatalf("status = %d", rr.Code)
		}
	}
	if stub.calls() != 1 {
		t.Fatalf("upstream calls = %d, want 1 (cached afterwards)", stub.calls())
	}
}

func TestHandleResidencesUnknownTown(t *testing.T) {
	stub := &stubClient{residencesBody: fixture(t, "houses/testdata/houses_thais.html")}
	// The stub re-labels by town, so pin the header to a different town
	// to simulate tibia's 200-for-unknown-resource behavior.
	stub.residencesBody = bytes.ReplaceAll(stub.residencesBody, []byte("in Thais on"), []byte("in Carlin on"))

	rr := doRequest(newTestServer(stub), "/api/v1/worlds/Antica/residences?town=Thais&type=house")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestHandleResidencesContainerDrift(t *testing.T) {
	stub := &stubClient{residencesBody: fixture(t, "houses/testdata/houses_no_container.html")}
	rr := doRequest(newTestServer(stub), "/api/v1/worlds/Antica/residences?town=Thais&type=house")

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rr.Code)
	}
	var got map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if got["code"] != "UPSTREAM_FORMAT_CHANGED" {
		t.Fatalf("code = %q, want UPSTREAM_FORMAT_CHANGED", got["code"])
	}
}

func TestHandleResidencesMaintenance(t *testing.T) {
	stub := &stubClient{residencesBody: fixture(t, "houses/testdata/maintenance.html")}
	rr := doRequest(newTestServer(stub), "/api/v1/worlds/Antica/residences?town=Thais&type=house")

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rr.Code)
	}
}

func TestHandleResidencesUpstreamDown(t *testing.T) {
	stub := &stubClient{err: &httpx.FetchError{Kind: httpx.ErrUnreachable, Err: errors.New("dial timeout")}}
	rr := doRequest(newTestServer(stub), "/api/v1/worlds/Antica/residences?town=Thais&type=house")

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rr.Code)
	}
}

func TestHandleResidencesBadType(t *testing.T) {
	stub := &stubClient{residencesBody: fixture(t, "houses/testdata/houses_thais.html")}
	rr := doRequest(newTestServer(stub), "/api/v1/worlds/Antica/residences?town=Thais&type=castle")

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestHandleResidencesEmptyTown(t *testing.T) {
	stub := &stubClient{residencesBody: fixture(t, "houses/testdata/houses_empty.html")}
	rr := doRequest(newTestServer(stub), "/api/v1/worlds/Antica/residences?town=Thais&type=house")

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for an empty listing", rr.Code)
	}
	var got residencesResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(got.Residences) != 0 || len(got.Failures) != 0 {
		t.Fatalf("result = %+v, want empty success", got)
	}
}

func TestHandleDriftEventsWithoutStore(t *testing.T) {
	stub := &stubClient{}
	rr := doRequest(newTestServer(stub), "/api/v1/drift-events")

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var got struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(got.Items) != 0 {
		t.Fatalf("items = %v, want empty", got.Items)
	}
}
