package itest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Overland-East-Bay/carpool-api/internal/adapters/httpapi"
	memaccountrepo "github.com/Overland-East-Bay/carpool-api/internal/adapters/memory/accountrepo"
	memclock "github.com/Overland-East-Bay/carpool-api/internal/adapters/memory/clock"
	memidempotency "github.com/Overland-East-Bay/carpool-api/internal/adapters/memory/idempotency"
	memtriprepo "github.com/Overland-East-Bay/carpool-api/internal/adapters/memory/triprepo"
	memvehiclerepo "github.com/Overland-East-Bay/carpool-api/internal/adapters/memory/vehiclerepo"
	pgaccountrepo "github.com/Overland-East-Bay/carpool-api/internal/adapters/postgres/accountrepo"
	pgidempotency "github.com/Overland-East-Bay/carpool-api/internal/adapters/postgres/idempotency"
	postgres_testutil "github.com/Overland-East-Bay/carpool-api/internal/adapters/postgres/testutil"
	pgtriprepo "github.com/Overland-East-Bay/carpool-api/internal/adapters/postgres/triprepo"
	pgvehiclerepo "github.com/Overland-East-Bay/carpool-api/internal/adapters/postgres/vehiclerepo"
	"github.com/Overland-East-Bay/carpool-api/internal/app/accounts"
	"github.com/Overland-East-Bay/carpool-api/internal/app/trips"
	"github.com/Overland-East-Bay/carpool-api/internal/platform/password"
	"github.com/Overland-East-Bay/carpool-api/internal/platform/session"
	accountrepoport "github.com/Overland-East-Bay/carpool-api/internal/ports/out/accountrepo"
	idempotencyport "github.com/Overland-East-Bay/carpool-api/internal/ports/out/idempotency"
	triprepoport "github.com/Overland-East-Bay/carpool-api/internal/ports/out/triprepo"
	vehiclerepoport "github.com/Overland-East-Bay/carpool-api/internal/ports/out/vehiclerepo"
)

type backend string

const (
	backendMemory   backend = "memory"
	backendPostgres backend = "postgres"
)

func backendsFromEnv(t *testing.T) []backend {
	t.Helper()
	switch strings.ToLower(strings.TrimSpace(os.Getenv("ITEST_BACKEND"))) {
	case "", "memory":
		return []backend{backendMemory}
	case "postgres":
		return []backend{backendPostgres}
	case "all":
		return []backend{backendMemory, backendPostgres}
	default:
		t.Fatalf("unknown ITEST_BACKEND value (expected memory|postgres|all)")
		return nil
	}
}

type testServer struct {
	baseURL string
	client  *http.Client
}

type serverOptions struct {
	dedupByAccount bool
}

func newTestServer(t *testing.T, b backend, opts serverOptions) *testServer {
	t.Helper()

	const secret = "itest-secret-itest-secret-itest-secret"
	clk := memclock.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	var (
		accountRepo accountrepoport.Repository
		vehicleRepo vehiclerepoport.Repository
		tripRepo    triprepoport.Repository
		idemStore   idempotencyport.Store
	)

	switch b {
	case backendPostgres:
		pool := postgres_testutil.OpenMigratedPool(t)
		accountRepo = pgaccountrepo.NewRepo(pool)
		vehicleRepo = pgvehiclerepo.NewRepo(pool)
		tripRepo = pgtriprepo.NewRepo(pool)
		idemStore = pgidempotency.NewStore(pool)
	case backendMemory:
		accountRepo = memaccountrepo.NewRepo()
		vehicleRepo = memvehiclerepo.NewRepo()
		tripRepo = memtriprepo.NewRepo()
		idemStore = memidempotency.NewStore()
	default:
		t.Fatalf("unknown backend: %s", b)
	}

	hasher, err := password.NewBcryptHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewBcryptHasher: %v", err)
	}
	issuer, err := session.NewJWTIssuer(secret, clk)
	if err != nil {
		t.Fatalf("NewJWTIssuer: %v", err)
	}
	creds := accounts.NewCredentialStore(accountRepo, vehicleRepo, hasher, clk)
	accountsSvc := accounts.NewService(creds, issuer, accounts.Options{}, nil)
	tripsSvc := trips.NewService(tripRepo, clk, trips.Options{DedupByAccount: opts.dedupByAccount})

	api := httpapi.NewServer(accountsSvc, tripsSvc, idemStore, nil)
	srv := httptest.NewServer(httpapi.NewRouter(api, httpapi.RouterOptions{}))
	t.Cleanup(srv.Close)

	return &testServer{
		baseURL: srv.URL,
		client:  srv.Client(),
	}
}

func (s *testServer) url(path string) string {
	if strings.HasPrefix(path, "/") {
		return s.baseURL + path
	}
	return s.baseURL + "/" + path
}

func (s *testServer) doJSON(t *testing.T, method string, path string, headers map[string]string, body any) (int, []byte, http.Header) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.url(path), r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out, resp.Header
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func mustUnmarshal[T any](t *testing.T, b []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v\nbody=%s", err, string(b))
	}
	return out
}

func requireErrorCode(t *testing.T, status int, body []byte, wantStatus int, wantCode string) {
	t.Helper()
	if status != wantStatus {
		t.Fatalf("status=%d want=%d body=%s", status, wantStatus, string(body))
	}
	got := mustUnmarshal[errorResponse](t, body)
	if got.Error.Code != wantCode {
		t.Fatalf("error.code=%q want=%q body=%s", got.Error.Code, wantCode, string(body))
	}
}

func requireHeaderPresent(t *testing.T, h http.Header, key string) {
	t.Helper()
	if strings.TrimSpace(h.Get(key)) == "" {
		t.Fatalf("expected header %q to be present", key)
	}
}
