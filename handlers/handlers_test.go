package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Duduxlll/banca-xand/config"
	"github.com/Duduxlll/banca-xand/notify"
	"github.com/Duduxlll/banca-xand/provider"
	"github.com/Duduxlll/banca-xand/reconcile"
	"github.com/Duduxlll/banca-xand/store"
	"github.com/Duduxlll/banca-xand/tokens"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// mockPix lets each test script the provider's answers.
type mockPix struct {
	name           string
	createChargeFn func(ctx context.Context, req provider.ChargeRequest) (*provider.Charge, error)
	getStatusFn    func(ctx context.Context, providerPaymentID string) (provider.Status, error)
	verifyEventFn  func(raw []byte, header http.Header, remoteIP string) (*provider.PaidEvent, error)
}

func (m *mockPix) Name() string {
	if m.name == "" {
		return "mockpix"
	}
	return m.name
}

func (m *mockPix) CreateCharge(ctx context.Context, req provider.ChargeRequest) (*provider.Charge, error) {
	return m.createChargeFn(ctx, req)
}

func (m *mockPix) GetStatus(ctx context.Context, providerPaymentID string) (provider.Status, error) {
	return m.getStatusFn(ctx, providerPaymentID)
}

func (m *mockPix) VerifyEvent(raw []byte, header http.Header, remoteIP string) (*provider.PaidEvent, error) {
	return m.verifyEventFn(raw, header, remoteIP)
}

type testDeps struct {
	db         *gorm.DB
	ledger     *store.LedgerStore
	reconciler *reconcile.Reconciler
	notifier   *notify.Broadcaster
	registry   *tokens.Registry
}

func newTestDeps(t *testing.T) *testDeps {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, config.Migrate(db))

	notifier := notify.NewBroadcaster()
	registry := tokens.NewRegistry(tokens.DefaultTTL, 0)
	t.Cleanup(registry.Close)

	return &testDeps{
		db:         db,
		ledger:     store.NewLedgerStore(db),
		reconciler: reconcile.NewReconciler(db, notifier),
		notifier:   notifier,
		registry:   registry,
	}
}

func tokensDeposit(paymentID string) tokens.Deposit {
	return tokens.Deposit{ProviderPaymentID: paymentID, Nome: "Maria", AmountCents: 1500}
}

func doJSON(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}
