package web_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/sudao/sudao/pkg/contribution"
	"github.com/sudao/sudao/pkg/mocks"
	"github.com/sudao/sudao/pkg/models"
	"github.com/sudao/sudao/pkg/persistence"
	"github.com/sudao/sudao/pkg/persistence/file"
	"github.com/sudao/sudao/pkg/protocol"
	"github.com/sudao/sudao/pkg/registry"
	"github.com/sudao/sudao/pkg/services"
	"github.com/sudao/sudao/pkg/web"
)

const owner = "2vxsx-fae"

type testClients struct {
	ledger   *mocks.MockLedgerClient
	exchange *mocks.MockExchangeClient
	balances *mocks.MockBalanceQueryClient
}

func newTestClients() *testClients {
	return &testClients{
		ledger:   &mocks.MockLedgerClient{},
		exchange: &mocks.MockExchangeClient{},
		balances: &mocks.MockBalanceQueryClient{},
	}
}

func (tc *testClients) succeed() {
	tc.ledger.On("Approve", mock.Anything, mock.Anything).Return(big.NewInt(1), nil)
	tc.exchange.On("Quote", mock.Anything, mock.Anything, mock.Anything).Return(big.NewInt(2000), nil)
	tc.exchange.On("Swap", mock.Anything, mock.Anything).Return(big.NewInt(1980), nil)
	tc.balances.On("BalancesOf", mock.Anything, mock.Anything).Return(models.Balances{
		Deposit:    big.NewInt(90000),
		Governance: big.NewInt(1980),
	}, nil)
}

func setupTestApp(t *testing.T, tc *testClients) *fiber.App {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)

	journal, err := file.NewJournal(t.TempDir())
	require.NoError(t, err)

	config := contribution.DefaultConfig()
	config.StepDelay = 0

	coordinator, err := contribution.NewCoordinator(logger, config,
		contribution.WithObservers(persistence.NewJournalObserver(logger, journal)))
	require.NoError(t, err)

	service, err := services.NewContributions(logger, coordinator, contribution.Clients{
		Ledger:   tc.ledger,
		Exchange: tc.exchange,
		Balances: tc.balances,
	}, services.DefaultContributionsConfig(
		models.Account{Owner: models.MustParsePrincipal("zqy4v-yykae")},
		models.MustParsePrincipal("ryjl3-tyaaa-aaaaa-aaaba-cai"),
	), services.WithJournal(journal))
	require.NoError(t, err)

	handlers := web.NewAPIHandlers(logger, service, registry.DefaultCatalog(logger),
		validator.New(validator.WithRequiredStructEnabled()))

	app := fiber.New()
	handlers.Register(app)

	return app
}

func do(t *testing.T, app *fiber.App, method, path string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader

	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, raw
}

func startRun(t *testing.T, app *fiber.App, amount string) models.RunRecord {
	t.Helper()

	status, body := do(t, app, http.MethodPost, "/contributions", web.ContributionRequest{
		Amount: amount,
		Owner:  owner,
	})
	require.Equal(t, http.StatusCreated, status, string(body))

	var record models.RunRecord
	require.NoError(t, json.Unmarshal(body, &record))

	return record
}

func TestAPIHandlers_StartContribution(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		requestBody    any
		expectedStatus int
		validateResult func(t *testing.T, body []byte)
	}{
		{
			name:           "successful start",
			requestBody:    web.ContributionRequest{Amount: "10_000", Owner: owner, Memo: "hello"},
			expectedStatus: http.StatusCreated,
			validateResult: func(t *testing.T, body []byte) {
				t.Helper()

				var record models.RunRecord
				require.NoError(t, json.Unmarshal(body, &record))
				assert.NotEmpty(t, record.ID)
				assert.Equal(t, "10000", record.Amount)
				assert.Equal(t, owner, record.Owner)
				assert.Equal(t, "in_progress", record.Status)
			},
		},
		{
			name:           "zero amount fails the run",
			requestBody:    web.ContributionRequest{Amount: "0", Owner: owner},
			expectedStatus: http.StatusUnprocessableEntity,
			validateResult: func(t *testing.T, body []byte) {
				t.Helper()

				var problem struct {
					Type string           `json:"type"`
					Run  models.RunRecord `json:"run"`
				}
				require.NoError(t, json.Unmarshal(body, &problem))
				assert.Equal(t, "validation", problem.Type)
				assert.Equal(t, "failed", problem.Run.Status)
				assert.Equal(t, 0, problem.Run.Step)
			},
		},
		{
			name:           "negative amount fails the run",
			requestBody:    web.ContributionRequest{Amount: "-5", Owner: owner},
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name:           "missing owner",
			requestBody:    web.ContributionRequest{Amount: "100"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad principal",
			requestBody:    web.ContributionRequest{Amount: "100", Owner: "bad!owner"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "amount is not a number",
			requestBody:    web.ContributionRequest{Amount: "ten", Owner: owner},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad subaccount",
			requestBody:    web.ContributionRequest{Amount: "100", Owner: owner, Subaccount: "xyz"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid json",
			requestBody:    "not an object",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app := setupTestApp(t, newTestClients())

			status, body := do(t, app, http.MethodPost, "/contributions", tt.requestBody)
			assert.Equal(t, tt.expectedStatus, status, string(body))

			if tt.validateResult != nil {
				tt.validateResult(t, body)
			}
		})
	}
}

func TestAPIHandlers_RunContribution(t *testing.T) {
	t.Parallel()

	tc := newTestClients()
	tc.succeed()
	app := setupTestApp(t, tc)

	run := startRun(t, app, "10000")

	status, body := do(t, app, http.MethodPost, "/contributions/"+run.ID+"/run", nil)
	require.Equal(t, http.StatusOK, status, string(body))

	var record models.RunRecord
	require.NoError(t, json.Unmarshal(body, &record))
	assert.Equal(t, "completed", record.Status)
	assert.Equal(t, int(contribution.StepBalances), record.Step)

	var state struct {
		Results []struct {
			Type      string `json:"type"`
			ActualOut string `json:"actual_out"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(record.State, &state))
	require.Len(t, state.Results, 4)

	status, body = do(t, app, http.MethodGet, "/contributions/"+run.ID, nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &record))
	assert.Equal(t, "completed", record.Status)
}

func TestAPIHandlers_AdvanceContribution(t *testing.T) {
	t.Parallel()

	tc := newTestClients()
	tc.ledger.On("Approve", mock.Anything, mock.Anything).
		Return(nil, &protocol.LedgerError{Kind: protocol.LedgerInsufficientFunds, Message: "balance 0"})
	app := setupTestApp(t, tc)

	run := startRun(t, app, "10000")

	status, body := do(t, app, http.MethodPost, "/contributions/"+run.ID+"/advance", nil)
	require.Equal(t, http.StatusOK, status, string(body))

	var response web.AdvanceResponse
	require.NoError(t, json.Unmarshal(body, &response))
	assert.Equal(t, "failed", response.Run.Status)
	assert.NotEmpty(t, response.Result)

	// nothing is called again once the run failed
	status, _ = do(t, app, http.MethodPost, "/contributions/"+run.ID+"/advance", nil)
	assert.Equal(t, http.StatusOK, status)
	tc.ledger.AssertNumberOfCalls(t, "Approve", 1)
	tc.exchange.AssertNotCalled(t, "Quote", mock.Anything, mock.Anything, mock.Anything)
}

func TestAPIHandlers_ResetAndReconcile(t *testing.T) {
	t.Parallel()

	tc := newTestClients()
	tc.succeed()
	app := setupTestApp(t, tc)

	run := startRun(t, app, "10000")

	status, body := do(t, app, http.MethodPost, "/contributions/"+run.ID+"/reset",
		web.ContributionRequest{Amount: "0", Owner: owner})
	assert.Equal(t, http.StatusUnprocessableEntity, status, string(body))

	status, body = do(t, app, http.MethodPost, "/contributions/"+run.ID+"/reset",
		web.ContributionRequest{Amount: "500", Owner: owner})
	require.Equal(t, http.StatusOK, status, string(body))

	var record models.RunRecord
	require.NoError(t, json.Unmarshal(body, &record))
	assert.Equal(t, "500", record.Amount)
	assert.Equal(t, "in_progress", record.Status)

	status, body = do(t, app, http.MethodPost, "/contributions/"+run.ID+"/reconcile", nil)
	require.Equal(t, http.StatusOK, status, string(body))

	var reconciled web.ReconcileResponse
	require.NoError(t, json.Unmarshal(body, &reconciled))
	assert.Equal(t, "1980", reconciled.Balances.Governance.String())
	assert.Equal(t, "90000", reconciled.Balances.Deposit.String())
}

func TestAPIHandlers_ReconcileFailure(t *testing.T) {
	t.Parallel()

	tc := newTestClients()
	tc.balances.On("BalancesOf", mock.Anything, mock.Anything).
		Return(models.Balances{}, &protocol.TransportError{Op: "balance_of", Err: errors.New("timeout")})
	app := setupTestApp(t, tc)

	run := startRun(t, app, "10000")

	status, body := do(t, app, http.MethodPost, "/contributions/"+run.ID+"/reconcile", nil)
	assert.Equal(t, http.StatusBadGateway, status, string(body))
}

func TestAPIHandlers_AcknowledgeAndHistory(t *testing.T) {
	t.Parallel()

	tc := newTestClients()
	tc.succeed()
	app := setupTestApp(t, tc)

	run := startRun(t, app, "10000")

	status, _ := do(t, app, http.MethodDelete, "/contributions/"+run.ID, nil)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = do(t, app, http.MethodPost, "/contributions/"+run.ID+"/run", nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = do(t, app, http.MethodDelete, "/contributions/"+run.ID, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, body := do(t, app, http.MethodGet, "/contributions/"+run.ID, nil)
	require.Equal(t, http.StatusOK, status, string(body))

	status, body = do(t, app, http.MethodGet, "/accounts/"+owner+"/contributions?limit=10", nil)
	require.Equal(t, http.StatusOK, status, string(body))

	var history web.ContributionListResponse
	require.NoError(t, json.Unmarshal(body, &history))
	require.Len(t, history.Contributions, 1)
	assert.Equal(t, run.ID, history.Contributions[0].ID)

	status, _ = do(t, app, http.MethodGet, "/accounts/"+owner+"/contributions?limit=ten", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, app, http.MethodGet, "/accounts/not-valid/contributions", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAPIHandlers_UnknownContribution(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t, newTestClients())

	for _, tt := range []struct{ method, path string }{
		{http.MethodGet, "/contributions/missing"},
		{http.MethodPost, "/contributions/missing/advance"},
		{http.MethodPost, "/contributions/missing/run"},
		{http.MethodPost, "/contributions/missing/reconcile"},
		{http.MethodDelete, "/contributions/missing"},
	} {
		status, body := do(t, app, tt.method, tt.path, nil)
		assert.Equal(t, http.StatusNotFound, status, "%s %s: %s", tt.method, tt.path, body)
	}
}

func TestAPIHandlers_Plugins(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t, newTestClients())

	status, body := do(t, app, http.MethodGet, "/plugins", nil)
	require.Equal(t, http.StatusOK, status)

	var plugins []models.Plugin
	require.NoError(t, json.Unmarshal(body, &plugins))
	assert.Len(t, plugins, 5)

	status, _ = do(t, app, http.MethodGet, "/plugins/unknown", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = do(t, app, http.MethodPost, "/plugins/dao-analytics/install", nil)
	require.Equal(t, http.StatusOK, status)

	var plugin models.Plugin
	require.NoError(t, json.Unmarshal(body, &plugin))
	assert.True(t, plugin.Installed)

	status, body = do(t, app, http.MethodPost, "/plugins/dao-analytics/toggle", map[string]bool{"enabled": true})
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &plugin))
	assert.True(t, plugin.ShowInMyPages)

	status, _ = do(t, app, http.MethodPost, "/plugins/dao-analytics/toggle", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, app, http.MethodPost, "/plugins/proposal/uninstall", nil)
	assert.Equal(t, http.StatusConflict, status)

	status, body = do(t, app, http.MethodPost, "/plugins/dao-analytics/uninstall", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &plugin))
	assert.False(t, plugin.Installed)
	assert.False(t, plugin.ShowInMyPages)
}

func TestAPIHandlers_HealthCheck(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t, newTestClients())

	status, body := do(t, app, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, status)

	var health map[string]any
	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, "healthy", health["status"])
}
