package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/kvstore"
	"fintrack/internal/ledger"
	"fintrack/internal/settings"
	"fintrack/internal/shopping"
)

type ServerTestSuite struct {
	suite.Suite
	kv  *kvstore.Store
	srv *Server
}

func (suite *ServerTestSuite) SetupTest() {
	kv, err := kvstore.Open(filepath.Join(suite.T().TempDir(), "test.db"))
	require.NoError(suite.T(), err)
	suite.kv = kv
	suite.srv = NewServer(":0", Deps{
		Auth:     auth.New(kv, nil),
		Ledger:   ledger.New(kv),
		Settings: settings.New(kv),
		Shopping: shopping.New(kv),
	})
}

func (suite *ServerTestSuite) TearDownTest() {
	require.NoError(suite.T(), suite.srv.Shutdown(context.Background()))
	require.NoError(suite.T(), suite.kv.Close())
}

func (suite *ServerTestSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(suite.T(), json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	suite.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func (suite *ServerTestSuite) login() {
	rr := suite.do(http.MethodPost, "/api/register", map[string]string{
		"username": "maria", "email": "maria@example.com", "password": "segredo1",
	})
	require.Equal(suite.T(), http.StatusCreated, rr.Code, rr.Body.String())
	rr = suite.do(http.MethodPost, "/api/login", map[string]string{
		"username": "maria", "password": "segredo1",
	})
	require.Equal(suite.T(), http.StatusOK, rr.Code, rr.Body.String())
}

func (suite *ServerTestSuite) TestHealthEndpoints() {
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := suite.do(http.MethodGet, path, nil)
		assert.Equal(suite.T(), http.StatusOK, rr.Code, path)
	}
}

func (suite *ServerTestSuite) TestSecurityHeaders() {
	rr := suite.do(http.MethodGet, "/api/me", nil)
	assert.Equal(suite.T(), "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(suite.T(), "DENY", rr.Header().Get("X-Frame-Options"))
}

func (suite *ServerTestSuite) TestAuthFlow() {
	rr := suite.do(http.MethodGet, "/api/me", nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, rr.Code)

	suite.login()

	rr = suite.do(http.MethodGet, "/api/me", nil)
	require.Equal(suite.T(), http.StatusOK, rr.Code)
	var me userResponse
	require.NoError(suite.T(), json.Unmarshal(rr.Body.Bytes(), &me))
	assert.Equal(suite.T(), "maria", me.Username)

	rr = suite.do(http.MethodPost, "/api/logout", nil)
	assert.Equal(suite.T(), http.StatusNoContent, rr.Code)
	rr = suite.do(http.MethodGet, "/api/me", nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, rr.Code)
}

func (suite *ServerTestSuite) TestLoginRejectsBadCredentials() {
	suite.login()
	rr := suite.do(http.MethodPost, "/api/login", map[string]string{
		"username": "maria", "password": "errada",
	})
	assert.Equal(suite.T(), http.StatusUnauthorized, rr.Code)
}

func (suite *ServerTestSuite) TestResetPasswordDoesNotLeakAccounts() {
	suite.login()

	hit := suite.do(http.MethodPost, "/api/reset-password", map[string]string{"usernameOrEmail": "maria"})
	miss := suite.do(http.MethodPost, "/api/reset-password", map[string]string{"usernameOrEmail": "ghost"})

	assert.Equal(suite.T(), http.StatusOK, hit.Code)
	assert.Equal(suite.T(), http.StatusOK, miss.Code)
	assert.Equal(suite.T(), hit.Body.String(), miss.Body.String())
}

func (suite *ServerTestSuite) TestExpenseCRUD() {
	suite.login()

	rr := suite.do(http.MethodPost, "/api/expenses", map[string]any{
		"value": 1550, "paymentMethod": "Pix", "date": "2025-06-10",
		"category": "Alimentação", "description": "almoço",
	})
	require.Equal(suite.T(), http.StatusCreated, rr.Code, rr.Body.String())
	var created []core.Expense
	require.NoError(suite.T(), json.Unmarshal(rr.Body.Bytes(), &created))
	require.Len(suite.T(), created, 1)
	id := created[0].ID

	rr = suite.do(http.MethodPatch, "/api/expenses/"+id, map[string]any{"value": 2000})
	require.Equal(suite.T(), http.StatusOK, rr.Code, rr.Body.String())
	var updated core.Expense
	require.NoError(suite.T(), json.Unmarshal(rr.Body.Bytes(), &updated))
	assert.Equal(suite.T(), int64(2000), updated.Value.Cents)
	assert.Equal(suite.T(), "almoço", updated.Description)

	rr = suite.do(http.MethodDelete, "/api/expenses/"+id, nil)
	assert.Equal(suite.T(), http.StatusNoContent, rr.Code)

	rr = suite.do(http.MethodDelete, "/api/expenses/"+id, nil)
	assert.Equal(suite.T(), http.StatusNotFound, rr.Code)
}

func (suite *ServerTestSuite) TestInstallmentFanOutOverHTTP() {
	suite.login()

	rr := suite.do(http.MethodPost, "/api/expenses", map[string]any{
		"paymentMethod": "Cartão de Crédito", "date": "2025-01-15",
		"category": "Outros", "description": "notebook",
		"installments": 12, "totalValue": 120000,
	})
	require.Equal(suite.T(), http.StatusCreated, rr.Code, rr.Body.String())
	var created []core.Expense
	require.NoError(suite.T(), json.Unmarshal(rr.Body.Bytes(), &created))
	require.Len(suite.T(), created, 12)
	assert.Equal(suite.T(), int64(10000), created[0].Value.Cents)
	assert.Equal(suite.T(), 1, created[0].InstallmentNumber)
	assert.Equal(suite.T(), 12, created[11].InstallmentNumber)
}

func (suite *ServerTestSuite) TestExpenseValidation() {
	suite.login()

	rr := suite.do(http.MethodPost, "/api/expenses", map[string]any{
		"value": 0, "paymentMethod": "Pix", "date": "2025-06-10",
		"category": "Alimentação", "description": "x",
	})
	assert.Equal(suite.T(), http.StatusBadRequest, rr.Code)

	rr = suite.do(http.MethodPost, "/api/expenses", map[string]any{
		"value": 100, "paymentMethod": "Cheque", "date": "2025-06-10",
		"category": "Alimentação", "description": "x",
	})
	assert.Equal(suite.T(), http.StatusBadRequest, rr.Code)
}

func (suite *ServerTestSuite) TestMonthSummaryCaching() {
	suite.login()

	rr := suite.do(http.MethodPost, "/api/expenses", map[string]any{
		"value": 1550, "paymentMethod": "Pix", "date": "2025-06-10",
		"category": "Alimentação", "description": "almoço",
	})
	require.Equal(suite.T(), http.StatusCreated, rr.Code)
	rr = suite.do(http.MethodPost, "/api/incomes", map[string]any{
		"value": 300000, "date": "2025-06-05", "source": "Salário", "description": "salário",
	})
	require.Equal(suite.T(), http.StatusCreated, rr.Code, rr.Body.String())

	first := suite.do(http.MethodGet, "/api/reports/summary?year=2025&month=6", nil)
	require.Equal(suite.T(), http.StatusOK, first.Code)
	assert.Equal(suite.T(), "MISS", first.Header().Get("X-Cache"))

	second := suite.do(http.MethodGet, "/api/reports/summary?year=2025&month=6", nil)
	assert.Equal(suite.T(), "HIT", second.Header().Get("X-Cache"))
	assert.Equal(suite.T(), first.Body.String(), second.Body.String())

	var summary monthSummary
	require.NoError(suite.T(), json.Unmarshal(first.Body.Bytes(), &summary))
	assert.Equal(suite.T(), int64(1550), summary.TotalExpenses.Cents)
	assert.Equal(suite.T(), int64(300000), summary.TotalIncomes.Cents)
	assert.Equal(suite.T(), int64(298450), summary.Balance.Cents)

	// a mutation must invalidate the cached month
	rr = suite.do(http.MethodPost, "/api/expenses", map[string]any{
		"value": 1000, "paymentMethod": "Pix", "date": "2025-06-11",
		"category": "Lazer", "description": "cinema",
	})
	require.Equal(suite.T(), http.StatusCreated, rr.Code)

	third := suite.do(http.MethodGet, "/api/reports/summary?year=2025&month=6", nil)
	assert.Equal(suite.T(), "MISS", third.Header().Get("X-Cache"))
	require.NoError(suite.T(), json.Unmarshal(third.Body.Bytes(), &summary))
	assert.Equal(suite.T(), int64(2550), summary.TotalExpenses.Cents)
}

func (suite *ServerTestSuite) TestFutureExpensesEndpoint() {
	suite.login()

	rr := suite.do(http.MethodPost, "/api/fixed-expenses", map[string]any{
		"name": "Netflix", "value": 3990, "periodicity": "Mensal",
		"category": "Lazer", "dueDay": 10,
	})
	require.Equal(suite.T(), http.StatusCreated, rr.Code, rr.Body.String())
	var fe core.FixedExpense
	require.NoError(suite.T(), json.Unmarshal(rr.Body.Bytes(), &fe))

	rr = suite.do(http.MethodGet, "/api/reports/future?months=3", nil)
	require.Equal(suite.T(), http.StatusOK, rr.Code)
	var future []core.Expense
	require.NoError(suite.T(), json.Unmarshal(rr.Body.Bytes(), &future))
	require.Len(suite.T(), future, 3)
	for i, e := range future {
		assert.Equal(suite.T(), fmt.Sprintf("projection-%s-%d", fe.ID, i), e.ID)
		assert.Equal(suite.T(), core.SystemUserID, e.UserID)
		assert.Equal(suite.T(), core.Debit, e.PaymentMethod)
		assert.Equal(suite.T(), "Netflix (Despesa fixa)", e.Description)
	}
}

func (suite *ServerTestSuite) TestShoppingListFlow() {
	suite.login()

	rr := suite.do(http.MethodPost, "/api/shopping-lists", map[string]string{"name": "Mercado"})
	require.Equal(suite.T(), http.StatusCreated, rr.Code)
	var list core.ShoppingList
	require.NoError(suite.T(), json.Unmarshal(rr.Body.Bytes(), &list))

	rr = suite.do(http.MethodPost, "/api/shopping-lists/"+list.ID+"/items", map[string]any{
		"name": "Arroz", "quantity": 2, "unitCost": 2599,
	})
	require.Equal(suite.T(), http.StatusOK, rr.Code, rr.Body.String())
	require.NoError(suite.T(), json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(suite.T(), list.Items, 1)
	assert.Equal(suite.T(), int64(5198), list.TotalCost.Cents)

	rr = suite.do(http.MethodPost, "/api/shopping-lists/"+list.ID+"/complete", nil)
	require.Equal(suite.T(), http.StatusOK, rr.Code)
	require.NoError(suite.T(), json.Unmarshal(rr.Body.Bytes(), &list))
	assert.True(suite.T(), list.IsCompleted)

	rr = suite.do(http.MethodDelete, "/api/shopping-lists/"+list.ID, nil)
	assert.Equal(suite.T(), http.StatusNoContent, rr.Code)
}

func (suite *ServerTestSuite) TestSettingsEndpoints() {
	suite.login()

	rr := suite.do(http.MethodGet, "/api/settings", nil)
	require.Equal(suite.T(), http.StatusOK, rr.Code)
	var us core.UserSettings
	require.NoError(suite.T(), json.Unmarshal(rr.Body.Bytes(), &us))
	assert.Equal(suite.T(), "light", us.Theme)

	rr = suite.do(http.MethodPatch, "/api/settings", map[string]any{"theme": "dark"})
	require.Equal(suite.T(), http.StatusOK, rr.Code)
	require.NoError(suite.T(), json.Unmarshal(rr.Body.Bytes(), &us))
	assert.Equal(suite.T(), "dark", us.Theme)

	rr = suite.do(http.MethodPut, "/api/settings/limits/Alimentação", map[string]any{"limit": 50000})
	require.Equal(suite.T(), http.StatusOK, rr.Code, rr.Body.String())
	require.NoError(suite.T(), json.Unmarshal(rr.Body.Bytes(), &us))
	require.Len(suite.T(), us.CategoryLimits, 1)
	assert.Equal(suite.T(), int64(50000), us.CategoryLimits[0].Limit.Cents)

	rr = suite.do(http.MethodPost, "/api/settings/categories", map[string]string{"name": "Pets"})
	require.Equal(suite.T(), http.StatusCreated, rr.Code)
	rr = suite.do(http.MethodPost, "/api/settings/categories", map[string]string{"name": "Pets"})
	assert.Equal(suite.T(), http.StatusConflict, rr.Code)
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}
