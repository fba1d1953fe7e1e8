package kvstore

import (
	"context"
	"path/filepath"
	"testing"

	"fintrack/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type KVTestSuite struct {
	suite.Suite
	store *Store
	ctx   context.Context
}

func (suite *KVTestSuite) SetupTest() {
	path := filepath.Join(suite.T().TempDir(), "kv.db")
	store, err := Open(path)
	require.NoError(suite.T(), err, "failed to open test store")
	suite.store = store
	suite.ctx = context.Background()
}

func (suite *KVTestSuite) TearDownTest() {
	if suite.store != nil {
		suite.store.Close()
	}
}

func (suite *KVTestSuite) TestAbsentKeyLeavesDefault() {
	var users []core.User
	err := suite.store.Get(suite.ctx, KeyUsers, &users)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), users, "absent key must read as empty collection")
}

func (suite *KVTestSuite) TestPutGetRoundTrip() {
	in := []core.Expense{
		{
			ID:            "e1",
			Value:         core.Money{Cents: 1250},
			PaymentMethod: core.Pix,
			Date:          core.NewDate(2025, 6, 15),
			Category:      "Alimentação",
			Description:   "almoço",
			UserID:        "u1",
		},
	}
	require.NoError(suite.T(), suite.store.Put(suite.ctx, KeyExpenses, in))

	var out []core.Expense
	require.NoError(suite.T(), suite.store.Get(suite.ctx, KeyExpenses, &out))
	require.Len(suite.T(), out, 1)
	assert.Equal(suite.T(), in[0], out[0])
}

func (suite *KVTestSuite) TestPutReplacesWholeValue() {
	require.NoError(suite.T(), suite.store.Put(suite.ctx, KeyUsers, []core.User{{ID: "a"}, {ID: "b"}}))
	require.NoError(suite.T(), suite.store.Put(suite.ctx, KeyUsers, []core.User{{ID: "c"}}))

	var users []core.User
	require.NoError(suite.T(), suite.store.Get(suite.ctx, KeyUsers, &users))
	require.Len(suite.T(), users, 1)
	assert.Equal(suite.T(), "c", users[0].ID)
}

func (suite *KVTestSuite) TestCorruptedValueReadsAsDefault() {
	_, err := suite.store.db.Exec(`INSERT INTO kv (key, value) VALUES (?, ?)`, KeyIncomes, `{not json`)
	require.NoError(suite.T(), err)

	var incomes []core.Income
	err = suite.store.Get(suite.ctx, KeyIncomes, &incomes)
	assert.NoError(suite.T(), err, "corrupted value must not propagate as an error")
	assert.Empty(suite.T(), incomes)
}

func (suite *KVTestSuite) TestDelete() {
	require.NoError(suite.T(), suite.store.Put(suite.ctx, KeyCurrentUser, core.User{ID: "u1"}))
	require.NoError(suite.T(), suite.store.Delete(suite.ctx, KeyCurrentUser))

	var u core.User
	require.NoError(suite.T(), suite.store.Get(suite.ctx, KeyCurrentUser, &u))
	assert.Empty(suite.T(), u.ID)

	// deleting again is a no-op
	assert.NoError(suite.T(), suite.store.Delete(suite.ctx, KeyCurrentUser))
}

func (suite *KVTestSuite) TestReopenKeepsData() {
	path := filepath.Join(suite.T().TempDir(), "reopen.db")
	first, err := Open(path)
	require.NoError(suite.T(), err)
	require.NoError(suite.T(), first.Put(suite.ctx, KeyFixedExpenses, []core.FixedExpense{{ID: "f1", Name: "Netflix"}}))
	require.NoError(suite.T(), first.Close())

	second, err := Open(path)
	require.NoError(suite.T(), err)
	defer second.Close()

	var fixed []core.FixedExpense
	require.NoError(suite.T(), second.Get(suite.ctx, KeyFixedExpenses, &fixed))
	require.Len(suite.T(), fixed, 1)
	assert.Equal(suite.T(), "Netflix", fixed[0].Name)
}

func TestKVTestSuite(t *testing.T) {
	suite.Run(t, new(KVTestSuite))
}
