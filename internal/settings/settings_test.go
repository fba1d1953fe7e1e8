package settings

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"fintrack/internal/core"
	"fintrack/internal/kvstore"
)

type SettingsTestSuite struct {
	suite.Suite
	ctx context.Context
	kv  *kvstore.Store
	svc *Service
}

func (suite *SettingsTestSuite) SetupTest() {
	suite.ctx = context.Background()
	kv, err := kvstore.Open(filepath.Join(suite.T().TempDir(), "test.db"))
	require.NoError(suite.T(), err)
	suite.kv = kv
	suite.svc = New(kv)
}

func (suite *SettingsTestSuite) TearDownTest() {
	require.NoError(suite.T(), suite.kv.Close())
}

func (suite *SettingsTestSuite) TestDefaultsForUnknownUser() {
	us, err := suite.svc.Get(suite.ctx, "nobody")
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), "nobody", us.UserID)
	assert.Equal(suite.T(), DefaultTheme, us.Theme)
	assert.Equal(suite.T(), DefaultCurrency, us.Currency)
	assert.True(suite.T(), us.ReceiveNotifications)
	assert.Empty(suite.T(), us.CategoryLimits)
	assert.Empty(suite.T(), us.CustomCategories)
}

func (suite *SettingsTestSuite) TestUpdateMergesAndPersists() {
	dark := "dark"
	us, err := suite.svc.Update(suite.ctx, "u1", Patch{Theme: &dark})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "dark", us.Theme)
	assert.Equal(suite.T(), DefaultCurrency, us.Currency)

	off := false
	us, err = suite.svc.Update(suite.ctx, "u1", Patch{ReceiveNotifications: &off})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "dark", us.Theme)
	assert.False(suite.T(), us.ReceiveNotifications)

	got, err := suite.svc.Get(suite.ctx, "u1")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), us, got)
}

func (suite *SettingsTestSuite) TestUpdateRejectsUnknownThemeAndCurrency() {
	bad := "solarized"
	_, err := suite.svc.Update(suite.ctx, "u1", Patch{Theme: &bad})
	assert.ErrorIs(suite.T(), err, core.ErrInvalidTheme)

	badCur := "GBP"
	_, err = suite.svc.Update(suite.ctx, "u1", Patch{Currency: &badCur})
	assert.ErrorIs(suite.T(), err, core.ErrInvalidCurrency)

	// nothing persisted on rejection
	us, err := suite.svc.Get(suite.ctx, "u1")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), DefaultTheme, us.Theme)
	assert.Equal(suite.T(), DefaultCurrency, us.Currency)
}

func (suite *SettingsTestSuite) TestCategoryLimitUpsert() {
	_, err := suite.svc.SetCategoryLimit(suite.ctx, "u1", core.Food, core.Money{Cents: 50000})
	require.NoError(suite.T(), err)

	limit, ok, err := suite.svc.CategoryLimit(suite.ctx, "u1", core.Food)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), ok)
	assert.Equal(suite.T(), int64(50000), limit.Cents)

	us, err := suite.svc.SetCategoryLimit(suite.ctx, "u1", core.Food, core.Money{Cents: 60000})
	require.NoError(suite.T(), err)
	require.Len(suite.T(), us.CategoryLimits, 1)
	assert.Equal(suite.T(), int64(60000), us.CategoryLimits[0].Limit.Cents)
}

func (suite *SettingsTestSuite) TestSetCategoryLimitRejectsNonPositive() {
	_, err := suite.svc.SetCategoryLimit(suite.ctx, "u1", core.Food, core.Money{})
	assert.ErrorIs(suite.T(), err, core.ErrInvalidAmount)
}

func (suite *SettingsTestSuite) TestRemoveCategoryLimit() {
	_, err := suite.svc.SetCategoryLimit(suite.ctx, "u1", core.Food, core.Money{Cents: 50000})
	require.NoError(suite.T(), err)

	us, err := suite.svc.RemoveCategoryLimit(suite.ctx, "u1", core.Food)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), us.CategoryLimits)

	// removing again is a no-op
	_, err = suite.svc.RemoveCategoryLimit(suite.ctx, "u1", core.Food)
	assert.NoError(suite.T(), err)
}

func (suite *SettingsTestSuite) TestTotalLimit() {
	us, err := suite.svc.SetTotalLimit(suite.ctx, "u1", core.Money{Cents: 200000})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(200000), us.TotalLimit.Cents)

	us, err = suite.svc.SetTotalLimit(suite.ctx, "u1", core.Money{})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(0), us.TotalLimit.Cents)

	_, err = suite.svc.SetTotalLimit(suite.ctx, "u1", core.Money{Cents: -1})
	assert.ErrorIs(suite.T(), err, core.ErrInvalidAmount)
}

func (suite *SettingsTestSuite) TestCustomCategories() {
	us, err := suite.svc.AddCustomCategory(suite.ctx, "u1", "Pets")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), []string{"Pets"}, us.CustomCategories)

	_, err = suite.svc.AddCustomCategory(suite.ctx, "u1", "Pets")
	assert.ErrorIs(suite.T(), err, ErrDuplicateCategory)

	_, err = suite.svc.AddCustomCategory(suite.ctx, "u1", "Alimentação")
	assert.ErrorIs(suite.T(), err, ErrDuplicateCategory)

	_, err = suite.svc.AddCustomCategory(suite.ctx, "u1", "  ")
	assert.ErrorIs(suite.T(), err, core.ErrEmptyCategory)

	cats, err := suite.svc.Categories(suite.ctx, "u1")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), core.Category("Pets"), cats[len(cats)-1])
	assert.Len(suite.T(), cats, len(core.DefaultCategories)+1)
}

func (suite *SettingsTestSuite) TestRemoveCustomCategoryDropsItsLimit() {
	_, err := suite.svc.AddCustomCategory(suite.ctx, "u1", "Pets")
	require.NoError(suite.T(), err)
	_, err = suite.svc.SetCategoryLimit(suite.ctx, "u1", "Pets", core.Money{Cents: 10000})
	require.NoError(suite.T(), err)

	us, err := suite.svc.RemoveCustomCategory(suite.ctx, "u1", "Pets")
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), us.CustomCategories)
	assert.Empty(suite.T(), us.CategoryLimits)

	_, err = suite.svc.RemoveCustomCategory(suite.ctx, "u1", "Pets")
	assert.ErrorIs(suite.T(), err, ErrUnknownCategory)
}

func (suite *SettingsTestSuite) TestUsersAreIsolated() {
	dark := "dark"
	_, err := suite.svc.Update(suite.ctx, "u1", Patch{Theme: &dark})
	require.NoError(suite.T(), err)

	other, err := suite.svc.Get(suite.ctx, "u2")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), DefaultTheme, other.Theme)
}

func TestSettingsTestSuite(t *testing.T) {
	suite.Run(t, new(SettingsTestSuite))
}
