package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/finbooks/ledger-core/internal/apperrors"
	"github.com/finbooks/ledger-core/internal/core/domain"
	portsrepo "github.com/finbooks/ledger-core/internal/core/ports/repositories"
	portssvc "github.com/finbooks/ledger-core/internal/core/ports/services"
	"github.com/finbooks/ledger-core/internal/core/services"
	"github.com/finbooks/ledger-core/internal/dto"
)

type MockAccountRepository struct {
	mock.Mock
}

var _ portsrepo.AccountRepositoryFacade = (*MockAccountRepository)(nil)

func (m *MockAccountRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) FindAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	args := m.Called(ctx, accountIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.Account), args.Error(1)
}

func (m *MockAccountRepository) ListAccountsByCompany(ctx context.Context, companyID string) ([]domain.Account, error) {
	args := m.Called(ctx, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Account), args.Error(1)
}

func (m *MockAccountRepository) CountAccountsByCompany(ctx context.Context, companyID string) (int, error) {
	args := m.Called(ctx, companyID)
	return args.Int(0), args.Error(1)
}

func (m *MockAccountRepository) DeactivateAccount(ctx context.Context, accountID string, actorID string, now time.Time) error {
	args := m.Called(ctx, accountID, actorID, now)
	return args.Error(0)
}

func (m *MockAccountRepository) SumPostedLineEffects(ctx context.Context, accountID string) (decimal.Decimal, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

type AccountServiceTestSuite struct {
	suite.Suite
	mockAccountRepo *MockAccountRepository
	mockAuthorizer  *MockAuthorizer
	service         portssvc.AccountSvcFacade

	companyID string
	userID    string
}

func (suite *AccountServiceTestSuite) SetupTest() {
	suite.mockAccountRepo = new(MockAccountRepository)
	suite.mockAuthorizer = new(MockAuthorizer)
	suite.service = services.NewAccountService(suite.mockAccountRepo, suite.mockAuthorizer)
	suite.companyID = uuid.NewString()
	suite.userID = uuid.NewString()
}

func (suite *AccountServiceTestSuite) TestCreateAccount_Success() {
	ctx := context.Background()
	req := dto.CreateAccountRequest{
		Code:         "1000",
		Name:         "Cash",
		AccountType:  domain.Asset,
		CurrencyCode: "USD",
	}

	suite.mockAuthorizer.On("CanTransition", ctx, suite.userID, suite.companyID, portssvc.OpManageAccounts).Return(nil).Once()
	suite.mockAccountRepo.On("SaveAccount", ctx, mock.MatchedBy(func(acc domain.Account) bool {
		return acc.Code == "1000" && acc.IsActive && acc.Balance.IsZero() && acc.CompanyID == suite.companyID
	})).Return(nil).Once()

	account, err := suite.service.CreateAccount(ctx, suite.companyID, req, suite.userID)

	suite.Require().NoError(err)
	suite.NotEmpty(account.AccountID)
	suite.True(account.IsActive)
	suite.True(account.Balance.IsZero())
	suite.mockAccountRepo.AssertExpectations(suite.T())
}

func (suite *AccountServiceTestSuite) TestCreateAccount_UnknownType() {
	ctx := context.Background()
	req := dto.CreateAccountRequest{Code: "9999", Name: "Mystery", AccountType: domain.AccountType("WISHES"), CurrencyCode: "USD"}

	suite.mockAuthorizer.On("CanTransition", ctx, suite.userID, suite.companyID, portssvc.OpManageAccounts).Return(nil).Once()

	_, err := suite.service.CreateAccount(ctx, suite.companyID, req, suite.userID)

	suite.Require().Error(err)
	suite.ErrorIs(err, services.ErrUnknownAccountType)
	suite.mockAccountRepo.AssertNotCalled(suite.T(), "SaveAccount", mock.Anything, mock.Anything)
}

func (suite *AccountServiceTestSuite) TestGetAccountByID_CrossTenantHidden() {
	ctx := context.Background()
	account := &domain.Account{AccountID: uuid.NewString(), CompanyID: uuid.NewString()}

	suite.mockAuthorizer.On("CanTransition", ctx, suite.userID, suite.companyID, portssvc.OpView).Return(nil).Once()
	suite.mockAccountRepo.On("FindAccountByID", ctx, account.AccountID).Return(account, nil).Once()

	_, err := suite.service.GetAccountByID(ctx, suite.companyID, account.AccountID, suite.userID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *AccountServiceTestSuite) TestGetAccountByIDs_FiltersOtherCompanies() {
	ctx := context.Background()
	mine := domain.Account{AccountID: uuid.NewString(), CompanyID: suite.companyID}
	theirs := domain.Account{AccountID: uuid.NewString(), CompanyID: uuid.NewString()}
	ids := []string{mine.AccountID, theirs.AccountID}

	suite.mockAccountRepo.On("FindAccountsByIDs", ctx, ids).Return(map[string]domain.Account{
		mine.AccountID:   mine,
		theirs.AccountID: theirs,
	}, nil).Once()

	result, err := suite.service.GetAccountByIDs(ctx, suite.companyID, ids)

	suite.Require().NoError(err)
	suite.Len(result, 1)
	suite.Contains(result, mine.AccountID)
}

func (suite *AccountServiceTestSuite) TestHasChartOfAccounts() {
	ctx := context.Background()

	suite.mockAccountRepo.On("CountAccountsByCompany", ctx, suite.companyID).Return(3, nil).Once()
	has, err := suite.service.HasChartOfAccounts(ctx, suite.companyID)
	suite.Require().NoError(err)
	suite.True(has)

	suite.mockAccountRepo.On("CountAccountsByCompany", ctx, suite.companyID).Return(0, nil).Once()
	has, err = suite.service.HasChartOfAccounts(ctx, suite.companyID)
	suite.Require().NoError(err)
	suite.False(has)
}

func (suite *AccountServiceTestSuite) TestDeactivateAccount_Success() {
	ctx := context.Background()
	account := &domain.Account{AccountID: uuid.NewString(), CompanyID: suite.companyID, IsActive: true}

	suite.mockAuthorizer.On("CanTransition", ctx, suite.userID, suite.companyID, portssvc.OpManageAccounts).Return(nil).Once()
	suite.mockAccountRepo.On("FindAccountByID", ctx, account.AccountID).Return(account, nil).Once()
	suite.mockAccountRepo.On("DeactivateAccount", ctx, account.AccountID, suite.userID, mock.AnythingOfType("time.Time")).Return(nil).Once()

	err := suite.service.DeactivateAccount(ctx, suite.companyID, account.AccountID, suite.userID)

	suite.Require().NoError(err)
	suite.mockAccountRepo.AssertExpectations(suite.T())
}

func (suite *AccountServiceTestSuite) TestCheckBalanceConsistency_DetectsDrift() {
	ctx := context.Background()
	account := &domain.Account{
		AccountID: uuid.NewString(),
		CompanyID: suite.companyID,
		Balance:   decimal.NewFromInt(100),
	}

	suite.mockAuthorizer.On("CanTransition", ctx, suite.userID, suite.companyID, portssvc.OpView).Return(nil).Once()
	suite.mockAccountRepo.On("FindAccountByID", ctx, account.AccountID).Return(account, nil).Once()
	suite.mockAccountRepo.On("SumPostedLineEffects", ctx, account.AccountID).Return(decimal.NewFromInt(90), nil).Once()

	result, err := suite.service.CheckBalanceConsistency(ctx, suite.companyID, account.AccountID, suite.userID)

	suite.Require().NoError(err)
	suite.False(result.Consistent)
	suite.True(result.Maintained.Equal(decimal.NewFromInt(100)))
	suite.True(result.Recomputed.Equal(decimal.NewFromInt(90)))
}

func (suite *AccountServiceTestSuite) TestCheckBalanceConsistency_NoPostedLines() {
	ctx := context.Background()
	account := &domain.Account{
		AccountID: uuid.NewString(),
		CompanyID: suite.companyID,
		Balance:   decimal.Zero,
	}

	suite.mockAuthorizer.On("CanTransition", ctx, suite.userID, suite.companyID, portssvc.OpView).Return(nil).Once()
	suite.mockAccountRepo.On("FindAccountByID", ctx, account.AccountID).Return(account, nil).Once()
	suite.mockAccountRepo.On("SumPostedLineEffects", ctx, account.AccountID).Return(decimal.Zero, apperrors.ErrNotFound).Once()

	result, err := suite.service.CheckBalanceConsistency(ctx, suite.companyID, account.AccountID, suite.userID)

	suite.Require().NoError(err)
	suite.True(result.Consistent)
	suite.True(result.Recomputed.IsZero())
}

func TestAccountServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AccountServiceTestSuite))
}
