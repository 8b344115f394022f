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
	portssvc "github.com/finbooks/ledger-core/internal/core/ports/services"
	"github.com/finbooks/ledger-core/internal/core/services"
	"github.com/finbooks/ledger-core/internal/dto"
	"github.com/finbooks/ledger-core/internal/platform/config"
)

type AutoEntryServiceTestSuite struct {
	suite.Suite
	mockEntryRepo  *MockEntryRepository
	mockAccountSvc *MockAccountService
	service        portssvc.AutoEntrySvcFacade

	companyID      string
	cashAccount    domain.Account
	revenueAccount domain.Account
}

func (suite *AutoEntryServiceTestSuite) SetupTest() {
	suite.mockEntryRepo = &MockEntryRepository{Tx: new(MockLedgerTx)}
	suite.mockAccountSvc = new(MockAccountService)
	suite.service = services.NewAutoEntryService(suite.mockEntryRepo, suite.mockAccountSvc, config.DefaultLedgerPolicy())

	suite.companyID = uuid.NewString()
	suite.cashAccount = domain.Account{
		AccountID:    uuid.NewString(),
		CompanyID:    suite.companyID,
		AccountType:  domain.Asset,
		CurrencyCode: "USD",
		IsActive:     true,
		Balance:      decimal.NewFromInt(500),
	}
	suite.revenueAccount = domain.Account{
		AccountID:    uuid.NewString(),
		CompanyID:    suite.companyID,
		AccountType:  domain.Revenue,
		CurrencyCode: "USD",
		IsActive:     true,
		Balance:      decimal.NewFromInt(3000),
	}
}

func (suite *AutoEntryServiceTestSuite) accountsMap() map[string]domain.Account {
	return map[string]domain.Account{
		suite.cashAccount.AccountID:    suite.cashAccount,
		suite.revenueAccount.AccountID: suite.revenueAccount,
	}
}

func (suite *AutoEntryServiceTestSuite) invoiceRequest() dto.AutoEntryRequest {
	return dto.AutoEntryRequest{
		Description:  "Invoice INV-100 issued",
		Date:         time.Now().UTC(),
		EntryType:    domain.TypeSales,
		CurrencyCode: "USD",
		SourceType:   "invoice",
		SourceRef:    uuid.NewString(),
		Lines: []dto.AutoLineRequest{
			{AccountID: suite.cashAccount.AccountID, Side: domain.Debit, Amount: decimal.NewFromInt(250)},
			{AccountID: suite.revenueAccount.AccountID, Side: domain.Credit, Amount: decimal.NewFromInt(250)},
		},
	}
}

func (suite *AutoEntryServiceTestSuite) TestGenerateEntry_CreatedAndPosted() {
	ctx := context.Background()
	req := suite.invoiceRequest()

	suite.mockAccountSvc.On("HasChartOfAccounts", ctx, suite.companyID).Return(true, nil).Once()
	suite.mockEntryRepo.On("WithTx", ctx).Return(nil).Once()
	suite.mockEntryRepo.Tx.On("FindAccountsByIDsForUpdate", ctx, mock.Anything).Return(suite.accountsMap(), nil).Once()

	var insertedEntry domain.JournalEntry
	var insertedSources []domain.EntrySource
	suite.mockEntryRepo.Tx.On("InsertEntry", ctx, mock.AnythingOfType("domain.JournalEntry"), mock.AnythingOfType("[]domain.JournalLine"), mock.AnythingOfType("[]domain.EntrySource")).Run(func(args mock.Arguments) {
		insertedEntry = args.Get(1).(domain.JournalEntry)
		insertedSources = args.Get(3).([]domain.EntrySource)
	}).Return(nil).Once()
	suite.mockEntryRepo.Tx.On("ApplyBalanceChanges", ctx, mock.MatchedBy(func(changes map[string]decimal.Decimal) bool {
		return changes[suite.cashAccount.AccountID].Equal(decimal.NewFromInt(250)) &&
			changes[suite.revenueAccount.AccountID].Equal(decimal.NewFromInt(250))
	}), "system", mock.AnythingOfType("time.Time")).Return(nil).Once()
	suite.mockEntryRepo.Tx.On("AppendAudit", ctx, mock.AnythingOfType("domain.AuditRecord")).Return(nil).Times(2)

	result, err := suite.service.GenerateEntry(ctx, suite.companyID, req, nil)

	suite.Require().NoError(err)
	suite.Equal(dto.OutcomeCreated, result.Outcome)
	suite.Require().NotNil(result.Entry)
	suite.Equal(string(domain.Posted), result.Entry.Status)
	suite.Equal("system", result.Entry.CreatedBy)
	suite.Equal("true", result.Entry.Metadata["automatic"])
	suite.Contains(result.Entry.Reference, "AUTO-INVOICE-")

	suite.Equal(domain.Posted, insertedEntry.Status)
	suite.Require().Len(insertedSources, 1)
	suite.Equal(domain.LinkOrigin, insertedSources[0].LinkType)
	suite.Equal(req.SourceRef, insertedSources[0].SourceRef)

	suite.mockEntryRepo.Tx.AssertExpectations(suite.T())
}

func (suite *AutoEntryServiceTestSuite) TestGenerateEntry_ManualPostStaysApproved() {
	ctx := context.Background()
	req := suite.invoiceRequest()
	autoPost := false
	req.AutoPost = &autoPost

	suite.mockAccountSvc.On("HasChartOfAccounts", ctx, suite.companyID).Return(true, nil).Once()
	suite.mockEntryRepo.On("WithTx", ctx).Return(nil).Once()
	suite.mockEntryRepo.Tx.On("FindAccountsByIDsForUpdate", ctx, mock.Anything).Return(suite.accountsMap(), nil).Once()
	suite.mockEntryRepo.Tx.On("InsertEntry", ctx, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	suite.mockEntryRepo.Tx.On("AppendAudit", ctx, mock.Anything).Return(nil).Once()

	result, err := suite.service.GenerateEntry(ctx, suite.companyID, req, nil)

	suite.Require().NoError(err)
	suite.Equal(dto.OutcomeCreated, result.Outcome)
	suite.Equal(string(domain.Approved), result.Entry.Status)
	suite.mockEntryRepo.Tx.AssertNotCalled(suite.T(), "ApplyBalanceChanges", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *AutoEntryServiceTestSuite) TestGenerateEntry_SkippedWithoutChartOfAccounts() {
	ctx := context.Background()
	req := suite.invoiceRequest()

	suite.mockAccountSvc.On("HasChartOfAccounts", ctx, suite.companyID).Return(false, nil).Once()

	result, err := suite.service.GenerateEntry(ctx, suite.companyID, req, nil)

	suite.Require().NoError(err)
	suite.Equal(dto.OutcomeSkipped, result.Outcome)
	suite.Empty(result.EntryID)
	suite.NotEmpty(result.Reason)
	suite.mockEntryRepo.AssertNotCalled(suite.T(), "WithTx", mock.Anything)
}

func (suite *AutoEntryServiceTestSuite) TestGenerateEntry_DuplicateKeyReturnsExisting() {
	ctx := context.Background()
	req := suite.invoiceRequest()
	key := uuid.NewString()
	req.IdempotencyKey = &key

	existing := &domain.JournalEntry{
		EntryID:      uuid.NewString(),
		CompanyID:    suite.companyID,
		Description:  req.Description,
		Status:       domain.Posted,
		CurrencyCode: "USD",
		Amount:       decimal.NewFromInt(250),
	}

	suite.mockAccountSvc.On("HasChartOfAccounts", ctx, suite.companyID).Return(true, nil).Once()
	suite.mockEntryRepo.On("FindEntryByIdempotencyKey", ctx, suite.companyID, key).Return(existing, nil).Once()
	suite.mockEntryRepo.On("FindLinesByEntryID", ctx, existing.EntryID).Return([]domain.JournalLine{}, nil).Once()

	result, err := suite.service.GenerateEntry(ctx, suite.companyID, req, nil)

	suite.Require().NoError(err)
	suite.Equal(dto.OutcomeDuplicate, result.Outcome)
	suite.Equal(existing.EntryID, result.EntryID)
	suite.mockEntryRepo.AssertNotCalled(suite.T(), "WithTx", mock.Anything)
}

func (suite *AutoEntryServiceTestSuite) TestGenerateEntry_DuplicateRaceInsideTx() {
	ctx := context.Background()
	req := suite.invoiceRequest()
	key := uuid.NewString()
	req.IdempotencyKey = &key

	winnerID := uuid.NewString()
	winner := &domain.JournalEntry{
		EntryID:   winnerID,
		CompanyID: suite.companyID,
		Status:    domain.Posted,
		Amount:    decimal.NewFromInt(250),
	}

	suite.mockAccountSvc.On("HasChartOfAccounts", ctx, suite.companyID).Return(true, nil).Once()
	// Pre-check sees nothing, the in-transaction check loses the race.
	suite.mockEntryRepo.On("FindEntryByIdempotencyKey", ctx, suite.companyID, key).Return(nil, apperrors.ErrNotFound).Once()
	suite.mockEntryRepo.On("WithTx", ctx).Return(nil).Once()
	suite.mockEntryRepo.Tx.On("FindEntryIDByIdempotencyKey", ctx, suite.companyID, key).Return(&winnerID, nil).Once()
	suite.mockEntryRepo.On("FindEntryByIdempotencyKey", ctx, suite.companyID, key).Return(winner, nil).Once()
	suite.mockEntryRepo.On("FindLinesByEntryID", ctx, winnerID).Return([]domain.JournalLine{}, nil).Once()

	result, err := suite.service.GenerateEntry(ctx, suite.companyID, req, nil)

	suite.Require().NoError(err)
	suite.Equal(dto.OutcomeDuplicate, result.Outcome)
	suite.Equal(winnerID, result.EntryID)
	suite.mockEntryRepo.Tx.AssertNotCalled(suite.T(), "InsertEntry", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *AutoEntryServiceTestSuite) TestGenerateEntry_UnbalancedRejected() {
	ctx := context.Background()
	req := suite.invoiceRequest()
	req.Lines[1].Amount = decimal.NewFromInt(200)

	suite.mockAccountSvc.On("HasChartOfAccounts", ctx, suite.companyID).Return(true, nil).Once()

	_, err := suite.service.GenerateEntry(ctx, suite.companyID, req, nil)

	suite.Require().Error(err)
	suite.ErrorIs(err, services.ErrEntryUnbalanced)
	suite.mockEntryRepo.AssertNotCalled(suite.T(), "WithTx", mock.Anything)
}

func (suite *AutoEntryServiceTestSuite) TestGenerateEntry_MissingSourceRef() {
	ctx := context.Background()
	req := suite.invoiceRequest()
	req.SourceRef = ""

	_, err := suite.service.GenerateEntry(ctx, suite.companyID, req, nil)

	suite.Require().Error(err)
	suite.ErrorIs(err, services.ErrSourceRefMissing)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *AutoEntryServiceTestSuite) TestGenerateEntry_ExplicitActorStamped() {
	ctx := context.Background()
	req := suite.invoiceRequest()
	actorID := uuid.NewString()

	suite.mockAccountSvc.On("HasChartOfAccounts", ctx, suite.companyID).Return(true, nil).Once()
	suite.mockEntryRepo.On("WithTx", ctx).Return(nil).Once()
	suite.mockEntryRepo.Tx.On("FindAccountsByIDsForUpdate", ctx, mock.Anything).Return(suite.accountsMap(), nil).Once()
	suite.mockEntryRepo.Tx.On("InsertEntry", ctx, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	suite.mockEntryRepo.Tx.On("ApplyBalanceChanges", ctx, mock.Anything, actorID, mock.AnythingOfType("time.Time")).Return(nil).Once()
	suite.mockEntryRepo.Tx.On("AppendAudit", ctx, mock.Anything).Return(nil).Times(2)

	result, err := suite.service.GenerateEntry(ctx, suite.companyID, req, &actorID)

	suite.Require().NoError(err)
	suite.Equal(actorID, result.Entry.CreatedBy)
}

func (suite *AutoEntryServiceTestSuite) TestGenerateEntry_NegativeBalanceBlocked() {
	ctx := context.Background()
	req := suite.invoiceRequest()
	// Credit the asset account past its balance.
	req.Lines = []dto.AutoLineRequest{
		{AccountID: suite.revenueAccount.AccountID, Side: domain.Debit, Amount: decimal.NewFromInt(900)},
		{AccountID: suite.cashAccount.AccountID, Side: domain.Credit, Amount: decimal.NewFromInt(900)},
	}

	suite.mockAccountSvc.On("HasChartOfAccounts", ctx, suite.companyID).Return(true, nil).Once()
	suite.mockEntryRepo.On("WithTx", ctx).Return(nil).Once()
	suite.mockEntryRepo.Tx.On("FindAccountsByIDsForUpdate", ctx, mock.Anything).Return(suite.accountsMap(), nil).Once()
	suite.mockEntryRepo.Tx.On("InsertEntry", ctx, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	_, err := suite.service.GenerateEntry(ctx, suite.companyID, req, nil)

	suite.Require().Error(err)
	suite.ErrorIs(err, services.ErrNegativeBalance)
	suite.mockEntryRepo.Tx.AssertNotCalled(suite.T(), "ApplyBalanceChanges", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *AutoEntryServiceTestSuite) TestGenerateEntry_ForeignCompanyAccountsRejected() {
	ctx := context.Background()
	req := suite.invoiceRequest()

	// The locked rows belong to another company even though the IDs resolve.
	foreign := suite.accountsMap()
	for id, acc := range foreign {
		acc.CompanyID = uuid.NewString()
		foreign[id] = acc
	}

	suite.mockAccountSvc.On("HasChartOfAccounts", ctx, suite.companyID).Return(true, nil).Once()
	suite.mockEntryRepo.On("WithTx", ctx).Return(nil).Once()
	suite.mockEntryRepo.Tx.On("FindAccountsByIDsForUpdate", ctx, mock.Anything).Return(foreign, nil).Once()

	_, err := suite.service.GenerateEntry(ctx, suite.companyID, req, nil)

	suite.Require().Error(err)
	suite.ErrorIs(err, services.ErrAccountNotFound)
	suite.ErrorIs(err, apperrors.ErrNotFound)
	suite.mockEntryRepo.Tx.AssertNotCalled(suite.T(), "InsertEntry", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	suite.mockEntryRepo.Tx.AssertNotCalled(suite.T(), "ApplyBalanceChanges", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *AutoEntryServiceTestSuite) TestGenerateEntry_AccountCurrencyMismatchRejected() {
	ctx := context.Background()
	req := suite.invoiceRequest()
	req.CurrencyCode = "EUR"

	suite.mockAccountSvc.On("HasChartOfAccounts", ctx, suite.companyID).Return(true, nil).Once()
	suite.mockEntryRepo.On("WithTx", ctx).Return(nil).Once()
	suite.mockEntryRepo.Tx.On("FindAccountsByIDsForUpdate", ctx, mock.Anything).Return(suite.accountsMap(), nil).Once()

	_, err := suite.service.GenerateEntry(ctx, suite.companyID, req, nil)

	suite.Require().Error(err)
	suite.ErrorIs(err, services.ErrCurrencyMismatch)
	suite.mockEntryRepo.Tx.AssertNotCalled(suite.T(), "InsertEntry", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAutoEntryServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AutoEntryServiceTestSuite))
}
