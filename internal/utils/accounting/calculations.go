package accounting

import (
	"fmt"
	"sort"

	"github.com/finbooks/ledger-core/internal/core/domain"
	"github.com/shopspring/decimal"
)

// DefaultTolerance is the rounding tolerance for the balanced-entry check.
var DefaultTolerance = decimal.RequireFromString("0.01")

// SignedAmount applies the correct sign to a line amount based on the
// account's normal balance and the line side.
// DEBIT to a debit-normal account -> positive (+)
// CREDIT to a debit-normal account -> negative (-)
// DEBIT to a credit-normal account -> negative (-)
// CREDIT to a credit-normal account -> positive (+)
func SignedAmount(line domain.JournalLine, accountType domain.AccountType) (decimal.Decimal, error) {
	if line.Side != domain.Debit && line.Side != domain.Credit {
		return decimal.Zero, fmt.Errorf("unknown line side '%s' for account ID %s", line.Side, line.AccountID)
	}
	signedAmount := line.Amount
	isDebit := line.Side == domain.Debit

	switch accountType.NormalBalance() {
	case domain.DebitNormal:
		if !isDebit {
			signedAmount = signedAmount.Neg()
		}
	case domain.CreditNormal:
		if isDebit {
			signedAmount = signedAmount.Neg()
		}
	}
	return signedAmount, nil
}

// ValidateBalanced checks that every amount is positive and that the debit
// and credit sides agree within the given rounding tolerance.
func ValidateBalanced(lines []domain.JournalLine, tolerance decimal.Decimal) error {
	debits := decimal.Zero
	credits := decimal.Zero

	for _, line := range lines {
		if line.Amount.LessThanOrEqual(decimal.Zero) {
			return fmt.Errorf("line amount must be positive for account %s", line.AccountID)
		}
		if line.Side == domain.Debit {
			debits = debits.Add(line.Amount)
		} else {
			credits = credits.Add(line.Amount)
		}
	}

	if debits.Sub(credits).Abs().GreaterThan(tolerance) {
		return fmt.Errorf("entry must be balanced: debits sum is %s and credits sum is %s",
			debits.String(), credits.String())
	}
	return nil
}

// TotalDebits computes the economic value of a balanced entry: the sum of its
// debit side, which equals the credit side for any balanced entry.
func TotalDebits(lines []domain.JournalLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		if line.Side == domain.Debit {
			total = total.Add(line.Amount)
		}
	}
	return total
}

// EntryBalanceChanges computes the net signed balance delta per account that
// posting the given lines would produce. Every line's account must be present
// in the accounts map.
func EntryBalanceChanges(lines []domain.JournalLine, accounts map[string]domain.Account) (map[string]decimal.Decimal, error) {
	changes := make(map[string]decimal.Decimal, len(accounts))
	for _, line := range lines {
		acc, ok := accounts[line.AccountID]
		if !ok {
			return nil, fmt.Errorf("account %s not found during balance change calculation", line.AccountID)
		}
		signed, err := SignedAmount(line, acc.AccountType)
		if err != nil {
			return nil, err
		}
		changes[line.AccountID] = changes[line.AccountID].Add(signed)
	}
	return changes, nil
}

// NegateChanges returns the mathematically opposite adjustment, used to
// revert a previously applied posting (void-of-posted).
func NegateChanges(changes map[string]decimal.Decimal) map[string]decimal.Decimal {
	negated := make(map[string]decimal.Decimal, len(changes))
	for accID, delta := range changes {
		negated[accID] = delta.Neg()
	}
	return negated
}

// FindNegativeViolations returns the IDs of balance-sheet accounts whose
// balance would drop below zero if the proposed changes were applied. Always
// empty when allowNegative is set. IDs come back sorted for stable messages.
func FindNegativeViolations(accounts map[string]domain.Account, changes map[string]decimal.Decimal, allowNegative bool) []string {
	if allowNegative {
		return nil
	}
	var violations []string
	for accID, delta := range changes {
		acc, ok := accounts[accID]
		if !ok {
			continue
		}
		if !acc.AccountType.IsBalanceSheet() {
			continue
		}
		if acc.Balance.Add(delta).IsNegative() {
			violations = append(violations, accID)
		}
	}
	sort.Strings(violations)
	return violations
}
