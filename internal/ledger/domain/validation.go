package domain

// ValidateBalanced ensures postings sum to a balanced double-entry posting.
func ValidateBalanced(postings []Posting) error {
	if len(postings) < 2 {
		return ErrInvalidPostings
	}

	var debitTotal int64
	var creditTotal int64
	for _, posting := range postings {
		if posting.Amount < 0 {
			return ErrInvalidLineAmount
		}
		if posting.AccountCode == "" {
			return ErrInvalidAccount
		}
		switch posting.Direction {
		case EntryDirectionDebit:
			debitTotal += posting.Amount
		case EntryDirectionCredit:
			creditTotal += posting.Amount
		default:
			return ErrInvalidLineDirection
		}
	}

	if debitTotal != creditTotal {
		return ErrUnbalancedEntry
	}
	return nil
}
