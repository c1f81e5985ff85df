package nftkit

import "fmt"

// mintStage holds a validated batch of mints that has not been applied yet.
// Nothing in the ledger changes until commitMint is called with it.
type mintStage struct {
	first      TokenID
	recipients []Address
}

// stageMint validates every recipient and reserves consecutive ids starting at
// the current counter. Must be called with l.mu held.
func (l *TokenLedger) stageMint(recipients []Address) (*mintStage, error) {
	for i, to := range recipients {
		if to == (Address{}) {
			msg := "mint to the zero address"
			if len(recipients) > 1 {
				msg = fmt.Sprintf("batch recipient %d is the zero address", i)
			}
			return nil, NewError(ErrInvalidRecipient, msg)
		}
	}
	return &mintStage{
		first:      l.nextID,
		recipients: append([]Address(nil), recipients...),
	}, nil
}

func (s *mintStage) empty() bool {
	return len(s.recipients) == 0
}

// ids returns the ids the stage will assign, in recipient order.
func (s *mintStage) ids() []TokenID {
	ids := make([]TokenID, len(s.recipients))
	for i := range s.recipients {
		ids[i] = s.first + TokenID(i)
	}
	return ids
}

// commitMint applies a stage. Must be called with l.mu held, after the stage
// has been recorded in the audit log.
func (l *TokenLedger) commitMint(s *mintStage) {
	for i, to := range s.recipients {
		l.owners[s.first+TokenID(i)] = to
		l.balances[to]++
	}
	l.nextID += TokenID(len(s.recipients))
}
