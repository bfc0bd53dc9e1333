package models

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"
)

// Balances is a point-in-time snapshot of one account on both ledgers.
type Balances struct {
	Account    Account
	Deposit    *big.Int
	Governance *big.Int
	At         time.Time
}

// NewBalances copies the amounts so the snapshot stays immutable.
func NewBalances(account Account, deposit, governance *big.Int, at time.Time) Balances {
	return Balances{
		Account:    account,
		Deposit:    CloneAmount(deposit),
		Governance: CloneAmount(governance),
		At:         at,
	}
}

type balancesJSON struct {
	Account    Account   `json:"account"`
	Deposit    string    `json:"deposit"`
	Governance string    `json:"governance"`
	At         time.Time `json:"at"`
}

func (b Balances) MarshalJSON() ([]byte, error) {
	return json.Marshal(balancesJSON{
		Account:    b.Account,
		Deposit:    FormatAmount(b.Deposit),
		Governance: FormatAmount(b.Governance),
		At:         b.At,
	})
}

func (b *Balances) UnmarshalJSON(data []byte) error {
	var raw balancesJSON

	err := json.Unmarshal(data, &raw)
	if err != nil {
		return err
	}

	deposit, err := ParseAmount(raw.Deposit)
	if err != nil {
		return fmt.Errorf("deposit balance: %w", err)
	}

	governance, err := ParseAmount(raw.Governance)
	if err != nil {
		return fmt.Errorf("governance balance: %w", err)
	}

	*b = Balances{Account: raw.Account, Deposit: deposit, Governance: governance, At: raw.At}

	return nil
}
