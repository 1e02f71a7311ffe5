package entity

// Account is a row of the entity table of type ACCOUNT or CONTRACT.
type Account struct {
	ID               int64   `db:"id"`
	Balance          *int64  `db:"balance"`
	BalanceTimestamp *int64  `db:"balance_timestamp"`
	CreatedTimestamp *int64  `db:"created_timestamp"`
	Deleted          *bool   `db:"deleted"`
	EvmAddress       []byte  `db:"evm_address"`
	Memo             string  `db:"memo"`
	PublicKey        *string `db:"public_key"`
	Type             string  `db:"type"`
}

// CryptoAllowance is an hbar allowance granted by Owner to Spender.
type CryptoAllowance struct {
	Owner          int64  `db:"owner"`
	Spender        int64  `db:"spender"`
	Amount         int64  `db:"amount"`
	AmountGranted  int64  `db:"amount_granted"`
	PayerAccountID int64  `db:"payer_account_id"`
	TimestampRange string `db:"timestamp_range"`
}

// Transaction is a row of the transaction table.
type Transaction struct {
	ConsensusTimestamp int64  `db:"consensus_timestamp"`
	PayerAccountID     int64  `db:"payer_account_id"`
	NodeAccountID      *int64 `db:"node_account_id"`
	EntityID           *int64 `db:"entity_id"`
	Type               int16  `db:"type"`
	Result             int16  `db:"result"`
	ChargedTxFee       int64  `db:"charged_tx_fee"`
	ValidStartNs       int64  `db:"valid_start_ns"`
	Memo               []byte `db:"memo"`
	Nonce              int32  `db:"nonce"`
	Scheduled          bool   `db:"scheduled"`
}

// NetworkSupply is the summed balance of the unreleased supply accounts.
type NetworkSupply struct {
	UnreleasedSupply   int64 `db:"unreleased_supply"`
	ConsensusTimestamp int64 `db:"consensus_timestamp"`
}

// TransactionResultSuccess is the result code of a successful transaction.
const TransactionResultSuccess int16 = 22

// TotalSupply is the fixed hbar supply in tinybars.
const TotalSupply int64 = 5_000_000_000_000_000_000
