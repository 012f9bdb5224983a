package types

// RawTransaction is a transaction as returned by a transport. The header
// fields are always readable; Data holds the encoded transaction body which
// may fail to decode.
type RawTransaction struct {
	Hash          Hash   `json:"hash"`
	LT            LT     `json:"lt"`
	PrevTransLT   LT     `json:"prevTransLt"`
	PrevTransHash Hash   `json:"prevTransHash"`
	Now           uint32 `json:"now"`
	Data          []byte `json:"data"`
}

// ID returns the transaction id of this transaction.
func (t *RawTransaction) ID() TransactionID {
	return TransactionID{LT: t.LT, Hash: t.Hash}
}

// PrevID returns the id of the previous transaction of the same account,
// or nil if this is the first transaction in the chain.
func (t *RawTransaction) PrevID() *TransactionID {
	if t.PrevTransLT == 0 {
		return nil
	}
	return &TransactionID{LT: t.PrevTransLT, Hash: t.PrevTransHash}
}

// Message is an inbound or outbound message of a transaction.
type Message struct {
	Src      *string `json:"src,omitempty"`
	Dst      *string `json:"dst,omitempty"`
	Value    Grams   `json:"value"`
	Bounce   bool    `json:"bounce"`
	Bounced  bool    `json:"bounced"`
	Body     *string `json:"body,omitempty"`
	BodyHash *Hash   `json:"bodyHash,omitempty"`
}

// TransactionBody holds the decodable part of a transaction.
type TransactionBody struct {
	Aborted    bool          `json:"aborted"`
	OrigStatus AccountStatus `json:"origStatus"`
	EndStatus  AccountStatus `json:"endStatus"`
	TotalFees  Grams         `json:"totalFees"`
	InMsg      Message       `json:"inMsg"`
	OutMsgs    []Message     `json:"outMsgs"`
}

// Transaction is a decoded transaction record.
type Transaction struct {
	ID                TransactionID  `json:"id"`
	PrevTransactionID *TransactionID `json:"prevTransactionId,omitempty"`
	CreatedAt         uint32         `json:"createdAt"`
	Aborted           bool           `json:"aborted"`
	OrigStatus        AccountStatus  `json:"origStatus"`
	EndStatus         AccountStatus  `json:"endStatus"`
	TotalFees         Grams          `json:"totalFees"`
	InMsg             Message        `json:"inMsg"`
	OutMsgs           []Message      `json:"outMsgs"`
}

// TransactionsBatchType describes how a batch relates to previously seen batches.
type TransactionsBatchType string

// Batch type constants.
const (
	BatchTypeOld TransactionsBatchType = "old"
	BatchTypeNew TransactionsBatchType = "new"
)

// TransactionsBatchInfo is the logical time span covered by one page.
type TransactionsBatchInfo struct {
	MinLT     LT                    `json:"minLt"`
	MaxLT     LT                    `json:"maxLt"`
	BatchType TransactionsBatchType `json:"batchType"`
}

// TransactionsList is one page of transaction history.
type TransactionsList struct {
	Transactions []Transaction          `json:"transactions"`
	Continuation *TransactionID         `json:"continuation"`
	BatchRange   *TransactionsBatchInfo `json:"batchRange"`
}
