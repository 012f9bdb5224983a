package boc

import (
	"github.com/blockberries/chainbridge/types"
)

// EncodeTransactionBody serialises the decodable part of a transaction. The
// result is what travels in RawTransaction.Data.
func EncodeTransactionBody(b *types.TransactionBody) ([]byte, error) {
	outMsgs := make([]any, 0, len(b.OutMsgs))
	for i := range b.OutMsgs {
		outMsgs = append(outMsgs, messageFields(&b.OutMsgs[i]))
	}
	return encode(KindTransaction, map[string]any{
		"aborted":    b.Aborted,
		"origStatus": string(b.OrigStatus),
		"endStatus":  string(b.EndStatus),
		"totalFees":  b.TotalFees.String(),
		"inMsg":      messageFields(&b.InMsg),
		"outMsgs":    outMsgs,
	})
}

// DecodeTransaction turns a raw transaction into a decoded record. It fails if
// the body is not a well-formed transaction container.
func DecodeTransaction(raw *types.RawTransaction) (*types.Transaction, error) {
	r, err := decode(KindTransaction, raw.Data)
	if err != nil {
		return nil, err
	}

	tx := &types.Transaction{
		ID:                raw.ID(),
		PrevTransactionID: raw.PrevID(),
		CreatedAt:         raw.Now,
		Aborted:           r.boolean("aborted"),
		OrigStatus:        r.status("origStatus"),
		EndStatus:         r.status("endStatus"),
		TotalFees:         r.grams("totalFees"),
	}

	in := r.object("inMsg")
	tx.InMsg = readMessage(in)
	r.join(in)

	items := r.list("outMsgs")
	tx.OutMsgs = make([]types.Message, 0, len(items))
	for _, item := range items {
		tx.OutMsgs = append(tx.OutMsgs, readMessage(item))
		r.join(item)
	}

	if r.err != nil {
		return nil, r.err
	}
	return tx, nil
}

func messageFields(m *types.Message) map[string]any {
	f := map[string]any{
		"value":   m.Value.String(),
		"bounce":  m.Bounce,
		"bounced": m.Bounced,
	}
	if m.Src != nil {
		f["src"] = *m.Src
	}
	if m.Dst != nil {
		f["dst"] = *m.Dst
	}
	if m.Body != nil {
		f["body"] = *m.Body
	}
	if m.BodyHash != nil {
		f["bodyHash"] = m.BodyHash.String()
	}
	return f
}

func readMessage(r *reader) types.Message {
	return types.Message{
		Src:      r.optStr("src"),
		Dst:      r.optStr("dst"),
		Value:    r.grams("value"),
		Bounce:   r.boolean("bounce"),
		Bounced:  r.boolean("bounced"),
		Body:     r.optStr("body"),
		BodyHash: r.optHash("bodyHash"),
	}
}
