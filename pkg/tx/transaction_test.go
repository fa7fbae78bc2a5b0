package tx

import (
	"errors"
	"testing"

	"github.com/ember-net/ember-chain/pkg/crypto"
	"github.com/ember-net/ember-chain/pkg/params"
	"github.com/ember-net/ember-chain/pkg/types"
)

func testParams(t *testing.T) *params.Params {
	t.Helper()
	p, err := params.New("testcoin", "", 2, 100, "0001")
	if err != nil {
		t.Fatalf("params.New: %v", err)
	}
	return p
}

func testKey(t *testing.T) *crypto.PrivateKey {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return key
}

// fundingTx builds a finalized coinbase granting amount to the key's address.
func fundingTx(t *testing.T, p *params.Params, key *crypto.PrivateKey, amount int64) *Transaction {
	t.Helper()
	cb := NewCoinbase(p, 0)
	if err := cb.AddOutput(amount, key.Address()); err != nil {
		t.Fatalf("AddOutput: %v", err)
	}
	if err := cb.Finalize(key); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	return cb
}

type fakeView struct {
	txs   map[types.Digest]*Transaction
	utxos map[types.Outpoint]bool
}

func newFakeView(txs ...*Transaction) *fakeView {
	v := &fakeView{
		txs:   make(map[types.Digest]*Transaction),
		utxos: make(map[types.Outpoint]bool),
	}
	for _, tr := range txs {
		v.txs[tr.Digest()] = tr
		for _, out := range tr.Outputs() {
			v.utxos[types.Outpoint{TxDigest: tr.Digest(), Index: out.Index}] = true
		}
	}
	return v
}

func (v *fakeView) Transaction(d types.Digest) *Transaction {
	return v.txs[d]
}

func (v *fakeView) ContainsUTXO(d types.Digest, index byte) bool {
	return v.utxos[types.Outpoint{TxDigest: d, Index: index}]
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	p := testParams(t)
	alice := testKey(t)
	bob := testKey(t)

	fund := fundingTx(t, p, alice, 100)

	spend := New(p)
	if err := spend.AddInput(fund.Digest(), 0, 100); err != nil {
		t.Fatalf("AddInput: %v", err)
	}
	if err := spend.AddOutput(60, bob.Address()); err != nil {
		t.Fatalf("AddOutput: %v", err)
	}
	if err := spend.AddOutput(38, alice.Address()); err != nil {
		t.Fatalf("AddOutput: %v", err)
	}
	if err := spend.SetFee(2); err != nil {
		t.Fatalf("SetFee: %v", err)
	}
	if err := spend.Finalize(alice); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if spend.Status() != types.StatusLegal {
		t.Fatalf("status after Finalize = %s, want legal", spend.Status())
	}

	raw, err := spend.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if want := 336 + 3*41; len(raw) != want {
		t.Fatalf("encoded length = %d, want %d", len(raw), want)
	}

	got, err := Decode(p, raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Digest() != spend.Digest() {
		t.Errorf("digest = %s, want %s", got.Digest(), spend.Digest())
	}
	if got.IsCoinbase() {
		t.Error("regular transaction decoded as coinbase")
	}
	if got.Fee() != 2 {
		t.Errorf("fee = %d, want 2", got.Fee())
	}
	if len(got.Inputs()) != 1 || len(got.Outputs()) != 2 {
		t.Fatalf("decoded %d inputs, %d outputs", len(got.Inputs()), len(got.Outputs()))
	}
	if got.Outputs()[0].Destination != bob.Address() {
		t.Error("output 0 destination mismatch")
	}
	if err := got.CheckStructure(); err != nil {
		t.Errorf("CheckStructure after round trip: %v", err)
	}
	if got.Status() != types.StatusLegal {
		t.Errorf("status = %s, want legal", got.Status())
	}
}

func TestDecodeRejectsBadLengths(t *testing.T) {
	p := testParams(t)
	if _, err := Decode(p, make([]byte, 100)); !errors.Is(err, ErrTruncated) {
		t.Errorf("short input: err = %v, want ErrTruncated", err)
	}

	alice := testKey(t)
	raw, err := fundingTx(t, p, alice, 50).Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := Decode(p, raw[:len(raw)-1]); !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("trimmed input: err = %v, want ErrLengthMismatch", err)
	}
}

func TestCheckStructureDetectsTampering(t *testing.T) {
	p := testParams(t)
	alice := testKey(t)
	bob := testKey(t)

	fund := fundingTx(t, p, alice, 100)
	spend := New(p)
	if err := spend.AddInput(fund.Digest(), 0, 100); err != nil {
		t.Fatalf("AddInput: %v", err)
	}
	if err := spend.AddOutput(98, bob.Address()); err != nil {
		t.Fatalf("AddOutput: %v", err)
	}
	if err := spend.SetFee(2); err != nil {
		t.Fatalf("SetFee: %v", err)
	}
	if err := spend.Finalize(alice); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	raw, err := spend.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	// Flip one bit in the fee field. The digest no longer matches.
	raw[len(raw)-1] ^= 0x01
	tampered, err := Decode(p, raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if err := tampered.CheckStructure(); !errors.Is(err, ErrDigestMismatch) {
		t.Errorf("err = %v, want ErrDigestMismatch", err)
	}
	if tampered.Status() != types.StatusIllegal {
		t.Errorf("status = %s, want illegal", tampered.Status())
	}

	// Illegal is terminal: a second check still reports failure.
	if err := tampered.CheckStructure(); err == nil {
		t.Error("repeated CheckStructure on illegal transaction returned nil")
	}
}

func TestCheckStructureConservation(t *testing.T) {
	p := testParams(t)
	alice := testKey(t)
	bob := testKey(t)
	fund := fundingTx(t, p, alice, 100)

	cases := []struct {
		name    string
		out     int64
		fee     int64
		wantErr error
	}{
		{"outputs exceed inputs", 120, 2, ErrNotConserved},
		{"fee not accounted", 100, 2, ErrNotConserved},
		{"fee below minimum", 99, 1, ErrFeeTooLow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			spend := New(p)
			if err := spend.AddInput(fund.Digest(), 0, 100); err != nil {
				t.Fatalf("AddInput: %v", err)
			}
			if err := spend.AddOutput(tc.out, bob.Address()); err != nil {
				t.Fatalf("AddOutput: %v", err)
			}
			if err := spend.SetFee(tc.fee); err != nil {
				t.Fatalf("SetFee: %v", err)
			}

			// Finalize runs the structural checks itself, so a locally
			// built transaction gets the same verdict a peer would reach.
			if err := spend.Finalize(alice); !errors.Is(err, tc.wantErr) {
				t.Fatalf("Finalize: err = %v, want %v", err, tc.wantErr)
			}
			if spend.Status() != types.StatusIllegal {
				t.Errorf("status = %s, want illegal", spend.Status())
			}

			raw, err := spend.Encode()
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			decoded, err := Decode(p, raw)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if err := decoded.CheckStructure(); !errors.Is(err, tc.wantErr) {
				t.Errorf("decoded err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestRepeatedInputIsLegalButInvalid(t *testing.T) {
	p := testParams(t)
	alice := testKey(t)
	bob := testKey(t)

	fund := fundingTx(t, p, alice, 100)
	view := newFakeView(fund)

	// Two inputs naming the same output. Legality is self-contained, so the
	// transaction is well formed; only validation against the chain can see
	// that the second input spends an output the first already consumed.
	double := New(p)
	for i := 0; i < 2; i++ {
		if err := double.AddInput(fund.Digest(), 0, 100); err != nil {
			t.Fatalf("AddInput: %v", err)
		}
	}
	if err := double.AddOutput(198, bob.Address()); err != nil {
		t.Fatalf("AddOutput: %v", err)
	}
	if err := double.SetFee(2); err != nil {
		t.Fatalf("SetFee: %v", err)
	}
	if err := double.Finalize(alice); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if double.Status() != types.StatusLegal {
		t.Fatalf("status = %s, want legal", double.Status())
	}

	raw, err := double.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(p, raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if err := decoded.CheckStructure(); err != nil {
		t.Fatalf("CheckStructure on decoded copy: %v", err)
	}
	if decoded.Status() != double.Status() {
		t.Fatalf("decoded status %s != local status %s", decoded.Status(), double.Status())
	}

	status, err := double.Validate(view)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if status != types.StatusInvalid {
		t.Errorf("status = %s, want invalid", status)
	}
	if double.Reason() == "" {
		t.Error("invalid transaction has no recorded reason")
	}
}

func TestValidateAgainstChain(t *testing.T) {
	p := testParams(t)
	alice := testKey(t)
	bob := testKey(t)

	fund := fundingTx(t, p, alice, 100)
	view := newFakeView(fund)

	spend := New(p)
	if err := spend.AddInput(fund.Digest(), 0, 100); err != nil {
		t.Fatalf("AddInput: %v", err)
	}
	if err := spend.AddOutput(98, bob.Address()); err != nil {
		t.Fatalf("AddOutput: %v", err)
	}
	if err := spend.SetFee(2); err != nil {
		t.Fatalf("SetFee: %v", err)
	}
	if err := spend.Finalize(alice); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	status, err := spend.Validate(view)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if status != types.StatusValid {
		t.Fatalf("status = %s, want valid", status)
	}

	// Re-validation is revocable: after the output is spent the same
	// transaction turns invalid against the new view.
	spend.ResetStatus()
	if spend.Status() != types.StatusLegal {
		t.Fatalf("status after reset = %s, want legal", spend.Status())
	}
	view.utxos[types.Outpoint{TxDigest: fund.Digest(), Index: 0}] = false
	status, err = spend.Validate(view)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if status != types.StatusInvalid {
		t.Errorf("status = %s, want invalid", status)
	}
}

func TestValidateRejectsForeignOutput(t *testing.T) {
	p := testParams(t)
	alice := testKey(t)
	mallory := testKey(t)

	fund := fundingTx(t, p, alice, 100)
	view := newFakeView(fund)

	// Mallory signs a spend of Alice's output. Structurally legal, but the
	// output belongs to a different address.
	steal := New(p)
	if err := steal.AddInput(fund.Digest(), 0, 100); err != nil {
		t.Fatalf("AddInput: %v", err)
	}
	if err := steal.AddOutput(98, mallory.Address()); err != nil {
		t.Fatalf("AddOutput: %v", err)
	}
	if err := steal.SetFee(2); err != nil {
		t.Fatalf("SetFee: %v", err)
	}
	if err := steal.Finalize(mallory); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	status, err := steal.Validate(view)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if status != types.StatusInvalid {
		t.Errorf("status = %s, want invalid", status)
	}
	if steal.Reason() == "" {
		t.Error("invalid transaction has no recorded reason")
	}
	steal.ResetStatus()
	if steal.Reason() != "" {
		t.Errorf("reason after reset = %q, want empty", steal.Reason())
	}
}

func TestValidateRequiresLegality(t *testing.T) {
	var unchecked Transaction
	if _, err := unchecked.Validate(newFakeView()); !errors.Is(err, ErrPrematureValidation) {
		t.Errorf("err = %v, want ErrPrematureValidation", err)
	}
}

func TestValidateCoinbase(t *testing.T) {
	p := testParams(t)
	miner := testKey(t)

	cb := NewCoinbase(p, 5)
	if err := cb.AddOutput(p.Reward(5)+7, miner.Address()); err != nil {
		t.Fatalf("AddOutput: %v", err)
	}
	if err := cb.Finalize(miner); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	status, err := cb.ValidateCoinbase(5, 7)
	if err != nil {
		t.Fatalf("ValidateCoinbase: %v", err)
	}
	if status != types.StatusValid {
		t.Errorf("status = %s, want valid", status)
	}

	cb.ResetStatus()
	status, err = cb.ValidateCoinbase(6, 7)
	if err != nil {
		t.Fatalf("ValidateCoinbase: %v", err)
	}
	if status != types.StatusInvalid {
		t.Errorf("wrong height: status = %s, want invalid", status)
	}

	cb.ResetStatus()
	status, err = cb.ValidateCoinbase(5, 8)
	if err != nil {
		t.Fatalf("ValidateCoinbase: %v", err)
	}
	if status != types.StatusInvalid {
		t.Errorf("wrong fees: status = %s, want invalid", status)
	}
}

func TestBuildPayment(t *testing.T) {
	p := testParams(t)
	alice := testKey(t)
	bob := testKey(t)

	fund := fundingTx(t, p, alice, 100)
	coins := []Spendable{
		{Outpoint: types.Outpoint{TxDigest: fund.Digest(), Index: 0}, Amount: 100},
	}

	pay, err := BuildPayment(p, alice, coins, bob.Address(), 60, 2)
	if err != nil {
		t.Fatalf("BuildPayment: %v", err)
	}
	outs := pay.Outputs()
	if len(outs) != 2 {
		t.Fatalf("%d outputs, want payment plus change", len(outs))
	}
	if outs[0].Amount != 60 || outs[0].Destination != bob.Address() {
		t.Errorf("payment output = %d to %s", outs[0].Amount, outs[0].Destination)
	}
	if outs[1].Amount != 38 || outs[1].Destination != alice.Address() {
		t.Errorf("change output = %d to %s", outs[1].Amount, outs[1].Destination)
	}

	if _, err := BuildPayment(p, alice, coins, bob.Address(), 99, 2); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("err = %v, want ErrInsufficientFunds", err)
	}
}
