// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/btcsuite/utxowallet/keychain"
	"github.com/btcsuite/utxowallet/ledger"
	"github.com/btcsuite/utxowallet/participation"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// InclusionState is the fate of a transaction on the ledger.
type InclusionState uint8

const (
	// Pending transactions are not referenced by a milestone yet, or
	// were never submitted.
	Pending InclusionState = iota

	// Confirmed transactions were applied to the ledger.
	Confirmed

	// Conflicting transactions were rejected by the ledger.
	Conflicting
)

var inclusionStateStrings = map[InclusionState]string{
	Pending:     "pending",
	Confirmed:   "confirmed",
	Conflicting: "conflicting",
}

// String returns the state name.
func (s InclusionState) String() string {
	if str, ok := inclusionStateStrings[s]; ok {
		return str
	}
	return fmt.Sprintf("InclusionState(%d)", uint8(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s InclusionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *InclusionState) UnmarshalText(text []byte) error {
	for state, str := range inclusionStateStrings {
		if str == string(text) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown inclusion state %q", text)
}

// AccountAddress is an address derived for an account.
type AccountAddress struct {
	Address  ledger.Ed25519Address `json:"address"`
	KeyIndex uint32                `json:"keyIndex"`
	Internal bool                  `json:"internal"`
	Used     bool                  `json:"used"`
}

// OutputData is an output known to an account.
type OutputData struct {
	OutputID ledger.OutputID
	Metadata ledger.OutputMetadata
	Output   ledger.Output
	Amount   ledger.BaseToken
	IsSpent  bool

	// Address is the address owning the output.
	Address ledger.Address

	// NetworkID is the network the output was seen on.
	NetworkID uint64

	// Remainder is set for change outputs the account created itself.
	Remainder bool

	// Chain locates the key of Address, nil if the account does not own
	// it directly.
	Chain *keychain.Chain
}

type outputDataRecord struct {
	OutputID  ledger.OutputID       `json:"outputId"`
	Metadata  ledger.OutputMetadata `json:"metadata"`
	Output    string                `json:"output"`
	Amount    ledger.BaseToken      `json:"amount"`
	IsSpent   bool                  `json:"isSpent"`
	Address   string                `json:"address"`
	NetworkID uint64                `json:"networkId"`
	Remainder bool                  `json:"remainder"`
	Chain     *keychain.Chain       `json:"chain,omitempty"`
}

// MarshalJSON encodes the output in its binary form.
func (o *OutputData) MarshalJSON() ([]byte, error) {
	return json.Marshal(&outputDataRecord{
		OutputID:  o.OutputID,
		Metadata:  o.Metadata,
		Output:    hex.EncodeToString(ledger.SerializeOutput(o.Output)),
		Amount:    o.Amount,
		IsSpent:   o.IsSpent,
		Address:   hex.EncodeToString(ledger.AddressBytes(o.Address)),
		NetworkID: o.NetworkID,
		Remainder: o.Remainder,
		Chain:     o.Chain,
	})
}

// UnmarshalJSON decodes the output of MarshalJSON.
func (o *OutputData) UnmarshalJSON(b []byte) error {
	var rec outputDataRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return err
	}
	out, err := decodeOutput(rec.Output)
	if err != nil {
		return err
	}
	rawAddr, err := hex.DecodeString(rec.Address)
	if err != nil {
		return err
	}
	addr, err := ledger.AddressFromBytes(rawAddr)
	if err != nil {
		return err
	}

	*o = OutputData{
		OutputID:  rec.OutputID,
		Metadata:  rec.Metadata,
		Output:    out,
		Amount:    rec.Amount,
		IsSpent:   rec.IsSpent,
		Address:   addr,
		NetworkID: rec.NetworkID,
		Remainder: rec.Remainder,
		Chain:     rec.Chain,
	}

	return nil
}

func decodeOutput(s string) (ledger.Output, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return ledger.DeserializeOutput(raw)
}

// clone returns a copy that does not share mutable state.
func (o *OutputData) clone() *OutputData {
	cp := *o
	cp.Output = o.Output.Clone()
	if o.Metadata.TransactionIDSpent != nil {
		spent := *o.Metadata.TransactionIDSpent
		cp.Metadata.TransactionIDSpent = &spent
	}
	if o.Chain != nil {
		chain := *o.Chain
		cp.Chain = &chain
	}

	return &cp
}

// Transaction is a transaction the account created or received.
type Transaction struct {
	TransactionID ledger.TransactionID
	Payload       *ledger.TransactionPayload

	// BlockID is absent while the transaction could not be submitted.
	BlockID fn.Option[ledger.BlockID]

	InclusionState InclusionState
	Timestamp      time.Time
	NetworkID      uint64

	// Incoming is set for transactions created by someone else.
	Incoming bool

	Note string

	// Inputs are the outputs the transaction consumed.
	Inputs []ledger.OutputWithMetadata
}

type inputRecord struct {
	Metadata ledger.OutputMetadata `json:"metadata"`
	Output   string                `json:"output"`
}

type transactionRecord struct {
	TransactionID  ledger.TransactionID `json:"transactionId"`
	Payload        string               `json:"payload"`
	BlockID        *ledger.BlockID      `json:"blockId,omitempty"`
	InclusionState InclusionState       `json:"inclusionState"`
	Timestamp      int64                `json:"timestamp"`
	NetworkID      uint64               `json:"networkId"`
	Incoming       bool                 `json:"incoming"`
	Note           string               `json:"note,omitempty"`
	Inputs         []inputRecord        `json:"inputs,omitempty"`
}

// MarshalJSON encodes the payload in its binary form.
func (t *Transaction) MarshalJSON() ([]byte, error) {
	rec := transactionRecord{
		TransactionID:  t.TransactionID,
		Payload:        hex.EncodeToString(t.Payload.Serialize()),
		InclusionState: t.InclusionState,
		Timestamp:      t.Timestamp.UnixMilli(),
		NetworkID:      t.NetworkID,
		Incoming:       t.Incoming,
		Note:           t.Note,
	}
	t.BlockID.WhenSome(func(id ledger.BlockID) {
		rec.BlockID = &id
	})
	for _, in := range t.Inputs {
		rec.Inputs = append(rec.Inputs, inputRecord{
			Metadata: in.Metadata,
			Output: hex.EncodeToString(
				ledger.SerializeOutput(in.Output),
			),
		})
	}

	return json.Marshal(&rec)
}

// UnmarshalJSON decodes the output of MarshalJSON.
func (t *Transaction) UnmarshalJSON(b []byte) error {
	var rec transactionRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return err
	}
	raw, err := hex.DecodeString(rec.Payload)
	if err != nil {
		return err
	}
	payload, err := ledger.DeserializeTransaction(raw)
	if err != nil {
		return err
	}

	*t = Transaction{
		TransactionID:  rec.TransactionID,
		Payload:        payload,
		BlockID:        fn.OptionFromPtr(rec.BlockID),
		InclusionState: rec.InclusionState,
		Timestamp:      time.UnixMilli(rec.Timestamp),
		NetworkID:      rec.NetworkID,
		Incoming:       rec.Incoming,
		Note:           rec.Note,
	}
	for _, in := range rec.Inputs {
		out, err := decodeOutput(in.Output)
		if err != nil {
			return err
		}
		t.Inputs = append(t.Inputs, ledger.OutputWithMetadata{
			Metadata: in.Metadata,
			Output:   out,
		})
	}

	return nil
}

// clone returns a copy sharing only immutable state.
func (t *Transaction) clone() *Transaction {
	cp := *t
	cp.Inputs = append([]ledger.OutputWithMetadata(nil), t.Inputs...)
	return &cp
}

// accountDetails is the ledger of an account.  It is only accessed through
// the lock of its Account.
type accountDetails struct {
	index    uint32
	coinType uint32
	alias    string

	publicAddresses   []AccountAddress
	internalAddresses []AccountAddress

	outputs        map[ledger.OutputID]*OutputData
	unspentOutputs map[ledger.OutputID]*OutputData
	lockedOutputs  map[ledger.OutputID]struct{}

	transactions                     map[ledger.TransactionID]*Transaction
	pendingTransactions              map[ledger.TransactionID]struct{}
	incomingTransactions             map[ledger.TransactionID]*Transaction
	inaccessibleIncomingTransactions map[ledger.TransactionID]struct{}
}

func newAccountDetails(index, coinType uint32, alias string) *accountDetails {
	return &accountDetails{
		index:                            index,
		coinType:                         coinType,
		alias:                            alias,
		outputs:                          make(map[ledger.OutputID]*OutputData),
		unspentOutputs:                   make(map[ledger.OutputID]*OutputData),
		lockedOutputs:                    make(map[ledger.OutputID]struct{}),
		transactions:                     make(map[ledger.TransactionID]*Transaction),
		pendingTransactions:              make(map[ledger.TransactionID]struct{}),
		incomingTransactions:             make(map[ledger.TransactionID]*Transaction),
		inaccessibleIncomingTransactions: make(map[ledger.TransactionID]struct{}),
	}
}

// chainFor returns the derivation chain of addr if it is an address of the
// account.
func (d *accountDetails) chainFor(addr ledger.Address) *keychain.Chain {
	ed, ok := addr.(ledger.Ed25519Address)
	if !ok {
		return nil
	}
	for _, list := range [][]AccountAddress{
		d.publicAddresses, d.internalAddresses,
	} {
		for _, a := range list {
			if a.Address == ed {
				return &keychain.Chain{
					CoinType:     d.coinType,
					Account:      d.index,
					Internal:     a.Internal,
					AddressIndex: a.KeyIndex,
				}
			}
		}
	}

	return nil
}

// markUsed flags addr as used.
func (d *accountDetails) markUsed(addr ledger.Address) {
	ed, ok := addr.(ledger.Ed25519Address)
	if !ok {
		return
	}
	for _, list := range [][]AccountAddress{
		d.publicAddresses, d.internalAddresses,
	} {
		for i := range list {
			if list[i].Address == ed {
				list[i].Used = true
			}
		}
	}
}

// ownedChains returns the addresses of the alias and NFT outputs the
// account holds.
func (d *accountDetails) ownedChains() map[string]ledger.Address {
	chains := make(map[string]ledger.Address)
	for id, out := range d.unspentOutputs {
		if addr := ledger.ChainAddress(out.Output, id); addr != nil {
			chains[addr.Key()] = addr
		}
	}
	return chains
}

// owns returns true if the account can unlock outputs owned by addr.
func (d *accountDetails) owns(addr ledger.Address) bool {
	if addr == nil {
		return false
	}
	if d.chainFor(addr) != nil {
		return true
	}
	_, ok := d.ownedChains()[addr.Key()]
	return ok
}

// lockInputs reserves ids for a transaction.
func (d *accountDetails) lockInputs(ids []ledger.OutputID) {
	for _, id := range ids {
		d.lockedOutputs[id] = struct{}{}
	}
}

// unlockInputs releases reserved ids.
func (d *accountDetails) unlockInputs(ids []ledger.OutputID) {
	for _, id := range ids {
		delete(d.lockedOutputs, id)
	}
}

// accountRecord is the stored form of an account.
type accountRecord struct {
	Index                            uint32                 `json:"index"`
	CoinType                         uint32                 `json:"coinType"`
	Alias                            string                 `json:"alias"`
	PublicAddresses                  []AccountAddress       `json:"publicAddresses"`
	InternalAddresses                []AccountAddress       `json:"internalAddresses"`
	Outputs                          []*OutputData          `json:"outputs"`
	UnspentOutputs                   []ledger.OutputID      `json:"unspentOutputs"`
	LockedOutputs                    []ledger.OutputID      `json:"lockedOutputs"`
	Transactions                     []*Transaction         `json:"transactions"`
	PendingTransactions              []ledger.TransactionID `json:"pendingTransactions"`
	IncomingTransactions             []*Transaction         `json:"incomingTransactions"`
	InaccessibleIncomingTransactions []ledger.TransactionID `json:"inaccessibleIncomingTransactions"`
}

func sortedOutputIDs(set map[ledger.OutputID]struct{}) []ledger.OutputID {
	ids := make([]ledger.OutputID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
	return ids
}

func sortedTxIDs(set map[ledger.TransactionID]struct{}) []ledger.TransactionID {
	ids := make([]ledger.TransactionID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return string(ids[i][:]) < string(ids[j][:])
	})
	return ids
}

func sortedTransactions(m map[ledger.TransactionID]*Transaction) []*Transaction {
	txs := make([]*Transaction, 0, len(m))
	for _, tx := range m {
		txs = append(txs, tx)
	}
	sort.Slice(txs, func(i, j int) bool {
		if !txs[i].Timestamp.Equal(txs[j].Timestamp) {
			return txs[i].Timestamp.Before(txs[j].Timestamp)
		}
		return string(txs[i].TransactionID[:]) <
			string(txs[j].TransactionID[:])
	})
	return txs
}

// record returns the stored form of d.
func (d *accountDetails) record() *accountRecord {
	rec := &accountRecord{
		Index:             d.index,
		CoinType:          d.coinType,
		Alias:             d.alias,
		PublicAddresses:   append([]AccountAddress(nil), d.publicAddresses...),
		InternalAddresses: append([]AccountAddress(nil), d.internalAddresses...),
		LockedOutputs:     sortedOutputIDs(d.lockedOutputs),
		Transactions:      sortedTransactions(d.transactions),
		PendingTransactions: sortedTxIDs(
			d.pendingTransactions,
		),
		IncomingTransactions: sortedTransactions(d.incomingTransactions),
		InaccessibleIncomingTransactions: sortedTxIDs(
			d.inaccessibleIncomingTransactions,
		),
	}

	unspent := make(map[ledger.OutputID]struct{}, len(d.unspentOutputs))
	for id := range d.unspentOutputs {
		unspent[id] = struct{}{}
	}
	rec.UnspentOutputs = sortedOutputIDs(unspent)

	all := make(map[ledger.OutputID]struct{}, len(d.outputs))
	for id := range d.outputs {
		all[id] = struct{}{}
	}
	for _, id := range sortedOutputIDs(all) {
		rec.Outputs = append(rec.Outputs, d.outputs[id])
	}

	return rec
}

// detailsFromRecord rebuilds the ledger of an account.
func detailsFromRecord(rec *accountRecord) (*accountDetails, error) {
	d := newAccountDetails(rec.Index, rec.CoinType, rec.Alias)
	d.publicAddresses = rec.PublicAddresses
	d.internalAddresses = rec.InternalAddresses

	for _, out := range rec.Outputs {
		d.outputs[out.OutputID] = out
	}
	for _, id := range rec.UnspentOutputs {
		out, ok := d.outputs[id]
		if !ok {
			return nil, fmt.Errorf("unspent output %v unknown", id)
		}
		d.unspentOutputs[id] = out
	}
	for _, id := range rec.LockedOutputs {
		if _, ok := d.outputs[id]; !ok {
			return nil, fmt.Errorf("locked output %v unknown", id)
		}
		d.lockedOutputs[id] = struct{}{}
	}
	for _, tx := range rec.Transactions {
		d.transactions[tx.TransactionID] = tx
	}
	for _, id := range rec.PendingTransactions {
		d.pendingTransactions[id] = struct{}{}
	}
	for _, tx := range rec.IncomingTransactions {
		d.incomingTransactions[tx.TransactionID] = tx
	}
	for _, id := range rec.InaccessibleIncomingTransactions {
		d.inaccessibleIncomingTransactions[id] = struct{}{}
	}

	return d, nil
}

// Account is a handle on one account of a Manager.  Its ledger is guarded
// by a reader/writer lock that is never held across node or signer calls.
type Account struct {
	mgr *Manager

	index uint32
	alias string

	// addrMtx serializes address derivation.
	addrMtx sync.Mutex

	mtx     sync.RWMutex
	details *accountDetails

	// saveMtx orders snapshots and their writes, so the stored record
	// is never older than one already written.
	saveMtx sync.Mutex

	// eventsMtx guards the registered participation events.
	eventsMtx sync.Mutex
	events    map[participation.EventID]*participation.Event
}

// Index returns the account index.
func (a *Account) Index() uint32 {
	return a.index
}

// Alias returns the account alias.
func (a *Account) Alias() string {
	return a.alias
}

// read runs f holding the read lock.
func (a *Account) read(f func(d *accountDetails)) {
	a.mtx.RLock()
	defer a.mtx.RUnlock()

	f(a.details)
}

// view runs f holding the read lock and returns its error.
func (a *Account) view(f func(d *accountDetails) error) error {
	a.mtx.RLock()
	defer a.mtx.RUnlock()

	return f(a.details)
}

// write runs f holding the write lock.
func (a *Account) write(f func(d *accountDetails) error) error {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	return f(a.details)
}

// save persists the account.
func (a *Account) save() error {
	a.saveMtx.Lock()
	defer a.saveMtx.Unlock()

	var rec *accountRecord
	a.read(func(d *accountDetails) {
		rec = d.record()
	})

	return a.mgr.storage.saveAccount(rec)
}

// Addresses returns the public addresses followed by the internal ones.
func (a *Account) Addresses() []AccountAddress {
	var addrs []AccountAddress
	a.read(func(d *accountDetails) {
		addrs = append(addrs, d.publicAddresses...)
		addrs = append(addrs, d.internalAddresses...)
	})
	return addrs
}

// PublicAddresses returns the public addresses.
func (a *Account) PublicAddresses() []AccountAddress {
	var addrs []AccountAddress
	a.read(func(d *accountDetails) {
		addrs = append(addrs, d.publicAddresses...)
	})
	return addrs
}

// Output returns a known output.
func (a *Account) Output(id ledger.OutputID) (*OutputData, error) {
	var out *OutputData
	a.read(func(d *accountDetails) {
		if o, ok := d.outputs[id]; ok {
			out = o.clone()
		}
	})
	if out == nil {
		return nil, walletError(ErrRecordNotFound,
			fmt.Sprintf("output %v not found", id), nil)
	}
	return out, nil
}

// OutputFilter selects outputs.  A nil filter selects every output.
type OutputFilter func(*OutputData) bool

func filterOutputs(m map[ledger.OutputID]*OutputData,
	filter OutputFilter) []*OutputData {

	var res []*OutputData
	for _, out := range m {
		if filter == nil || filter(out) {
			res = append(res, out.clone())
		}
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].OutputID.Less(res[j].OutputID)
	})
	return res
}

// Outputs returns every known output, spent or not.
func (a *Account) Outputs(filter OutputFilter) []*OutputData {
	var res []*OutputData
	a.read(func(d *accountDetails) {
		res = filterOutputs(d.outputs, filter)
	})
	return res
}

// UnspentOutputs returns the unspent outputs.
func (a *Account) UnspentOutputs(filter OutputFilter) []*OutputData {
	var res []*OutputData
	a.read(func(d *accountDetails) {
		res = filterOutputs(d.unspentOutputs, filter)
	})
	return res
}

// LockedOutputs returns the ids reserved by pending transactions.
func (a *Account) LockedOutputs() []ledger.OutputID {
	var res []ledger.OutputID
	a.read(func(d *accountDetails) {
		res = sortedOutputIDs(d.lockedOutputs)
	})
	return res
}

// Transaction returns a transaction the account created or received.
func (a *Account) Transaction(id ledger.TransactionID) (*Transaction, error) {
	var tx *Transaction
	a.read(func(d *accountDetails) {
		if t, ok := d.transactions[id]; ok {
			tx = t.clone()
		} else if t, ok := d.incomingTransactions[id]; ok {
			tx = t.clone()
		}
	})
	if tx == nil {
		return nil, walletError(ErrRecordNotFound,
			fmt.Sprintf("transaction %v not found", id), nil)
	}
	return tx, nil
}

func cloneTransactions(txs []*Transaction) []*Transaction {
	res := make([]*Transaction, len(txs))
	for i, tx := range txs {
		res[i] = tx.clone()
	}
	return res
}

// Transactions returns the transactions the account created, oldest first.
func (a *Account) Transactions() []*Transaction {
	var res []*Transaction
	a.read(func(d *accountDetails) {
		res = cloneTransactions(sortedTransactions(d.transactions))
	})
	return res
}

// PendingTransactions returns the transactions awaiting inclusion.
func (a *Account) PendingTransactions() []*Transaction {
	var res []*Transaction
	a.read(func(d *accountDetails) {
		for _, id := range sortedTxIDs(d.pendingTransactions) {
			res = append(res, d.transactions[id].clone())
		}
	})
	return res
}

// IncomingTransactions returns the transactions that funded the account.
func (a *Account) IncomingTransactions() []*Transaction {
	var res []*Transaction
	a.read(func(d *accountDetails) {
		res = cloneTransactions(sortedTransactions(d.incomingTransactions))
	})
	return res
}
