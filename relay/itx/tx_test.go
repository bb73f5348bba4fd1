package itx

import (
	"encoding/binary"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/sha3"
)

var (
	testTo   = common.HexToAddress("0x2d8cE02dd1644A9238e08430CaeA15a609503140")
	testData = common.Hex2Bytes("1cff79cd000000000000000000000000000000000000000000000000000000000000002a")
)

// abiEncodeReference builds the (address, bytes, uint256, uint256) encoding by
// hand, independently of the abi package, so the hash test cannot share a bug
// with the implementation.
func abiEncodeReference(to common.Address, data []byte, gas, chainID uint64) []byte {
	word := func(fill func([]byte)) []byte {
		w := make([]byte, 32)
		fill(w)
		return w
	}
	var buf []byte
	buf = append(buf, common.LeftPadBytes(to.Bytes(), 32)...)
	buf = append(buf, word(func(w []byte) { w[31] = 0x80 })...) // offset of the bytes tail
	buf = append(buf, word(func(w []byte) { binary.BigEndian.PutUint64(w[24:], gas) })...)
	buf = append(buf, word(func(w []byte) { binary.BigEndian.PutUint64(w[24:], chainID) })...)
	buf = append(buf, word(func(w []byte) { w[31] = byte(len(data)) })...)
	buf = append(buf, common.RightPadBytes(data, (len(data)+31)/32*32)...)
	return buf
}

func TestRelayTxHashDeterministic(t *testing.T) {
	tx1 := NewRelayTx(testTo, testData, 200000, 4)
	tx2 := NewRelayTx(testTo, testData, 200000, 4)

	h1, err := tx1.Hash()
	require.NoError(t, err)
	h2, err := tx2.Hash()
	require.NoError(t, err)
	require.Equal(t, h1, h2)

	// Repeated calls on the same envelope agree too.
	h3, err := tx1.Hash()
	require.NoError(t, err)
	require.Equal(t, h1, h3)
}

func TestRelayTxHashMatchesReference(t *testing.T) {
	tx := NewRelayTx(testTo, testData, 200000, 4)
	got, err := tx.Hash()
	require.NoError(t, err)

	hasher := sha3.NewLegacyKeccak256()
	hasher.Write(abiEncodeReference(testTo, testData, 200000, 4))
	want := common.BytesToHash(hasher.Sum(nil))
	require.Equal(t, want, got)
}

func TestRelayTxHashSensitivity(t *testing.T) {
	base := NewRelayTx(testTo, testData, 200000, 4)
	baseHash, err := base.Hash()
	require.NoError(t, err)

	for name, other := range map[string]*RelayTx{
		"target":  NewRelayTx(common.HexToAddress("0x01"), testData, 200000, 4),
		"data":    NewRelayTx(testTo, append([]byte{0xff}, testData...), 200000, 4),
		"gas":     NewRelayTx(testTo, testData, 200001, 4),
		"chainID": NewRelayTx(testTo, testData, 200000, 5),
	} {
		otherHash, err := other.Hash()
		require.NoError(t, err)
		require.NotEqual(t, baseHash, otherHash, "changing %s must change the hash", name)
	}
}

func TestRelayTxImmutable(t *testing.T) {
	data := common.CopyBytes(testData)
	tx := NewRelayTx(testTo, data, 200000, 4)
	before, err := tx.Hash()
	require.NoError(t, err)

	// Neither mutating the input buffer nor the Data() copy may reach the
	// envelope.
	data[0] = 0xde
	leaked := tx.Data()
	leaked[0] = 0xad

	after, err := tx.Hash()
	require.NoError(t, err)
	require.Equal(t, before, after)
	require.Equal(t, testData, tx.Data())
}

func TestSignRelayTxRecovers(t *testing.T) {
	account, err := NewAccount("b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291")
	require.NoError(t, err)

	tx := NewRelayTx(testTo, testData, 200000, 4)
	sig, err := account.SignRelayTx(tx)
	require.NoError(t, err)
	require.Len(t, sig, crypto.SignatureLength)
	require.Contains(t, []byte{27, 28}, sig[crypto.RecoveryIDOffset])

	hash, err := tx.Hash()
	require.NoError(t, err)
	recoverSig := common.CopyBytes(sig)
	recoverSig[crypto.RecoveryIDOffset] -= 27
	pub, err := crypto.SigToPub(accounts.TextHash(hash.Bytes()), recoverSig)
	require.NoError(t, err)
	require.Equal(t, account.Address(), crypto.PubkeyToAddress(*pub))
}

func TestSignRelayTxDistinctPerEnvelope(t *testing.T) {
	account, err := NewAccount("b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291")
	require.NoError(t, err)

	sig1, err := account.SignRelayTx(NewRelayTx(testTo, testData, 200000, 4))
	require.NoError(t, err)
	sig2, err := account.SignRelayTx(NewRelayTx(testTo, testData, 400000, 4))
	require.NoError(t, err)
	require.NotEqual(t, sig1, sig2)
}

func TestNewAccountRejectsBadKey(t *testing.T) {
	_, err := NewAccount("not-a-key")
	require.Error(t, err)
}
