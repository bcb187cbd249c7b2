package threshold

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openaudit/go-electioncrypt/primitives/elgamal"
	"github.com/openaudit/go-electioncrypt/primitives/group"
)

func testDeal(t *testing.T, n, k int) (*group.Parameters, *elgamal.KeyPair, []Share, Commitments) {
	t.Helper()

	params := group.Oakley768()
	kp, err := elgamal.GenerateKeyPair(params)
	require.NoError(t, err)

	shares, commitments, err := Deal(kp.Private, n, k)
	require.NoError(t, err)
	require.Len(t, shares, n)
	require.Len(t, commitments, k)

	return params, kp, shares, commitments
}

func TestDealValidation(t *testing.T) {
	assert := assert.New(t)

	params := group.Oakley768()
	kp, err := elgamal.GenerateKeyPair(params)
	assert.NoError(err)

	_, _, err = Deal(kp.Private, 5, 0)
	assert.IsType(&InvalidThresholdError{}, err)
	_, _, err = Deal(kp.Private, 5, 6)
	assert.IsType(&InvalidThresholdError{}, err)
	_, _, err = Deal(kp.Private, 0, 1)
	assert.IsType(&InvalidThresholdError{}, err)
}

func TestDealCommitsToPublicKey(t *testing.T) {
	assert := assert.New(t)

	_, kp, _, commitments := testDeal(t, 5, 3)

	// C_0 = g^{a_0} = g^x = y.
	assert.Equal(0, commitments[0].Cmp(kp.Public.Y))
}

func TestShareVerification(t *testing.T) {
	assert := assert.New(t)

	params, _, shares, commitments := testDeal(t, 5, 3)

	for _, share := range shares {
		assert.True(VerifyShare(params, share, commitments), "share %d verifies", share.Index)
	}

	// A corrupted share fails.
	bad := shares[2]
	bad.Value = new(big.Int).Add(bad.Value, big.NewInt(1))
	bad.Value.Mod(bad.Value, params.Q)
	assert.False(VerifyShare(params, bad, commitments))

	// A share attributed to the wrong trustee fails.
	swapped := Share{Index: shares[0].Index, Value: shares[1].Value}
	assert.False(VerifyShare(params, swapped, commitments))

	assert.False(VerifyShare(params, Share{Index: 0, Value: shares[0].Value}, commitments))
	assert.False(VerifyShare(params, Share{Index: 1, Value: nil}, commitments))
	assert.False(VerifyShare(params, shares[0], nil))
}

func TestPublicShareMatchesShares(t *testing.T) {
	assert := assert.New(t)

	params, _, shares, commitments := testDeal(t, 4, 2)

	for _, share := range shares {
		expected := params.Exp(params.G, share.Value)
		assert.Equal(0, commitments.PublicShare(params, share.Index).Cmp(expected))
	}
}

func TestThresholdDecryption(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	params, kp, shares, commitments := testDeal(t, 5, 3)

	msg := []byte("threshold decrypted ballot")
	ct, err := kp.Public.EncryptBytes(msg, nil)
	require.NoError(err)

	// Any 3 of the 5 trustees suffice; use 1, 3 and 5.
	var partials []*PartialDecryption
	for _, i := range []int{0, 2, 4} {
		pd, err := PartialDecrypt(params, shares[i], ct, nil)
		require.NoError(err)
		require.Equal(shares[i].Index, pd.TrusteeIndex)
		require.Len(pd.Blocks, len(ct.Blocks))

		publicShare := commitments.PublicShare(params, pd.TrusteeIndex)
		require.NoError(VerifyPartial(params, publicShare, ct, pd))

		partials = append(partials, pd)
	}

	decrypted, err := Combine(params, ct, commitments, 3, partials)
	require.NoError(err)
	assert.Equal(msg, decrypted)
}

func TestCombineWithDifferentQuorums(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	params, kp, shares, commitments := testDeal(t, 5, 3)

	msg := []byte("quorums agree")
	ct, err := kp.Public.EncryptBytes(msg, nil)
	require.NoError(err)

	all := make([]*PartialDecryption, len(shares))
	for i, share := range shares {
		all[i], err = PartialDecrypt(params, share, ct, nil)
		require.NoError(err)
	}

	for _, quorum := range [][]int{{0, 1, 2}, {2, 3, 4}, {0, 2, 4}, {0, 1, 2, 3, 4}} {
		var partials []*PartialDecryption
		for _, i := range quorum {
			partials = append(partials, all[i])
		}
		decrypted, err := Combine(params, ct, commitments, 3, partials)
		require.NoError(err)
		assert.Equal(msg, decrypted, "quorum %v", quorum)
	}
}

func TestCombineInsufficientShares(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	params, kp, shares, commitments := testDeal(t, 5, 3)

	ct, err := kp.Public.EncryptBytes([]byte("needs three"), nil)
	require.NoError(err)

	var partials []*PartialDecryption
	for _, i := range []int{0, 1} {
		pd, err := PartialDecrypt(params, shares[i], ct, nil)
		require.NoError(err)
		partials = append(partials, pd)
	}

	_, err = Combine(params, ct, commitments, 3, partials)
	require.IsType(&InsufficientSharesError{}, err)
	assert.Equal(2, err.(*InsufficientSharesError).Have)
	assert.Equal(3, err.(*InsufficientSharesError).Need)
}

func TestCombineRejectsCorruptedPartial(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	params, kp, shares, commitments := testDeal(t, 5, 3)

	ct, err := kp.Public.EncryptBytes([]byte("no cheating"), nil)
	require.NoError(err)

	partials := make([]*PartialDecryption, 3)
	for i := 0; i < 3; i++ {
		partials[i], err = PartialDecrypt(params, shares[i], ct, nil)
		require.NoError(err)
	}

	// Corrupt trustee 2's partial value; its proof no longer verifies.
	corrupt := partials[1].Blocks[0]
	corrupt.D = params.Mul(corrupt.D, params.G)
	partials[1].Blocks[0] = corrupt

	publicShare := commitments.PublicShare(params, partials[1].TrusteeIndex)
	err = VerifyPartial(params, publicShare, ct, partials[1])
	require.IsType(&InvalidPartialError{}, err)

	_, err = Combine(params, ct, commitments, 3, partials)
	require.IsType(&InvalidPartialError{}, err)
	assert.Equal(partials[1].TrusteeIndex, err.(*InvalidPartialError).TrusteeIndex)
}

func TestCombineRejectsDuplicateTrustee(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	params, kp, shares, commitments := testDeal(t, 5, 3)

	ct, err := kp.Public.EncryptBytes([]byte("one vote per trustee"), nil)
	require.NoError(err)

	pd1, err := PartialDecrypt(params, shares[0], ct, nil)
	require.NoError(err)
	pd2, err := PartialDecrypt(params, shares[1], ct, nil)
	require.NoError(err)

	_, err = Combine(params, ct, commitments, 3, []*PartialDecryption{pd1, pd2, pd1})
	require.IsType(&InvalidPartialError{}, err)
	assert.Equal(pd1.TrusteeIndex, err.(*InvalidPartialError).TrusteeIndex)
}

func TestVerifyPartialRejectsMismatchedCiphertext(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	params, kp, shares, commitments := testDeal(t, 3, 2)

	ct, err := kp.Public.EncryptBytes([]byte("first"), nil)
	require.NoError(err)
	other, err := kp.Public.EncryptBytes([]byte("second"), nil)
	require.NoError(err)

	pd, err := PartialDecrypt(params, shares[0], ct, nil)
	require.NoError(err)

	publicShare := commitments.PublicShare(params, pd.TrusteeIndex)
	assert.IsType(&InvalidPartialError{}, VerifyPartial(params, publicShare, other, pd))
	assert.IsType(&InvalidPartialError{}, VerifyPartial(params, publicShare, ct, nil))
}

func TestPartialDecryptValidatesInput(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	params, kp, shares, _ := testDeal(t, 3, 2)

	ct, err := kp.Public.EncryptBytes([]byte("validate"), nil)
	require.NoError(err)

	tampered := &elgamal.Ciphertext{
		PublicKeyFingerprint: ct.PublicKeyFingerprint,
		Blocks:               append([]elgamal.CiphertextBlock(nil), ct.Blocks...),
	}
	tampered.Blocks[0].A = new(big.Int).Sub(params.P, big.NewInt(2))

	_, err = PartialDecrypt(params, shares[0], tampered, nil)
	assert.IsType(&elgamal.InvalidCiphertextError{}, err)

	_, err = PartialDecrypt(params, Share{Index: 0, Value: shares[0].Value}, ct, nil)
	assert.IsType(&InvalidPartialError{}, err)

	// Share values live in [1, q-1]; anything outside is rejected as a
	// malformed share, not a downstream arithmetic fault.
	for _, bad := range []*big.Int{
		big.NewInt(0),
		big.NewInt(-1),
		new(big.Int).Set(params.Q),
		new(big.Int).Add(params.Q, big.NewInt(7)),
	} {
		_, err = PartialDecrypt(params, Share{Index: 1, Value: bad}, ct, nil)
		assert.IsType(&InvalidPartialError{}, err, "share value %v", bad)
	}
}

func TestSingleTrusteeDegenerateCase(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	params, kp, shares, commitments := testDeal(t, 1, 1)

	msg := []byte("1-of-1 is plain decryption")
	ct, err := kp.Public.EncryptBytes(msg, nil)
	require.NoError(err)

	pd, err := PartialDecrypt(params, shares[0], ct, nil)
	require.NoError(err)

	decrypted, err := Combine(params, ct, commitments, 1, []*PartialDecryption{pd})
	require.NoError(err)
	assert.Equal(msg, decrypted)
}
