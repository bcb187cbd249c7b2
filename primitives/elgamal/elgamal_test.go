package elgamal

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openaudit/go-electioncrypt/primitives/blockcodec"
	"github.com/openaudit/go-electioncrypt/primitives/group"
)

func testKeyPair(t *testing.T) (*group.Parameters, *KeyPair) {
	t.Helper()
	params := group.Oakley768()
	kp, err := GenerateKeyPair(params)
	require.NoError(t, err)
	return params, kp
}

func TestGenerateKeyPair(t *testing.T) {
	assert := assert.New(t)

	params, kp := testKeyPair(t)

	assert.True(kp.Private.X.Sign() > 0)
	assert.True(kp.Private.X.Cmp(params.Q) < 0)
	assert.True(params.IsElement(kp.Public.Y))
	assert.Equal(0, kp.Public.Y.Cmp(params.Exp(params.G, kp.Private.X)))

	derived := kp.Private.PublicKey()
	assert.Equal(0, derived.Y.Cmp(kp.Public.Y))
}

func TestNewKeyValidation(t *testing.T) {
	assert := assert.New(t)

	params := group.Oakley768()

	_, err := NewPublicKey(params, big.NewInt(0))
	assert.IsType(&InvalidKeyError{}, err)
	_, err = NewPublicKey(params, new(big.Int).Sub(params.P, big.NewInt(2)))
	assert.IsType(&InvalidKeyError{}, err, "non-residue public value")

	_, err = NewPrivateKey(params, nil)
	assert.IsType(&InvalidKeyError{}, err)
	_, err = NewPrivateKey(params, big.NewInt(0))
	assert.IsType(&InvalidKeyError{}, err)
	_, err = NewPrivateKey(params, params.Q)
	assert.IsType(&InvalidKeyError{}, err)

	priv, err := NewPrivateKey(params, big.NewInt(1))
	assert.NoError(err)
	assert.NotNil(priv)
}

func TestElementRoundTrip(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	params, kp := testKeyPair(t)

	for i := 0; i < 8; i++ {
		v, err := rand.Int(rand.Reader, params.Q)
		require.NoError(err)
		m, err := blockcodec.Lift(params, v)
		require.NoError(err)

		blk, err := kp.Public.EncryptElement(m)
		require.NoError(err)
		assert.True(params.IsElement(blk.A))
		assert.True(params.IsElement(blk.B))

		decrypted, err := kp.Private.DecryptElement(blk)
		require.NoError(err)
		assert.Equal(0, m.Cmp(decrypted))
	}
}

func TestEncryptionIsRandomized(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	_, kp := testKeyPair(t)

	m := big.NewInt(4) // 4 = 2^2 is a quadratic residue
	first, err := kp.Public.EncryptElement(m)
	require.NoError(err)
	second, err := kp.Public.EncryptElement(m)
	require.NoError(err)

	assert.NotEqual(0, first.A.Cmp(second.A), "fresh randomness per encryption")
}

func TestEncryptElementRejectsNonMembers(t *testing.T) {
	assert := assert.New(t)

	params, kp := testKeyPair(t)

	_, err := kp.Public.EncryptElement(new(big.Int).Sub(params.P, big.NewInt(2)))
	assert.Error(err)
	_, err = kp.Public.EncryptElement(big.NewInt(0))
	assert.Error(err)
}

func TestDecryptElementRejectsMalformed(t *testing.T) {
	assert := assert.New(t)

	params, kp := testKeyPair(t)

	nonMember := new(big.Int).Sub(params.P, big.NewInt(2))

	_, err := kp.Private.DecryptElement(CiphertextBlock{A: nonMember, B: params.G})
	assert.IsType(&InvalidCiphertextError{}, err)
	_, err = kp.Private.DecryptElement(CiphertextBlock{A: params.G, B: nonMember})
	assert.IsType(&InvalidCiphertextError{}, err)
	_, err = kp.Private.DecryptElement(CiphertextBlock{A: nil, B: params.G})
	assert.IsType(&InvalidCiphertextError{}, err)
}

func TestBytesRoundTrip(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	_, kp := testKeyPair(t)

	for _, n := range []int{0, 1, 40, 200} {
		msg := make([]byte, n)
		_, err := rand.Read(msg)
		require.NoError(err)

		ct, err := kp.Public.EncryptBytes(msg, nil)
		require.NoError(err)
		assert.Equal(kp.Public.Fingerprint(), ct.PublicKeyFingerprint)

		decrypted, err := kp.Private.DecryptBytes(ct, nil)
		require.NoError(err)
		if n == 0 {
			assert.Empty(decrypted)
		} else {
			assert.Equal(msg, decrypted, "length %d", n)
		}
	}
}

func TestRerandomizePreservesPlaintext(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	_, kp := testKeyPair(t)

	msg := []byte("the ballot is secret")
	ct, err := kp.Public.EncryptBytes(msg, nil)
	require.NoError(err)

	re, err := kp.Public.Rerandomize(ct)
	require.NoError(err)

	assert.False(ct.Equal(re), "re-randomization changes every block")
	for i := range ct.Blocks {
		assert.NotEqual(0, ct.Blocks[i].A.Cmp(re.Blocks[i].A), "block %d", i)
	}

	decrypted, err := kp.Private.DecryptBytes(re, nil)
	require.NoError(err)
	assert.Equal(msg, decrypted)
}

func TestRerandomizeRejectsForeignKey(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	params, kp := testKeyPair(t)
	other, err := GenerateKeyPair(params)
	require.NoError(err)

	ct, err := kp.Public.EncryptBytes([]byte("cross-key"), nil)
	require.NoError(err)

	_, err = other.Public.Rerandomize(ct)
	assert.IsType(&InvalidCiphertextError{}, err)
}

func TestValidateCiphertext(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	params, kp := testKeyPair(t)

	ct, err := kp.Public.EncryptBytes([]byte("validate me"), nil)
	require.NoError(err)
	assert.NoError(ct.Validate(params))

	var empty Ciphertext
	assert.IsType(&InvalidCiphertextError{}, empty.Validate(params))

	tampered := *ct
	tampered.Blocks = append([]CiphertextBlock(nil), ct.Blocks...)
	tampered.Blocks[0].A = new(big.Int).Sub(params.P, big.NewInt(2))
	err = tampered.Validate(params)
	require.IsType(&InvalidCiphertextError{}, err)
	assert.Equal(0, err.(*InvalidCiphertextError).Block)
}

func TestPublicKeyRecordRoundTrip(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	_, kp := testKeyPair(t)

	data, err := kp.Public.MarshalBinary()
	require.NoError(err)

	parsed, err := ParsePublicKey(data, group.Config{})
	require.NoError(err)
	assert.Equal(0, parsed.Y.Cmp(kp.Public.Y))
	assert.Equal(kp.Public.Fingerprint(), parsed.Fingerprint())
}

func TestPrivateKeyRecordRoundTrip(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	_, kp := testKeyPair(t)

	data, err := kp.Private.MarshalBinary()
	require.NoError(err)

	parsed, err := ParsePrivateKey(data, group.Config{})
	require.NoError(err)
	assert.Equal(0, parsed.X.Cmp(kp.Private.X))
}

func TestCiphertextRecordRoundTrip(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	params, kp := testKeyPair(t)

	ct, err := kp.Public.EncryptBytes([]byte("archived ballot"), nil)
	require.NoError(err)

	data, err := ct.MarshalBinary()
	require.NoError(err)

	parsed, err := ParseCiphertext(params, data)
	require.NoError(err)
	assert.True(ct.Equal(parsed))

	reserialized, err := parsed.MarshalBinary()
	require.NoError(err)
	assert.Equal(data, reserialized, "canonical encoding round trips byte-identically")
}

func TestParseCiphertextRejectsMalformed(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	params, kp := testKeyPair(t)

	_, err := ParseCiphertext(params, []byte("not msgpack"))
	assert.IsType(&InvalidCiphertextError{}, err)

	ct, err := kp.Public.EncryptBytes([]byte("x"), nil)
	require.NoError(err)

	rec := ct.Record()
	rec.Blocks[0].A = new(big.Int).Sub(params.P, big.NewInt(2)).Bytes()
	_, err = CiphertextFromRecord(params, rec)
	assert.IsType(&InvalidCiphertextError{}, err)

	rec = ct.Record()
	rec.Blocks[0].B = nil
	_, err = CiphertextFromRecord(params, rec)
	assert.IsType(&InvalidCiphertextError{}, err)
}
