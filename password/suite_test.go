package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func fastArgon2(t *testing.T) *Argon2 {
	t.Helper()
	h, err := NewArgon2(Config{
		Memory:      minMemoryKB,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	})
	require.NoError(t, err)
	return h
}

func fastBcrypt(t *testing.T) *Bcrypt {
	t.Helper()
	h, err := NewBcrypt(bcrypt.MinCost)
	require.NoError(t, err)
	return h
}

func TestSuiteVerifiesBothAlgorithms(t *testing.T) {
	argon, bc := fastArgon2(t), fastBcrypt(t)
	suite := NewSuite(bc, argon)

	bcryptHash, err := bc.Hash("secret")
	require.NoError(t, err)
	argonHash, err := argon.Hash("secret")
	require.NoError(t, err)

	ok, err := suite.Verify("secret", bcryptHash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = suite.Verify("secret", argonHash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = suite.Verify("other", argonHash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSuiteHashesWithPrimary(t *testing.T) {
	suite := NewSuite(fastArgon2(t), fastBcrypt(t))

	hash, err := suite.Hash("secret")
	require.NoError(t, err)
	assert.Equal(t, AlgorithmArgon2id, AlgorithmOf(hash))
	assert.Equal(t, AlgorithmArgon2id, suite.Algorithm())
}

func TestSuiteNeedsUpgradeForForeignAlgorithm(t *testing.T) {
	argon, bc := fastArgon2(t), fastBcrypt(t)
	suite := NewSuite(argon, bc)

	bcryptHash, err := bc.Hash("secret")
	require.NoError(t, err)

	up, err := suite.NeedsUpgrade(bcryptHash)
	require.NoError(t, err)
	assert.True(t, up)
}

func TestSuiteRejectsUnknownFormat(t *testing.T) {
	suite := NewSuite(fastBcrypt(t))

	_, err := suite.Verify("secret", "plaintext")
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)

	_, err = suite.NeedsUpgrade("plaintext")
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)
}

func TestSuiteWithoutArgonCannotVerifyArgon(t *testing.T) {
	suite := NewSuite(fastBcrypt(t))
	argonHash, err := fastArgon2(t).Hash("secret")
	require.NoError(t, err)

	_, err = suite.Verify("secret", argonHash)
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)
}
