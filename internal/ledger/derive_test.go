package ledger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindProgramAddressDeterministic(t *testing.T) {
	program := Address{7}
	seeds := [][]byte{[]byte("vault"), bytes.Repeat([]byte{1}, 32)}

	a1, b1, err := FindProgramAddress(program, seeds)
	require.NoError(t, err)
	a2, b2, err := FindProgramAddress(program, seeds)
	require.NoError(t, err)

	assert.Equal(t, a1, a2)
	assert.Equal(t, b1, b2)
	assert.False(t, inKeySpace(a1))
}

func TestFindProgramAddressSkipsKeySpace(t *testing.T) {
	program := Address{9}
	for i := byte(0); i < 32; i++ {
		seeds := [][]byte{[]byte("vault"), {i}}
		addr, bump, err := FindProgramAddress(program, seeds)
		require.NoError(t, err)

		for higher := 255; higher > int(bump); higher-- {
			_, err := CreateProgramAddress(program, seeds, uint8(higher))
			require.ErrorIs(t, err, ErrInKeySpace, "bump %d was skipped but is viable", higher)
		}
		rebuilt, err := CreateProgramAddress(program, seeds, bump)
		require.NoError(t, err)
		assert.Equal(t, addr, rebuilt)
	}
}

func TestProgramAddressDependsOnEverySeed(t *testing.T) {
	program := Address{1}
	a, _, err := FindProgramAddress(program, [][]byte{[]byte("vault"), {1}})
	require.NoError(t, err)
	b, _, err := FindProgramAddress(program, [][]byte{[]byte("vault"), {2}})
	require.NoError(t, err)
	c, _, err := FindProgramAddress(Address{2}, [][]byte{[]byte("vault"), {1}})
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestCreateProgramAddressRejectsLongSeed(t *testing.T) {
	_, err := CreateProgramAddress(Address{}, [][]byte{make([]byte, 33)}, 255)
	require.ErrorIs(t, err, ErrInvalidSeeds)
}

func TestSeedSignerAuthorizesDerivedAddress(t *testing.T) {
	program := Address{3}
	seeds := [][]byte{[]byte("vault"), {4}}
	addr, bump, err := FindProgramAddress(program, seeds)
	require.NoError(t, err)

	require.NoError(t, authorize(SeedSigner{ProgramID: program, Seeds: seeds, Bump: bump}, addr))
	require.ErrorIs(t, authorize(SeedSigner{ProgramID: Address{5}, Seeds: seeds, Bump: bump}, addr), ErrUnauthorized)
}
