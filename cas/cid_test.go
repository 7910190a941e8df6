package cas

import (
	"testing"

	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/stretchr/testify/require"
)

const (
	testHash = "31479ede5414b18e9205f0ab03b8cfac02f4c449ae9a993fc91c9b88c84efbcc"
	testCID  = "QmRf22bZar3WKmojipms22PkXH1MZGmvsqzQtuSvQE3uhm"
)

func TestHashToCID(t *testing.T) {
	h, err := ParseHash("0x" + testHash)
	require.NoError(t, err)
	require.Equal(t, testCID, HashToCID(h))

	res, err := CIDToHash(testCID)
	require.NoError(t, err)
	require.Equal(t, h, res)
	require.Equal(t, testHash, res.StringBE())

	for _, h := range []util.Uint256{{}, {1, 2, 3}, {0: 0xff, 31: 0xff}} {
		cid := HashToCID(h)
		require.Len(t, cid, CIDLength)
		res, err := CIDToHash(cid)
		require.NoError(t, err)
		require.Equal(t, h, res)
	}
}

func TestCIDToHashInvalid(t *testing.T) {
	for _, cid := range []string{
		"",
		testCID[:45],
		testCID + "a",
		"Qz" + testCID[2:],
		"Qm" + testCID[3:] + "0", // '0' is not in base58 alphabet
		"Qm" + "11111111111111111111111111111111111111111111",
	} {
		_, err := CIDToHash(cid)
		require.ErrorIs(t, err, ErrInvalidCID, cid)
	}
}

func TestParseRef(t *testing.T) {
	h1, err := ParseRef(testCID)
	require.NoError(t, err)
	h2, err := ParseRef(testHash)
	require.NoError(t, err)
	require.Equal(t, h1, h2)

	_, err = ParseRef("0x1234")
	require.ErrorIs(t, err, ErrInvalidHash)
	_, err = ParseRef("Qmshort")
	require.ErrorIs(t, err, ErrInvalidCID)
}
