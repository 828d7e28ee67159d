package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrincipalEqualAndAnonymous(t *testing.T) {
	require.True(t, Anonymous.IsAnonymous())
	require.False(t, Principal("someone").IsAnonymous())
	require.True(t, Principal("x").Equal(Principal("x")))
	require.False(t, Principal("x").Equal(Principal("y")))
}

func TestAccountEqualAndKeyDeterminism(t *testing.T) {
	a1 := DefaultAccount(Principal("owner"))
	a2 := DefaultAccount(Principal("owner"))
	require.True(t, a1.Equal(a2))
	require.Equal(t, a1.Key(), a2.Key())

	a3 := Account{Owner: Principal("owner"), Subaccount: make([]byte, 32)}
	require.False(t, a1.Equal(a3), "nil subaccount and all-zero subaccount are distinct Account values")

	a4 := DefaultAccount(Principal("other"))
	require.False(t, a1.Equal(a4))
	require.NotEqual(t, a1.Key(), a4.Key())
}
