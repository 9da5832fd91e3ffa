package normx

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/unicode/norm"
)

func TestNameComposesDecomposedHangul(t *testing.T) {
	t.Parallel()

	composed := "김중수"
	decomposed := norm.NFD.String(composed)
	require.NotEqual(t, composed, decomposed) // sanity: forms differ byte-wise

	require.Equal(t, composed, Name(decomposed))
	require.True(t, NameEqual(composed, decomposed))
	require.True(t, NameEqual("  김중수 ", composed))
}

func TestNameEqualRejectsDifferentNames(t *testing.T) {
	t.Parallel()

	require.False(t, NameEqual("김중수", "김은수"))
}

func TestPhoneDigits(t *testing.T) {
	t.Parallel()

	require.Equal(t, "01095119924", PhoneDigits("010-9511-9924"))
	require.Equal(t, "01095119924", PhoneDigits("010 9511 9924"))
	require.Equal(t, "", PhoneDigits("no digits here"))
}
