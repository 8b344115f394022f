package pagination_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finbooks/ledger-core/internal/utils/pagination"
)

func TestTokenRoundTrip(t *testing.T) {
	entryDate := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	createdAt := time.Date(2026, 3, 15, 10, 30, 45, 123456789, time.UTC)

	token := pagination.EncodeToken(entryDate, createdAt)
	require.NotEmpty(t, token)

	gotDate, gotCreated, err := pagination.DecodeToken(token)
	require.NoError(t, err)
	assert.True(t, entryDate.Equal(gotDate))
	assert.True(t, createdAt.Equal(gotCreated))
}

func TestDecodeToken_Invalid(t *testing.T) {
	_, _, err := pagination.DecodeToken("not-base64!!!")
	assert.Error(t, err)

	// Valid base64 but not a cursor.
	_, _, err = pagination.DecodeToken("aGVsbG8=")
	assert.Error(t, err)
}

func TestDateBasedTokenRoundTrip(t *testing.T) {
	date := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	token := pagination.EncodeDateBasedToken(date)
	got, err := pagination.DecodeDateBasedToken(token)
	require.NoError(t, err)
	assert.True(t, date.Equal(got))
}
