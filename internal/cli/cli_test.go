package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/packwrap/internal/domain/models"
	"github.com/mamadbah2/packwrap/pkg/vault"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestParseCommand_Stdin(t *testing.T) {
	text := "Name: Karim\nPhone: 01711223344\nAddress: 12 Green Road, Dhaka\nSize: 10/14+2 White\nAmount: 5 pcs\nTotal: 5*50=250"

	out, err := run(t, text, "parse")
	require.NoError(t, err)

	var got parseResult
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "Karim", got.Order.Name)
	assert.Equal(t, "01711223344", got.Order.Phone)
	assert.Empty(t, got.Missing)
	assert.Contains(t, got.Text, "Total = 250")
}

func TestParseCommand_ArgsReportMissing(t *testing.T) {
	out, err := run(t, "", "parse", "Phone:", "01711223344")
	require.NoError(t, err)

	var got parseResult
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "01711223344", got.Order.Phone)
	assert.Contains(t, got.Missing, "address")
}

func TestParseCommand_Empty(t *testing.T) {
	_, err := run(t, "  ", "parse")
	assert.Error(t, err)
}

func TestParseCommand_AIRequiresKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	_, err := run(t, "", "parse", "--ai", "hello")
	assert.ErrorContains(t, err, "ANTHROPIC_API_KEY")
}

func TestVaultSealAndOpen(t *testing.T) {
	t.Setenv(passphraseEnv, "")

	out, err := run(t, `{"apiKey":"key-1","secretKey":"secret-1"}`, "vault", "seal", "--user", "Karim", "--passphrase", "open sesame")
	require.NoError(t, err)

	var sealed vault.Sealed
	require.NoError(t, json.Unmarshal([]byte(out), &sealed))
	assert.Equal(t, vault.Version, sealed.Version)

	t.Setenv(passphraseEnv, "open sesame")
	out, err = run(t, out, "vault", "open", "--user", "karim")
	require.NoError(t, err)

	var creds models.CourierCredentials
	require.NoError(t, json.Unmarshal([]byte(out), &creds))
	assert.Equal(t, models.CourierCredentials{APIKey: "key-1", SecretKey: "secret-1"}, creds)
}

func TestVaultOpen_WrongPassphrase(t *testing.T) {
	t.Setenv(passphraseEnv, "")

	out, err := run(t, `{"apiKey":"k","secretKey":"s"}`, "vault", "seal", "--user", "karim", "--passphrase", "right")
	require.NoError(t, err)

	_, err = run(t, out, "vault", "open", "--user", "karim", "--passphrase", "wrong")
	assert.ErrorIs(t, err, vault.ErrDecrypt)
}

func TestVault_RequiresUserAndPassphrase(t *testing.T) {
	t.Setenv(passphraseEnv, "")

	_, err := run(t, `{}`, "vault", "seal", "--passphrase", "x")
	assert.ErrorContains(t, err, "--user")

	_, err = run(t, `{}`, "vault", "seal", "--user", "karim")
	assert.ErrorContains(t, err, "passphrase")

	_, err = run(t, `{"apiKey":"k"}`, "vault", "seal", "--user", "karim", "--passphrase", "x")
	assert.ErrorContains(t, err, "secretKey")
}
