package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"wallet-pos-bridge/config"
	"wallet-pos-bridge/internal/adapter/posclient"
	"wallet-pos-bridge/internal/bootstrap"
	"wallet-pos-bridge/internal/core/domain"
	"wallet-pos-bridge/internal/core/ports"
	"wallet-pos-bridge/internal/core/ports/mocks"
	"wallet-pos-bridge/internal/service"
	"wallet-pos-bridge/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func validEnv(t *testing.T) {
	t.Setenv("WPB_JWT_SECRET", "test-secret")
	t.Setenv("WPB_AES_KEY", strings.Repeat("ab", 32))
}

func fakeBuilder(app *bootstrap.Components) builder {
	return func(context.Context, *config.Config, zerolog.Logger) (*bootstrap.Components, error) {
		return app, nil
	}
}

func run(t *testing.T, build builder, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand(build)
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCredentialsGenerate(t *testing.T) {
	validEnv(t)
	ctrl := gomock.NewController(t)
	creds := mocks.NewMockCredentialManager(ctrl)
	creds.EXPECT().Generate(gomock.Any()).Return(&domain.Credentials{
		APIKey:        "pos_0123456789abcdef",
		SigningSecret: "feedface",
		GeneratedAt:   time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}, nil)

	out, err := run(t, fakeBuilder(&bootstrap.Components{Credentials: creds}), "", "credentials", "generate")
	require.NoError(t, err)
	assert.Contains(t, out, "api_key:        pos_0123456789abcdef")
	assert.Contains(t, out, "signing_secret: feedface")
	assert.Contains(t, out, "2024-06-01T12:00:00Z")
}

func TestCredentialsRevoke(t *testing.T) {
	validEnv(t)
	ctrl := gomock.NewController(t)
	creds := mocks.NewMockCredentialManager(ctrl)
	creds.EXPECT().Revoke(gomock.Any()).Return(nil)

	out, err := run(t, fakeBuilder(&bootstrap.Components{Credentials: creds}), "", "credentials", "revoke")
	require.NoError(t, err)
	assert.Contains(t, out, "revoked")
}

func TestCredentialsShow(t *testing.T) {
	validEnv(t)
	ctrl := gomock.NewController(t)
	creds := mocks.NewMockCredentialManager(ctrl)
	creds.EXPECT().Current(gomock.Any()).Return(&domain.Credentials{
		APIKey:        "pos_0123456789abcdef",
		SigningSecret: "feedface",
	}, nil)

	out, err := run(t, fakeBuilder(&bootstrap.Components{Credentials: creds}), "", "credentials", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "pos_****cdef")
	assert.NotContains(t, out, "feedface")
}

func TestCredentials_InvalidConfig(t *testing.T) {
	t.Setenv("WPB_JWT_SECRET", "")
	t.Setenv("WPB_AES_KEY", "")

	_, err := run(t, fakeBuilder(&bootstrap.Components{}), "", "credentials", "generate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestSign_WithSecret(t *testing.T) {
	body := `{"event":"wallet.credit","email":"jane@example.com","amount":"5.00"}`
	want := service.NewHMACSignatureService().Sign("shh", []byte(body))

	out, err := run(t, fakeBuilder(nil), body, "sign", "--secret", "shh")
	require.NoError(t, err)
	assert.Equal(t, want+"\n", out)
}

func TestSign_ActiveSecret(t *testing.T) {
	validEnv(t)
	ctrl := gomock.NewController(t)
	creds := mocks.NewMockCredentialManager(ctrl)
	creds.EXPECT().Current(gomock.Any()).Return(&domain.Credentials{APIKey: "pos_k", SigningSecret: "active"}, nil)

	out, err := run(t, fakeBuilder(&bootstrap.Components{Credentials: creds}), "{}", "sign")
	require.NoError(t, err)
	assert.Equal(t, service.NewHMACSignatureService().Sign("active", []byte("{}"))+"\n", out)
}

func TestSign_NoActiveSecret(t *testing.T) {
	validEnv(t)
	ctrl := gomock.NewController(t)
	creds := mocks.NewMockCredentialManager(ctrl)
	creds.EXPECT().Current(gomock.Any()).Return(nil, nil)

	_, err := run(t, fakeBuilder(&bootstrap.Components{Credentials: creds}), "{}", "sign")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no active credentials")
}

func TestSign_Legacy(t *testing.T) {
	out, err := run(t, fakeBuilder(nil), "", "sign", "--legacy", "--api-key", "key", "--secret", "legacy", "--timestamp", "1700000000")
	require.NoError(t, err)
	assert.Contains(t, out, "X-Api-Key: key\n")
	assert.Contains(t, out, "X-Timestamp: 1700000000\n")
	assert.Contains(t, out, "X-Signature: "+posclient.LegacySignature("key", "1700000000", "legacy"))
}

func TestSign_LegacyNeedsKey(t *testing.T) {
	_, err := run(t, fakeBuilder(nil), "", "sign", "--legacy")
	require.Error(t, err)
}

func TestPing(t *testing.T) {
	validEnv(t)
	ctrl := gomock.NewController(t)
	pos := mocks.NewMockPOSService(ctrl)
	pos.EXPECT().Status(gomock.Any()).Return(&ports.StatusView{POSConfigured: true, Connection: "ok"}, nil)

	out, err := run(t, fakeBuilder(&bootstrap.Components{POS: pos}), "", "ping")
	require.NoError(t, err)
	assert.Contains(t, out, "connection: ok")
}

func TestPing_Unreachable(t *testing.T) {
	validEnv(t)
	ctrl := gomock.NewController(t)
	pos := mocks.NewMockPOSService(ctrl)
	pos.EXPECT().Status(gomock.Any()).Return(&ports.StatusView{
		POSConfigured: true,
		Connection:    "error",
		ConnectionErr: "dial tcp: connection refused",
	}, nil)

	_, err := run(t, fakeBuilder(&bootstrap.Components{POS: pos}), "", "ping")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestSyncDrain(t *testing.T) {
	validEnv(t)
	ctrl := gomock.NewController(t)
	worker := mocks.NewMockSyncWorker(ctrl)
	gomock.InOrder(
		worker.EXPECT().ProcessDue(gomock.Any()).Return(20, nil),
		worker.EXPECT().ProcessDue(gomock.Any()).Return(3, nil),
		worker.EXPECT().ProcessDue(gomock.Any()).Return(0, nil),
	)

	out, err := run(t, fakeBuilder(&bootstrap.Components{SyncWorker: worker}), "", "sync", "drain")
	require.NoError(t, err)
	assert.Contains(t, out, "processed 23 job(s)")
}

func TestDrainOutbox_StopsOnError(t *testing.T) {
	ctrl := gomock.NewController(t)
	worker := mocks.NewMockSyncWorker(ctrl)
	gomock.InOrder(
		worker.EXPECT().ProcessDue(gomock.Any()).Return(2, nil),
		worker.EXPECT().ProcessDue(gomock.Any()).Return(0, errors.New("claim failed")),
	)

	n, err := drainOutbox(context.Background(), worker, 10)
	require.Error(t, err)
	assert.Equal(t, 2, n)
}

func TestDrainOutbox_MaxRounds(t *testing.T) {
	ctrl := gomock.NewController(t)
	worker := mocks.NewMockSyncWorker(ctrl)
	worker.EXPECT().ProcessDue(gomock.Any()).Return(1, nil).Times(3)

	n, err := drainOutbox(context.Background(), worker, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestTokenIssue(t *testing.T) {
	validEnv(t)
	ctrl := gomock.NewController(t)
	auth := mocks.NewMockAuthService(ctrl)
	auth.EXPECT().IssueToken("ops", ports.RoleAdmin).Return("signed.jwt.token", time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), nil)

	out, err := run(t, fakeBuilder(&bootstrap.Components{Auth: auth}), "", "token", "issue", "--subject", "ops")
	require.NoError(t, err)
	assert.Contains(t, out, "signed.jwt.token\n")
	assert.Contains(t, out, "expires: 2030-01-01T00:00:00Z")
}

func TestCustomer(t *testing.T) {
	validEnv(t)
	ctrl := gomock.NewController(t)
	wallet := mocks.NewMockWalletViewer(ctrl)
	wallet.EXPECT().RemoteCustomer(gomock.Any(), "jane@example.com").Return(&ports.RemoteCustomer{
		Email:     "jane@example.com",
		FirstName: "Jane",
		LastName:  "Doe",
		Balance:   decimal.RequireFromString("42.5"),
	}, nil)

	out, err := run(t, fakeBuilder(&bootstrap.Components{Wallet: wallet}), "", "customer", "jane@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "name:    Jane Doe")
	assert.Contains(t, out, "balance: 42.50")
	assert.NotContains(t, out, "phone:")
}

func TestCustomer_NotConfigured(t *testing.T) {
	validEnv(t)
	ctrl := gomock.NewController(t)
	wallet := mocks.NewMockWalletViewer(ctrl)
	wallet.EXPECT().RemoteCustomer(gomock.Any(), "jane@example.com").Return(nil, apperror.ErrNotConfigured())

	_, err := run(t, fakeBuilder(&bootstrap.Components{Wallet: wallet}), "", "customer", "jane@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestMask(t *testing.T) {
	assert.Equal(t, "****", mask("short"))
	assert.Equal(t, "pos_****cdef", mask("pos_0123456789abcdef"))
}
