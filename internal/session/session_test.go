package session_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/fieldbook-crm/fieldbook/internal/session"
)

var testStore *session.Store

func TestMain(m *testing.M) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start redis container: %v\n", err)
		os.Exit(1)
	}

	host, err := container.Host(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get container host: %v\n", err)
		os.Exit(1)
	}
	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get container port: %v\n", err)
		os.Exit(1)
	}

	testStore, err = session.New(ctx, fmt.Sprintf("redis://%s:%s", host, port.Port()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create store: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	_ = testStore.Close()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func TestTrackLiveRevoke(t *testing.T) {
	ctx := context.Background()
	token := "token-track-live-revoke"

	live, err := testStore.Live(ctx, token)
	require.NoError(t, err)
	assert.False(t, live, "untracked token must not be live")

	require.NoError(t, testStore.Track(ctx, token, time.Now().Add(time.Hour)))
	live, err = testStore.Live(ctx, token)
	require.NoError(t, err)
	assert.True(t, live)

	require.NoError(t, testStore.Revoke(ctx, token))
	live, err = testStore.Live(ctx, token)
	require.NoError(t, err)
	assert.False(t, live, "revoked token must not be live")
}

func TestTrackExpiredTokenIsNoop(t *testing.T) {
	ctx := context.Background()
	token := "token-already-expired"

	require.NoError(t, testStore.Track(ctx, token, time.Now().Add(-time.Minute)))
	live, err := testStore.Live(ctx, token)
	require.NoError(t, err)
	assert.False(t, live)
}

func TestNilStoreIsPermissive(t *testing.T) {
	ctx := context.Background()
	var s *session.Store

	require.NoError(t, s.Track(ctx, "anything", time.Now().Add(time.Hour)))
	live, err := s.Live(ctx, "anything")
	require.NoError(t, err)
	assert.True(t, live)
	require.NoError(t, s.Revoke(ctx, "anything"))
	require.NoError(t, s.Close())
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := session.New(context.Background(), "not-a-redis-url")
	assert.Error(t, err)
}
