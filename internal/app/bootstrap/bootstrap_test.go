package bootstrap

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/wolfman30/clinic-concierge/internal/config"
	"github.com/wolfman30/clinic-concierge/internal/nlu"
	"github.com/wolfman30/clinic-concierge/internal/session"
	"github.com/wolfman30/clinic-concierge/internal/store"
	"github.com/wolfman30/clinic-concierge/pkg/logging"
)

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func TestBuildCapabilitiesWithoutKeyIsDeterministic(t *testing.T) {
	caps := BuildCapabilities(&appconfig.Config{}, logging.NewWithWriter("error", testWriter{t}))
	_, ok := caps.(*nlu.Deterministic)
	assert.True(t, ok)
}

func TestBuildCapabilitiesWithKeyWrapsFallback(t *testing.T) {
	cfg := &appconfig.Config{OpenAIAPIKey: "sk-test", OpenAIModel: "gpt-4o"}
	caps := BuildCapabilities(cfg, logging.NewWithWriter("error", testWriter{t}))
	_, ok := caps.(*nlu.FallbackCapabilities)
	assert.True(t, ok)
}

func TestJanitorEvictsAndCleans(t *testing.T) {
	logger := logging.NewWithWriter("error", testWriter{t})
	past := time.Now().Add(-24 * time.Hour)

	st, err := store.Open(filepath.Join(t.TempDir(), "data.json"), logger)
	require.NoError(t, err)
	patientID := st.CreatePatient("Old Patient", 70, "")
	_, err = st.CreateAppointment(patientID, 1, past.Format("2006-01-02"), "09:00")
	require.NoError(t, err)

	// A very short TTL makes the session idle almost immediately.
	sessions := session.NewStore(time.Millisecond, 20)
	sessions.AddMessage("stale", session.RoleUser, "hi")

	j := NewJanitor(st, sessions, JanitorConfig{
		CleanupInterval: 5 * time.Millisecond,
		EvictionPeriod:  5 * time.Millisecond,
		Poll:            time.Millisecond,
	}, logger, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return sessions.Count() == 0 && st.Stats().ExpiredAppointments == 0
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop after cancellation")
	}
}
