package httpclient_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/require"

	"github.com/torosent/surge/internal/config"
	"github.com/torosent/surge/internal/httpclient"
)

const mockTarget = "http://content-service.default.svc.cluster.local/"

// newMockedExecutor builds an executor whose client transport is replaced by httpmock.
func newMockedExecutor(t *testing.T, cfg *config.Config, opts ...httpclient.Option) *httpclient.Executor {
	t.Helper()
	client := httpclient.NewClient(time.Second, 1)
	httpmock.ActivateNonDefault(client)
	t.Cleanup(httpmock.DeactivateAndReset)

	builder, err := httpclient.NewRequestBuilder(cfg)
	require.NoError(t, err)
	return httpclient.NewExecutor(client, builder, httpclient.NewCheck(cfg), opts...)
}

// TestExecuteTracksBlueGreenSplit replays a blue/green rollout and checks the variant of every outcome.
func TestExecuteTracksBlueGreenSplit(t *testing.T) {
	exec := newMockedExecutor(t, &config.Config{TargetURL: mockTarget}, httpclient.WithTrackField("color"))

	colors := []string{"blue", "blue", "green", "blue"}
	calls := 0
	httpmock.RegisterResponder(http.MethodGet, mockTarget,
		func(req *http.Request) (*http.Response, error) {
			color := colors[calls%len(colors)]
			calls++
			return httpmock.NewJsonResponse(http.StatusOK, map[string]string{
				"service": "content-api",
				"version": "v2",
				"color":   color,
			})
		})

	got := map[string]int{}
	for range colors {
		outcome := exec.Execute(context.Background())
		require.True(t, outcome.Passed, "unexpected failure: %v", outcome.Err)
		require.Equal(t, http.StatusOK, outcome.StatusCode)
		got[outcome.Variant]++
	}

	require.Equal(t, map[string]int{"blue": 3, "green": 1}, got)
	require.Equal(t, len(colors), httpmock.GetTotalCallCount())
}

func TestExecuteCanaryVersionMismatch(t *testing.T) {
	exec := newMockedExecutor(t, &config.Config{
		TargetURL:  mockTarget,
		ExpectJSON: []config.JSONExpectation{{Path: "version", Value: "v2"}},
	})
	httpmock.RegisterResponder(http.MethodGet, mockTarget,
		httpmock.NewStringResponder(http.StatusOK, `{"version":"v1","color":"blue"}`))

	outcome := exec.Execute(context.Background())

	require.False(t, outcome.Passed)
	require.Equal(t, http.StatusOK, outcome.StatusCode)
	var checkErr *httpclient.CheckError
	require.ErrorAs(t, outcome.Err, &checkErr)
	require.Contains(t, checkErr.Reason, "version")
	require.True(t, outcome.CheckFailure())
}

func TestExecuteMockedTransportError(t *testing.T) {
	exec := newMockedExecutor(t, &config.Config{TargetURL: mockTarget})
	httpmock.RegisterResponder(http.MethodGet, mockTarget,
		httpmock.NewErrorResponder(errors.New("connection reset by peer")))

	outcome := exec.Execute(context.Background())

	require.False(t, outcome.Passed)
	require.Zero(t, outcome.StatusCode)
	require.Error(t, outcome.Err)
	require.True(t, outcome.TransportFailure())
}
