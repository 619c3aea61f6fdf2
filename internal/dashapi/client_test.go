package dashapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

var okBodies = map[string]string{
	"/api/filters":       `{"filters":["Все","Марк"]}`,
	"/api/metrics":       `{"planned":5,"attended":2}`,
	"/api/subscriptions": `{"subscriptions":[{"id":"1"}]}`,
	"/api/calendar":      `{"events":[{"date":"2025-10-15"}]}`,
}

func stubClient(t *testing.T, fn func(*http.Request) (*http.Response, error)) *Client {
	t.Helper()
	return NewWithHTTPClient("https://api.example.test/", &http.Client{Transport: roundTripFunc(fn)})
}

func TestFetchUnwrapsEnvelopes(t *testing.T) {
	var (
		mu   sync.Mutex
		seen = map[string]*http.Request{}
	)
	client := stubClient(t, func(req *http.Request) (*http.Response, error) {
		mu.Lock()
		seen[req.URL.Path] = req
		mu.Unlock()
		return jsonResponse(http.StatusOK, okBodies[req.URL.Path]), nil
	})

	p, err := client.Fetch(context.Background(), "Все")
	require.NoError(t, err)

	assert.JSONEq(t, `["Все","Марк"]`, string(p.Filters))
	assert.JSONEq(t, `{"planned":5,"attended":2}`, string(p.Metrics))
	assert.JSONEq(t, `[{"id":"1"}]`, string(p.Subscriptions))
	assert.JSONEq(t, `[{"date":"2025-10-15"}]`, string(p.Calendar))

	require.Len(t, seen, 4)
	assert.Empty(t, seen["/api/filters"].URL.RawQuery)
	for _, path := range []string{"/api/metrics", "/api/subscriptions", "/api/calendar"} {
		req := seen[path]
		require.NotNil(t, req, path)
		assert.Equal(t, "api.example.test", req.URL.Host)
		assert.Equal(t, "student=%D0%92%D1%81%D0%B5", req.URL.RawQuery, path)
		assert.Equal(t, "Все", req.URL.Query().Get("student"))
	}
}

func TestFetchFailsWhenAnyEndpointFails(t *testing.T) {
	client := stubClient(t, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path == "/api/subscriptions" {
			return jsonResponse(http.StatusInternalServerError, `{}`), nil
		}
		return jsonResponse(http.StatusOK, okBodies[req.URL.Path]), nil
	})

	p, err := client.Fetch(context.Background(), "Марк")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStatus))
	assert.Contains(t, err.Error(), "/api/subscriptions")
	assert.Nil(t, p.Filters, "no partial payload")
	assert.Nil(t, p.Calendar)
}

func TestFetchTransportError(t *testing.T) {
	client := stubClient(t, func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})

	_, err := client.Fetch(context.Background(), "Все")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestInvalidJSONIsAnError(t *testing.T) {
	client := stubClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `<html>oops</html>`), nil
	})

	_, err := client.Metrics(context.Background(), "Все")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDecode))
}

func TestNonObjectEnvelopeIsLeftEmpty(t *testing.T) {
	client := stubClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `[1,2,3]`), nil
	})

	raw, err := client.Subscriptions(context.Background(), "Все")
	require.NoError(t, err)
	assert.Nil(t, raw)

	raw, err = client.Calendar(context.Background(), "Все")
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestNewTrimsBaseURL(t *testing.T) {
	c := New("http://127.0.0.1:5000/", 0)
	assert.Equal(t, "http://127.0.0.1:5000", c.BaseURL())
	assert.Equal(t, defaultTimeout, c.httpClient.Timeout)
}
