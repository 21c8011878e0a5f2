/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package httputil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetJSONRetriesServerErrors(t *testing.T) {
	var calls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)

			return
		}

		_, _ = w.Write([]byte(`{"issuer":"https://op.example.com"}`))
	}))
	defer server.Close()

	var out map[string]interface{}

	err := New().GetJSON(context.Background(), server.URL, &out)
	require.NoError(t, err)
	require.Equal(t, "https://op.example.com", out["issuer"])
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGetJSONDoesNotRetryClientErrors(t *testing.T) {
	var calls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	var out map[string]interface{}

	err := New().GetJSON(context.Background(), server.URL, &out)
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 404")
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGetJSONGivesUpAfterMaxRetries(t *testing.T) {
	var calls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	var out map[string]interface{}

	err := New(WithMaxRetries(1)).GetJSON(context.Background(), server.URL, &out)
	require.Error(t, err)
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGetJSONDecodeFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	var out map[string]interface{}

	err := New().GetJSON(context.Background(), server.URL, &out)
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode response")
}

func TestPost(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "application/jwt", r.Header.Get("Content-Type"))

			_, _ = w.Write([]byte(`{"receipt":{}}`))
		}))
		defer server.Close()

		body, err := New().Post(context.Background(), server.URL, "application/jwt", []byte("token"))
		require.NoError(t, err)
		require.JSONEq(t, `{"receipt":{}}`, string(body))
	})

	t.Run("non-2xx is an error and not retried", func(t *testing.T) {
		var calls int32

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		_, err := New().Post(context.Background(), server.URL, "application/jwt", []byte("token"))
		require.Error(t, err)
		require.Contains(t, err.Error(), "status 502")
		require.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})
}
