package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPBackendLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())

		for _, num := range r.Form["numbers"] {
			switch num {
			case "0821234567":
				fmt.Fprintf(w, "%s is serviced by Telkom.\n", num)
			case "0837654321":
				fmt.Fprintf(w, "%s is serviced by Vodacom\n", num)
			default:
				fmt.Fprintf(w, "%s: no results\n", num)
			}
		}
	}))
	defer srv.Close()

	backend := NewHTTPBackend(srv.URL, time.Second)

	got, err := backend.Lookup(context.Background(), []string{"0821234567", "0837654321", "0800000000"})
	require.NoError(t, err)

	assert.Equal(t, "Telkom", got["0821234567"])
	assert.Equal(t, "Vodacom", got["0837654321"])
	assert.Equal(t, Unknown, got["0800000000"])
}

func TestHTTPBackendNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	backend := NewHTTPBackend(srv.URL, time.Second)

	_, err := backend.Lookup(context.Background(), []string{"0821234567"})
	assert.Error(t, err)
}

func TestParseBatchResponseUnmatchedNumberAbsent(t *testing.T) {
	got := parseBatchResponse([]string{"0821", "0832"}, "0821 is serviced by MTN\n")

	assert.Equal(t, "MTN", got["0821"])

	_, ok := got["0832"]
	assert.False(t, ok)
}
