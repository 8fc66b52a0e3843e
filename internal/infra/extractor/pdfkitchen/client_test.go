package pdfkitchen

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fakePDF = []byte("%PDF-1.4\n...")

func TestExtract_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/extract", r.URL.Path)

		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "policy.pdf", hdr.Filename)
		assert.Equal(t, "application/pdf", hdr.Header.Get("Content-Type"))
		got, _ := io.ReadAll(f)
		assert.Equal(t, fakePDF, got)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"Dwelling limit $450,000"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second, nil)
	text, err := c.Extract(context.Background(), "policy.pdf", fakePDF)
	require.NoError(t, err)
	assert.Equal(t, "Dwelling limit $450,000", text)
}

func TestExtract_StripsNULAndInvalidUTF8(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("{\"text\":\"Dwel\\u0000ling \xff$450,000\"}"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, nil)
	text, err := c.Extract(context.Background(), "policy.pdf", fakePDF)
	require.NoError(t, err)
	assert.Equal(t, "Dwelling \uFFFD$450,000", text)
}

func TestExtract_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"server error", http.StatusInternalServerError, "boom", nil},
		{"unparseable body", http.StatusOK, "<html>", nil},
		{"empty text", http.StatusOK, `{"text":"   "}`, ErrNoText},
		{"missing text", http.StatusOK, `{}`, ErrNoText},
		{"only NUL", http.StatusOK, `{"text":"\u0000\u0000"}`, ErrNoText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(srv.URL, time.Second, nil)
			_, err := c.Extract(context.Background(), "policy.pdf", fakePDF)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestExtract_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 50*time.Millisecond, nil)
	_, err := c.Extract(context.Background(), "policy.pdf", fakePDF)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
