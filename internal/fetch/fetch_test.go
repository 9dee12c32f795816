package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/newsdigest/internal/database"
	"github.com/TobiSchelling/newsdigest/internal/logging"
)

var paragraph = strings.Repeat("A economia brasileira cresceu no trimestre, puxada pelo agronegócio e pelos serviços. ", 6)

func articleServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/article", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><head><title>PIB</title></head><body>
<nav>Menu</nav>
<article><h1>PIB sobe</h1><p>%s</p><p>%s</p></article>
</body></html>`, paragraph, paragraph)
	})
	mux.HandleFunc("/empty", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>hi</p></body></html>`)
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestIsTruncated(t *testing.T) {
	require.True(t, IsTruncated("Stocks rallied on Monday… [+2345 chars]"))
	require.True(t, IsTruncated("Stocks rallied [+12 chars]"))
	require.False(t, IsTruncated("Stocks rallied on Monday."))
	require.Equal(t, "Stocks rallied on Monday", StripTruncationMarker("Stocks rallied on Monday… [+2345 chars]"))
}

func TestFullText(t *testing.T) {
	srv := articleServer(t)
	e := NewExtractor(5*time.Second, logging.Discard())

	text, err := e.FullText(context.Background(), srv.URL+"/article")
	require.NoError(t, err)
	require.Contains(t, text, "agronegócio")

	// Too little text either fails extraction or yields nothing.
	text, _ = e.FullText(context.Background(), srv.URL+"/empty")
	require.Empty(t, text)

	_, err = e.FullText(context.Background(), srv.URL+"/missing")
	var he *HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, http.StatusNotFound, he.Code)

	_, err = e.FullText(context.Background(), "not a url")
	require.Error(t, err)
}

func TestBestText(t *testing.T) {
	srv := articleServer(t)
	e := NewExtractor(5*time.Second, logging.Discard())
	ctx := context.Background()

	whole := database.NewsItem{URL: srv.URL + "/missing", Content: "Complete body."}
	require.Equal(t, "Complete body.", e.BestText(ctx, whole))

	truncated := database.NewsItem{URL: srv.URL + "/article", Content: "A economia… [+900 chars]"}
	require.Contains(t, e.BestText(ctx, truncated), "serviços")

	unreachable := database.NewsItem{URL: srv.URL + "/missing", Content: "A economia… [+900 chars]"}
	require.Equal(t, "A economia", e.BestText(ctx, unreachable))

	descOnly := database.NewsItem{URL: srv.URL + "/missing", Description: "Resumo curto"}
	require.Equal(t, "Resumo curto", e.BestText(ctx, descOnly))
}
