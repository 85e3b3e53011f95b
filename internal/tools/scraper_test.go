package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const guidePage = `<!DOCTYPE html>
<html><head><title>Maize growing guide</title></head>
<body>
<nav><a href="/">Home</a> | <a href="/crops">Crops</a></nav>
<article>
<h1>Maize growing guide</h1>
<p>Maize is planted at the onset of the long rains, usually between mid March and early April in the central highlands.
Prepare the land early so that planting can start as soon as the soil is moist to a depth of fifteen centimetres.</p>
<p>Use certified seed and space rows seventy five centimetres apart with twenty five centimetres between plants.
Apply phosphate fertilizer at planting and top dress with nitrogen when the crop is knee high.</p>
<p>Weed twice during the first six weeks. Scout for fall armyworm weekly and act early when damage is seen on young leaves.</p>
</article>
<script>alert("x")</script>
</body></html>`

func TestReaderTool_Execute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("missing user agent")
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(guidePage))
	}))
	defer srv.Close()

	tool := NewReaderTool(5 * time.Second)
	got, err := tool.Execute(context.Background(), " "+srv.URL+"/maize ")
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !strings.Contains(got, "onset of the long rains") {
		t.Errorf("article text missing:\n%s", got)
	}
	if strings.Contains(got, "alert(") || strings.Contains(got, "<p>") {
		t.Errorf("markup leaked into output:\n%s", got)
	}
}

func TestReaderTool_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	tool := NewReaderTool(5 * time.Second)
	for _, input := range []string{"", "maize guide", "ftp://example.com/x", srv.URL} {
		if _, err := tool.Execute(context.Background(), input); err == nil {
			t.Errorf("Execute(%q): expected error", input)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("ääää", 2); got != "ää\n... (truncated)" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q", got)
	}
}
