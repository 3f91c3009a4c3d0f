package fetch

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExtractPage_TitleFallback(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://en.wikipedia.org/wiki/Go_(programming_language)", "Go (programming language)"},
		{"https://example.com/posts/how-to-learn-go.html", "how to learn go"},
		{"https://example.com/", "example.com"},
	}

	for _, tt := range tests {
		page, err := ExtractPage("<html><body>text</body></html>", tt.url)
		if err != nil {
			t.Fatalf("ExtractPage(%s): %v", tt.url, err)
		}
		if page.Title != tt.want {
			t.Errorf("ExtractPage(%s): expected title %q, got %q", tt.url, tt.want, page.Title)
		}
	}
}

func TestExtractPage_SkipsHiddenText(t *testing.T) {
	page, err := ExtractPage(`<html><body>Visible<noscript>hidden</noscript><template>tpl</template> text</body></html>`, "https://example.com")
	if err != nil {
		t.Fatal(err)
	}
	if page.Content != "Visible text" {
		t.Errorf("unexpected content %q", page.Content)
	}
}

func TestNewProxyFunc(t *testing.T) {
	t.Setenv("NO_PROXY", "")
	t.Setenv("no_proxy", "")
	proxy := NewProxyFunc("http://proxy:8080", "http://secure-proxy:8443", "")

	req := httptest.NewRequest(http.MethodGet, "https://example.com", nil)
	u, err := proxy(req)
	if err != nil || u.Host != "secure-proxy:8443" {
		t.Errorf("https request: expected secure-proxy, got %v (%v)", u, err)
	}

	req = httptest.NewRequest(http.MethodGet, "http://example.com", nil)
	u, err = proxy(req)
	if err != nil || u.Host != "proxy:8080" {
		t.Errorf("http request: expected proxy, got %v (%v)", u, err)
	}
}

func TestNewProxyFunc_NoProxy(t *testing.T) {
	proxy := NewProxyFunc("http://proxy:8080", "", "intranet.example,10.0.0.0/8")

	tests := []struct {
		name      string
		url       string
		wantProxy string
	}{
		{name: "excluded host", url: "http://intranet.example/page"},
		{name: "excluded subdomain", url: "https://wiki.intranet.example/page"},
		{name: "excluded network", url: "http://10.1.2.3/page"},
		{name: "https falls back to http proxy", url: "https://example.com", wantProxy: "proxy:8080"},
		{name: "other host", url: "http://example.com", wantProxy: "proxy:8080"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := proxy(httptest.NewRequest(http.MethodGet, tt.url, nil))
			if err != nil {
				t.Fatal(err)
			}
			if tt.wantProxy == "" {
				if u != nil {
					t.Errorf("expected direct connection, got %v", u)
				}
				return
			}
			if u == nil || u.Host != tt.wantProxy {
				t.Errorf("expected %s, got %v", tt.wantProxy, u)
			}
		})
	}
}

func TestNormalizeUserAgent(t *testing.T) {
	if got := normalizeUserAgent("tabsort/0.1 (+https://github.com/ppiankov/tabsort)"); got != "tabsort" {
		t.Errorf("expected tabsort, got %q", got)
	}
}
