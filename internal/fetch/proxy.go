package fetch

import (
	"net/http"
	"net/url"

	"golang.org/x/net/http/httpproxy"
)

// NewProxyFunc routes page requests through the configured proxies. HTTPS
// requests use httpProxy when httpsProxy is unset. Hosts matching noProxy
// (NO_PROXY syntax) connect directly; an empty noProxy falls back to the
// NO_PROXY environment variable. With no proxy configured the environment
// decides everything.
func NewProxyFunc(httpProxy, httpsProxy, noProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}
	if httpsProxy == "" {
		httpsProxy = httpProxy
	}
	if noProxy == "" {
		noProxy = httpproxy.FromEnvironment().NoProxy
	}

	proxyFor := (&httpproxy.Config{
		HTTPProxy:  httpProxy,
		HTTPSProxy: httpsProxy,
		NoProxy:    noProxy,
	}).ProxyFunc()

	return func(req *http.Request) (*url.URL, error) {
		return proxyFor(req.URL)
	}
}
