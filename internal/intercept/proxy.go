package intercept

import (
	"io"
	"net/http"
)

var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// ProxyHandler exposes t as a plain-HTTP forward proxy so a process outside
// this one (a browser driven by UI automation) can route its calls through
// the registry via HTTP_PROXY. CONNECT tunnels are refused.
func (t *Transport) ProxyHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodConnect {
			http.Error(w, "CONNECT is not supported", http.StatusNotImplemented)
			return
		}
		if !r.URL.IsAbs() {
			http.Error(w, "proxy requests need an absolute URL", http.StatusBadRequest)
			return
		}

		out := r.Clone(r.Context())
		out.RequestURI = ""
		for _, h := range hopHeaders {
			out.Header.Del(h)
		}

		resp, err := t.RoundTrip(out)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		defer resp.Body.Close()

		for _, h := range hopHeaders {
			resp.Header.Del(h)
		}
		for k, vs := range resp.Header {
			for _, v := range vs {
				w.Header().Add(k, v)
			}
		}
		w.WriteHeader(resp.StatusCode)
		_, _ = io.Copy(w, resp.Body)
	})
}
