package main

import (
	"bytes"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	apperrors "github.com/soniditos/soniditos-desktop/internal/errors"
)

// offlinePage is served when the remote application cannot be reached
const offlinePage = "frontend/dist/offline.html"

// pageScriptPath is where the proxy serves the script it loads ahead of the
// remote page's own scripts.
const pageScriptPath = "/__soniditos/page.js"

// newContentProxy serves the remote application through the Wails asset
// server so the page is same-origin with the injected runtime. Every HTML
// document gets script loaded as the first element of its head.
func newContentProxy(rawURL string, static fs.FS, script string, logger *slog.Logger) (http.Handler, error) {
	target, err := url.Parse(rawURL)
	if err != nil {
		return nil, apperrors.Wrapf(err, "parse content URL %q", rawURL)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, apperrors.InvalidInputf("content URL %q must be absolute", rawURL)
	}

	offline, _ := fs.ReadFile(static, offlinePage)

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DisableCompression = true

	proxy := &httputil.ReverseProxy{
		Transport: transport,
		Rewrite: func(r *httputil.ProxyRequest) {
			r.SetURL(target)
			r.Out.Host = target.Host
			// The asset server rewrites HTML to inject the runtime, which needs plain bodies
			r.Out.Header.Del("Accept-Encoding")
			r.Out.Header.Del("Origin")
		},
		ModifyResponse: func(resp *http.Response) error {
			rewriteLocation(resp, target)
			stripCookieDomains(resp)
			if script == "" {
				return nil
			}
			return injectPageScript(resp)
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Warn("Remote content unavailable", "url", r.URL.String(), "error", err)
			if len(offline) == 0 {
				http.Error(w, "Remote content unavailable", http.StatusBadGateway)
				return
			}
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write(offline)
		},
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if script == "" || r.URL.Path != pageScriptPath {
			proxy.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = io.WriteString(w, script)
	}), nil
}

// injectPageScript adds the page script tag to an HTML response body.
func injectPageScript(resp *http.Response) error {
	if resp.Request.Method == http.MethodHead || resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusNotModified {
		return nil
	}
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType != "text/html" || resp.Header.Get("Content-Encoding") != "" {
		return nil
	}

	doc, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return apperrors.Wrapf(err, "read document from %s", resp.Request.URL)
	}

	doc = insertScriptTag(doc, pageScriptPath)
	resp.Body = io.NopCloser(bytes.NewReader(doc))
	resp.ContentLength = int64(len(doc))
	resp.Header.Set("Content-Length", strconv.Itoa(len(doc)))
	return nil
}

// insertScriptTag places a script element right after the opening head tag,
// or before the first other element when the document has no head tag.
func insertScriptTag(doc []byte, src string) []byte {
	tag := `<script src="` + html.EscapeString(src) + `"></script>`

	at := 0
	z := html.NewTokenizer(bytes.NewReader(doc))
	offset := 0
scan:
	for {
		tt := z.Next()
		raw := len(z.Raw())
		switch tt {
		case html.ErrorToken:
			break scan
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "html":
				at = offset + raw
			case "head":
				at = offset + raw
				break scan
			default:
				at = offset
				break scan
			}
		}
		offset += raw
	}

	out := make([]byte, 0, len(doc)+len(tag))
	out = append(out, doc[:at]...)
	out = append(out, tag...)
	return append(out, doc[at:]...)
}

// rewriteLocation keeps redirects to the remote origin inside the proxy.
func rewriteLocation(resp *http.Response, target *url.URL) {
	loc := resp.Header.Get("Location")
	if loc == "" {
		return
	}
	u, err := url.Parse(loc)
	if err != nil || !strings.EqualFold(u.Host, target.Host) {
		return
	}
	u.Scheme = ""
	u.Host = ""
	resp.Header.Set("Location", u.String())
}

// stripCookieDomains drops the Domain attribute so cookies bind to the local origin.
func stripCookieDomains(resp *http.Response) {
	cookies := resp.Cookies()
	if len(cookies) == 0 {
		return
	}
	resp.Header.Del("Set-Cookie")
	for _, c := range cookies {
		c.Domain = ""
		resp.Header.Add("Set-Cookie", c.String())
	}
}
