package dispatch

import (
	"context"
	"net/http"

	"github.com/go-resty/resty/v2"
)

// Request is one outbound call. Header keys are sent exactly as stored.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is the final upstream answer, relayed to the caller unmodified.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Route      string
}

func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Route is one transport choice for a dispatch.
type Route interface {
	Name() string
	Do(ctx context.Context, req *Request) (*Response, error)
}

const (
	RouteDirect  = "direct"
	RouteProxied = "proxied"
)

// Direct sends the request straight to the upstream host.
type Direct struct {
	client *resty.Client
}

func NewDirect(client *resty.Client) *Direct {
	if client == nil {
		client = resty.New()
	}
	return &Direct{client: client}
}

func (d *Direct) Name() string { return RouteDirect }

func (d *Direct) Do(ctx context.Context, req *Request) (*Response, error) {
	return send(newRequest(ctx, d.client, req), req.Method, req.URL, RouteDirect)
}

// Proxied re-issues the request through an unlocking relay that takes the
// target URL and its own api key as query parameters.
type Proxied struct {
	client   *resty.Client
	endpoint string
	apiKey   string
	keyParam string
	urlParam string
}

type ProxyOptions struct {
	Endpoint string
	APIKey   string
	KeyParam string
	URLParam string
}

func NewProxied(client *resty.Client, opts ProxyOptions) *Proxied {
	if client == nil {
		client = resty.New()
	}
	if opts.KeyParam == "" {
		opts.KeyParam = "apikey"
	}
	if opts.URLParam == "" {
		opts.URLParam = "url"
	}
	return &Proxied{
		client:   client,
		endpoint: opts.Endpoint,
		apiKey:   opts.APIKey,
		keyParam: opts.KeyParam,
		urlParam: opts.URLParam,
	}
}

func (p *Proxied) Name() string { return RouteProxied }

func (p *Proxied) Do(ctx context.Context, req *Request) (*Response, error) {
	r := newRequest(ctx, p.client, req).SetQueryParam(p.urlParam, req.URL)
	if p.apiKey != "" {
		r.SetQueryParam(p.keyParam, p.apiKey)
	}
	return send(r, req.Method, p.endpoint, RouteProxied)
}

// newRequest copies headers without canonicalizing their names, so
// POLY_API_KEY and POLY-API-KEY reach the upstream as written.
func newRequest(ctx context.Context, client *resty.Client, req *Request) *resty.Request {
	r := client.R().SetContext(ctx)
	for k, vs := range req.Header {
		if len(vs) == 0 {
			continue
		}
		r.SetHeaderVerbatim(k, vs[0])
		for _, v := range vs[1:] {
			r.Header[k] = append(r.Header[k], v)
		}
	}
	if req.Body != nil {
		r.SetBody(req.Body)
	}
	return r
}

func send(r *resty.Request, method, target, route string) (*Response, error) {
	resp, err := r.Execute(method, target)
	if err != nil {
		return nil, err
	}
	return &Response{
		StatusCode: resp.StatusCode(),
		Header:     resp.Header().Clone(),
		Body:       resp.Body(),
		Route:      route,
	}, nil
}
