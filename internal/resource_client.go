package internal

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/lychee-technology/formview"
	"go.uber.org/zap"
)

// Transport carries the HTTP clients shared by every resource of a registry.
// Primary requests go through a client whose round tripper adds the default
// headers; multipart uploads use a separate raw client and copy those headers
// onto each request themselves.
type Transport struct {
	client  *http.Client
	raw     *http.Client
	headers http.Header
}

// NewTransport builds the shared transport from client settings. A nil base
// client gets one with the configured timeout.
func NewTransport(cfg formview.ClientConfig, base *http.Client) *Transport {
	headers := make(http.Header)
	headers.Set("Accept", "application/json")
	if cfg.UserAgent != "" {
		headers.Set("User-Agent", cfg.UserAgent)
	}
	for k, v := range cfg.Headers {
		headers.Set(k, v)
	}

	if base == nil {
		base = &http.Client{Timeout: cfg.Timeout}
	}
	rt := base.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	primary := *base
	primary.Transport = &headerTransport{base: rt, headers: headers}
	raw := *base
	raw.Transport = rt

	return &Transport{client: &primary, raw: &raw, headers: headers}
}

// headerTransport adds default headers to requests that do not set them.
type headerTransport struct {
	base    http.RoundTripper
	headers http.Header
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	copyHeaders(r.Header, t.headers)
	return t.base.RoundTrip(r)
}

func copyHeaders(dst, src http.Header) {
	for k, vs := range src {
		if dst.Get(k) != "" {
			continue
		}
		for _, v := range vs {
			dst.Add(k, v)
		}
	}
}

// ResourceClient talks to the endpoints of one entity type.
type ResourceClient struct {
	typeName string
	desc     formview.ResourceDescriptor
	tr       *Transport
}

var _ formview.Resource = (*ResourceClient)(nil)

// NewResourceClient creates a client for typeName. desc must already carry absolute URLs.
func NewResourceClient(typeName string, desc formview.ResourceDescriptor, tr *Transport) *ResourceClient {
	return &ResourceClient{typeName: typeName, desc: desc, tr: tr}
}

// Type returns the entity type name.
func (c *ResourceClient) Type() string { return c.typeName }

// Descriptor returns the endpoint set of the type.
func (c *ResourceClient) Descriptor() formview.ResourceDescriptor { return c.desc }

// Schema fetches the type's schema.
func (c *ResourceClient) Schema(ctx context.Context) (*formview.Schema, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, c.desc.SchemaPath, nil, &raw); err != nil {
		return nil, err
	}
	schema, err := formview.ParseSchema(raw)
	if err != nil {
		return nil, fmt.Errorf("parse schema of %s: %w", c.typeName, err)
	}
	return schema, nil
}

// Load fetches the document with id, or queries the collection with params when id is empty.
func (c *ResourceClient) Load(ctx context.Context, id string, params formview.Params) (formview.Document, error) {
	target := c.desc.Path
	if id != "" {
		target += "/" + url.PathEscape(id)
	}
	var doc formview.Document
	if err := c.do(ctx, http.MethodGet, withQuery(target, loadQuery(params)), nil, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Save creates or updates doc. Without _id it is created with POST; with _id only it
// is created under that id; with _id and _rev it is updated. Files switch the
// request to a multipart upload.
func (c *ResourceClient) Save(ctx context.Context, doc formview.Document, files []formview.Attachment) (formview.Document, error) {
	doc, err := doc.Clone()
	if err != nil {
		return nil, fmt.Errorf("clone document: %w", err)
	}
	if doc == nil {
		doc = formview.Document{}
	}
	method, target := c.saveTarget(doc)

	var saved formview.Document
	if len(files) > 0 {
		err = c.sendMultipart(ctx, method, target, doc, files, &saved)
	} else {
		err = c.do(ctx, method, target, doc, &saved)
	}
	if err != nil {
		if fe, ok := formview.AsFormError(err); ok && formview.IsValidationError(err) {
			EmitValidationFailures(ctx, c.typeName, len(fe.Errors))
		}
		return nil, err
	}
	return saved, nil
}

func (c *ResourceClient) saveTarget(doc formview.Document) (string, string) {
	id, rev := doc.ID(), doc.Rev()
	switch {
	case id != "" && rev != "":
		return http.MethodPut, c.desc.Path + "/" + url.PathEscape(id) + "/" + url.PathEscape(rev)
	case id != "":
		return http.MethodPut, c.desc.Path + "/" + url.PathEscape(id)
	}
	return http.MethodPost, c.desc.Path
}

// Destroy deletes doc. It fails before any request when _id or _rev is missing.
func (c *ResourceClient) Destroy(ctx context.Context, doc formview.Document) error {
	if doc.ID() == "" || doc.Rev() == "" {
		return formview.NewMissingIdentityError()
	}
	target := c.desc.Path + "/" + url.PathEscape(doc.ID()) + "/" + url.PathEscape(doc.Rev())
	return c.do(ctx, http.MethodDelete, target, nil, nil)
}

// View queries a named view of the type.
func (c *ResourceClient) View(ctx context.Context, name string, params formview.Params) (*formview.ViewResult, error) {
	target, ok := c.desc.ViewPaths[name]
	if !ok || target == "" {
		return nil, formview.NewUnknownViewError(c.typeName, name)
	}
	return c.query(ctx, target, params)
}

// Search queries a named search index of the type.
func (c *ResourceClient) Search(ctx context.Context, name string, params formview.Params) (*formview.ViewResult, error) {
	target, ok := c.desc.SearchPaths[name]
	if !ok || target == "" {
		return nil, formview.NewUnknownSearchIndexError(c.typeName, name)
	}
	return c.query(ctx, target, params)
}

func (c *ResourceClient) query(ctx context.Context, target string, params formview.Params) (*formview.ViewResult, error) {
	var res formview.ViewResult
	if err := c.do(ctx, http.MethodGet, withQuery(target, viewQuery(params)), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// do sends a JSON request on the primary client and decodes a 2xx body into out.
func (c *ResourceClient) do(ctx context.Context, method, target string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return requestFailure(err, method, target)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.roundTrip(ctx, c.tr.client, req, out)
}

// sendMultipart uploads doc with its files on the raw client.
func (c *ResourceClient) sendMultipart(ctx context.Context, method, target string, doc formview.Document, files []formview.Attachment, out any) error {
	payload, contentType, err := c.multipartBody(doc, files)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, target, payload)
	if err != nil {
		return requestFailure(err, method, target)
	}
	req.Header.Set("Content-Type", contentType)
	copyHeaders(req.Header, c.tr.headers)
	return c.roundTrip(ctx, c.tr.raw, req, out)
}

func (c *ResourceClient) multipartBody(doc formview.Document, files []formview.Attachment) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	encoded, err := json.Marshal(doc)
	if err != nil {
		return nil, "", fmt.Errorf("encode document: %w", err)
	}
	fields := [][2]string{{formview.FieldType, c.typeName}, {"doc", string(encoded)}}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("write multipart field %s: %w", f[0], err)
		}
	}
	for i, file := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file%d"; filename="%s"`, i, escapeQuotes(file.Name)))
		ct := file.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("create multipart file%d: %w", i, err)
		}
		if _, err := part.Write(file.Data); err != nil {
			return nil, "", fmt.Errorf("write multipart file%d: %w", i, err)
		}
	}
	if err := w.WriteField("numFiles", strconv.Itoa(len(files))); err != nil {
		return nil, "", fmt.Errorf("write multipart field numFiles: %w", err)
	}
	if id := doc.ID(); id != "" {
		if err := w.WriteField(formview.FieldID, id); err != nil {
			return nil, "", fmt.Errorf("write multipart field _id: %w", err)
		}
	}
	if rev := doc.Rev(); rev != "" {
		if err := w.WriteField(formview.FieldRev, rev); err != nil {
			return nil, "", fmt.Errorf("write multipart field _rev: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

func (c *ResourceClient) roundTrip(ctx context.Context, client *http.Client, req *http.Request, out any) error {
	method, target := req.Method, req.URL.String()
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		EmitLatency(ctx, method, c.typeName, 0, time.Since(start).Milliseconds())
		zap.S().Debugw("resource request failed", "method", method, "url", target, "error", err)
		return requestFailure(err, method, target)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	elapsed := time.Since(start).Milliseconds()
	EmitLatency(ctx, method, c.typeName, resp.StatusCode, elapsed)
	zap.S().Debugw("resource request", "method", method, "url", target, "status", resp.StatusCode, "latency_ms", elapsed)
	if err != nil {
		return requestFailure(err, method, target)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return normalizeResponse(resp.StatusCode, data, method, target)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return invalidResponse(err, resp.StatusCode, method, target)
	}
	return nil
}

// viewQuery JSON-encodes view and search parameters, so strings arrive quoted and
// structured keys survive the query string intact.
func viewQuery(params formview.Params) url.Values {
	q := make(url.Values, len(params))
	for k, v := range params {
		q.Set(k, jsonParam(v))
	}
	return q
}

// loadQuery encodes load parameters: strings are sent as is.
func loadQuery(params formview.Params) url.Values {
	q := make(url.Values, len(params))
	for k, v := range params {
		if s, ok := v.(string); ok {
			q.Set(k, s)
			continue
		}
		q.Set(k, jsonParam(v))
	}
	return q
}

func jsonParam(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func withQuery(target string, q url.Values) string {
	if len(q) == 0 {
		return target
	}
	return target + "?" + q.Encode()
}

func escapeQuotes(s string) string {
	var b bytes.Buffer
	for _, r := range s {
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
