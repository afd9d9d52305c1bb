package k8s

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	defaultTokenFile     = "/var/run/secrets/kubernetes.io/serviceaccount/token"
	defaultNamespaceFile = "/var/run/secrets/kubernetes.io/serviceaccount/namespace"
	defaultCAFile        = "/var/run/secrets/kubernetes.io/serviceaccount/ca.crt"

	// Projected service account tokens rotate; the file is re-read at this
	// interval.
	tokenRefreshInterval = time.Minute
)

var (
	ErrNotFound      = errors.New("kubernetes resource not found")
	ErrAlreadyExists = errors.New("kubernetes resource already exists")
	ErrUnauthorized  = errors.New("kubernetes request unauthorized")
	ErrForbidden     = errors.New("kubernetes request forbidden")
	ErrInvalid       = errors.New("kubernetes resource invalid")
)

type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("kubernetes api error (status=%d)", e.StatusCode)
	}
	return fmt.Sprintf("kubernetes api error (status=%d): %s", e.StatusCode, body)
}

// Resource names a namespaced custom resource collection.
type Resource struct {
	Group   string
	Version string
	Plural  string
}

func (r Resource) path(namespace, name string) string {
	p := fmt.Sprintf("/apis/%s/%s/namespaces/%s/%s", r.Group, r.Version, url.PathEscape(namespace), r.Plural)
	if name != "" {
		p += "/" + url.PathEscape(name)
	}
	return p
}

type Client struct {
	baseURL   string
	namespace string
	http      *http.Client
}

// NewClient builds a client against an explicit API server. The http client
// is expected to carry authentication.
func NewClient(baseURL, namespace string, httpClient *http.Client) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("kubernetes api url is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:   baseURL,
		namespace: strings.TrimSpace(namespace),
		http:      httpClient,
	}, nil
}

func NewInClusterClient() (*Client, error) {
	host := strings.TrimSpace(os.Getenv("KUBERNETES_SERVICE_HOST"))
	port := strings.TrimSpace(os.Getenv("KUBERNETES_SERVICE_PORT"))
	baseURL := "https://kubernetes.default.svc"
	if host != "" {
		if port == "" {
			port = "443"
		}
		baseURL = "https://" + host + ":" + port
	}

	namespaceBytes, err := os.ReadFile(defaultNamespaceFile)
	if err != nil {
		return nil, fmt.Errorf("read serviceaccount namespace: %w", err)
	}
	namespace := strings.TrimSpace(string(namespaceBytes))
	if namespace == "" {
		return nil, errors.New("serviceaccount namespace is empty")
	}

	caBytes, err := os.ReadFile(defaultCAFile)
	if err != nil {
		return nil, fmt.Errorf("read serviceaccount ca: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caBytes) {
		return nil, errors.New("invalid serviceaccount ca bundle")
	}

	tokens := &fileTokenSource{path: defaultTokenFile}
	if _, err := tokens.Token(); err != nil {
		return nil, err
	}
	transport := &oauth2.Transport{
		Source: oauth2.ReuseTokenSource(nil, tokens),
		Base: &http.Transport{
			TLSClientConfig: &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12},
		},
	}
	return NewClient(baseURL, namespace, &http.Client{Transport: transport, Timeout: 15 * time.Second})
}

// fileTokenSource reads the service account token from disk.
type fileTokenSource struct {
	path string
}

func (s *fileTokenSource) Token() (*oauth2.Token, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read serviceaccount token: %w", err)
	}
	token := strings.TrimSpace(string(raw))
	if token == "" {
		return nil, errors.New("serviceaccount token is empty")
	}
	return &oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(tokenRefreshInterval),
	}, nil
}

func (c *Client) Namespace() string {
	return c.namespace
}

func (c *Client) resolveNamespace(namespace string) string {
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		return c.namespace
	}
	return namespace
}

// Create posts obj into the namespaced collection and decodes the stored
// object into out when out is non-nil.
func (c *Client) Create(ctx context.Context, res Resource, namespace string, obj any, out any) error {
	namespace = c.resolveNamespace(namespace)
	body, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", res.Plural, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+res.path(namespace, ""), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) Get(ctx context.Context, res Resource, namespace, name string, out any) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%s name is required", res.Plural)
	}
	namespace = c.resolveNamespace(namespace)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+res.path(namespace, name), nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

// List fetches the collection filtered by a label selector.
func (c *Client) List(ctx context.Context, res Resource, namespace, labelSelector string, out any) error {
	namespace = c.resolveNamespace(namespace)
	u := c.baseURL + res.path(namespace, "")
	if labelSelector = strings.TrimSpace(labelSelector); labelSelector != "" {
		u += "?" + url.Values{"labelSelector": []string{labelSelector}}.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if req == nil {
		return errors.New("request is required")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode kubernetes response: %w", err)
		}
		return nil
	case http.StatusConflict:
		return ErrAlreadyExists
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusUnprocessableEntity, http.StatusBadRequest:
		return fmt.Errorf("%w: %w", ErrInvalid, &APIError{StatusCode: resp.StatusCode, Body: string(body)})
	default:
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
}
