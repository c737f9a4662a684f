package client

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
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/go-playground/validator/v10"
	"github.com/inscription-c/zins/constants"
)

var validate = validator.New()

var ErrEmptyCookie = errors.New("rpc cookie file is empty")

// clientOptions is a struct that holds the configuration options for the client.
type clientOptions struct {
	URL           string `validate:"required,url"`
	User          string
	Password      string
	CookieFile    string
	Cert          string
	TLSSkipVerify bool
	Timeout       time.Duration
}

// ClientOption is a function type that sets fields of clientOptions.
type ClientOption func(*clientOptions)

// WithURL sets the JSON-RPC endpoint.
func WithURL(url string) ClientOption {
	return func(o *clientOptions) {
		o.URL = url
	}
}

// WithUser sets the basic auth user.
func WithUser(user string) ClientOption {
	return func(o *clientOptions) {
		o.User = user
	}
}

// WithPassword sets the basic auth password.
func WithPassword(password string) ClientOption {
	return func(o *clientOptions) {
		o.Password = password
	}
}

// WithCookieFile reads "user:password" credentials from a node cookie file
// on every request. It takes precedence over WithUser and WithPassword.
func WithCookieFile(file string) ClientOption {
	return func(o *clientOptions) {
		o.CookieFile = file
	}
}

// WithCert sets a PEM certificate used to verify the node.
func WithCert(cert string) ClientOption {
	return func(o *clientOptions) {
		o.Cert = cert
	}
}

// WithTLSSkipVerify disables certificate verification.
func WithTLSSkipVerify(skip bool) ClientOption {
	return func(o *clientOptions) {
		o.TLSSkipVerify = skip
	}
}

// WithTimeout bounds each call that is not already bounded by its context.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.Timeout = timeout
	}
}

// Client is a JSON-RPC client for zcashd, zebrad and zallet.
type Client struct {
	opts       *clientOptions
	httpClient *http.Client
	id         atomic.Uint64
}

// NewClient creates a Client from opts.
func NewClient(opts ...ClientOption) (*Client, error) {
	options := &clientOptions{Timeout: constants.DefaultRPCTimeout}
	for _, opt := range opts {
		opt(options)
	}
	if err := validate.Struct(options); err != nil {
		return nil, err
	}
	c := &Client{opts: options}
	httpClient, err := c.newHTTPClient()
	if err != nil {
		return nil, err
	}
	c.httpClient = httpClient
	return c, nil
}

// Response is a JSON-RPC reply envelope.
type Response struct {
	Jsonrpc btcjson.RPCVersion `json:"jsonrpc"`
	Result  interface{}        `json:"result"`
	Error   *btcjson.RPCError  `json:"error"`
	ID      *interface{}       `json:"id"`
}

// SendRequest calls method with params and decodes the result into result.
func (c *Client) SendRequest(ctx context.Context, method string, result interface{}, params ...interface{}) error {
	if params == nil {
		params = []interface{}{}
	}
	req, err := btcjson.NewRequest(btcjson.RpcVersion2, c.id.Add(1), method, params)
	if err != nil {
		return fmt.Errorf("%s request: %w", method, err)
	}
	marshalledJSON, err := json.Marshal(req)
	if err != nil {
		return err
	}

	if _, ok := ctx.Deadline(); !ok && c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}
	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.URL, bytes.NewReader(marshalledJSON))
	if err != nil {
		return err
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	user, password, err := c.credentials()
	if err != nil {
		return err
	}
	if user != "" || password != "" {
		httpRequest.SetBasicAuth(user, password)
	}

	httpResponse, err := c.httpClient.Do(httpRequest)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	respBytes, err := io.ReadAll(httpResponse.Body)
	_ = httpResponse.Body.Close()
	if err != nil {
		return fmt.Errorf("error reading json reply: %w", err)
	}

	resp := &Response{
		Result: result,
	}
	if httpResponse.StatusCode < 200 || httpResponse.StatusCode >= 300 {
		// zcashd answers RPC errors with a 500 and a JSON error body
		if len(respBytes) > 0 && json.Unmarshal(respBytes, resp) == nil && resp.Error != nil {
			return fmt.Errorf("%s: %w", method, resp.Error)
		}
		if len(respBytes) == 0 {
			return fmt.Errorf("%s: %d %s", method, httpResponse.StatusCode, http.StatusText(httpResponse.StatusCode))
		}
		return fmt.Errorf("%s: %d %s", method, httpResponse.StatusCode, strings.TrimSpace(string(respBytes)))
	}
	if err := json.Unmarshal(respBytes, resp); err != nil {
		return fmt.Errorf("%s: decode reply: %w", method, err)
	}
	if resp.Error != nil {
		return fmt.Errorf("%s: %w", method, resp.Error)
	}
	return nil
}

func (c *Client) credentials() (string, string, error) {
	if c.opts.CookieFile == "" {
		return c.opts.User, c.opts.Password, nil
	}
	data, err := os.ReadFile(c.opts.CookieFile)
	if err != nil {
		return "", "", fmt.Errorf("read cookie: %w", err)
	}
	cookie := strings.TrimSpace(string(data))
	if cookie == "" {
		return "", "", ErrEmptyCookie
	}
	user, password, _ := strings.Cut(cookie, ":")
	return user, password, nil
}

// newHTTPClient returns a new HTTP client that is configured according to the
// TLS settings in the associated connection configuration.
func (c *Client) newHTTPClient() (*http.Client, error) {
	var tlsConfig *tls.Config
	if c.opts.Cert != "" {
		pem, err := os.ReadFile(c.opts.Cert)
		if err != nil {
			return nil, err
		}
		pool := x509.NewCertPool()
		pool.AppendCertsFromPEM(pem)
		tlsConfig = &tls.Config{
			RootCAs:            pool,
			InsecureSkipVerify: c.opts.TLSSkipVerify,
		}
	} else if c.opts.TLSSkipVerify {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	client := &http.Client{}
	if tlsConfig != nil {
		client.Transport = &http.Transport{
			TLSClientConfig: tlsConfig,
		}
	}
	return client, nil
}
