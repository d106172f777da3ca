package census

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Sentinel errors for caller classification.
var (
	// ErrNoAPIKey means the credential is absent. Set CENSUS_API_KEY (or
	// census.api_key in config.yaml) before running any fetch.
	ErrNoAPIKey = eris.New("census: API key not configured")
	// ErrBadStatus means the API answered with a non-200 status.
	ErrBadStatus = eris.New("census: unexpected response status")
	// ErrShortResponse means the API answered 200 but without a data row.
	ErrShortResponse = eris.New("census: response has no data rows")
)

// Options configures the API client.
type Options struct {
	BaseURL   string
	APIKey    string
	UserAgent string
	Timeout   time.Duration
	// RateLimit is requests per second against api.census.gov. The API
	// tolerates modest query rates; we stay polite rather than fast.
	RateLimit float64
}

// Client talks to the Census Bureau data API. Requests run one at a time and
// are never retried automatically: a failed fetch surfaces immediately so the
// operator can fix the cause and re-run.
type Client struct {
	client    *http.Client
	baseURL   string
	key       string
	userAgent string
	limiter   *rate.Limiter
}

// NewClient creates a Client with the given options.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.census.gov/data"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "hanover-cli/1.0"
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 2
	}
	return &Client{
		client:    &http.Client{Timeout: opts.Timeout},
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		key:       opts.APIKey,
		userAgent: opts.UserAgent,
		limiter:   rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
	}
}

// Get queries one dataset, e.g. Get(ctx, "2023/acs/acs5", vars,
// "zip code tabulation area:21076"). The returned table keeps the verbatim
// response body so callers can archive exactly what the API said.
func (c *Client) Get(ctx context.Context, dataset string, vars []string, geo string) (*Table, error) {
	if c.key == "" {
		return nil, ErrNoAPIKey
	}
	if len(vars) == 0 {
		return nil, eris.Errorf("census: no variables requested for %s", dataset)
	}

	endpoint := c.baseURL + "/" + dataset
	q := url.Values{}
	q.Set("get", strings.Join(vars, ","))
	q.Set("for", geo)
	q.Set("key", c.key)

	start := time.Now()
	body, err := c.get(ctx, endpoint+"?"+q.Encode())
	if err != nil {
		return nil, err
	}

	t, err := ParseTable(body)
	if err != nil {
		return nil, eris.Wrapf(err, "census: dataset %s geography %q", dataset, geo)
	}
	t.Endpoint = endpoint
	t.Dataset = dataset
	t.Variables = vars
	t.Geography = geo

	zap.L().Info("census fetch complete",
		zap.String("dataset", dataset),
		zap.Int("variables", len(vars)),
		zap.String("geography", geo),
		zap.Duration("took", time.Since(start)),
	)

	return t, nil
}

// VariableDef is one entry in a dataset's variable index.
type VariableDef struct {
	Label   string `json:"label"`
	Concept string `json:"concept"`
}

// Variables fetches the dataset's complete variable index. The index endpoint
// does not require a key.
func (c *Client) Variables(ctx context.Context, dataset string) (map[string]VariableDef, error) {
	body, err := c.get(ctx, c.baseURL+"/"+dataset+"/variables.json")
	if err != nil {
		return nil, err
	}

	var idx struct {
		Variables map[string]VariableDef `json:"variables"`
	}
	if err := json.Unmarshal(body, &idx); err != nil {
		return nil, eris.Wrapf(err, "census: unmarshal %s variable index", dataset)
	}
	if len(idx.Variables) == 0 {
		return nil, eris.Errorf("census: %s variable index is empty", dataset)
	}
	return idx.Variables, nil
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "census: rate limiter wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "census: create request")
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "census: request %s", redactKey(rawURL))
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Wrapf(ErrBadStatus, "census: http %d from %s", resp.StatusCode, redactKey(rawURL))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "census: read response")
	}
	return body, nil
}

// redactKey strips the key parameter from a request URL so the credential
// never reaches logs or error messages.
func redactKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<unparseable url>"
	}
	q := u.Query()
	if q.Has("key") {
		q.Set("key", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
