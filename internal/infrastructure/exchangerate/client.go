package exchangerate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/finadmin/backend/internal/domain/fx"
	"github.com/finadmin/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxResponseSize = 1 << 20

var (
	// ErrProviderUnavailable wraps transport failures
	ErrProviderUnavailable = errors.New("exchangerate: provider unavailable")
	// ErrProviderRequestFailed wraps non-2xx answers and provider-reported errors
	ErrProviderRequestFailed = errors.New("exchangerate: request failed")
	// ErrMalformedResponse is returned when the payload cannot be used
	ErrMalformedResponse = errors.New("exchangerate: malformed response")
)

// Client fetches the latest rate table over HTTP
type Client struct {
	config     *Config
	httpClient *http.Client
	logger     *zap.Logger
	now        func() time.Time
}

// NewClient creates a rate API client
func NewClient(config *Config, logger *zap.Logger) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("exchangerate"),
		now:        time.Now,
	}, nil
}

// FetchLatest requests the latest table for base
func (c *Client) FetchLatest(ctx context.Context, base valueobject.Currency) (*fx.Snapshot, error) {
	endpoint, err := c.endpoint(base)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("exchangerate: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("apikey", c.config.APIKey)
	}

	start := c.now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("exchangerate: failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: HTTP %d", ErrProviderRequestFailed, resp.StatusCode)
	}

	snap, err := c.parse(body, base)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("fetched latest rates",
		zap.String("base", base.String()),
		zap.Int("rates", len(snap.Table.Rates)),
		zap.Duration("elapsed", c.now().Sub(start)),
	)
	return snap, nil
}

func (c *Client) endpoint(base valueobject.Currency) (string, error) {
	if strings.Contains(c.config.APIURL, "{base}") {
		return strings.ReplaceAll(c.config.APIURL, "{base}", url.PathEscape(base.String())), nil
	}
	u, err := url.Parse(c.config.APIURL)
	if err != nil {
		return "", fmt.Errorf("exchangerate: invalid api url: %w", err)
	}
	q := u.Query()
	q.Set("base", base.String())
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) parse(body []byte, requested valueobject.Currency) (*fx.Snapshot, error) {
	var payload latestResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if payload.Result == "error" {
		return nil, fmt.Errorf("%w: %s", ErrProviderRequestFailed, payload.ErrorType)
	}

	base := requested
	if code := payload.base(); code != "" {
		parsed, err := valueobject.ParseCurrency(code)
		if err != nil {
			return nil, fmt.Errorf("%w: base %q", ErrMalformedResponse, code)
		}
		base = parsed
	}

	fetchedAt := c.now()
	table := fx.Table{
		Base:  base,
		Date:  c.rateDate(&payload, fetchedAt),
		Rates: make(map[valueobject.Currency]decimal.Decimal, len(payload.rates())),
	}
	for code, raw := range payload.rates() {
		cur, err := valueobject.ParseCurrency(code)
		if err != nil {
			continue
		}
		rate, err := decimal.NewFromString(strings.Trim(string(raw), `"`))
		if err != nil || !rate.IsPositive() {
			c.logger.Warn("skipping unusable rate", zap.String("currency", code), zap.ByteString("value", raw))
			continue
		}
		table.Rates[cur] = rate
	}
	delete(table.Rates, base)
	if len(table.Rates) == 0 {
		return nil, fmt.Errorf("%w: no rates", ErrMalformedResponse)
	}

	return &fx.Snapshot{
		Table:     table,
		Provider:  c.config.ProviderName,
		FetchedAt: fetchedAt,
		Raw:       body,
	}, nil
}

func (c *Client) rateDate(p *latestResponse, fallback time.Time) time.Time {
	if p.Date != "" {
		if d, err := time.Parse("2006-01-02", p.Date); err == nil {
			return d
		}
	}
	if p.TimeLastUpdate > 0 {
		return fx.DateOf(time.Unix(p.TimeLastUpdate, 0).UTC())
	}
	return fx.DateOf(fallback.UTC())
}

var _ fx.RateFeed = (*Client)(nil)
