package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tropicaldog17/folio/internal/models"
)

const yahooBaseURL = "https://query2.finance.yahoo.com"

// ErrYahooNoResult is returned when the chart endpoint knows nothing about a ticker.
var ErrYahooNoResult = errors.New("yahoo: no result")

// YahooProvider reads daily bars and instrument metadata from the Yahoo
// Finance v8 chart endpoint. Requests are throttled by a shared limiter.
type YahooProvider struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewYahooProvider creates a provider issuing at most rps requests per second.
func NewYahooProvider(rps float64, timeout time.Duration, logger *zap.Logger) *YahooProvider {
	if rps <= 0 {
		rps = 2
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &YahooProvider{
		baseURL:    yahooBaseURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		logger:     logger,
	}
}

type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency       string `json:"currency"`
				Symbol         string `json:"symbol"`
				ExchangeName   string `json:"exchangeName"`
				FullExchange   string `json:"fullExchangeName"`
				InstrumentType string `json:"instrumentType"`
				LongName       string `json:"longName"`
				ShortName      string `json:"shortName"`
				GMTOffset      int64  `json:"gmtoffset"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchPrices returns daily bars of every ticker between start and end. A
// failing ticker does not stop the others; the returned prices are usable
// even when the error is non-nil.
func (p *YahooProvider) FetchPrices(ctx context.Context, tickers []string, start, end time.Time) ([]*models.Price, error) {
	var all []*models.Price
	var errs []error
	for _, ticker := range tickers {
		prices, err := p.fetchTicker(ctx, ticker, start, end)
		if err != nil {
			p.logger.Warn("Failed to fetch prices", zap.String("ticker", ticker), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", ticker, err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		all = append(all, prices...)
	}
	return all, errors.Join(errs...)
}

func (p *YahooProvider) fetchTicker(ctx context.Context, ticker string, start, end time.Time) ([]*models.Price, error) {
	params := url.Values{}
	params.Set("period1", strconv.FormatInt(models.DateOnly(start).Unix(), 10))
	params.Set("period2", strconv.FormatInt(models.DateOnly(end).AddDate(0, 0, 1).Unix(), 10))
	params.Set("interval", "1d")
	params.Set("events", "history")

	chart, err := p.chart(ctx, ticker, params)
	if err != nil {
		return nil, err
	}
	r := chart.Chart.Result[0]
	if len(r.Indicators.Quote) == 0 {
		return nil, nil
	}
	q := r.Indicators.Quote[0]
	symbol := strings.ToUpper(ticker)

	prices := make([]*models.Price, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		closePx := at(q.Close, i)
		if closePx == nil {
			continue
		}
		c := decimal.NewFromFloat(*closePx)
		price := &models.Price{
			Ticker: symbol,
			Date:   models.DateOnly(time.Unix(ts+r.Meta.GMTOffset, 0).UTC()),
			Open:   orDefault(at(q.Open, i), c),
			High:   orDefault(at(q.High, i), c),
			Low:    orDefault(at(q.Low, i), c),
			Close:  c,
		}
		if i < len(q.Volume) && q.Volume[i] != nil {
			v := *q.Volume[i]
			price.Volume = &v
		}
		prices = append(prices, price)
	}
	return prices, nil
}

// FetchTickerInfo reads the instrument metadata from the chart meta block.
func (p *YahooProvider) FetchTickerInfo(ctx context.Context, ticker string) (*models.TickerInfo, error) {
	params := url.Values{}
	params.Set("range", "5d")
	params.Set("interval", "1d")

	chart, err := p.chart(ctx, ticker, params)
	if err != nil {
		return nil, err
	}
	meta := chart.Chart.Result[0].Meta
	if meta.Currency == "" {
		return nil, fmt.Errorf("yahoo: no currency for %s", ticker)
	}
	info := &models.TickerInfo{
		Ticker:   strings.ToUpper(ticker),
		Currency: strings.ToUpper(meta.Currency),
	}
	name := meta.LongName
	if name == "" {
		name = meta.ShortName
	}
	exchange := meta.FullExchange
	if exchange == "" {
		exchange = meta.ExchangeName
	}
	info.LongName = nonEmpty(name)
	info.Exchange = nonEmpty(exchange)
	info.AssetType = nonEmpty(strings.ToUpper(meta.InstrumentType))
	return info, nil
}

func (p *YahooProvider) chart(ctx context.Context, ticker string, params url.Values) (*yahooChartResponse, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?%s", p.baseURL, url.PathEscape(strings.ToUpper(ticker)), params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "folio/1.0")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var chart yahooChartResponse
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("yahoo http %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("failed to decode yahoo response: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo %s: %s", chart.Chart.Error.Code, chart.Chart.Error.Description)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo http %d", resp.StatusCode)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, ErrYahooNoResult
	}
	return &chart, nil
}

func at(values []*float64, i int) *float64 {
	if i < len(values) {
		return values[i]
	}
	return nil
}

func orDefault(v *float64, def decimal.Decimal) decimal.Decimal {
	if v == nil {
		return def
	}
	return decimal.NewFromFloat(*v)
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
