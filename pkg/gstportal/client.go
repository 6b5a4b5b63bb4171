package gstportal

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nidaro/nidaro-backend/pkg/logger"
)

const (
	searchByPANPath   = "/services/searchtpbypan"
	searchTaxpayer    = "/services/searchtp"
	captchaPath       = "/services/captcha"
	panToGSTINPath    = "/services/api/get/gstndtls"
	taxpayerPath      = "/services/api/search/taxpayerDetails"
	goodsServicesPath = "/services/api/search/goodservice"

	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:138.0) Gecko/20100101 Firefox/138.0"
)

// Client talks to the public taxpayer search on the GST portal. The portal has
// no API contract, it answers the same requests its own search page makes.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// GetCaptcha opens a portal session and fetches a captcha bound to it.
func (c *Client) GetCaptcha(ctx context.Context) (*Captcha, error) {
	const op = "get captcha"

	pageReq, err := c.newRequest(ctx, http.MethodGet, searchByPANPath, nil)
	if err != nil {
		return nil, err
	}
	pageReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	pageReq.Header.Set("Referer", c.baseURL+"/")

	pageResp, err := c.httpClient.Do(pageReq)
	if err != nil {
		return nil, c.unavailable(op, err)
	}
	_, _ = io.Copy(io.Discard, pageResp.Body)
	pageResp.Body.Close()
	if pageResp.StatusCode >= 500 {
		return nil, &PortalError{Kind: ErrUnavailable, Operation: op, StatusCode: pageResp.StatusCode}
	}
	jar := mergeCookies("", pageResp.Cookies())

	captchaURL := captchaPath + "?rnd=" + strconv.FormatFloat(rand.Float64(), 'f', -1, 64)
	req, err := c.newRequest(ctx, http.MethodGet, captchaURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "image/avif,image/jxl,image/webp,image/png,image/svg+xml,image/*;q=0.8,*/*;q=0.5")
	req.Header.Set("Referer", c.baseURL+searchByPANPath)
	if jar != "" {
		req.Header.Set("Cookie", jar)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.unavailable(op, err)
	}
	defer resp.Body.Close()

	image, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.unavailable(op, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(op, resp.StatusCode)
	}
	if len(image) == 0 {
		return nil, &PortalError{Kind: ErrUnavailable, Operation: op, StatusCode: resp.StatusCode, Message: "empty captcha image"}
	}

	return &Captcha{
		Image:   "data:image/png;base64," + base64.StdEncoding.EncodeToString(image),
		Cookies: mergeCookies(jar, resp.Cookies()),
	}, nil
}

// SearchByPAN resolves the GSTINs registered against a PAN.
func (c *Client) SearchByPAN(ctx context.Context, pan, captcha, cookies string) ([]string, error) {
	body, err := c.postJSON(ctx, "search by pan", panToGSTINPath, searchByPANPath, cookies, panSearchRequest{
		PAN:     pan,
		Captcha: captcha,
	})
	if err != nil {
		return nil, err
	}

	var result panSearchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &PortalError{Kind: ErrUnavailable, Operation: "search by pan", Message: "malformed response"}
	}

	gstins := make([]string, 0, len(result.GSTINResList))
	for _, item := range result.GSTINResList {
		if item.GSTIN != "" {
			gstins = append(gstins, item.GSTIN)
		}
	}
	return gstins, nil
}

// GetTaxpayerDetails fetches the registration record of a GSTIN.
func (c *Client) GetTaxpayerDetails(ctx context.Context, gstin, captcha, cookies string) (*TaxpayerDetails, error) {
	body, err := c.postJSON(ctx, "taxpayer details", taxpayerPath, searchTaxpayer, cookies, taxpayerRequest{
		GSTIN:   gstin,
		Captcha: captcha,
	})
	if err != nil {
		return nil, err
	}

	var details TaxpayerDetails
	if err := json.Unmarshal(body, &details); err != nil {
		return nil, &PortalError{Kind: ErrUnavailable, Operation: "taxpayer details", Message: "malformed response"}
	}
	if details.GSTIN == "" {
		details.GSTIN = gstin
	}
	return &details, nil
}

// GetGoodsServices fetches the goods and services a GSTIN trades in. It needs
// the cookies of a session that already solved a captcha.
func (c *Client) GetGoodsServices(ctx context.Context, gstin, cookies string) (*GoodsServices, error) {
	const op = "goods and services"

	req, err := c.newRequest(ctx, http.MethodGet, goodsServicesPath+"?gstin="+url.QueryEscape(gstin), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Referer", c.baseURL+searchTaxpayer)
	if cookies != "" {
		req.Header.Set("Cookie", cookies)
	}

	body, err := c.do(op, req)
	if err != nil {
		return nil, err
	}

	var goods GoodsServices
	if err := json.Unmarshal(body, &goods); err != nil {
		return nil, &PortalError{Kind: ErrUnavailable, Operation: op, Message: "malformed response"}
	}
	goods.Raw = json.RawMessage(body)
	return &goods, nil
}

func (c *Client) postJSON(ctx context.Context, op, path, referer, cookies string, payload interface{}) ([]byte, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Content-Type", "application/json;charset=utf-8")
	req.Header.Set("Origin", c.baseURL)
	req.Header.Set("Referer", c.baseURL+referer)
	if cookies != "" {
		req.Header.Set("Cookie", cookies)
	}

	return c.do(op, req)
}

// do executes the request and classifies the outcome. The portal reports a
// wrong captcha with HTTP 200 and an errorCode in the body.
func (c *Client) do(op string, req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.unavailable(op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.unavailable(op, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(op, resp.StatusCode)
	}

	var perr portalError
	if err := json.Unmarshal(body, &perr); err == nil && perr.code() != "" {
		logger.Warn("GST portal rejected request", map[string]interface{}{
			"operation":  op,
			"error_code": perr.code(),
		})
		return nil, &PortalError{
			Kind:       ErrRejected,
			Operation:  op,
			StatusCode: resp.StatusCode,
			ErrorCode:  perr.code(),
			Message:    perr.message(),
		}
	}
	return body, nil
}

// newRequest sets the browser headers the portal expects. Accept-Encoding is
// left to the transport so compressed bodies are decoded.
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("DNT", "1")
	return req, nil
}

func (c *Client) unavailable(op string, err error) error {
	logger.Error("GST portal request failed", err, map[string]interface{}{
		"operation": op,
	})
	return &PortalError{Kind: ErrUnavailable, Operation: op, Message: err.Error()}
}

func statusError(op string, status int) error {
	if status >= 500 {
		return &PortalError{Kind: ErrUnavailable, Operation: op, StatusCode: status}
	}
	return &PortalError{Kind: ErrRejected, Operation: op, StatusCode: status}
}

// mergeCookies folds Set-Cookie values into a Cookie header, later values win.
func mergeCookies(existing string, cookies []*http.Cookie) string {
	order := []string{}
	values := map[string]string{}

	for _, part := range strings.Split(existing, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || name == "" {
			continue
		}
		if _, seen := values[name]; !seen {
			order = append(order, name)
		}
		values[name] = value
	}
	for _, cookie := range cookies {
		if _, seen := values[cookie.Name]; !seen {
			order = append(order, cookie.Name)
		}
		values[cookie.Name] = cookie.Value
	}

	pairs := make([]string, 0, len(order))
	for _, name := range order {
		pairs = append(pairs, name+"="+values[name])
	}
	return strings.Join(pairs, "; ")
}
