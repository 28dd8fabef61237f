// Package coupang is the signed HTTP client for the Coupang marketplace Open
// API coupon endpoints. Requests carry the platform's HMAC-SHA256 "CEA"
// Authorization header; responses missing an expected field are reported as
// errors so the orchestrator can treat them as unconditional step failures.
package coupang

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"coupon-issuer/internal/domain"
)

const (
	instantCouponPath  = "/v2/providers/fms/apis/api/v2/vendors/%s/coupon"
	instantStatusPath  = "/v2/providers/fms/apis/api/v1/vendors/%s/requested/%s"
	instantItemsPath   = "/v2/providers/fms/apis/api/v1/vendors/%s/coupons/%d/items"
	downloadCouponPath = "/v2/providers/marketplace_openapi/apis/api/v1/coupons"
	downloadItemsPath  = "/v2/providers/marketplace_openapi/apis/api/v1/coupon-items"

	dateLayout = "060102T150405"
)

// Wire names for discount methods differ from the canonical vocabulary.
var wireDiscountMethod = map[domain.DiscountMethod]string{
	domain.MethodRate:             "RATE",
	domain.MethodFixedPrice:       "PRICE",
	domain.MethodFixedPerQuantity: "FIXED_WITH_QUANTITY",
}

// Client calls the coupon endpoints on behalf of a single vendor account.
// Credentials are read-only after construction; the client is safe to share
// across a run.
type Client struct {
	baseURL    string
	accessKey  string
	secretKey  string
	vendorID   string
	contractID int64
	httpClient *http.Client
	now        func() time.Time
}

func NewClient(baseURL, accessKey, secretKey, vendorID string, contractID int64, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		accessKey:  accessKey,
		secretKey:  secretKey,
		vendorID:   vendorID,
		contractID: contractID,
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
}

// authorization builds the CEA header: the signed date in GMT concatenated
// with method, path and query (the "?" itself is not signed), HMAC-SHA256
// signed with the secret key.
func (c *Client) authorization(method, rawPath string) string {
	path, query, _ := strings.Cut(rawPath, "?")
	signedDate := c.now().UTC().Format(dateLayout) + "Z"
	message := signedDate + method + path + query
	mac := hmac.New(sha256.New, []byte(c.secretKey))
	mac.Write([]byte(message))
	signature := hex.EncodeToString(mac.Sum(nil))
	return fmt.Sprintf("CEA algorithm=HmacSHA256, access-key=%s, signed-date=%s, signature=%s",
		c.accessKey, signedDate, signature)
}

// do sends a signed request and decodes the body into out (when non-nil).
// HTTP errors and platform error envelopes both surface as errors carrying
// the platform's message.
func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json;charset=UTF-8")
	req.Header.Set("Authorization", c.authorization(method, path))

	log.WithFields(log.Fields{"method": method, "path": path}).Debug("Calling coupon API")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, platformError(data))
	}

	// Some endpoints report errors with a 200 status and a code field in
	// the body.
	var envelope struct {
		Code json.Number `json:"code"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil {
		if code, err := envelope.Code.Int64(); err == nil && code >= 400 {
			return fmt.Errorf("API error (code %d): %s", code, platformError(data))
		}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func platformError(data []byte) string {
	var e struct {
		ErrorMessage string `json:"errorMessage"`
		Message      string `json:"message"`
	}
	if err := json.Unmarshal(data, &e); err == nil {
		if e.ErrorMessage != "" {
			return e.ErrorMessage
		}
		if e.Message != "" {
			return e.Message
		}
	}
	return "unknown error"
}

// instantEnvelope wraps the asynchronous endpoints' responses.
type instantEnvelope struct {
	Data struct {
		Content struct {
			RequestedID       string       `json:"requestedId"`
			Status            string       `json:"status"`
			CouponID          *int64       `json:"couponId"`
			FailedVendorItems []failedItem `json:"failedVendorItems"`
		} `json:"content"`
	} `json:"data"`
}

type failedItem struct {
	VendorItemID int64  `json:"vendorItemId"`
	Reason       string `json:"reason"`
}

// CreateInstantCoupon submits an instant coupon for creation and returns the
// request handle to poll.
func (c *Client) CreateInstantCoupon(ctx context.Context, req domain.CouponRequest, start, end time.Time) (string, error) {
	payload := map[string]interface{}{
		"contractId":       c.contractID,
		"name":             req.Name,
		"maxDiscountPrice": req.MaxDiscountPrice,
		"discount":         req.DiscountValue,
		"startAt":          formatValidity(start),
		"endAt":            formatValidity(end),
		"type":             wireDiscountMethod[req.Method],
	}

	var resp instantEnvelope
	path := fmt.Sprintf(instantCouponPath, c.vendorID)
	if err := c.do(ctx, http.MethodPost, path, payload, &resp); err != nil {
		return "", err
	}
	if resp.Data.Content.RequestedID == "" {
		return "", fmt.Errorf("instant coupon creation returned no request id")
	}
	return resp.Data.Content.RequestedID, nil
}

// InstantRequestStatus polls an asynchronous request handle. The wire state
// REQUESTED maps to PENDING; anything other than REQUESTED or DONE is a
// failure and the message carries whatever detail the platform reported.
func (c *Client) InstantRequestStatus(ctx context.Context, requestID string) (domain.RequestStatus, error) {
	var resp instantEnvelope
	path := fmt.Sprintf(instantStatusPath, c.vendorID, requestID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return domain.RequestStatus{}, err
	}

	content := resp.Data.Content
	status := domain.RequestStatus{}
	if content.CouponID != nil {
		status.CouponID = *content.CouponID
	}

	switch content.Status {
	case "REQUESTED":
		status.State = domain.RemoteStatePending
	case "DONE":
		status.State = domain.RemoteStateDone
	default:
		status.State = domain.RemoteStateFailed
		status.Message = fmt.Sprintf("request state %s", content.Status)
		if len(content.FailedVendorItems) > 0 {
			status.Message += ": " + formatFailedItems(content.FailedVendorItems)
		}
	}
	return status, nil
}

func formatFailedItems(items []failedItem) string {
	var b bytes.Buffer
	for i, item := range items {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%d: %s", item.VendorItemID, item.Reason)
	}
	return b.String()
}

// AssignInstantItems requests item assignment for a created instant coupon
// and returns the request handle to poll.
func (c *Client) AssignInstantItems(ctx context.Context, couponID int64, items []int64) (string, error) {
	payload := map[string]interface{}{
		"vendorItems": items,
	}

	var resp instantEnvelope
	path := fmt.Sprintf(instantItemsPath, c.vendorID, couponID)
	if err := c.do(ctx, http.MethodPost, path, payload, &resp); err != nil {
		return "", err
	}
	if resp.Data.Content.RequestedID == "" {
		return "", fmt.Errorf("instant item assignment returned no request id")
	}
	return resp.Data.Content.RequestedID, nil
}

// CreateDownloadCoupon creates a download coupon synchronously and returns
// the coupon id.
func (c *Client) CreateDownloadCoupon(ctx context.Context, req domain.CouponRequest, operator string, start, end time.Time) (int64, error) {
	policy := map[string]interface{}{
		"title":                req.Name,
		"typeOfDiscount":       wireDiscountMethod[req.Method],
		"description":          fmt.Sprintf("%s (valid %d days)", req.Name, req.ValidityDays),
		"minimumPrice":         req.MinPurchasePrice,
		"discount":             req.DiscountValue,
		"maximumDiscountPrice": req.MaxDiscountPrice,
		"maximumPerDaily":      req.IssueCount,
	}
	payload := map[string]interface{}{
		"title":      req.Name,
		"contractId": c.contractID,
		"couponType": "DOWNLOAD",
		"startDate":  formatValidity(start),
		"endDate":    formatValidity(end),
		"userId":     operator,
		"policies":   []interface{}{policy},
	}

	var resp struct {
		CouponID     *int64 `json:"couponId"`
		CouponStatus string `json:"couponStatus"`
	}
	if err := c.do(ctx, http.MethodPost, downloadCouponPath, payload, &resp); err != nil {
		return 0, err
	}
	if resp.CouponID == nil {
		return 0, fmt.Errorf("download coupon creation returned no coupon id")
	}
	return *resp.CouponID, nil
}

// downloadAssignResult is one element of the assignment response. The
// endpoint is documented inconsistently (single object vs. array), so the
// decoder accepts both and reads the first element.
type downloadAssignResult struct {
	RequestResultStatus string `json:"requestResultStatus"`
	ErrorMessage        string `json:"errorMessage"`
}

// AssignDownloadItems binds items to a download coupon. On failure the
// platform destroys the just-created coupon as a documented side effect;
// callers record the failure and must not attempt compensation.
func (c *Client) AssignDownloadItems(ctx context.Context, couponID int64, operator string, items []int64) error {
	payload := map[string]interface{}{
		"couponItems": []interface{}{
			map[string]interface{}{
				"couponId":      couponID,
				"userId":        operator,
				"vendorItemIds": items,
			},
		},
	}

	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPut, downloadItemsPath, payload, &raw); err != nil {
		return err
	}

	result, err := decodeDownloadAssign(raw)
	if err != nil {
		return err
	}
	if result.RequestResultStatus != "SUCCESS" {
		msg := result.ErrorMessage
		if msg == "" {
			msg = fmt.Sprintf("assignment state %s", result.RequestResultStatus)
		}
		return fmt.Errorf("download item assignment failed: %s", msg)
	}
	return nil
}

func decodeDownloadAssign(raw json.RawMessage) (downloadAssignResult, error) {
	var list []downloadAssignResult
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) == 0 {
			return downloadAssignResult{}, fmt.Errorf("download item assignment returned an empty result")
		}
		return list[0], nil
	}
	var single downloadAssignResult
	if err := json.Unmarshal(raw, &single); err != nil {
		return downloadAssignResult{}, fmt.Errorf("failed to decode assignment result: %w", err)
	}
	return single, nil
}

// formatValidity renders a validity bound the way the platform expects.
func formatValidity(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
