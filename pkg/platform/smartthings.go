package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/raterudder/solarbridge/pkg/common"
	"github.com/raterudder/solarbridge/pkg/log"
	"github.com/raterudder/solarbridge/pkg/types"
)

const smartThingsService = "smartthings"

// SmartThings implements the Platform interface using the SmartThings REST API.
type SmartThings struct {
	client  *http.Client
	baseURL string
	token   string
}

// NewSmartThings returns a SmartThings client authenticating with the given
// bearer token.
func NewSmartThings(baseURL, token string, timeout time.Duration) (*SmartThings, error) {
	st := &SmartThings{
		baseURL: baseURL,
		token:   token,
	}
	if err := st.Validate(); err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	st.client = common.HTTPClient(timeout)
	return st, nil
}

// Validate ensures the configuration is valid.
func (st *SmartThings) Validate() error {
	if st.baseURL == "" {
		return errors.New("smartthings-api-url is required")
	}
	if _, err := url.Parse(st.baseURL); err != nil {
		return fmt.Errorf("failed to parse smartthings url (%s): %w", st.baseURL, err)
	}
	if st.token == "" {
		return errors.New("smartthings-token is required")
	}
	return nil
}

// GetStatus returns the status of every component of the device.
func (st *SmartThings) GetStatus(ctx context.Context, deviceID string) (DeviceStatus, error) {
	req, err := st.newRequest(ctx, "GET", nil, nil, "devices", deviceID, "status")
	if err != nil {
		return DeviceStatus{}, err
	}

	var status DeviceStatus
	if err := st.doRequest(req, "getStatus", &status); err != nil {
		return DeviceStatus{}, err
	}
	log.Ctx(ctx).DebugContext(ctx, "got smartthings device status", slog.String("deviceID", deviceID), slog.Int("components", len(status.Components)))
	return status, nil
}

type createEventsRequest struct {
	DeviceEvents []types.Event `json:"deviceEvents"`
}

// CreateEvents publishes the events for the device.
func (st *SmartThings) CreateEvents(ctx context.Context, deviceID string, events []types.Event) error {
	req, err := st.newRequest(ctx, "POST", createEventsRequest{DeviceEvents: events}, nil, "devices", deviceID, "events")
	if err != nil {
		return err
	}
	return st.doRequest(req, "createEvents", nil)
}

type listDevicesResponse struct {
	Items []Device `json:"items"`
	Links struct {
		Next *struct {
			Href string `json:"href"`
		} `json:"next"`
	} `json:"_links"`
}

// ListDevices returns every device in the location, following pagination.
func (st *SmartThings) ListDevices(ctx context.Context, locationID string) ([]Device, error) {
	params := url.Values{}
	if locationID != "" {
		params.Set("locationId", locationID)
	}
	req, err := st.newRequest(ctx, "GET", nil, params, "devices")
	if err != nil {
		return nil, err
	}

	var devices []Device
	// SmartThings pages at 200 devices, this is plenty for a single location
	for i := 0; i < 50; i++ {
		var res listDevicesResponse
		if err := st.doRequest(req, "listDevices", &res); err != nil {
			return nil, err
		}
		devices = append(devices, res.Items...)
		if res.Links.Next == nil || res.Links.Next.Href == "" {
			return devices, nil
		}
		req, err = http.NewRequestWithContext(ctx, "GET", res.Links.Next.Href, nil)
		if err != nil {
			return nil, err
		}
	}
	return nil, &types.UpstreamError{Service: smartThingsService, Op: "listDevices", Err: errors.New("too many pages")}
}

func (st *SmartThings) newRequest(ctx context.Context, method string, data interface{}, params url.Values, path ...string) (*http.Request, error) {
	u, err := url.Parse(st.baseURL)
	if err != nil {
		return nil, err
	}
	u.Path, err = url.JoinPath(u.Path, path...)
	if err != nil {
		return nil, err
	}
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}

	var body io.Reader
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

type smartThingsError struct {
	RequestID string `json:"requestId"`
	Error     struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (st *SmartThings) doRequest(req *http.Request, op string, dest interface{}) error {
	ctx := req.Context()
	req.Header.Set("Authorization", "Bearer "+st.token)
	req.Header.Set("Accept", "application/json")

	resp, err := st.client.Do(req)
	if err != nil {
		return &types.UpstreamError{Service: smartThingsService, Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &types.UpstreamError{Service: smartThingsService, Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var se smartThingsError
		if err := json.Unmarshal(body, &se); err == nil && se.Error.Message != "" {
			log.Ctx(ctx).ErrorContext(
				ctx,
				"smartthings api error",
				slog.String("op", op),
				slog.Int("status", resp.StatusCode),
				slog.String("code", se.Error.Code),
				slog.String("message", se.Error.Message),
				slog.String("requestID", se.RequestID),
			)
		} else {
			log.Ctx(ctx).ErrorContext(ctx, "smartthings api unknown error", slog.String("op", op), slog.Int("status", resp.StatusCode), slog.String("body", string(body)))
		}
		return &types.UpstreamError{Service: smartThingsService, Op: op, StatusCode: resp.StatusCode}
	}

	if dest == nil {
		log.Ctx(ctx).DebugContext(ctx, "smartthings request success (no destination)", slog.String("op", op))
		return nil
	}
	if err := json.Unmarshal(body, dest); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to decode smartthings response", slog.Any("error", err), slog.String("body", string(body)))
		return &types.UpstreamError{Service: smartThingsService, Op: op, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}
