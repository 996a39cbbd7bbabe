package vton

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/fitly/tryon/pkg/garment"
	"github.com/fitly/tryon/pkg/request"
	"github.com/google/uuid"
)

const tasksPath = "/api/virtual-tryon"

// Options configures NewClient.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Client is the HTTP implementation of Service.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a service client.
func NewClient(opts Options) *Client {
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Client{
		httpClient: client,
		baseURL:    strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
	}
}

type taskBody struct {
	TaskID         string `json:"task_id"`
	Status         string `json:"status"`
	ResultImageURL string `json:"result_image_url"`
	Error          string `json:"error"`
	Message        string `json:"message"`
}

// envelope accepts both a flat body and one nested under "data".
type envelope struct {
	taskBody
	Data *taskBody `json:"data"`
}

func (e *envelope) body() taskBody {
	if e.Data != nil {
		merged := *e.Data
		if merged.Error == "" {
			merged.Error = e.Error
		}
		if merged.Message == "" {
			merged.Message = e.Message
		}
		return merged
	}
	return e.taskBody
}

func (b taskBody) reason() string {
	if b.Error != "" {
		return b.Error
	}
	return b.Message
}

// CreateTask uploads the model photo and garment images as a multipart form.
func (c *Client) CreateTask(ctx context.Context, payload *request.Payload) (string, error) {
	if payload == nil {
		return "", fmt.Errorf("%w: empty payload", ErrTaskCreation)
	}

	body, contentType, err := encodePayload(payload)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTaskCreation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+tasksPath, body)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTaskCreation, err)
	}
	req.Header.Set("Content-Type", contentType)

	slog.Info("tryon_task_create", "cloth_type", payload.ClothType, "garments", len(payload.Garments))

	out, status, err := c.do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTaskCreation, err)
	}
	if status < 200 || status > 299 {
		return "", fmt.Errorf("%w: %s", ErrTaskCreation, httpReason(status, out))
	}
	taskID := strings.TrimSpace(out.TaskID)
	if taskID == "" {
		return "", fmt.Errorf("%w: response has no task id", ErrTaskCreation)
	}

	slog.Info("tryon_task_created", "task_id", taskID)
	return taskID, nil
}

// GetTask queries the status of a task.
func (c *Client) GetTask(ctx context.Context, id string) (*TaskState, error) {
	endpoint := c.baseURL + tasksPath + "/" + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTaskPoll, err)
	}

	out, status, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTaskPoll, err)
	}
	if status < 200 || status > 299 {
		return nil, fmt.Errorf("%w: %s", ErrTaskPoll, httpReason(status, out))
	}

	return &TaskState{
		ID:             id,
		Status:         ParseStatus(out.Status),
		ResultImageURL: strings.TrimSpace(out.ResultImageURL),
		Error:          out.reason(),
	}, nil
}

// do sends req and decodes the JSON envelope. A body that is not JSON is
// only an error on success responses.
func (c *Client) do(req *http.Request) (taskBody, int, error) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return taskBody{}, 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return taskBody{}, resp.StatusCode, err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return taskBody{}, resp.StatusCode, nil
		}
		return taskBody{}, resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return env.body(), resp.StatusCode, nil
}

func httpReason(status int, out taskBody) string {
	if r := out.reason(); r != "" {
		return fmt.Sprintf("http %d: %s", status, r)
	}
	return fmt.Sprintf("http %d", status)
}

func encodePayload(p *request.Payload) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("cloth_type", string(p.ClothType)); err != nil {
		return nil, "", err
	}
	if err := writeImage(w, "model_image", p.Model); err != nil {
		return nil, "", err
	}
	for _, slot := range []garment.Slot{garment.SlotUpper, garment.SlotLower} {
		img, ok := p.Garment(slot)
		if !ok {
			continue
		}
		if err := writeImage(w, string(slot)+"_image", img); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func writeImage(w *multipart.Writer, field string, img request.Image) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, img.Filename))
	contentType := img.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = part.Write(img.Data)
	return err
}
