// Package workflow drives the client side of expense-report creation: the
// submission upload, job polling, approval-chain setup, and receipt uploads,
// all reported through a unified progress scale.
package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/jwkim/expenseflow/internal/domain/report"
	"github.com/jwkim/expenseflow/internal/jobs"
	"github.com/jwkim/expenseflow/internal/service"
)

// Client is the REST client for the expense service
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a new API client
func NewClient(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 2 * time.Minute},
		logger:  logger,
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// countingReader reports the fraction of its payload consumed so far. The
// transport reads the request body as it sends, so consumption tracks upload.
type countingReader struct {
	r          io.Reader
	total      int64
	read       int64
	onProgress func(frac float64)
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.read += int64(n)
		if c.onProgress != nil && c.total > 0 {
			frac := float64(c.read) / float64(c.total)
			if frac > 1 {
				frac = 1
			}
			c.onProgress(frac)
		}
	}
	return n, err
}

func (c *Client) decode(resp *http.Response, out any) error {
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if !env.Success {
		if env.Error == "" {
			env.Error = resp.Status
		}
		return fmt.Errorf("server error: %s", env.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}

// SubmitExpenses posts the submission payload and returns the creation job
// ID. onUpload receives the fraction of the payload sent so far.
func (c *Client) SubmitExpenses(ctx context.Context, req service.SubmitRequest, onUpload func(frac float64)) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to encode submission: %w", err)
	}

	counted := &countingReader{
		r:          bytes.NewReader(body),
		total:      int64(len(body)),
		onProgress: onUpload,
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/expenses", counted)
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.ContentLength = int64(len(body))

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to submit expenses: %w", err)
	}

	var data struct {
		JobID string `json:"job_id"`
	}
	if err := c.decode(resp, &data); err != nil {
		return "", err
	}
	return data.JobID, nil
}

// JobStatus fetches the current state of a creation job
func (c *Client) JobStatus(ctx context.Context, jobID string) (*jobs.Job, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/jobs/"+jobID, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to poll job: %w", err)
	}

	var j jobs.Job
	if err := c.decode(resp, &j); err != nil {
		return nil, err
	}
	return &j, nil
}

// GetReport fetches a report with its details, lines and receipts
func (c *Client) GetReport(ctx context.Context, reportID int64) (*report.ExpenseReport, error) {
	url := fmt.Sprintf("%s/api/expenses/%d", c.baseURL, reportID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch report: %w", err)
	}

	var rep report.ExpenseReport
	if err := c.decode(resp, &rep); err != nil {
		return nil, err
	}
	return &rep, nil
}

// SetApprovalLines replaces the report's approval chain
func (c *Client) SetApprovalLines(ctx context.Context, reportID int64, lines []service.LineInput) error {
	payload, err := json.Marshal(map[string]any{"lines": lines})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/api/expenses/%d/approval-lines", c.baseURL, reportID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to set approval lines: %w", err)
	}
	return c.decode(resp, nil)
}

// UploadReceipt uploads one receipt file, attached to the given detail when
// detailID is non-nil.
func (c *Client) UploadReceipt(ctx context.Context, reportID int64, detailID *int64, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open receipt file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("failed to read receipt file: %w", err)
	}
	if detailID != nil {
		if err := mw.WriteField("detail_id", strconv.FormatInt(*detailID, 10)); err != nil {
			return err
		}
	}
	if err := mw.Close(); err != nil {
		return err
	}

	url := fmt.Sprintf("%s/api/expenses/%d/receipts", c.baseURL, reportID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to upload receipt: %w", err)
	}
	return c.decode(resp, nil)
}
