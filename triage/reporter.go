package triage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/evergreen-ci/deviant/model"
	"github.com/evergreen-ci/utility"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
)

const summaryRoute = "/deviance/summary"

// Reporter sends saved deviance summaries to the perf sheriffs' triage
// service.
type Reporter interface {
	ReportSummary(context.Context, model.DevianceSummary) error
}

type triageClient struct {
	user    string
	token   string
	baseURL string
	conf    utility.HTTPRetryConfiguration
}

// NewReporter returns a Reporter posting to the triage service at baseURL,
// authenticating with the given user and token.
func NewReporter(baseURL, user, token string) Reporter {
	return &triageClient{
		user:    user,
		token:   token,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		conf:    defaultRetryConf(),
	}
}

func defaultRetryConf() utility.HTTPRetryConfiguration {
	return utility.HTTPRetryConfiguration{
		MaxRetries:      10,
		TemporaryErrors: true,
		MaxDelay:        30 * time.Second,
		BaseDelay:       50 * time.Millisecond,
		Methods: []string{
			http.MethodPost,
		},
		Statuses: []int{
			// status code for timeouts from ELB in AWS
			499,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout,
			http.StatusInsufficientStorage,
			http.StatusConflict,
			http.StatusRequestTimeout,
		},
		Errors: []error{
			// If a connection gets cut by the ELB, sometimes the client doesn't get an actual error
			// The client only receives a nil body leading to an EOF
			io.EOF,
		},
	}
}

func (c *triageClient) ReportSummary(ctx context.Context, summary model.DevianceSummary) error {
	startAt := time.Now()

	if err := c.doRequest(ctx, http.MethodPost, c.baseURL+summaryRoute, summary); err != nil {
		return errors.Wrapf(err, "reporting summary for signature %d", summary.ID)
	}

	grip.Debug(message.Fields{
		"message":       "reported deviance summary to triage service",
		"signature":     summary.ID,
		"title":         summary.Title,
		"duration_secs": time.Since(startAt).Seconds(),
	})

	return nil
}

func (c *triageClient) doRequest(ctx context.Context, method, route string, in interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return errors.WithStack(err)
	}

	client := utility.GetHTTPRetryableClient(c.conf)
	defer utility.PutHTTPClient(client)

	req, err := http.NewRequest(method, route, bytes.NewBuffer(body))
	if err != nil {
		return errors.WithStack(err)
	}
	req = req.WithContext(ctx)
	req.Header.Add("Cookie", fmt.Sprintf("auth_user=%v;auth_token=%v", c.user, c.token))
	req.Header.Add("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return errors.WithStack(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		grip.Warning(message.Fields{
			"message":   "failed to report deviance summary to triage service",
			"status":    http.StatusText(resp.StatusCode),
			"url":       route,
			"auth_user": c.user,
		})
		return errors.Errorf("triage service returned %q for %q as %q", http.StatusText(resp.StatusCode), route, c.user)
	}
	return nil
}
