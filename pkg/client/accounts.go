package client

import (
	"context"
	"net/url"
	"strconv"
)

// AccountService handles account API calls
type AccountService struct {
	client *Client
}

// Create signs up a trial account
func (s *AccountService) Create(ctx context.Context, email string) (*Account, error) {
	var a Account
	if err := s.client.doRequest(ctx, "POST", "/api/v1/accounts", map[string]string{"email": email}, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Get retrieves one account
func (s *AccountService) Get(ctx context.Context, id string) (*Account, error) {
	var a Account
	if err := s.client.doRequest(ctx, "GET", accountPath(id, ""), nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// List retrieves a page of accounts
func (s *AccountService) List(ctx context.Context, opts *ListOptions) (*Page[Account], error) {
	path := "/api/v1/accounts"
	if q := paginationQuery(opts); len(q) > 0 {
		path += "?" + q.Encode()
	}

	var page Page[Account]
	if err := s.client.doRequest(ctx, "GET", path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// ResetPeriod zeroes consumption and starts a new billing period
func (s *AccountService) ResetPeriod(ctx context.Context, id string) (*Account, error) {
	var a Account
	if err := s.client.doRequest(ctx, "POST", accountPath(id, "/period/reset"), nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// CompleteCall settles a finished call against the trial or paid quota
func (s *AccountService) CompleteCall(ctx context.Context, id, agentID string, durationSeconds int64) (*CallCompletion, error) {
	body := map[string]interface{}{"duration_seconds": durationSeconds}
	if agentID != "" {
		body["agent_id"] = agentID
	}

	var c CallCompletion
	if err := s.client.doRequest(ctx, "POST", accountPath(id, "/calls/complete"), body, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// CheckEligibility asks whether an action on surface may start. A denial is
// returned as a Decision, not an error; an unverifiable account is an error.
func (c *Client) CheckEligibility(ctx context.Context, accountID, surface string, estimatedSeconds int64) (*Decision, error) {
	body := map[string]interface{}{
		"account_id":        accountID,
		"surface":           surface,
		"estimated_seconds": estimatedSeconds,
	}

	var d Decision
	err := c.doRequest(ctx, "POST", "/api/v1/eligibility", body, &d)
	if err != nil {
		if apiErr, ok := err.(*APIError); ok && apiErr.IsDenied() {
			if denied, ok := apiErr.Decision(); ok {
				return denied, nil
			}
		}
		return nil, err
	}
	return &d, nil
}

func accountPath(id, suffix string) string {
	return "/api/v1/accounts/" + url.PathEscape(id) + suffix
}

func paginationQuery(opts *ListOptions) url.Values {
	q := url.Values{}
	if opts == nil {
		return q
	}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(opts.PageSize))
	}
	return q
}
