package client

import "context"

// TrialService handles free-trial API calls
type TrialService struct {
	client *Client
}

// Status retrieves the trial state and whether a call may start
func (s *TrialService) Status(ctx context.Context, accountID string) (*TrialEligibility, error) {
	var te TrialEligibility
	if err := s.client.doRequest(ctx, "GET", accountPath(accountID, "/trial"), nil, &te); err != nil {
		return nil, err
	}
	return &te, nil
}

// RecordUsage charges seconds against the trial. Refusals come back as an
// *APIError with code TRIAL_EXHAUSTED or TRIAL_EXPIRED.
func (s *TrialService) RecordUsage(ctx context.Context, accountID string, seconds int64) (*TrialStatus, error) {
	var resp struct {
		Recorded bool         `json:"recorded"`
		Status   *TrialStatus `json:"trial_status"`
	}
	body := map[string]int64{"seconds": seconds}
	if err := s.client.doRequest(ctx, "POST", accountPath(accountID, "/trial/usage"), body, &resp); err != nil {
		return nil, err
	}
	return resp.Status, nil
}
