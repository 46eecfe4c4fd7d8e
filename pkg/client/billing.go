package client

import "context"

// BillingService handles plan catalog and activation calls
type BillingService struct {
	client *Client
}

// Plans retrieves the plan catalog
func (s *BillingService) Plans(ctx context.Context) ([]Plan, error) {
	var plans []Plan
	if err := s.client.doRequest(ctx, "GET", "/api/v1/billing/plans", nil, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// Activate applies a confirmed payment for plan to an account
func (s *BillingService) Activate(ctx context.Context, accountID, plan, reference string) (*Account, error) {
	body := map[string]string{"account_id": accountID, "plan": plan}
	if reference != "" {
		body["reference"] = reference
	}

	var a Account
	if err := s.client.doRequest(ctx, "POST", "/api/v1/billing/activations", body, &a); err != nil {
		return nil, err
	}
	return &a, nil
}
