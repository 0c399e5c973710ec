package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/nandhan/webmail/internal/models"
)

// Identity, group and business-domain management. These are peripheral
// account features: the collection store never touches them, callers use the
// gateway directly.

// ListIdentities returns the user's mail identities.
func (c *Client) ListIdentities(ctx context.Context) ([]models.Identity, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/emails/list", nil)
	if err != nil {
		return nil, err
	}

	var identities []models.Identity
	if err := json.Unmarshal(data, &identities); err != nil {
		return nil, fmt.Errorf("failed to decode identities: %w", err)
	}
	return identities, nil
}

// CreateIdentity registers a new mail identity for the user.
func (c *Client) CreateIdentity(ctx context.Context, address string) (*models.Identity, error) {
	data, err := c.do(ctx, http.MethodPost, "/api/emails/create", map[string]string{
		"address": address,
	})
	if err != nil {
		return nil, err
	}

	var identity models.Identity
	if err := json.Unmarshal(data, &identity); err != nil {
		return nil, fmt.Errorf("failed to decode created identity: %w", err)
	}
	return &identity, nil
}

// SetPrimaryIdentity marks an identity as the default sending address.
func (c *Client) SetPrimaryIdentity(ctx context.Context, identityID string) error {
	_, err := c.do(ctx, http.MethodPost, "/api/emails/"+identityID+"/set-primary", nil)
	return err
}

// CreateGroup creates a contact group for broadcast sends.
func (c *Client) CreateGroup(ctx context.Context, name, description string) (*models.Group, error) {
	data, err := c.do(ctx, http.MethodPost, "/api/groups/create", map[string]string{
		"name":        name,
		"description": description,
	})
	if err != nil {
		return nil, err
	}

	var group models.Group
	if err := json.Unmarshal(data, &group); err != nil {
		return nil, fmt.Errorf("failed to decode created group: %w", err)
	}
	return &group, nil
}

// ListGroups returns the user's contact groups.
func (c *Client) ListGroups(ctx context.Context) ([]models.Group, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/groups/", nil)
	if err != nil {
		return nil, err
	}

	var groups []models.Group
	if err := json.Unmarshal(data, &groups); err != nil {
		return nil, fmt.Errorf("failed to decode groups: %w", err)
	}
	return groups, nil
}

// AddGroupMembers adds addresses to a group.
func (c *Client) AddGroupMembers(ctx context.Context, groupID string, emails []string) error {
	_, err := c.do(ctx, http.MethodPost, "/api/groups/"+groupID+"/members", map[string][]string{
		"emails": emails,
	})
	return err
}

// GroupMembers lists the members of a group.
func (c *Client) GroupMembers(ctx context.Context, groupID string) ([]models.GroupMember, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/groups/"+groupID+"/members", nil)
	if err != nil {
		return nil, err
	}

	var members []models.GroupMember
	if err := json.Unmarshal(data, &members); err != nil {
		return nil, fmt.Errorf("failed to decode group members: %w", err)
	}
	return members, nil
}

// SendBroadcast sends a message to every member of a group.
func (c *Client) SendBroadcast(ctx context.Context, groupID, subject, body string) error {
	_, err := c.do(ctx, http.MethodPost, "/api/groups/"+groupID+"/send", map[string]string{
		"subject": subject,
		"body":    body,
	})
	return err
}

// RegisterBusiness registers a business account with a custom mail domain.
func (c *Client) RegisterBusiness(ctx context.Context, name, domain string) error {
	_, err := c.do(ctx, http.MethodPost, "/api/business/register", map[string]string{
		"name":   name,
		"domain": domain,
	})
	return err
}

// ListDomains returns the business account's registered domains.
func (c *Client) ListDomains(ctx context.Context) ([]models.BusinessDomain, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/business/domains", nil)
	if err != nil {
		return nil, err
	}

	var domains []models.BusinessDomain
	if err := json.Unmarshal(data, &domains); err != nil {
		return nil, fmt.Errorf("failed to decode domains: %w", err)
	}
	return domains, nil
}

// DomainVerification returns the DNS records a domain must publish.
func (c *Client) DomainVerification(ctx context.Context, domainID string) (*models.DomainVerification, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/business/domain/"+domainID+"/verification", nil)
	if err != nil {
		return nil, err
	}

	var verification models.DomainVerification
	if err := json.Unmarshal(data, &verification); err != nil {
		return nil, fmt.Errorf("failed to decode verification records: %w", err)
	}
	return &verification, nil
}

// VerifyDomain asks the server to check the domain's DNS records.
func (c *Client) VerifyDomain(ctx context.Context, domainID string) error {
	_, err := c.do(ctx, http.MethodPost, "/api/business/domain/"+domainID+"/verify", nil)
	return err
}
