package models

// User is the authenticated webmail user.
type User struct {
	Email    string `json:"email"`
	Username string `json:"username"`
}

// Identity is one of the user's mail identities (addresses they can send as).
type Identity struct {
	ID        string `json:"id"`
	Address   string `json:"address"`
	IsPrimary bool   `json:"is_primary"`
}

// Group is a named contact group used for broadcast sends.
type Group struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MemberCount int    `json:"member_count"`
}

// GroupMember is one address inside a contact group.
type GroupMember struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// BusinessDomain is a custom mail domain registered by a business account.
type BusinessDomain struct {
	ID       string `json:"id"`
	Domain   string `json:"domain"`
	Verified bool   `json:"verified"`
}

// DomainVerification holds the DNS records a business domain must publish
// before it can be verified.
type DomainVerification struct {
	DomainID string      `json:"domain_id"`
	Records  []DNSRecord `json:"records"`
}

// DNSRecord is one DNS record required for domain verification.
type DNSRecord struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	Value string `json:"value"`
}
