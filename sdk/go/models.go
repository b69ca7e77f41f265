package bulkmail

import "time"

// AccessToken is the bearer token issued at login.
type AccessToken struct {
	Token     string    `json:"token"`
	TokenType string    `json:"tokenType"`
	ExpiresIn int       `json:"expiresIn"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// User is the public view of an account.
type User struct {
	Username  string     `json:"username"`
	IP        string     `json:"ip,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
}

// AuthResponse is returned by Register and Login.
type AuthResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	User    User        `json:"user"`
	Token   AccessToken `json:"token"`
}

// Provider is a configured email provider without credentials.
type Provider struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	User  string `json:"user"`
}

// Recipient is one entry of a campaign's recipient list.
type Recipient struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// SendBulkRequest starts a campaign. A nil TrackingEnabled means tracking on.
type SendBulkRequest struct {
	ProviderID      string      `json:"providerId"`
	From            string      `json:"from,omitempty"`
	Subject         string      `json:"subject"`
	Message         string      `json:"message"`
	Format          string      `json:"format,omitempty"`
	TrackingEnabled *bool       `json:"trackingEnabled,omitempty"`
	EmailList       []Recipient `json:"emailList"`
}

// RecipientResult is one recipient's send outcome.
type RecipientResult struct {
	Email     string `json:"email"`
	Status    string `json:"status"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// CampaignStats is a campaign with its computed rates.
type CampaignStats struct {
	ID          string     `json:"id"`
	Subject     string     `json:"subject"`
	OwnerID     string     `json:"ownerId,omitempty"`
	ProviderID  string     `json:"providerId,omitempty"`
	StartTime   time.Time  `json:"startTime"`
	EndTime     *time.Time `json:"endTime,omitempty"`
	TotalEmails int        `json:"totalEmails"`
	SentCount   int        `json:"sentCount"`
	FailedCount int        `json:"failedCount"`
	OpenCount   int        `json:"openCount"`
	ClickCount  int        `json:"clickCount"`
	Status      string     `json:"status"`
	OpenRate    string     `json:"openRate"`
	ClickRate   string     `json:"clickRate"`
}

// SendBulkResponse is returned when a campaign finishes.
type SendBulkResponse struct {
	Success    bool              `json:"success"`
	Message    string            `json:"message"`
	CampaignID string            `json:"campaignId"`
	Results    []RecipientResult `json:"results"`
	Stats      CampaignStats     `json:"stats"`
}

// SendEmailRequest is a single untracked message.
type SendEmailRequest struct {
	To         string `json:"to"`
	Subject    string `json:"subject"`
	Message    string `json:"message"`
	From       string `json:"from,omitempty"`
	ProviderID string `json:"providerId"`
}

// SendEmailResponse reports a single send.
type SendEmailResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	MessageID string `json:"messageId"`
	Provider  string `json:"provider"`
}
