package cloudapi

import "time"

// collection is the HAL envelope the platform wraps list responses in.
type collection[T any] struct {
	Total    int `json:"total"`
	Embedded struct {
		Items []T `json:"items"`
	} `json:"_embedded"`
}

// SSHKey is a public key registered on the account.
type SSHKey struct {
	UUID        string    `json:"uuid"`
	Label       string    `json:"label"`
	PublicKey   string    `json:"public_key"`
	Fingerprint string    `json:"fingerprint"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateSSHKeyRequest is the body of POST /account/ssh-keys.
type CreateSSHKeyRequest struct {
	Label     string `json:"label"`
	PublicKey string `json:"public_key"`
}

type Application struct {
	UUID         string `json:"uuid"`
	Name         string `json:"name"`
	Subscription struct {
		UUID string `json:"uuid"`
		Name string `json:"name"`
	} `json:"subscription"`
	Hosting struct {
		Type string `json:"type"`
		ID   string `json:"id"`
	} `json:"hosting"`
}

type Environment struct {
	ID    string `json:"id"`
	UUID  string `json:"uuid"`
	Name  string `json:"name"`
	Label string `json:"label"`
	Flags struct {
		Production bool `json:"production"`
		CDE        bool `json:"cde"`
	} `json:"flags"`
	SSHURL  string   `json:"ssh_url"`
	Domains []string `json:"domains"`
	Image   string   `json:"image"`
}

// IsProduction reports whether the environment serves production traffic.
func (e Environment) IsProduction() bool {
	return e.Flags.Production
}

// LogStream holds the websocket endpoint and the authentication payload for
// an environment's live log feed.
type LogStream struct {
	URL    string         `json:"url"`
	Params map[string]any `json:"params"`
}

type logStreamResponse struct {
	LogStream LogStream `json:"logstream"`
}

// Account is the user the API credentials belong to.
type Account struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
	Mail string `json:"mail"`
}

// IDE is a cloud development environment attached to an application.
type IDE struct {
	UUID  string `json:"uuid"`
	Label string `json:"label"`
	Links struct {
		Self link `json:"self"`
		IDE  link `json:"ide"`
		Web  link `json:"web"`
	} `json:"_links"`
}

// URL is the address of the IDE's editor.
func (i IDE) URL() string {
	return i.Links.IDE.Href
}

// SiteURL is the address of the site the IDE serves.
func (i IDE) SiteURL() string {
	return i.Links.Web.Href
}

type link struct {
	Href string `json:"href"`
}

// CreateIDERequest is the body of POST /applications/{uuid}/ides.
type CreateIDERequest struct {
	Label string `json:"label"`
}

// messageResponse is what the API returns for accepted mutations.
type messageResponse struct {
	Message string `json:"message"`
	Links   struct {
		Self link `json:"self"`
	} `json:"_links"`
}
