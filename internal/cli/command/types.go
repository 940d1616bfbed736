package command

import "time"

// walletView mirrors the wallet snapshot returned by the server.
type walletView struct {
	State              string         `json:"state"`
	Identity           string         `json:"identity,omitempty"`
	IsConnected        bool           `json:"is_connected"`
	IsAuthenticated    bool           `json:"is_authenticated"`
	CanAccessDashboard bool           `json:"can_access_dashboard"`
	Loading            bool           `json:"loading" table:"wide"`
	LastError          *lastErrorView `json:"last_error,omitempty"`
	Auth               *authView      `json:"auth,omitempty" table:"wide"`
	Version            uint64         `json:"version" table:"wide"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

type lastErrorView struct {
	Kind    string `json:"kind"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *lastErrorView) String() string {
	if e == nil {
		return ""
	}
	return e.Code + " " + e.Message
}

type authView struct {
	Challenge challengeView `json:"challenge"`
	Signature []byte        `json:"signature"`
	SignedAt  time.Time     `json:"signed_at"`
}

func (a *authView) String() string {
	if a == nil {
		return ""
	}
	return "signed at " + a.SignedAt.Local().Format(time.RFC3339)
}

type challengeView struct {
	Message  string    `json:"message"`
	IssuedAt time.Time `json:"issued_at"`
	Encoding string    `json:"encoding,omitempty"`
}

type eventView struct {
	ID       string    `json:"id" table:"wide"`
	At       time.Time `json:"at"`
	OpID     string    `json:"op_id,omitempty" table:"wide"`
	Op       string    `json:"op"`
	From     string    `json:"from"`
	To       string    `json:"to"`
	Identity string    `json:"identity,omitempty"`
	Code     string    `json:"code,omitempty"`
	Message  string    `json:"message,omitempty" table:"wide"`
}

type eventsView struct {
	Items []eventView `json:"items"`
	Total int         `json:"total"`
}

type streamFrame struct {
	Type string     `json:"type"`
	Data walletView `json:"data"`
}

type verifyRequest struct {
	Signature string `json:"signature"`
	Message   string `json:"message"`
	Identity  string `json:"identity"`
}

type verifyView struct {
	Valid bool `json:"valid"`
}

type healthView struct {
	Status string `json:"status"`
	Time   string `json:"time"`
	Build  struct {
		Version   string `json:"version"`
		Commit    string `json:"commit"`
		BuildTime string `json:"build_time"`
		GoVersion string `json:"go_version"`
	} `json:"build"`
}

type readyView struct {
	Status            string `json:"status"`
	Time              string `json:"time"`
	State             string `json:"state"`
	ProviderAvailable bool   `json:"provider_available"`
	Journal           bool   `json:"journal"`
}
