package unifi

import (
	"fmt"
	"time"
)

// loginRequest is the JSON body posted to the variant-specific login
// endpoint. Both controller variants accept the same shape.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Guest is a guest network authorization as reported by the controller.
// The same record shape is returned by the authorize command and the
// stat/guest listing; fields that only apply to connected guests are zero
// for pending or revoked entries.
type Guest struct {
	ID           string `json:"_id"`
	MAC          string `json:"mac"`
	AuthorizedBy string `json:"authorized_by"`
	SiteID       string `json:"site_id"`

	// Start and End are unix seconds.
	Start int64 `json:"start"`
	End   int64 `json:"end"`

	Expired        bool   `json:"expired,omitempty"`
	UnauthorizedBy string `json:"unauthorized_by,omitempty"`

	// Traffic counters, present for guests that have connected.
	Bytes   uint64 `json:"bytes,omitempty"`
	RxBytes uint64 `json:"rx_bytes,omitempty"`
	TxBytes uint64 `json:"tx_bytes,omitempty"`
}

// ExpiresAt returns the authorization end time.
func (g Guest) ExpiresAt() time.Time {
	return time.Unix(g.End, 0)
}

// Active reports whether the authorization is still in force.
func (g Guest) Active() bool {
	return !g.Expired && g.UnauthorizedBy == ""
}

// Site is a controller site.
type Site struct {
	ID     string `json:"_id"`
	Name   string `json:"name"`
	Desc   string `json:"desc"`
	Role   string `json:"role,omitempty"`
	Hidden bool   `json:"attr_hidden,omitempty"`
}

func (s Site) String() string {
	return fmt.Sprintf("%s (%s)", s.Desc, s.Name)
}

// SiteStats is a site health summary from the stat/health endpoint.
type SiteStats struct {
	NumAP    int `json:"num_ap"`
	NumUser  int `json:"num_user"`
	NumGuest int `json:"num_guest"`
	NumIoT   int `json:"num_iot,omitempty"`

	Status string  `json:"status,omitempty"`
	Score  float64 `json:"score,omitempty"`

	Subsystems []SubsystemHealth `json:"subsystems,omitempty"`

	// Timestamp is unix seconds, when the numbers were sampled.
	Timestamp int64 `json:"timestamp,omitempty"`
}

// SubsystemHealth is the per-subsystem health breakdown (wlan, lan, wan).
type SubsystemHealth struct {
	Subsystem string  `json:"subsystem"`
	Score     float64 `json:"score"`
	Status    string  `json:"status"`
}

// VoucherStatus is the lifecycle state of a hotspot voucher.
type VoucherStatus string

const (
	VoucherValid   VoucherStatus = "VALID_ONE"
	VoucherUsed    VoucherStatus = "USED"
	VoucherExpired VoucherStatus = "EXPIRED"
)

// Voucher is a hotspot voucher code that grants time- or quota-limited
// guest access.
type Voucher struct {
	ID        string `json:"_id"`
	Code      string `json:"code"`
	AdminName string `json:"admin_name,omitempty"`
	SiteID    string `json:"site_id,omitempty"`
	Note      string `json:"note,omitempty"`

	// CreateTime is unix seconds; the create command reports it back and
	// it identifies the batch a voucher belongs to.
	CreateTime int64 `json:"create_time"`

	// Duration is the voucher lifetime in minutes once activated.
	Duration int `json:"duration"`

	// Quota is the permitted number of uses: 0 means multi-use,
	// 1 single-use, n multi-use n times.
	Quota int `json:"quota"`
	Used  int `json:"used"`

	Status        VoucherStatus `json:"status"`
	StatusExpires int64         `json:"status_expires,omitempty"`

	QOSOverwrite   bool   `json:"qos_overwrite,omitempty"`
	QOSRateMaxUp   int    `json:"qos_rate_max_up,omitempty"`
	QOSRateMaxDown int    `json:"qos_rate_max_down,omitempty"`
	QOSUsageQuota  uint64 `json:"qos_usage_quota,omitempty"`
}

func (v Voucher) String() string {
	return fmt.Sprintf("Code: %s (%s)", v.Code, v.Status)
}
