package unifi

import (
	"context"
	"net/http"

	"github.com/cockroachdb/errors"
)

// defaultAPMAC is the placeholder access point MAC the station manager
// accepts when the caller does not know which AP the guest is on.
const defaultAPMAC = "00:00:00:00:00:00"

// GuestsService manages guest network authorizations through the station
// manager command endpoint and the guest listing.
type GuestsService struct {
	client *UniFiClient
}

// AuthorizeGuestRequest describes a guest authorization. Only MAC is
// required; zero limits mean the controller's defaults apply.
type AuthorizeGuestRequest struct {
	// MAC is the client device's MAC address.
	MAC string

	// Minutes limits how long the authorization lasts.
	Minutes int

	// UpKbps and DownKbps cap bandwidth in kilobits per second.
	UpKbps   int
	DownKbps int

	// QuotaMB caps total transfer in megabytes.
	QuotaMB int

	// APMAC is the access point the guest is connected to. Optional; a
	// placeholder MAC is sent when unset.
	APMAC string
}

// stamgrCmd is the wire shape for station manager commands. One struct
// covers authorize and unauthorize; omitempty drops the fields each
// command does not use.
type stamgrCmd struct {
	Cmd     string `json:"cmd"`
	MAC     string `json:"mac,omitempty"`
	Minutes int    `json:"minutes,omitempty"`
	Up      int    `json:"up,omitempty"`
	Down    int    `json:"down,omitempty"`
	Bytes   int    `json:"bytes,omitempty"`
	APMAC   string `json:"ap_mac,omitempty"`
}

// Authorize grants a guest device network access and returns the created
// authorization record.
func (s *GuestsService) Authorize(ctx context.Context, req AuthorizeGuestRequest) (*Guest, error) {
	if req.MAC == "" {
		return nil, configErrorf("guest MAC is required")
	}

	apMAC := req.APMAC
	if apMAC == "" {
		apMAC = defaultAPMAC
	}

	cmd := stamgrCmd{
		Cmd:     "authorize-guest",
		MAC:     req.MAC,
		Minutes: req.Minutes,
		Up:      req.UpKbps,
		Down:    req.DownKbps,
		Bytes:   req.QuotaMB,
		APMAC:   apMAC,
	}

	var guests []Guest
	endpoint := s.client.SiteAPIPath("cmd/stamgr")
	if err := s.client.Post(ctx, endpoint, cmd, &guests); err != nil {
		return nil, err
	}
	if len(guests) == 0 {
		return nil, errors.Newf("authorize-guest for %s returned no record", req.MAC)
	}
	return &guests[0], nil
}

// List returns guest authorizations seen within the last withinHours
// hours. Zero means the controller's default window (the last day).
func (s *GuestsService) List(ctx context.Context, withinHours int) ([]Guest, error) {
	var body any
	if withinHours > 0 {
		body = map[string]int{"within": withinHours}
	}

	var guests []Guest
	endpoint := s.client.SiteAPIPath("stat/guest")
	if err := s.client.doJSON(ctx, http.MethodGet, endpoint, body, &guests); err != nil {
		return nil, err
	}
	return guests, nil
}

// Unauthorize revokes a guest device's network access.
func (s *GuestsService) Unauthorize(ctx context.Context, mac string) error {
	if mac == "" {
		return configErrorf("guest MAC is required")
	}

	cmd := stamgrCmd{Cmd: "unauthorize-guest", MAC: mac}
	return s.client.Post(ctx, s.client.SiteAPIPath("cmd/stamgr"), cmd, nil)
}

// UnauthorizeAll revokes every active guest authorization on the site and
// returns how many were revoked.
func (s *GuestsService) UnauthorizeAll(ctx context.Context) (int, error) {
	guests, err := s.List(ctx, 0)
	if err != nil {
		return 0, err
	}

	revoked := 0
	for _, g := range guests {
		if !g.Active() {
			continue
		}
		if err := s.Unauthorize(ctx, g.MAC); err != nil {
			return revoked, errors.Wrapf(err, "unauthorizing %s", g.MAC)
		}
		revoked++
	}
	return revoked, nil
}
