package unifi

import (
	"context"

	"github.com/cockroachdb/errors"
)

// sitemgrEndpoint is the site manager command endpoint. Site management is
// controller-global; the commands always go through the default site's
// path regardless of which site the client is scoped to.
const sitemgrEndpoint = "/api/s/default/cmd/sitemgr"

// SitesService manages controller sites. The listing endpoint is not
// site-scoped; lookups filter it client-side because the controller offers
// no per-site fetch, and the create and update commands do not echo the
// affected site back, so those re-read the listing afterwards.
type SitesService struct {
	client *UniFiClient
}

// sitemgrCmd is the wire shape for site manager commands. One struct
// covers add, update, and delete; omitempty drops the fields each command
// does not use.
type sitemgrCmd struct {
	Cmd    string `json:"cmd"`
	Name   string `json:"name,omitempty"`
	Desc   string `json:"desc,omitempty"`
	SiteID string `json:"site_id,omitempty"`
}

// List returns every site the authenticated user can access.
func (s *SitesService) List(ctx context.Context) ([]Site, error) {
	var sites []Site
	if err := s.client.Get(ctx, "/api/self/sites", &sites); err != nil {
		return nil, err
	}
	return sites, nil
}

// Get returns the site with the given record ID.
func (s *SitesService) Get(ctx context.Context, id string) (*Site, error) {
	sites, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range sites {
		if sites[i].ID == id {
			return &sites[i], nil
		}
	}
	return nil, errors.Newf("site %q not found", id)
}

// GetByName returns the site whose internal name (the short identifier
// used in URLs, e.g. "default") or description matches name.
func (s *SitesService) GetByName(ctx context.Context, name string) (*Site, error) {
	sites, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range sites {
		if sites[i].Name == name || sites[i].Desc == name {
			return &sites[i], nil
		}
	}
	return nil, errors.Newf("site %q not found", name)
}

// Create adds a site and returns it. The add-site command does not report
// the created site, so it is fetched with a follow-up listing.
func (s *SitesService) Create(ctx context.Context, name, desc string) (*Site, error) {
	if name == "" {
		return nil, configErrorf("site name is required")
	}

	cmd := sitemgrCmd{Cmd: "add-site", Name: name, Desc: desc}
	if err := s.client.Post(ctx, sitemgrEndpoint, cmd, nil); err != nil {
		return nil, err
	}
	return s.GetByName(ctx, name)
}

// Update changes a site's description and returns the updated site.
func (s *SitesService) Update(ctx context.Context, id, desc string) (*Site, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	cmd := sitemgrCmd{Cmd: "update-site", SiteID: id, Desc: desc}
	if err := s.client.Post(ctx, sitemgrEndpoint, cmd, nil); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes a site by its record ID.
func (s *SitesService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	cmd := sitemgrCmd{Cmd: "delete-site", SiteID: id}
	return s.client.Post(ctx, sitemgrEndpoint, cmd, nil)
}

// Stats returns the health summary for the client's site.
func (s *SitesService) Stats(ctx context.Context) (*SiteStats, error) {
	var stats []SiteStats
	endpoint := s.client.SiteAPIPath("stat/health")
	if err := s.client.Get(ctx, endpoint, &stats); err != nil {
		return nil, err
	}
	if len(stats) == 0 {
		return nil, errors.New("no site statistics available")
	}
	return &stats[0], nil
}

// SetDefault returns a client scoped to the given site, sharing this
// client's session. The receiver is unchanged.
func (s *SitesService) SetDefault(site Site) *UniFiClient {
	clone := s.client.Clone()
	clone.site = site.Name
	return clone
}
