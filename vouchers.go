package unifi

import (
	"context"
	"net/http"

	"github.com/cockroachdb/errors"
)

// VouchersService manages hotspot vouchers through the hotspot command
// endpoint and the voucher listing.
type VouchersService struct {
	client *UniFiClient
}

// CreateVoucherRequest describes a voucher batch. Only Count and Minutes
// are required to be positive.
type CreateVoucherRequest struct {
	// Count is how many voucher codes to create.
	Count int

	// Minutes is the voucher lifetime once activated.
	Minutes int

	// Quota is the permitted number of uses per voucher: 0 multi-use,
	// 1 single-use, n multi-use n times.
	Quota int

	// Note is attached to every voucher in the batch.
	Note string

	// UpKbps and DownKbps cap bandwidth in kilobits per second.
	UpKbps   int
	DownKbps int

	// QuotaMB caps total transfer in megabytes.
	QuotaMB int
}

type hotspotCmd struct {
	Cmd    string `json:"cmd"`
	N      int    `json:"n,omitempty"`
	Expire int    `json:"expire,omitempty"`
	Quota  *int   `json:"quota,omitempty"`
	Note   string `json:"note,omitempty"`
	Up     int    `json:"up,omitempty"`
	Down   int    `json:"down,omitempty"`
	Bytes  int    `json:"bytes,omitempty"`
	ID     string `json:"_id,omitempty"`
}

// voucherCreated is the create command's response payload: the batch
// timestamp that identifies the vouchers just created.
type voucherCreated struct {
	CreateTime int64 `json:"create_time"`
}

// Create creates a batch of vouchers and returns them. The create command
// only reports the batch timestamp, so the created codes are fetched with
// a follow-up listing filtered to that timestamp.
func (s *VouchersService) Create(ctx context.Context, req CreateVoucherRequest) ([]Voucher, error) {
	if req.Count <= 0 {
		return nil, configErrorf("voucher count must be positive")
	}
	if req.Minutes <= 0 {
		return nil, configErrorf("voucher minutes must be positive")
	}

	cmd := hotspotCmd{
		Cmd:    "create-voucher",
		N:      req.Count,
		Expire: req.Minutes,
		Quota:  &req.Quota,
		Note:   req.Note,
		Up:     req.UpKbps,
		Down:   req.DownKbps,
		Bytes:  req.QuotaMB,
	}

	var created []voucherCreated
	endpoint := s.client.SiteAPIPath("cmd/hotspot")
	if err := s.client.Post(ctx, endpoint, cmd, &created); err != nil {
		return nil, err
	}
	if len(created) == 0 {
		return nil, errors.New("create-voucher returned no batch timestamp")
	}

	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	batch := make([]Voucher, 0, req.Count)
	for _, v := range all {
		if v.CreateTime == created[0].CreateTime {
			batch = append(batch, v)
		}
	}
	if len(batch) == 0 {
		return nil, errors.Newf("created vouchers not found in listing (batch %d)", created[0].CreateTime)
	}
	return batch, nil
}

// List returns every voucher on the site.
func (s *VouchersService) List(ctx context.Context) ([]Voucher, error) {
	var vouchers []Voucher
	endpoint := s.client.SiteAPIPath("stat/voucher")
	if err := s.client.doJSON(ctx, http.MethodGet, endpoint, nil, &vouchers); err != nil {
		return nil, err
	}
	return vouchers, nil
}

// Delete revokes a voucher by its record ID.
func (s *VouchersService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return configErrorf("voucher id is required")
	}

	cmd := hotspotCmd{Cmd: "delete-voucher", ID: id}
	return s.client.Post(ctx, s.client.SiteAPIPath("cmd/hotspot"), cmd, nil)
}

// DeleteAll revokes every voucher on the site and returns how many were
// deleted.
func (s *VouchersService) DeleteAll(ctx context.Context) (int, error) {
	vouchers, err := s.List(ctx)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, v := range vouchers {
		if err := s.Delete(ctx, v.ID); err != nil {
			return deleted, errors.Wrapf(err, "deleting voucher %s", v.ID)
		}
		deleted++
	}
	return deleted, nil
}
