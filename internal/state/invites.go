package state

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/coppice-chat/coppice/internal/crypto"
	"github.com/coppice-chat/coppice/internal/domain"
	apperrors "github.com/coppice-chat/coppice/internal/errors"
	"github.com/coppice-chat/coppice/internal/logging"
	"github.com/coppice-chat/coppice/internal/metrics"
)

const maxInviteLabelLength = 200

// CreateInviteRequest carries the invite parameters common to both
// admin authentication paths.
type CreateInviteRequest struct {
	ClientPublicKey string `json:"clientPublicKey"`
	Label           string `json:"label"`
}

// AdminCreateInviteRequest is the client-signed variant.
type AdminCreateInviteRequest struct {
	AdminSignedRequest
	CreateInviteRequest
}

// CreateInvite creates an invite on the bearer-token path. The caller
// has already checked the bearer credential.
func (s *State) CreateInvite(ctx context.Context, req CreateInviteRequest) (domain.CreateInviteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.createInviteLocked(ctx, req)
	if err != nil {
		return domain.CreateInviteResult{}, err
	}
	metrics.InvitesCreatedTotal.WithLabelValues("bearer").Inc()
	return result, nil
}

// CreateInviteByAdmin creates an invite authenticated by a detached
// admin signature over SHA-256(adminKey || clientKey || issuedAt).
func (s *State) CreateInviteByAdmin(ctx context.Context, req AdminCreateInviteRequest) (domain.CreateInviteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash := crypto.AdminCreateInvitePayloadHash(req.AdminPublicKey, req.ClientPublicKey, req.IssuedAt)
	if err := s.verifyAdminSignature(req.AdminSignedRequest, hash); err != nil {
		return domain.CreateInviteResult{}, err
	}

	result, err := s.createInviteLocked(ctx, req.CreateInviteRequest)
	if err != nil {
		return domain.CreateInviteResult{}, err
	}
	metrics.InvitesCreatedTotal.WithLabelValues("client_signed").Inc()
	return result, nil
}

// ListInvitesByAdmin returns every invite, newest first, authenticated
// by a detached admin signature over SHA-256(adminKey || issuedAt).
func (s *State) ListInvitesByAdmin(ctx context.Context, req AdminSignedRequest) ([]domain.InviteSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash := crypto.AdminListInvitesPayloadHash(req.AdminPublicKey, req.IssuedAt)
	if err := s.verifyAdminSignature(req, hash); err != nil {
		return nil, err
	}
	return s.listInvitesLocked(ctx)
}

// ListInvites returns every invite on the bearer-token path.
func (s *State) ListInvites(ctx context.Context) ([]domain.InviteSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listInvitesLocked(ctx)
}

func (s *State) listInvitesLocked(ctx context.Context) ([]domain.InviteSummary, error) {
	invites, err := s.invites.List(ctx)
	if err != nil {
		metrics.DBErrorsTotal.WithLabelValues("list_invites").Inc()
		return nil, apperrors.InternalError("list invites", err)
	}

	summaries := make([]domain.InviteSummary, 0, len(invites))
	for _, invite := range invites {
		summaries = append(summaries, domain.InviteSummary{
			InviteID:               invite.ID,
			AllowedClientPublicKey: invite.AllowedClientPublicKey,
			Label:                  invite.Label,
			CreatedAt:              invite.CreatedAt,
			UsedAt:                 invite.UsedAt,
			Status:                 invite.Status(),
		})
	}
	return summaries, nil
}

func (s *State) createInviteLocked(ctx context.Context, req CreateInviteRequest) (domain.CreateInviteResult, error) {
	clientKey := strings.TrimSpace(req.ClientPublicKey)
	if clientKey == "" {
		return domain.CreateInviteResult{}, apperrors.ValidationError("missing_client_public_key", "clientPublicKey is required")
	}
	if _, err := decodeClientKey(clientKey); err != nil {
		return domain.CreateInviteResult{}, err
	}

	label := strings.TrimSpace(req.Label)
	if len(label) > maxInviteLabelLength {
		return domain.CreateInviteResult{}, apperrors.ValidationError("label_too_long", fmt.Sprintf("label exceeds %d characters", maxInviteLabelLength))
	}

	invite := domain.Invite{
		ID:                     uuid.NewString(),
		AllowedClientPublicKey: clientKey,
		Label:                  label,
		CreatedAt:              s.clock.Now().UTC(),
	}
	if err := s.invites.Create(ctx, invite); err != nil {
		metrics.DBErrorsTotal.WithLabelValues("create_invite").Inc()
		return domain.CreateInviteResult{}, apperrors.InternalError("create invite", err)
	}

	logging.WithInvite(invite.ID).Info("Invite created", "label", label)

	return domain.CreateInviteResult{
		InviteID:          invite.ID,
		ServerBaseURL:     s.cfg.ServerBaseURL,
		ServerFingerprint: s.serverFingerprint,
		InviteLink:        s.inviteLink(invite.ID),
	}, nil
}

// inviteLink builds the deep link an invited client opens to start the
// handshake against this server.
func (s *State) inviteLink(inviteID string) string {
	params := url.Values{}
	params.Set("baseUrl", s.cfg.ServerBaseURL)
	params.Set("inviteId", inviteID)
	params.Set("serverFp", s.serverFingerprint)
	return "coppice://connect?" + params.Encode()
}
