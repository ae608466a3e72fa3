package ciris

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EmergencyService executes signed emergency commands. The endpoint lives
// outside the /v1 prefix so a remote authority can always reach it, even
// when the versioned API or its auth layer is unavailable.
type EmergencyService struct {
	client *Client
}

// Emergency command types.
const (
	CommandShutdownNow = "SHUTDOWN_NOW"
	CommandFreeze      = "FREEZE"
	CommandSafeMode    = "SAFE_MODE"
)

// SignedCommand is an emergency command signed by a wise authority. The
// signature covers the command fields and is verified server-side against
// the authority's Ed25519 public key.
type SignedCommand struct {
	CommandID   string `json:"command_id"`
	CommandType string `json:"command_type"`

	WAID        string `json:"wa_id"`
	WAPublicKey string `json:"wa_public_key"`

	IssuedAt  time.Time  `json:"issued_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Reason    string     `json:"reason"`

	TargetAgentID string `json:"target_agent_id,omitempty"`

	Signature string `json:"signature"`

	ParentCommandID string   `json:"parent_command_id,omitempty"`
	RelayChain      []string `json:"relay_chain,omitempty"`
}

// ShutdownResult acknowledges an emergency shutdown.
type ShutdownResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// NewShutdownCommand builds an unsigned SHUTDOWN_NOW command for the given
// authority. The caller signs the command before submitting it.
func NewShutdownCommand(waID, waPublicKey, reason string) SignedCommand {
	return SignedCommand{
		CommandID:   uuid.NewString(),
		CommandType: CommandShutdownNow,
		WAID:        waID,
		WAPublicKey: waPublicKey,
		IssuedAt:    time.Now().UTC(),
		Reason:      reason,
	}
}

// Shutdown submits a signed emergency shutdown command.
func (s *EmergencyService) Shutdown(ctx context.Context, cmd SignedCommand) (*ShutdownResult, error) {
	var resp ShutdownResult
	if err := s.client.post(ctx, "/emergency/shutdown", cmd, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
