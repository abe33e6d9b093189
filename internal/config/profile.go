package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/coppice-chat/coppice/internal/crypto"
	"github.com/coppice-chat/coppice/internal/domain"
)

// ServerProfile is the on-disk static server configuration: display name,
// channel layout, and the admin public-key list. It is loaded once at
// startup and immutable at runtime.
type ServerProfile struct {
	ServerName      string           `json:"serverName"`
	Channels        []domain.Channel `json:"channels"`
	AdminPublicKeys []string         `json:"adminPublicKeys"`
}

// LoadOrCreateProfile reads the profile at path, or writes a default one
// on first boot. A present but invalid profile is a fatal configuration
// error, not something to silently repair.
func LoadOrCreateProfile(path, defaultServerName string) (*ServerProfile, error) {
	raw, err := os.ReadFile(path)
	if err == nil {
		var profile ServerProfile
		if err := json.Unmarshal(raw, &profile); err != nil {
			return nil, fmt.Errorf("parse server profile: %w", err)
		}
		if err := profile.validate(); err != nil {
			return nil, fmt.Errorf("invalid server profile: %w", err)
		}
		return &profile, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read server profile: %w", err)
	}

	profile := defaultProfile(defaultServerName)
	if err := writeProfile(path, profile); err != nil {
		return nil, fmt.Errorf("persist server profile: %w", err)
	}
	return profile, nil
}

func defaultProfile(serverName string) *ServerProfile {
	serverName = strings.TrimSpace(serverName)
	if serverName == "" {
		serverName = "Local Server"
	}
	return &ServerProfile{
		ServerName: serverName,
		Channels: []domain.Channel{
			{ID: "general", Type: domain.ChannelTypeText, Name: "general"},
			{ID: "voice-main", Type: domain.ChannelTypeVoice, Name: "Voice"},
			{ID: "voice-afk", Type: domain.ChannelTypeVoice, Name: "AFK"},
		},
		AdminPublicKeys: []string{},
	}
}

func (p *ServerProfile) validate() error {
	if strings.TrimSpace(p.ServerName) == "" {
		return fmt.Errorf("serverName must not be empty")
	}
	if len(p.Channels) == 0 {
		return fmt.Errorf("at least one channel is required")
	}

	seen := make(map[string]struct{}, len(p.Channels))
	for _, channel := range p.Channels {
		id := strings.TrimSpace(channel.ID)
		if id == "" {
			return fmt.Errorf("channel id must not be empty")
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("duplicate channel id %q", id)
		}
		seen[id] = struct{}{}
		if channel.Type != domain.ChannelTypeText && channel.Type != domain.ChannelTypeVoice {
			return fmt.Errorf("channel %q has unknown type %q", id, channel.Type)
		}
	}

	admins, err := normalizeAdminKeys(p.AdminPublicKeys)
	if err != nil {
		return fmt.Errorf("adminPublicKeys: %w", err)
	}
	p.AdminPublicKeys = admins
	return nil
}

// IsAdminKey reports whether publicKey is in the configured admin list.
func (p *ServerProfile) IsAdminKey(publicKey string) bool {
	for _, admin := range p.AdminPublicKeys {
		if admin == publicKey {
			return true
		}
	}
	return false
}

// FindChannel returns the channel with the given id, if configured.
func (p *ServerProfile) FindChannel(channelID string) (domain.Channel, bool) {
	for _, channel := range p.Channels {
		if channel.ID == channelID {
			return channel, true
		}
	}
	return domain.Channel{}, false
}

func normalizeAdminKeys(values []string) ([]string, error) {
	unique := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, err := crypto.DecodePublicKey(value); err != nil {
			return nil, fmt.Errorf("key %q: %w", value, err)
		}
		if _, exists := unique[value]; exists {
			continue
		}
		unique[value] = struct{}{}
		result = append(result, value)
	}
	sort.Strings(result)
	return result, nil
}

func writeProfile(path string, profile *ServerProfile) error {
	raw, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return err
	}
	raw = append(raw, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
