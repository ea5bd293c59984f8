package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPersona is the reply voice used when neither REPLY_PERSONA nor a
// profile file overrides it.
const DefaultPersona = "a friendly, curious follower who adds one concrete, upbeat thought; casual tone, no hashtags, no emojis spam"

// DefaultBlockedKeywords lists promotional and solicitation terms. Posts
// containing any of them are never replied to.
func DefaultBlockedKeywords() []string {
	return []string{
		"airdrop",
		"giveaway",
		"presale",
		"whitelist",
		"promo code",
		"discount code",
		"dm me",
		"dm for",
		"link in bio",
		"sign up now",
		"referral",
		"nft mint",
	}
}

// Profile is the optional YAML prompt profile referenced by PROMPT_PROFILE.
type Profile struct {
	Persona         string   `yaml:"persona"`
	Languages       []string `yaml:"languages"`
	BlockedKeywords []string `yaml:"blocked_keywords"`
	MaxReplyChars   int      `yaml:"max_reply_chars"`
}

// LoadProfile reads and validates a prompt profile file.
func LoadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("failed to read prompt profile %s: %w", path, err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("failed to parse prompt profile %s: %w", path, err)
	}
	if p.MaxReplyChars < 0 {
		return Profile{}, fmt.Errorf("invalid prompt profile %s: max_reply_chars must be non-negative", path)
	}
	return p, nil
}

// Apply overlays the non-empty profile fields onto the bot configuration.
// Profile keywords extend the built-in denylist rather than replace it.
func (p Profile) Apply(bot *BotConfig) {
	if strings.TrimSpace(p.Persona) != "" {
		bot.Persona = strings.TrimSpace(p.Persona)
	}
	if len(p.Languages) > 0 {
		langs := make([]string, 0, len(p.Languages))
		for _, l := range p.Languages {
			if l = strings.ToLower(strings.TrimSpace(l)); l != "" {
				langs = append(langs, l)
			}
		}
		bot.ReplyLanguages = langs
	}
	for _, kw := range p.BlockedKeywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			bot.BlockedKeywords = append(bot.BlockedKeywords, kw)
		}
	}
	if p.MaxReplyChars > 0 {
		bot.MaxReplyChars = p.MaxReplyChars
	}
}
