package config

import (
	"errors"
	"fmt"
	"net/mail"
	"sort"
	"strings"
)

// Errors for config management
var (
	ErrRecipientNotFound = errors.New("recipient not found")
	ErrDuplicateKey      = errors.New("key already exists")
	ErrInvalidEmail      = errors.New("invalid email format")
)

// ConfigManager provides CRUD operations for config entries
type ConfigManager struct {
	config     *Config
	configPath string
}

// NewConfigManager creates a new config manager
func NewConfigManager(cfg *Config, configPath string) *ConfigManager {
	return &ConfigManager{
		config:     cfg,
		configPath: configPath,
	}
}

// Recipient represents a notification email recipient entry
type Recipient struct {
	Key     string
	Name    string
	Address string
}

// AddRecipient adds a new recipient to config
func (m *ConfigManager) AddRecipient(key, name, email string) error {
	key = strings.ToLower(strings.TrimSpace(key))
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	if key == "" {
		return fmt.Errorf("recipient key is required")
	}
	if !isValidEmail(email) {
		return fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}

	if m.config.Notify.Email.Recipients == nil {
		m.config.Notify.Email.Recipients = make(map[string]RecipientConfig)
	}

	if _, exists := m.config.Notify.Email.Recipients[key]; exists {
		return fmt.Errorf("%w: recipient %q", ErrDuplicateKey, key)
	}

	m.config.Notify.Email.Recipients[key] = RecipientConfig{Name: name, Address: email}
	return Save(m.config, m.configPath)
}

// ListRecipients returns all recipients sorted by key
func (m *ConfigManager) ListRecipients() []Recipient {
	result := make([]Recipient, 0, len(m.config.Notify.Email.Recipients))
	for key, rc := range m.config.Notify.Email.Recipients {
		result = append(result, Recipient{
			Key:     key,
			Name:    rc.Name,
			Address: rc.Address,
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result
}

// GetRecipient gets a recipient by key (case-insensitive)
func (m *ConfigManager) GetRecipient(key string) (Recipient, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if rc, exists := m.config.Notify.Email.Recipients[key]; exists {
		return Recipient{Key: key, Name: rc.Name, Address: rc.Address}, nil
	}
	return Recipient{}, fmt.Errorf("%w: %q", ErrRecipientNotFound, key)
}

// RemoveRecipient removes a recipient by key
func (m *ConfigManager) RemoveRecipient(key string) error {
	key = strings.ToLower(strings.TrimSpace(key))
	if _, exists := m.config.Notify.Email.Recipients[key]; !exists {
		return fmt.Errorf("%w: %q", ErrRecipientNotFound, key)
	}

	delete(m.config.Notify.Email.Recipients, key)
	return Save(m.config, m.configPath)
}

// UpdateRecipient updates a recipient's name and/or email
func (m *ConfigManager) UpdateRecipient(key, name, email string) error {
	key = strings.ToLower(strings.TrimSpace(key))

	rc, exists := m.config.Notify.Email.Recipients[key]
	if !exists {
		return fmt.Errorf("%w: %q", ErrRecipientNotFound, key)
	}

	// Update only provided values
	if name = strings.TrimSpace(name); name != "" {
		rc.Name = name
	}
	if email = strings.TrimSpace(email); email != "" {
		if !isValidEmail(email) {
			return fmt.Errorf("%w: %q", ErrInvalidEmail, email)
		}
		rc.Address = email
	}

	m.config.Notify.Email.Recipients[key] = rc
	return Save(m.config, m.configPath)
}

// isValidEmail accepts a bare address with a dotted domain
func isValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	domain := email[strings.LastIndex(email, "@")+1:]
	return strings.Contains(domain, ".") && !strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".")
}

// SuggestAddRecipientCommand returns the command to add a missing recipient
func SuggestAddRecipientCommand(key string) string {
	return fmt.Sprintf("n8n-video-renderer config add recipient --key %s --name \"Full Name\" --email address@example.com", key)
}
