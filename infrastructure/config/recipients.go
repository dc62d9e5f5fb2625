package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ROJSUWAN/n8n-video-renderer/domain/notification"
)

// RecipientLookup provides methods to find recipients
type RecipientLookup struct {
	config *Config
}

// NewRecipientLookup creates a new recipient lookup from config
func NewRecipientLookup(cfg *Config) *RecipientLookup {
	return &RecipientLookup{config: cfg}
}

// LookupRecipient finds recipients matching the query (first name, last name, full name, or key)
// Returns all matches - caller should handle ambiguity
func (r *RecipientLookup) LookupRecipient(query string) ([]notification.Recipient, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, notification.ErrRecipientNotFound
	}

	var matches []notification.Recipient

	for _, key := range r.keys() {
		rc := r.config.Notify.Email.Recipients[key]
		nameLower := strings.ToLower(rc.Name)
		nameParts := strings.Fields(nameLower)

		var firstName, lastName string
		if len(nameParts) > 0 {
			firstName = nameParts[0]
		}
		if len(nameParts) > 1 {
			lastName = nameParts[len(nameParts)-1]
		}

		if strings.ToLower(key) == query || firstName == query || lastName == query ||
			(nameLower != "" && nameLower == query) || strings.ToLower(rc.Address) == query {
			matches = append(matches, notification.Recipient{
				Name:    rc.Name,
				Address: rc.Address,
			})
		}
	}

	if len(matches) == 0 {
		return nil, notification.ErrRecipientNotFound
	}

	return matches, nil
}

// LookupRecipients looks up multiple recipients by query strings
// Supports comma-separated or multiple queries
func (r *RecipientLookup) LookupRecipients(queries []string) ([]notification.Recipient, error) {
	var allRecipients []notification.Recipient
	seen := make(map[string]bool) // Deduplicate by email

	for _, q := range queries {
		for _, query := range strings.Split(q, ",") {
			query = strings.TrimSpace(query)
			if query == "" {
				continue
			}

			matches, err := r.LookupRecipient(query)
			if err != nil {
				return nil, fmt.Errorf("recipient %q: %w", query, err)
			}

			if len(matches) > 1 {
				names := make([]string, len(matches))
				for i, m := range matches {
					names[i] = m.Name
				}
				return nil, fmt.Errorf("%w: %q matches %s - use last name to disambiguate",
					notification.ErrAmbiguousRecipient, query, strings.Join(names, ", "))
			}

			if !seen[matches[0].Address] {
				seen[matches[0].Address] = true
				allRecipients = append(allRecipients, matches[0])
			}
		}
	}

	if len(allRecipients) == 0 {
		return nil, notification.ErrRecipientNotFound
	}

	return allRecipients, nil
}

// All returns every configured recipient, ordered by key
func (r *RecipientLookup) All() []notification.Recipient {
	keys := r.keys()
	result := make([]notification.Recipient, 0, len(keys))
	for _, key := range keys {
		rc := r.config.Notify.Email.Recipients[key]
		result = append(result, notification.Recipient{Name: rc.Name, Address: rc.Address})
	}
	return result
}

func (r *RecipientLookup) keys() []string {
	keys := make([]string, 0, len(r.config.Notify.Email.Recipients))
	for k := range r.config.Notify.Email.Recipients {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
