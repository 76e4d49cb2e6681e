package models

import "fmt"

// Provider represents a logical OAuth provider family.
type Provider string

const (
	ProviderGitHub    Provider = "github"
	ProviderAtlassian Provider = "atlassian"
)

// NormalizeProvider canonicalizes a raw provider name into a provider family.
// "jira" and "atlassian" are the same logical provider.
func NormalizeProvider(raw string) (Provider, error) {
	switch raw {
	case "github":
		return ProviderGitHub, nil
	case "atlassian", "jira":
		return ProviderAtlassian, nil
	default:
		return "", fmt.Errorf("unsupported provider: %q", raw)
	}
}

// Valid reports whether the provider is a known family.
func (p Provider) Valid() bool {
	return p == ProviderGitHub || p == ProviderAtlassian
}
