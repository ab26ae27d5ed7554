package configuration

import (
	"os"
	"strings"
	"time"
)

// PlatformOAuth is the resolved OAuth client of one platform family.
type PlatformOAuth struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// GetPlatformOAuth returns the OAuth client credentials for a platform
// family ("twitter", "linkedin", "meta", "youtube"), with
// <FAMILY>_CLIENT_ID / <FAMILY>_CLIENT_SECRET / <FAMILY>_REDIRECT_URL
// taking precedence over the config file.
func GetPlatformOAuth(family string) PlatformOAuth {
	family = strings.ToLower(family)
	var fromFile OAuthClient
	switch family {
	case "twitter":
		fromFile = C.OAuth.Twitter
	case "linkedin":
		fromFile = C.OAuth.LinkedIn
	case "meta", "facebook", "instagram":
		family = "meta"
		fromFile = C.OAuth.Meta
	case "youtube":
		fromFile = C.OAuth.YouTube
	}
	prefix := strings.ToUpper(family)
	return PlatformOAuth{
		ClientID:     getConfigValue(fromFile.ClientID, prefix+"_CLIENT_ID", ""),
		ClientSecret: getConfigValue(fromFile.ClientSecret, prefix+"_CLIENT_SECRET", ""),
		RedirectURL:  getConfigValue(fromFile.RedirectURI, prefix+"_REDIRECT_URL", ""),
		Scopes:       fromFile.Scopes,
	}
}

func initOAuth(C *Config) {
	// Facebook app credentials were historically provided as FACEBOOK_APP_*.
	if C.OAuth.Meta.ClientID == "" {
		C.OAuth.Meta.ClientID = os.Getenv("FACEBOOK_APP_ID")
	}
	if C.OAuth.Meta.ClientSecret == "" {
		C.OAuth.Meta.ClientSecret = os.Getenv("FACEBOOK_APP_SECRET")
	}
}

func (p Publisher) AttemptTimeout() time.Duration {
	return time.Duration(p.AttemptTimeoutSeconds) * time.Second
}

func (p Publisher) HTTPTimeout() time.Duration {
	return time.Duration(p.HTTPTimeoutSeconds) * time.Second
}

func (p Publisher) MediaPollInterval() time.Duration {
	return time.Duration(p.MediaPollIntervalSeconds) * time.Second
}

func (p Publisher) MediaPollTimeout() time.Duration {
	return time.Duration(p.MediaPollTimeoutSeconds) * time.Second
}

func (p Publisher) RefreshWindow() time.Duration {
	return time.Duration(p.RefreshWindowSeconds) * time.Second
}

func (p Publisher) LockTTL() time.Duration {
	return time.Duration(p.LockTTLSeconds) * time.Second
}

func (s Scheduler) Interval() time.Duration {
	return time.Duration(s.IntervalSeconds) * time.Second
}

func (s Scheduler) BatchBudget() time.Duration {
	return time.Duration(s.BatchBudgetSeconds) * time.Second
}

// getConfigValue gets value from config first, then environment variable, then default
func getConfigValue(configValue, envKey, defaultValue string) string {
	// Environment variable takes precedence when provided
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	// Otherwise use config value if set and not a placeholder
	if configValue != "" && !strings.HasPrefix(configValue, "YOUR_") {
		return configValue
	}
	return defaultValue
}
