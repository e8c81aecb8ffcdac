package instagram

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"
)

const (
	// BaseURL is the base URL for Instagram
	BaseURL = "https://www.instagram.com"

	// MobileAPIURL serves the private mobile API used for id to username lookups
	MobileAPIURL = "https://i.instagram.com/api/v1"

	// MobileUserAgent is required by the mobile API
	MobileUserAgent = "Instagram 155.0.0.37.107"

	// ReachabilityProbe is a stable public account used to detect IP blocks
	ReachabilityProbe = "instagram"
)

var shortcodePattern = regexp.MustCompile(`/p/([^/?#]+)`)

// HomeURL returns the landing page URL.
func HomeURL() string {
	return BaseURL + "/"
}

// ProfileURL constructs the public profile URL for a user
func ProfileURL(username string) string {
	if username == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/", BaseURL, username)
}

// StoriesURL constructs the stories page of a user
func StoriesURL(username string) string {
	return fmt.Sprintf("%s/stories/%s/", BaseURL, username)
}

// ExploreTagURL constructs the explore page of a hashtag
func ExploreTagURL(tag string) string {
	return fmt.Sprintf("%s/explore/tags/%s/", BaseURL, url.PathEscape(tag))
}

// PostURL constructs the URL for a specific post
func PostURL(shortcode string) string {
	if shortcode == "" {
		return ""
	}
	return fmt.Sprintf("%s/p/%s/", BaseURL, shortcode)
}

// UserInfoURL is the structured-data document for a profile.
func UserInfoURL(username string) string {
	return ProfileURL(username) + "?__a=1"
}

// PostInfoURL is the structured-data document for a post.
func PostInfoURL(shortcode string) string {
	return PostURL(shortcode) + "?__a=1"
}

// MobileUserInfoURL is the mobile API document for a numeric user id.
func MobileUserInfoURL(userID string) string {
	return fmt.Sprintf("%s/users/%s/info/", MobileAPIURL, userID)
}

// ShortcodeFromURL returns the post shortcode of a post link, or "".
func ShortcodeFromURL(link string) string {
	m := shortcodePattern.FindStringSubmatch(link)
	if m == nil {
		return ""
	}
	return m[1]
}

// CanonicalPostURL turns an href found on a listing into the absolute post
// link used as the post's identity. Relative hrefs are resolved against
// BaseURL; query strings and fragments are dropped. The second result is
// false when href is not a post link.
func CanonicalPostURL(href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}
	base, _ := url.Parse(BaseURL + "/")
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	code := ShortcodeFromURL(base.ResolveReference(ref).Path)
	if code == "" {
		return "", false
	}
	return PostURL(code), true
}

// MediaFileName returns the last path segment of a media URL without its
// query string.
func MediaFileName(mediaURL string) string {
	u, err := url.Parse(mediaURL)
	if err != nil || u.Path == "" {
		return ""
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." {
		return ""
	}
	return name
}

// MediaFilename names a downloaded post item. When the post's publish time
// is known it prefixes the file name so items sort chronologically.
func MediaFilename(mediaURL string, published *time.Time) string {
	name := MediaFileName(mediaURL)
	if published == nil {
		return name
	}
	return published.UTC().Format("2006_01_02_15_04_05") + "-" + name
}

// ParsePublishTime parses the datetime attribute of a post's time element.
func ParsePublishTime(value string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, strings.TrimSpace(value))
}

// IsValidUsername checks if a username is valid according to Instagram rules
func IsValidUsername(username string) bool {
	if username == "" || len(username) > 30 {
		return false
	}

	for _, char := range username {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '.' || char == '_') {
			return false
		}
	}

	return true
}

// SanitizeUsername strips a leading @ and trailing slashes or spaces
func SanitizeUsername(username string) string {
	username = strings.TrimSpace(username)
	username = strings.TrimPrefix(username, "@")
	return strings.TrimRight(username, "/ ")
}

// SanitizeTag strips a leading # and surrounding space, lowercasing the tag.
func SanitizeTag(tag string) string {
	tag = strings.TrimSpace(tag)
	tag = strings.TrimPrefix(tag, "#")
	return strings.ToLower(tag)
}
