package instagram

import (
	"encoding/json"
	"fmt"

	errs "igcrawler/pkg/errors"
)

// UserInfoDocument is the structured-data document served for a profile.
type UserInfoDocument struct {
	GraphQL struct {
		User UserInfo `json:"user"`
	} `json:"graphql"`
}

// UserInfo holds the identity fields read from a profile document.
type UserInfo struct {
	ID              string `json:"id"`
	Username        string `json:"username"`
	IsPrivate       bool   `json:"is_private"`
	ProfilePicURL   string `json:"profile_pic_url"`
	ProfilePicURLHD string `json:"profile_pic_url_hd"`
}

// PostInfoDocument is the structured-data document served for a post.
type PostInfoDocument struct {
	GraphQL struct {
		ShortcodeMedia ShortcodeMedia `json:"shortcode_media"`
	} `json:"graphql"`
}

// ShortcodeMedia describes a post or, nested under a sidecar, one of its items.
type ShortcodeMedia struct {
	ID                    string   `json:"id"`
	Shortcode             string   `json:"shortcode"`
	TakenAtTimestamp      int64    `json:"taken_at_timestamp"`
	IsVideo               bool     `json:"is_video"`
	VideoURL              string   `json:"video_url"`
	DisplayURL            string   `json:"display_url"`
	EdgeSidecarToChildren *Sidecar `json:"edge_sidecar_to_children,omitempty"`
}

// Sidecar lists the items of a multi-content post.
type Sidecar struct {
	Edges []SidecarEdge `json:"edges"`
}

// SidecarEdge wraps one carousel item.
type SidecarEdge struct {
	Node ShortcodeMedia `json:"node"`
}

// MobileUserDocument is the mobile API response for a user id.
type MobileUserDocument struct {
	User struct {
		Username string `json:"username"`
	} `json:"user"`
	Status string `json:"status"`
}

// VideoURLAt returns the video URL of carousel item index, falling back to
// the post's own video URL for single-content posts.
func (m *ShortcodeMedia) VideoURLAt(index int) (string, error) {
	if m.EdgeSidecarToChildren == nil {
		if index == 0 && m.VideoURL != "" {
			return m.VideoURL, nil
		}
		return "", errs.New(errs.ErrorTypeParsing, "post has no video url")
	}
	edges := m.EdgeSidecarToChildren.Edges
	if index < 0 || index >= len(edges) {
		return "", errs.New(errs.ErrorTypeParsing, fmt.Sprintf("carousel item %d out of range (%d items)", index, len(edges)))
	}
	if edges[index].Node.VideoURL == "" {
		return "", errs.New(errs.ErrorTypeParsing, fmt.Sprintf("carousel item %d has no video url", index))
	}
	return edges[index].Node.VideoURL, nil
}

// ParseUserInfo decodes a profile document and checks that an id is present.
func ParseUserInfo(data []byte) (*UserInfo, error) {
	var doc UserInfoDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeParsing, err, "decode user info")
	}
	if doc.GraphQL.User.ID == "" {
		return nil, errs.New(errs.ErrorTypeNotFound, "user info has no graphql.user.id")
	}
	return &doc.GraphQL.User, nil
}

// ParsePostInfo decodes a post document.
func ParsePostInfo(data []byte) (*ShortcodeMedia, error) {
	var doc PostInfoDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeParsing, err, "decode post info")
	}
	media := doc.GraphQL.ShortcodeMedia
	if media.ID == "" && media.Shortcode == "" && media.EdgeSidecarToChildren == nil && media.VideoURL == "" {
		return nil, errs.New(errs.ErrorTypeParsing, "post info has no graphql.shortcode_media")
	}
	return &media, nil
}

// ParseMobileUser decodes the mobile user document and returns the username.
func ParseMobileUser(data []byte) (string, error) {
	var doc MobileUserDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", errs.Wrap(errs.ErrorTypeParsing, err, "decode mobile user info")
	}
	if doc.User.Username == "" {
		return "", errs.New(errs.ErrorTypeNotFound, "mobile user info has no user.username")
	}
	return doc.User.Username, nil
}
