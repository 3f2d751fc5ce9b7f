package authflow

import "fmt"

// DefaultAvatarURLTemplate is the image service URL pattern for profile
// avatars. The %d verb receives the avatar ID; the seed query parameter is the
// only contract with the image service.
const DefaultAvatarURLTemplate = "https://api.dicebear.com/7.x/adventurer/svg?seed=avatar%d"

// DefaultAvatarMaxID caps the avatar catalog. IDs run 1..DefaultAvatarMaxID.
const DefaultAvatarMaxID = 12

// AvatarURL builds the deterministic avatar URL for id from the template.
// Both the metadata pushed to the provider and the display path go through
// this one constructor so the two never diverge.
func AvatarURL(template string, id int) string {
	if template == "" {
		template = DefaultAvatarURLTemplate
	}
	return fmt.Sprintf(template, id)
}

func avatarIDValid(id, maxID int) bool {
	return id >= 1 && id <= maxID
}
