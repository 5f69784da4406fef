package enums

import "fmt"

// ChannelConvention selects how a user's private channel name is derived.
type ChannelConvention string

const (
	// ChannelConventionModel addresses App.Models.User.<id>.
	ChannelConventionModel ChannelConvention = "model"
	// ChannelConventionUser addresses user.<id>.
	ChannelConventionUser ChannelConvention = "user"
)

var validChannelConventions = []ChannelConvention{
	ChannelConventionModel,
	ChannelConventionUser,
}

// String implements fmt.Stringer.
func (c ChannelConvention) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ChannelConvention.
func (c ChannelConvention) IsValid() bool {
	for _, candidate := range validChannelConventions {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseChannelConvention converts raw input into a ChannelConvention.
func ParseChannelConvention(value string) (ChannelConvention, error) {
	for _, candidate := range validChannelConventions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid channel convention %q", value)
}
