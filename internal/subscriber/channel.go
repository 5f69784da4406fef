package subscriber

import (
	"strconv"

	"github.com/propnest/propnest-client/pkg/enums"
)

// ChannelNamer derives a user's private channel name.
type ChannelNamer interface {
	Channel(userID int64) string
	Convention() enums.ChannelConvention
}

// ModelChannel addresses App.Models.User.<id>, Laravel's default notifiable channel.
type ModelChannel struct{}

func (ModelChannel) Channel(userID int64) string {
	return "App.Models.User." + strconv.FormatInt(userID, 10)
}

func (ModelChannel) Convention() enums.ChannelConvention {
	return enums.ChannelConventionModel
}

// UserChannel addresses user.<id>.
type UserChannel struct{}

func (UserChannel) Channel(userID int64) string {
	return "user." + strconv.FormatInt(userID, 10)
}

func (UserChannel) Convention() enums.ChannelConvention {
	return enums.ChannelConventionUser
}

// NamerFor maps a configured convention to its namer, defaulting to ModelChannel.
func NamerFor(convention enums.ChannelConvention) ChannelNamer {
	if convention == enums.ChannelConventionUser {
		return UserChannel{}
	}
	return ModelChannel{}
}
