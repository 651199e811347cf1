package room

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

const (
	minRoomNameLength  = 3
	maxRoomNameLength  = 100
	minParticipants    = 2
	maxParticipants    = 50
	minPlaybackSpeed   = 0.25
	maxPlaybackSpeed   = 2.0
	maxMediaUrlLength  = 2048
	maxMediaTypeLength = 32
)

var HostIdRule = []validation.Rule{
	validation.Required,
}

var RoomNameRule = []validation.Rule{
	validation.Required,
	validation.RuneLength(minRoomNameLength, maxRoomNameLength),
}

var MaxParticipantsRule = []validation.Rule{
	validation.Required,
	validation.Min(minParticipants),
	validation.Max(maxParticipants),
}

var MediaUrlRule = []validation.Rule{
	validation.Length(0, maxMediaUrlLength),
	is.URL,
}

var MediaTypeRule = []validation.Rule{
	validation.Length(0, maxMediaTypeLength),
}

var CurrentTimeRule = []validation.Rule{
	validation.Min(0.0),
}

var PlaybackSpeedRule = []validation.Rule{
	validation.NilOrNotEmpty,
	validation.Min(minPlaybackSpeed),
	validation.Max(maxPlaybackSpeed),
}

func (p *PlaybackPatch) validate() error {
	if err := validation.ValidateStruct(p,
		validation.Field(&p.MediaUrl, MediaUrlRule...),
		validation.Field(&p.MediaType, MediaTypeRule...),
		validation.Field(&p.CurrentTime, CurrentTimeRule...),
		validation.Field(&p.PlaybackSpeed, PlaybackSpeedRule...),
	); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPlaybackPatch, err)
	}

	return nil
}
