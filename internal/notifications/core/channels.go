package core

import (
	"context"

	"carewatch/internal/types"
)

// TransportChannel delivers through a types.Transport to the contact's email
// address. Both email and app notifications use it.
type TransportChannel struct {
	channel   types.ChannelType
	transport types.Transport
}

// NewTransportChannel binds a channel type to a transport.
func NewTransportChannel(channel types.ChannelType, transport types.Transport) *TransportChannel {
	return &TransportChannel{channel: channel, transport: transport}
}

func (c *TransportChannel) Type() types.ChannelType { return c.channel }

func (c *TransportChannel) Deliver(ctx context.Context, contact types.EmergencyContact, msg Message) (types.DeliveryStatus, string, error) {
	if contact.Email == "" {
		return types.DeliverySkipped, "contact has no email address", nil
	}
	if err := c.transport.Send(ctx, c.channel, contact.Email, msg.Subject, msg.Body); err != nil {
		return types.DeliveryFailed, "", err
	}
	return types.DeliverySent, "", nil
}

// StubChannel accepts a channel type with no provider behind it. Every
// delivery is reported as skipped.
type StubChannel struct {
	channel types.ChannelType
}

// NewStubChannel returns a channel that never delivers.
func NewStubChannel(channel types.ChannelType) *StubChannel {
	return &StubChannel{channel: channel}
}

func (c *StubChannel) Type() types.ChannelType { return c.channel }

func (c *StubChannel) Deliver(context.Context, types.EmergencyContact, Message) (types.DeliveryStatus, string, error) {
	return types.DeliverySkipped, "channel not implemented", nil
}

// DefaultChannels wires the standard channel set: email and app
// notifications over transport, sms and phone calls as stubs.
func DefaultChannels(transport types.Transport) []Channel {
	return []Channel{
		NewTransportChannel(types.ChannelEmail, transport),
		NewTransportChannel(types.ChannelAppNotification, transport),
		NewStubChannel(types.ChannelSMS),
		NewStubChannel(types.ChannelPhoneCall),
	}
}
