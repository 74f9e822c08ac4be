// Package mock provides test doubles for Discord interaction testing.
package mock

import "github.com/bwmarrin/discordgo"

// InteractionResponder records interaction responses for test assertions.
type InteractionResponder struct {
	// Responses records all InteractionRespond calls.
	Responses []*discordgo.InteractionResponse

	// Err is returned by InteractionRespond when non-nil, allowing error
	// injection.
	Err error
}

// InteractionRespond records the response and returns the configured error.
func (m *InteractionResponder) InteractionRespond(i *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error {
	m.Responses = append(m.Responses, resp)
	return m.Err
}

// LastResponse returns the most recently recorded response, or nil.
func (m *InteractionResponder) LastResponse() *discordgo.InteractionResponse {
	if len(m.Responses) == 0 {
		return nil
	}
	return m.Responses[len(m.Responses)-1]
}

// Reset clears all recorded interactions and errors.
func (m *InteractionResponder) Reset() {
	m.Responses = nil
	m.Err = nil
}

// ChannelPoster records channel messages for audit-log testing.
type ChannelPoster struct {
	// Messages records (channelID, content) pairs in send order.
	Messages []PostedMessage

	// Err is returned by ChannelMessageSend when non-nil.
	Err error
}

// PostedMessage is one recorded ChannelMessageSend call.
type PostedMessage struct {
	ChannelID string
	Content   string
}

// ChannelMessageSend records the message and returns the configured error.
func (p *ChannelPoster) ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	p.Messages = append(p.Messages, PostedMessage{ChannelID: channelID, Content: content})
	if p.Err != nil {
		return nil, p.Err
	}
	return &discordgo.Message{ID: "mock-message"}, nil
}
