package notify

import "time"

// SlackPayload is an incoming-webhook message using Block Kit.
type SlackPayload struct {
	Text     string       `json:"text"`
	Username string       `json:"username,omitempty"`
	Blocks   []SlackBlock `json:"blocks"`
}

type SlackBlock struct {
	Type     string       `json:"type"`
	Text     *SlackText   `json:"text,omitempty"`
	Elements []*SlackText `json:"elements,omitempty"`
}

type SlackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// DiscordPayload is a webhook message with one embed.
type DiscordPayload struct {
	Username string         `json:"username,omitempty"`
	Embeds   []DiscordEmbed `json:"embeds"`
}

type DiscordEmbed struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	URL         string              `json:"url,omitempty"`
	Color       int                 `json:"color"`
	Footer      *DiscordEmbedFooter `json:"footer,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
}

type DiscordEmbedFooter struct {
	Text string `json:"text"`
}

const (
	maxSlackText          = 3000
	maxDiscordTitle       = 256
	maxDiscordDescription = 4096
	discordBlue           = 5793266
)

func slackPayload(username string, msg Message) SlackPayload {
	header := "*" + msg.Title + "*"
	if msg.URL != "" {
		header = "*<" + msg.URL + "|" + msg.Title + ">*"
	}
	blocks := []SlackBlock{
		{Type: "section", Text: &SlackText{Type: "mrkdwn", Text: truncate(header+"\n"+msg.Text, maxSlackText)}},
	}
	if msg.Footer != "" {
		blocks = append(blocks, SlackBlock{Type: "context", Elements: []*SlackText{{Type: "mrkdwn", Text: msg.Footer}}})
	}
	return SlackPayload{
		Text:     truncate(msg.Title+": "+msg.Text, maxSlackText),
		Username: username,
		Blocks:   blocks,
	}
}

func discordPayload(username string, msg Message) DiscordPayload {
	embed := DiscordEmbed{
		Title:       truncate(msg.Title, maxDiscordTitle),
		Description: truncate(msg.Text, maxDiscordDescription),
		URL:         msg.URL,
		Color:       discordBlue,
	}
	if msg.Footer != "" {
		embed.Footer = &DiscordEmbedFooter{Text: msg.Footer}
	}
	if !msg.Timestamp.IsZero() {
		embed.Timestamp = msg.Timestamp.UTC().Format(time.RFC3339)
	}
	return DiscordPayload{Username: username, Embeds: []DiscordEmbed{embed}}
}
